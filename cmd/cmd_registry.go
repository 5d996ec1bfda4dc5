// cmd_registry.go - Registry-Commands gegen den laufenden Server
// Hauptfunktionen: ListHandler, ShowHandler, DeleteHandler, checkServerHeartbeat
package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/moliushang/gqcnn/api"
)

// checkServerHeartbeat - Prueft ob der Server erreichbar ist
func checkServerHeartbeat(cmd *cobra.Command, _ []string) error {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return err
	}
	if err := client.Heartbeat(cmd.Context()); err != nil {
		if strings.Contains(err.Error(), " refused") {
			return fmt.Errorf("could not connect to a running gqcnn server, start one with 'gqcnn serve'")
		}
		return err
	}
	return nil
}

// ListHandler - Listet alle registrierten Architekturen auf
func ListHandler(cmd *cobra.Command, args []string) error {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return err
	}

	list, err := client.List(cmd.Context())
	if err != nil {
		return err
	}

	var data [][]string
	for _, a := range list.Architectures {
		if len(args) == 0 || strings.HasPrefix(a.Name, args[0]) {
			data = append(data, []string{
				a.Name,
				a.ID[:12],
				a.GripperMode,
				strconv.Itoa(a.OutputSize),
				a.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			})
		}
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"NAME", "ID", "GRIPPER", "OUTPUT", "CREATED"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()

	return nil
}

// ShowHandler - Zeigt eine registrierte Architektur samt Kompilat an
func ShowHandler(cmd *cobra.Command, args []string) error {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return err
	}

	resp, err := client.Show(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("name: %s\n", resp.Name)
	fmt.Printf("id: %s\n", resp.ID)
	if resp.GripperMode != "" {
		fmt.Printf("gripper mode: %s\n", resp.GripperMode)
	}
	fmt.Printf("created: %s\n\n", resp.CreatedAt.Local().Format("2006-01-02 15:04:05"))

	renderGraph(resp.Graph)
	return nil
}

// DeleteHandler - Entfernt registrierte Architekturen
func DeleteHandler(cmd *cobra.Command, args []string) error {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return err
	}
	for _, name := range args {
		if err := client.Delete(cmd.Context(), name); err != nil {
			return err
		}
		fmt.Printf("deleted %q\n", name)
	}
	return nil
}

// newListCmd - Erstellt den list Command
func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List registered architectures",
		PreRunE: checkServerHeartbeat,
		RunE:    ListHandler,
	}
}

// newShowCmd - Erstellt den show Command
func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "show NAME",
		Short:   "Show a registered architecture",
		Args:    cobra.ExactArgs(1),
		PreRunE: checkServerHeartbeat,
		RunE:    ShowHandler,
	}
}

// newDeleteCmd - Erstellt den rm Command
func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm NAME...",
		Aliases: []string{"delete"},
		Short:   "Remove registered architectures",
		Args:    cobra.MinimumNArgs(1),
		PreRunE: checkServerHeartbeat,
		RunE:    DeleteHandler,
	}
}
