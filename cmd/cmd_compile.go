// cmd_compile.go - Lokales Kompilieren und Validieren von Konfigurationen
// Hauptfunktionen: CompileHandler, ValidateHandler, renderGraph
package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/moliushang/gqcnn/api"
	"github.com/moliushang/gqcnn/arch"
	"github.com/moliushang/gqcnn/config"
	"github.com/moliushang/gqcnn/envconfig"
)

// CompileHandler - Kompiliert eine Konfiguration und zeigt das Kompilat an
func CompileHandler(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(args[0])
	if err != nil {
		return err
	}
	graph, err := cfg.Compile()
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	if name, _ := cmd.Flags().GetString("save"); name != "" {
		source, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		client, err := api.ClientFromEnvironment()
		if err != nil {
			return err
		}
		resp, err := client.Compile(cmd.Context(), &api.CompileRequest{
			Config: string(source),
			Save:   true,
			Name:   name,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "registered %q (%s)\n", resp.Name, resp.ID)
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(graph)
	}

	renderGraph(graph)
	return nil
}

// renderGraph - Zeigt das Kompilat Stream fuer Stream als Tabelle an
func renderGraph(graph *arch.GraphDescription) {
	var data [][]string
	for _, stream := range graph.Streams {
		for i, layer := range stream.Layers {
			name := ""
			if i == 0 {
				name = stream.Name
			}
			data = append(data, []string{name, layer.Name, string(layer.Type), layer.Output.String()})
		}
	}
	for i, layer := range graph.Merge.Layers {
		name := ""
		if i == 0 {
			name = fmt.Sprintf("%s <- %s", arch.StreamMerge, strings.Join(graph.Merge.Inputs, ", "))
		}
		data = append(data, []string{name, layer.Name, string(layer.Type), layer.Output.String()})
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"STREAM", "LAYER", "TYPE", "OUTPUT"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()

	fmt.Printf("\noutput size: %d\n", graph.OutputSize)
}

// ValidateHandler - Prueft mehrere Konfigurationen parallel
func ValidateHandler(cmd *cobra.Command, args []string) error {
	g, _ := errgroup.WithContext(cmd.Context())
	g.SetLimit(int(envconfig.MaxCompiles()))

	results := make([]error, len(args))
	for i, path := range args {
		i, path := i, path
		g.Go(func() error {
			cfg, err := config.Load(path)
			if err == nil {
				_, err = cfg.Compile()
			}
			results[i] = err
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var failed int
	for i, path := range args {
		if results[i] != nil {
			failed++
			fmt.Printf("%s: %v\n", path, results[i])
			continue
		}
		fmt.Printf("%s: ok\n", path)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d configurations invalid", failed, len(args))
	}
	return nil
}

// newCompileCmd - Erstellt den compile Command
func newCompileCmd() *cobra.Command {
	compileCmd := &cobra.Command{
		Use:   "compile CONFIG",
		Short: "Compile a training configuration into an architecture graph",
		Args:  cobra.ExactArgs(1),
		RunE:  CompileHandler,
	}
	compileCmd.Flags().Bool("json", false, "Print the compiled graph as JSON")
	compileCmd.Flags().String("save", "", "Register the compiled graph on the server under this name")
	return compileCmd
}

// newValidateCmd - Erstellt den validate Command
func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate CONFIG...",
		Short: "Validate training configurations without compiling output",
		Args:  cobra.MinimumNArgs(1),
		RunE:  ValidateHandler,
	}
}
