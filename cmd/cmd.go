// cmd.go - Haupt-CLI Setup und Root Command
// Hauptfunktionen: NewCLI, appendEnvDocs
package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/moliushang/gqcnn/api"
	"github.com/moliushang/gqcnn/envconfig"
	"github.com/moliushang/gqcnn/version"
)

// appendEnvDocs - Fuegt Umgebungsvariablen-Dokumentation zum Command hinzu
func appendEnvDocs(cmd *cobra.Command, envs []envconfig.EnvVar) {
	if len(envs) == 0 {
		return
	}

	envUsage := `
Environment Variables:
`
	for _, e := range envs {
		envUsage += fmt.Sprintf("      %-24s   %s\n", e.Name, e.Description)
	}

	cmd.SetUsageTemplate(cmd.UsageTemplate() + envUsage)
}

// versionHandler - Zeigt Client- und Server-Version an
func versionHandler(cmd *cobra.Command, _ []string) {
	fmt.Printf("gqcnn version is %s\n", version.Version)

	client, err := api.ClientFromEnvironment()
	if err != nil {
		return
	}
	serverVersion, err := client.Version(cmd.Context())
	if err != nil {
		return
	}
	if serverVersion != version.Version {
		fmt.Printf("Warning: server version is %s\n", serverVersion)
	}
}

// NewCLI - Erstellt das Haupt-CLI mit allen Commands
func NewCLI() *cobra.Command {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:           "gqcnn",
		Short:         "Grasp quality network architecture compiler",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		Run: func(cmd *cobra.Command, args []string) {
			if version, _ := cmd.Flags().GetBool("version"); version {
				versionHandler(cmd, args)
				return
			}

			cmd.Print(cmd.UsageString())
		},
	}

	rootCmd.Flags().BoolP("version", "v", false, "Show version information")

	// Commands erstellen
	compileCmd := newCompileCmd()
	validateCmd := newValidateCmd()
	showCmd := newShowCmd()
	listCmd := newListCmd()
	deleteCmd := newDeleteCmd()
	serveCmd := newServeCmd()

	// Environment-Dokumentation hinzufuegen
	envVars := envconfig.AsMap()
	envs := []envconfig.EnvVar{envVars["GQCNN_HOST"]}

	for _, cmd := range []*cobra.Command{
		compileCmd,
		validateCmd,
		showCmd,
		listCmd,
		deleteCmd,
		serveCmd,
	} {
		switch cmd {
		case validateCmd:
			appendEnvDocs(cmd, []envconfig.EnvVar{envVars["GQCNN_MAX_COMPILES"]})
		case serveCmd:
			appendEnvDocs(cmd, []envconfig.EnvVar{
				envVars["GQCNN_DEBUG"],
				envVars["GQCNN_HOST"],
				envVars["GQCNN_MODELS"],
				envVars["GQCNN_ORIGINS"],
				envVars["GQCNN_REGISTRY"],
			})
		default:
			appendEnvDocs(cmd, envs)
		}
	}

	rootCmd.AddCommand(
		compileCmd,
		validateCmd,
		showCmd,
		listCmd,
		deleteCmd,
		serveCmd,
	)

	return rootCmd
}
