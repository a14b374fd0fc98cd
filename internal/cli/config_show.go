// internal/cli/config_show.go
package dossier

import (
	"fmt"

	"github.com/k0kubun/pp"
	"github.com/spf13/cobra"

	"github.com/mwiater/dossier/internal/appconfig"
)

// configCmd groups configuration inspection subcommands.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the effective configuration",
}

// configShowCmd implements 'config show', which prints the merged
// configuration and the resolved values the pipeline will actually use.
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the merged configuration",
	Long:  `The 'show' subcommand prints the configuration after merging the file with command-line flags, followed by the resolved values the pipeline will use, including defaults for anything left unset.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := getConfig()
		appconfig.ShowConfig(cmd.OutOrStdout(), cfg)

		fmt.Println("\nRaw merged config:")
		pp.Println(*cfg)
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
