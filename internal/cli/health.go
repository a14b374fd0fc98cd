// internal/cli/health.go
package dossier

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mwiater/dossier/internal/health"
)

var liveCheck bool

var passMark = color.New(color.FgGreen).SprintFunc()
var failMark = color.New(color.FgRed).SprintFunc()

// healthCmd implements 'health', which verifies each piece the pipeline
// depends on and exits non-zero when anything fails.
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the config, corpus, index, history, and provider settings",
	Long:  `The 'health' command verifies each piece the pipeline depends on and prints one line per check. With --live it also embeds a probe string against the configured provider, which costs one API call.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		results := health.Run(cmd.Context(), getConfig(), health.Options{Live: liveCheck})

		for _, result := range results {
			mark := passMark("[OK]  ")
			if !result.OK {
				mark = failMark("[FAIL]")
			}
			fmt.Printf("%s %-9s %s\n", mark, result.Name, result.Detail)
		}

		if !health.AllOK(results) {
			return fmt.Errorf("one or more health checks failed")
		}
		return nil
	},
}

func init() {
	healthCmd.Flags().BoolVar(&liveCheck, "live", false, "also run one embedding call against the provider")
	rootCmd.AddCommand(healthCmd)
}
