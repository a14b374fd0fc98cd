// internal/cli/history_summary.go
package dossier

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mwiater/dossier/internal/history"
)

// historySummaryCmd implements 'history summary', which prints aggregate
// statistics over the whole interaction log.
var historySummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show aggregate statistics for the interaction log",
	Long:  `The 'summary' subcommand prints totals, latency aggregates, and per-persona counts for everything in the interaction log.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()

		store, err := history.Open(cfg.HistoryFilePath())
		if err != nil {
			return fmt.Errorf("open history at %s: %w", cfg.HistoryFilePath(), err)
		}
		defer store.Close()

		summary, err := store.Summarize(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Interactions: %d\n", summary.Total)
		fmt.Printf("Degraded:     %d\n", summary.Degraded)
		fmt.Printf("Avg elapsed:  %.0fms\n", summary.AvgElapsedMS)
		fmt.Printf("Max elapsed:  %dms\n", summary.MaxElapsedMS)
		if busiest := summary.BusiestPersona(); busiest != "" {
			fmt.Printf("Busiest:      %s\n", busiest)
		}

		if len(summary.ByPersona) > 0 {
			fmt.Println("\nBy persona:")
			names := make([]string, 0, len(summary.ByPersona))
			for name := range summary.ByPersona {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Printf("  %-26s %d\n", name, summary.ByPersona[name])
			}
		}
		return nil
	},
}

func init() {
	historyCmd.AddCommand(historySummaryCmd)
}
