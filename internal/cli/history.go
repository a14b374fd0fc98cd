// internal/cli/history.go
package dossier

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mwiater/dossier/internal/history"
	"github.com/mwiater/dossier/internal/util"
)

// answerPreviewRunes caps how much of each stored answer the list view
// shows per interaction.
const answerPreviewRunes = 240

var historyLimit int

// historyCmd implements 'history', which lists recent interactions from
// the local log, newest first.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent questions and answers",
	Long:  `The 'history' command lists the most recent interactions recorded by 'ask', 'chat', and 'serve', newest first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()

		store, err := history.Open(cfg.HistoryFilePath())
		if err != nil {
			return fmt.Errorf("open history at %s: %w", cfg.HistoryFilePath(), err)
		}
		defer store.Close()

		interactions, err := store.Recent(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		if len(interactions) == 0 {
			fmt.Println("No interactions recorded yet.")
			return nil
		}

		for _, interaction := range interactions {
			stamp := interaction.CreatedAt.Local().Format("2006-01-02 15:04:05")
			line := fmt.Sprintf("%s · %s · %dms", stamp, interaction.Persona, interaction.ElapsedMS)
			if interaction.Degraded {
				line += " · degraded"
			}
			fmt.Println(faintNote(line))
			fmt.Printf("Q: %s\n", interaction.Question)
			fmt.Printf("A: %s\n\n", util.TruncateRunes(interaction.Answer, answerPreviewRunes))
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of interactions to show")
	rootCmd.AddCommand(historyCmd)
}
