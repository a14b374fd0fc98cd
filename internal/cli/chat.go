// internal/cli/chat.go
package dossier

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mwiater/dossier/internal/tui"
)

// chatCmd implements 'chat', which opens the full-screen terminal session
// against the answer pipeline.
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the portfolio assistant in the terminal",
	Long:  `The 'chat' command opens a full-screen terminal session against the answer pipeline. Each question runs through the same retrieval and generation path as 'ask', and every turn is recorded in the interaction log.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()
		who, err := sessionPersona()
		if err != nil {
			return err
		}

		pipe, store, err := newPipeline(cfg)
		if err != nil {
			return err
		}
		if store != nil {
			defer store.Close()
		}

		// Warm the index before taking over the screen so the first
		// question is not stuck behind a corpus embed.
		fmt.Println("Preparing the index...")
		if err := pipe.EnsureReady(cmd.Context()); err != nil {
			return err
		}

		return tui.Run(cmd.Context(), pipe, who)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
