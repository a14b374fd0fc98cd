// internal/cli/ask.go
package dossier

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mwiater/dossier/internal/pipeline"
)

var faintNote = color.New(color.Faint).SprintFunc()
var degradedNote = color.New(color.FgYellow).SprintFunc()

// askCmd implements 'ask', which answers a single question and prints the
// grounded reply with the record IDs it drew on.
var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask one question and print the answer",
	Long:  `The 'ask' command embeds the question, retrieves the closest corpus records, and prints the generated answer together with the record IDs it was grounded on. The index is built from the corpus on first use.`,
	Args:  cobra.MinimumNArgs(1),
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

		response, err := pipe.Answer(cmd.Context(), pipeline.AnswerRequest{
			Question: strings.Join(args, " "),
			Persona:  who,
		})
		if err != nil {
			return err
		}

		printAnswer(response)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
}

// printAnswer writes the answer text followed by an attribution line.
func printAnswer(response *pipeline.AnswerResponse) {
	fmt.Println(response.AnswerText)
	fmt.Println()

	attribution := "sources: none"
	if len(response.Sources) > 0 {
		attribution = fmt.Sprintf("sources: %v", response.Sources)
	}
	fmt.Println(faintNote(fmt.Sprintf("%s · persona: %s · %dms", attribution, response.Persona, response.ElapsedMS)))

	if response.Degraded {
		fmt.Println(degradedNote("note: retrieval was unavailable, so this answer is not grounded in the corpus"))
	}
}
