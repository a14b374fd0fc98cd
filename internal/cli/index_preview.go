// internal/cli/index_preview.go
package dossier

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mwiater/dossier/internal/index"
	"github.com/mwiater/dossier/internal/providerfactory"
	"github.com/mwiater/dossier/internal/retrieve"
)

var previewQuery string

var keptMark = color.New(color.FgGreen).SprintFunc()
var droppedMark = color.New(color.Faint).SprintFunc()

// indexPreviewCmd implements 'index preview', which scores a query against
// the snapshot without generating an answer.
var indexPreviewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Show retrieval scores for a query without answering",
	Long:  `The 'preview' subcommand embeds a query and prints every candidate record with its similarity score, marking which records would survive the configured threshold. No answer is generated, so it costs one embedding call.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()

		ix, err := index.Load(cfg.IndexFilePath())
		if err != nil {
			return fmt.Errorf("load index (run 'dossier index build' first): %w", err)
		}

		embedder, err := providerfactory.NewEmbedder(cfg)
		if err != nil {
			return err
		}

		retriever := retrieve.New(embedder, cfg.TopK(), cfg.MinScore(), cfg.EmbedCacheSize())
		results, err := retriever.Preview(cmd.Context(), ix, previewQuery)
		if err != nil {
			return err
		}

		fmt.Printf("Index: %d records, %d dimensions\n", ix.Len(), ix.Dimension())
		fmt.Printf("Query: %q (top-k %d, threshold %.2f)\n\n", previewQuery, cfg.TopK(), cfg.MinScore())

		kept := 0
		for _, result := range results {
			mark := droppedMark("drop")
			if result.Score >= cfg.MinScore() {
				mark = keptMark("keep")
				kept++
			}
			fmt.Printf("  [%s] %.4f  #%d  %s\n", mark, result.Score, result.Record.ID, result.Record.Question)
		}
		fmt.Printf("\n%d of %d candidates meet the threshold\n", kept, len(results))
		return nil
	},
}

func init() {
	indexPreviewCmd.Flags().StringVar(&previewQuery, "query", "", "query text to score against the index")
	_ = indexPreviewCmd.MarkFlagRequired("query")
	indexCmd.AddCommand(indexPreviewCmd)
}
