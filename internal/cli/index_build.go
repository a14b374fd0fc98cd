// internal/cli/index_build.go
package dossier

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mwiater/dossier/internal/index"
	"github.com/mwiater/dossier/internal/pipeline"
)

var forceRebuild bool

// indexBuildCmd implements 'index build', which embeds the corpus and
// writes the snapshot the other commands load.
var indexBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Embed the corpus and write the index snapshot",
	Long:  `The 'build' subcommand loads the corpus CSV, embeds every record through the configured provider, and writes the result to the index snapshot path. A readable existing snapshot is left untouched unless --force is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()

		if !forceRebuild {
			if _, err := index.Load(cfg.IndexFilePath()); err == nil {
				return fmt.Errorf("index snapshot already exists at %s (use --force to rebuild)", cfg.IndexFilePath())
			}
		}

		pipe, err := pipeline.New(cfg)
		if err != nil {
			return err
		}

		count, err := pipe.Rebuild(cmd.Context())
		if err != nil {
			return err
		}

		_, dimension, _ := pipe.IndexStats()
		fmt.Printf("Indexed %d records (%d-dimensional) to %s\n", count, dimension, cfg.IndexFilePath())
		return nil
	},
}

func init() {
	indexBuildCmd.Flags().BoolVar(&forceRebuild, "force", false, "rebuild even when a snapshot already exists")
	indexCmd.AddCommand(indexBuildCmd)
}
