// internal/cli/index.go
package dossier

import (
	"github.com/spf13/cobra"
)

// indexCmd groups the vector index maintenance subcommands.
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build and inspect the vector index",
}

func init() {
	rootCmd.AddCommand(indexCmd)
}
