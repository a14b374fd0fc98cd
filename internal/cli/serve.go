// internal/cli/serve.go
package dossier

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mwiater/dossier/internal/server"
)

var serverConfigPath string

// serveCmd implements 'serve', which exposes the answer pipeline as a JSON
// HTTP service.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve answers over HTTP",
	Long:  `The 'serve' command exposes the answer pipeline as a JSON HTTP service with endpoints for answering, rebuilding the index, and reading history aggregates. The index is prepared before the listener starts so the first request does not pay the build cost.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()

		serverCfg, err := server.LoadConfig(serverConfigPath)
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

		if err := pipe.EnsureReady(cmd.Context()); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return server.New(serverCfg, pipe, store).Run(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serverConfigPath, "server-config", "", "YAML file with the listen address and shutdown grace period")
	rootCmd.AddCommand(serveCmd)
}
