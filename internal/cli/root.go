// internal/cli/root.go
package dossier

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mwiater/dossier/internal/appconfig"
	"github.com/mwiater/dossier/internal/history"
	"github.com/mwiater/dossier/internal/logging"
	"github.com/mwiater/dossier/internal/persona"
	"github.com/mwiater/dossier/internal/pipeline"
)

var (
	cfgFile       string
	currentConfig *appconfig.Config
)

var rootCmd = &cobra.Command{
	Use:          "dossier",
	Short:        "dossier — retrieval-grounded portfolio Q&A in the terminal",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// 1) Load the config file (a missing file at the default path
		//    just means built-in defaults).
		cfg, err := loadFileConfig()
		if err != nil {
			return err
		}

		// 2) Overlay any flags the user actually set, so the merged
		//    order is flags > config > defaults.
		flags := cmd.Flags()
		if flags.Changed("debug") {
			cfg.Debug = viper.GetBool("debug")
		}
		if flags.Changed("persona") {
			cfg.Persona = viper.GetString("persona")
		}
		if flags.Changed("provider") {
			cfg.Provider = viper.GetString("provider")
		}
		if flags.Changed("top-k") {
			cfg.TopKCount = viper.GetInt("top-k")
		}
		if flags.Changed("min-score") {
			minScore := viper.GetFloat64("min-score")
			cfg.MinScoreValue = &minScore
		}

		// 3) Validate the merged view once so every subcommand can
		//    trust the snapshot it reads from getConfig.
		if _, err := persona.Parse(cfg.PersonaTag()); err != nil {
			return err
		}
		if err := logging.Init(cfg.LogFilePath()); err != nil {
			return fmt.Errorf("open log file: %w", err)
		}

		currentConfig = &cfg
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Close()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", appconfig.DefaultConfigPath, "config file (e.g., config/config.json)")

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().Bool("debug", false, "log full request and response payloads")
	rootCmd.PersistentFlags().String("persona", "", "answer persona: visitor, hiring-manager, technical-hiring-manager, or developer")
	rootCmd.PersistentFlags().String("provider", "", "model provider: openai or ollama")
	rootCmd.PersistentFlags().Int("top-k", 0, "number of records to retrieve per question")
	rootCmd.PersistentFlags().Float64("min-score", 0, "similarity threshold below which records are dropped")

	// Bind flags to Viper keys (flags override config)
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("persona", rootCmd.PersistentFlags().Lookup("persona"))
	_ = viper.BindPFlag("provider", rootCmd.PersistentFlags().Lookup("provider"))
	_ = viper.BindPFlag("top-k", rootCmd.PersistentFlags().Lookup("top-k"))
	_ = viper.BindPFlag("min-score", rootCmd.PersistentFlags().Lookup("min-score"))
}

// loadFileConfig reads the configuration file named by --config. A file
// missing from the default path falls back to built-in defaults, while an
// explicitly named file must exist.
func loadFileConfig() (appconfig.Config, error) {
	cfg, err := appconfig.Load(cfgFile)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, os.ErrNotExist) && cfgFile == appconfig.DefaultConfigPath {
		return appconfig.Config{}, nil
	}
	return appconfig.Config{}, err
}

// getConfig returns the merged application configuration for subcommands.
func getConfig() *appconfig.Config {
	if currentConfig == nil {
		currentConfig = &appconfig.Config{}
	}
	return currentConfig
}

// sessionPersona resolves the persona for this invocation from the merged
// configuration.
func sessionPersona() (persona.Persona, error) {
	return persona.Parse(getConfig().PersonaTag())
}

// newPipeline builds the answer pipeline with the interaction log attached
// when it can be opened. History is best-effort: a store that fails to open
// disables recording but never blocks answering.
func newPipeline(cfg *appconfig.Config) (*pipeline.Pipeline, *history.Store, error) {
	pipe, err := pipeline.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	store, err := history.Open(cfg.HistoryFilePath())
	if err != nil {
		logging.LogEvent("[CLI] History disabled: %v", err)
		return pipe, nil, nil
	}
	pipe.SetHistory(store)
	return pipe, store, nil
}
