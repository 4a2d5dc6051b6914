// Package cmd holds the routeqa command line.
package cmd

import (
	"context"
	"fmt"

	"routeqa/config"
	"routeqa/llm/agent"
	"routeqa/llm/tracing"
	"routeqa/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

var (
	cfgFile  string
	logLevel string

	appConfig *config.Config
	logger    = zap.NewNop()

	// buildComponents is replaced in tests.
	buildComponents = agent.Build
)

var rootCmd = &cobra.Command{
	Use:   "routeqa",
	Short: "Answer weather and document questions",
	Long: `routeqa routes each question either to a live weather lookup or to
retrieval-augmented answering over a document you provide.

Questions mentioning the weather (temperature, rain, forecast, ...) are
answered from the weather API. Everything else is answered from the
selected document.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func loadConfig(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	l, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	appConfig, logger = cfg, l
	return nil
}

// setup wires tracing and the application components. The returned func
// releases both.
func setup(ctx context.Context) (*agent.Components, func(), error) {
	closeTracing, err := tracing.Setup(ctx, appConfig.Tracing, logger.Named("tracing"))
	if err != nil {
		logger.Warn("tracing setup failed", zap.Error(err))
	}

	comps, err := buildComponents(ctx, appConfig, logger)
	if err != nil {
		closeTracing()
		return nil, nil, fmt.Errorf("failed to build components: %w", err)
	}

	return comps, func() {
		if err := comps.Close(); err != nil {
			logger.Warn("failed to close vector index", zap.Error(err))
		}
		closeTracing()
	}, nil
}
