package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"routeqa/server"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the question API over HTTP",
	Long: `Starts the HTTP API.

Endpoints:
  POST /api/v1/ask     {"question": "...", "document": "path", "top_k": 4}
  POST /api/v1/ingest  {"document": "path"}
  GET  /health`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "listen address (default from config, :8080)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	comps, cleanup, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	cfg := appConfig.Server
	if serveAddr != "" {
		cfg.Addr = serveAddr
	}
	srv := server.NewServer(comps.Flow, comps.RAG, cfg, logger.Named("server"))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errCh:
		return err
	case <-sigChan:
	}

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		logger.Warn("server shutdown failed", zap.Error(err))
	}
	return nil
}
