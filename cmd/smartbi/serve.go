// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/pdiddy/smartbi/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the normalization pipeline over HTTP",
	Long: `Serve exposes the pipeline as a JSON API:

  POST /v1/normalize      normalize a question
  POST /v1/validate       validate a request document
  GET  /v1/metrics/hints  metric hints for ?text=
  GET  /healthz           liveness`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := appConfig
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	pipeline, v, err := newPipeline(cfg)
	if err != nil {
		return err
	}

	opts := server.Options{
		Config:      cfg.Server,
		Normalizer:  pipeline,
		Validator:   v,
		CatalogPath: cfg.Paths.Catalog,
		Logger:      slog.New(slog.NewJSONHandler(os.Stderr, nil)),
	}
	store, err := openAudit(cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
		opts.Recorder = store
	}

	gin.SetMode(gin.ReleaseMode)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return server.New(opts).Run(ctx)
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default from config, :8080)")
	rootCmd.AddCommand(serveCmd)
}
