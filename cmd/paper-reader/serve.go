// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-reader/internal/pipeline"
	"github.com/pdiddy/paper-reader/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the pipeline over HTTP",
	Long: `Serve starts the HTTP service: upload an identifier list and PDFs,
start a background run (one at a time), poll its status, download the
latest export, and scrape Prometheus metrics from /metrics.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :8000)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(viper.GetViper(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := server.New(server.Config{
		Run: func(ctx context.Context, o server.Overrides, started func(string)) (pipeline.RunResult, error) {
			ids, err := a.identifiers(nil)
			if err != nil {
				return pipeline.RunResult{}, err
			}
			return a.runner(a.withOverrides(o), os.Stderr, started).Run(ctx, ids)
		},
		Paths:   a.cfg.Paths,
		History: a.ledger,
		Metrics: a.metrics,
		Log:     a.log,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.ListenAndServe(ctx, a.cfg.Server.Addr)
}
