package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/ironsheep/docprep-mcp/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server on stdin/stdout",
		Long: `Start the MCP (Model Context Protocol) server. Requests are read from stdin
as line-delimited JSON-RPC 2.0 and responses are written to stdout.

When a metrics address is configured, Prometheus metrics for pipeline runs,
stage timings and recognitions are served on /metrics.

Examples:
  docprep-mcp serve
  docprep-mcp serve --metrics-addr :9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr := a.cfg.Server.MetricsAddr
			if cmd.Flags().Changed("metrics-addr") {
				addr, _ = cmd.Flags().GetString("metrics-addr")
			}
			return a.serve(cmd, addr)
		},
	}
	cmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	return cmd
}

func (a *app) serve(cmd *cobra.Command, metricsAddr string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if metricsAddr != "" {
		ms := startMetricsServer(metricsAddr, a.logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = ms.Shutdown(shutdownCtx)
		}()
	}

	a.logger.Info("starting MCP server",
		"version", a.info.Version,
		"build_time", a.info.BuildTime,
		"commit", a.info.GitCommit,
		"language", a.cfg.Recognition.Language,
		"workers", a.cfg.Recognition.Workers,
	)

	srv := server.New(
		server.WithPipeline(a.newPipeline()),
		server.WithLogger(a.logger),
		server.WithVersion(a.info.Version),
		server.WithIO(cmd.InOrStdin(), cmd.OutOrStdout()),
	)
	err := srv.Run(ctx)
	if errors.Is(err, context.Canceled) {
		a.logger.Info("MCP server stopped")
		return nil
	}
	return err
}

func startMetricsServer(addr string, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	return srv
}
