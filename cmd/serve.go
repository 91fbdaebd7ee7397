package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/timvw/veracity-node/internal/events"
	telem "github.com/timvw/veracity-node/internal/otel"
	"github.com/timvw/veracity-node/internal/server"
	"github.com/timvw/veracity-node/internal/veracity"
)

const (
	// shutdownGrace bounds how long in-flight requests may finish after a signal.
	shutdownGrace = 10 * time.Second

	verdictTTL   = time.Hour
	verdictLimit = 1000
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the veracity node over HTTP",
	Long: `Serve the veracity node over HTTP.

Endpoints:
  GET  /healthz       liveness probe
  POST /v1/run        {"query": ..., "results": ..., ...extra} -> {"payload": ..., "edge": "output_1"}
  POST /v1/run_batch  always 501 (batch mode is not supported)
  GET  /v1/verdicts   runs from the last hour; ?rejected=true for failed verdicts only

Telemetry is exported over OTLP/HTTP when OTEL_EXPORTER_OTLP_ENDPOINT is set.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "listen address (default: :8080)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Wire build version into OTEL service metadata
	telem.Version = Version

	// Initialize OTEL (no-op if no endpoint configured)
	tel, err := telem.Init(ctx, telem.OTELConfig{
		Endpoint: cfg.OTELEndpoint,
		Headers:  cfg.OTELHeaders,
	})
	if err != nil {
		logger.Warn("otel init failed", zap.Error(err))
	}
	var metrics *telem.Metrics
	if tel != nil {
		metrics = tel.Metrics
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			if err := tel.Shutdown(shutdownCtx); err != nil {
				logger.Warn("otel shutdown failed", zap.Error(err))
			}
		}()
	}

	verdicts := events.NewStore(verdictTTL, verdictLimit)
	node, err := newNode(ctx, metrics, veracity.WithRecorder(verdicts))
	if err != nil {
		return err
	}

	addr := cfg.ListenAddr
	if flagAddr != "" {
		addr = flagAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.New(node, logger, cfg.RequestTimeoutDuration).WithVerdicts(verdicts).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", addr),
			zap.String("provider", cfg.Provider),
			zap.String("model", cfg.Model),
			zap.Bool("otel", tel.Enabled()),
			zap.String("version", Version),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
