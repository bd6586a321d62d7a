// main.go — browserlink entrypoint.
//
// Runs the bridge: MCP JSON-RPC for clients on POST /mcp, one persistent
// WebSocket per browser agent on GET /ws.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/browserlink/browserlink/internal/agent"
	"github.com/browserlink/browserlink/internal/cache"
	"github.com/browserlink/browserlink/internal/config"
	"github.com/browserlink/browserlink/internal/server"
	"github.com/browserlink/browserlink/internal/util"
)

const shutdownGrace = 5 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var addr string
	var logLevel string

	cmd := &cobra.Command{
		Use:           "browserlink",
		Short:         "MCP bridge between AI clients and a browser extension agent",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logrus.New()
			logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return fmt.Errorf("parsing log level: %w", err)
			}
			logger.SetLevel(level)

			cfg, err := config.New()
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("validating configuration: %w", err)
			}
			return run(cmd.Context(), cfg, logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8765", "bind address")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	return cmd
}

func run(parent context.Context, cfg config.Config, logger *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	snapshots := cache.NewStore(logger)
	registry := agent.NewRegistry(logger)
	mux := agent.NewMux(cfg, logger, registry, snapshots)
	srv := server.New(cfg, logger, registry, mux, snapshots)

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: srv.Routes(),
	}

	// Shared periodic sweep: stale sessions and expired cursors.
	util.SafeGo(logger, func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if evicted := registry.SweepStale(cfg.StaleSessionAfter); evicted > 0 {
					logger.WithField("evicted", evicted).Info("swept stale sessions")
				}
				srv.SweepCursors()
			}
		}
	})

	errCh := make(chan error, 1)
	util.SafeGo(logger, func() {
		logger.WithField("addr", cfg.Addr).Info("browserlink listening")
		errCh <- httpServer.ListenAndServe()
	})

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	registry.CloseAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}
