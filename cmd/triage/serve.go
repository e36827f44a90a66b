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

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	httpAdapter "github.com/aretw0/triage/pkg/adapters/http"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and WebSocket server",
	Long: `Starts the triage service behind a JSON API validated against its OpenAPI
contract, with live state diffs over /v1/ws and Prometheus metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, cfg, logger, err := buildRuntime(ctx, cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		if cmd.Flags().Changed("addr") {
			cfg.Server.Addr, _ = cmd.Flags().GetString("addr")
		}
		if cmd.Flags().Changed("metrics-addr") {
			cfg.Server.MetricsAddr, _ = cmd.Flags().GetString("metrics-addr")
		}

		opts := []httpAdapter.Option{httpAdapter.WithLogger(logger)}
		if cfg.Server.MetricsAddr == "" {
			opts = append(opts, httpAdapter.WithMetricsHandler(rt.Metrics.Handler()))
		}
		for name, check := range rt.Checks {
			opts = append(opts, httpAdapter.WithHealthCheck(name, check))
		}
		handler, err := httpAdapter.NewHandler(rt.Service, opts...)
		if err != nil {
			return fmt.Errorf("building HTTP handler: %w", err)
		}

		servers := []*http.Server{{
			Addr:              cfg.Server.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}}
		if cfg.Server.MetricsAddr != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", rt.Metrics.Handler())
			servers = append(servers, &http.Server{
				Addr:              cfg.Server.MetricsAddr,
				Handler:           mux,
				ReadHeaderTimeout: 10 * time.Second,
			})
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, srv := range servers {
			g.Go(func() error {
				logger.Info("listening", "address", srv.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server %s: %w", srv.Addr, err)
				}
				return nil
			})
		}
		g.Go(func() error {
			<-gctx.Done()
			logger.Info("shutting down")

			// Give outstanding requests a deadline for completion.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			var errs []error
			for _, srv := range servers {
				if err := srv.Shutdown(shutdownCtx); err != nil {
					errs = append(errs, fmt.Errorf("graceful shutdown of %s did not complete in %v: %w", srv.Addr, shutdownTimeout, err))
					_ = srv.Close()
				}
			}
			return errors.Join(errs...)
		})

		if err := g.Wait(); err != nil {
			return err
		}
		logger.Info("triage server stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", ":8080", "Address to listen on")
	serveCmd.Flags().String("metrics-addr", "", "Serve /metrics on a separate address")
}
