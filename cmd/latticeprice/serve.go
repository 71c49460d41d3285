package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/meenmo/molattice/internal/metrics"
	"github.com/meenmo/molattice/internal/server"
	"github.com/meenmo/molattice/pricing"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(flags *globalFlags) *cobra.Command {
	var (
		addr        string
		maxParallel int
		rateLimit   float64
		burst       int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the pricing API over HTTP",
		Long: `Serve POST /v1/price, POST /v1/price/batch, GET /healthz and GET /metrics.

The listen address comes from --addr, then LATTICE_HTTP_ADDR, then the config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, logger, err := flags.settings(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if addr != "" {
				f.HTTP.Addr = addr
			}

			collector := metrics.New()
			svc := pricing.NewService(
				pricing.WithLogger(logger),
				pricing.WithObserver(collector),
				pricing.WithMaxParallel(maxParallel),
				pricing.WithLimits(limits(f)),
			)
			srv := &http.Server{
				Addr:              f.HTTP.Addr,
				Handler:           server.NewHandler(svc, collector.Handler(), logger, server.WithRateLimit(rateLimit, burst)),
				ReadHeaderTimeout: 5 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logger.Info().Str("addr", srv.Addr).Msg("listening")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			logger.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().IntVar(&maxParallel, "max-parallel", 8, "concurrent valuations per batch")
	cmd.Flags().Float64Var(&rateLimit, "rate-limit", 0, "valuation requests per second (0 disables)")
	cmd.Flags().IntVar(&burst, "burst", 10, "rate limiter burst")
	return cmd
}
