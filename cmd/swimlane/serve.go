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

	"github.com/aretw0/swimlane/internal/presentation/tui"
	"github.com/aretw0/swimlane/internal/scenario"
	httpAdapter "github.com/aretw0/swimlane/pkg/adapters/http"
	"github.com/aretw0/swimlane/pkg/domain"
	"github.com/aretw0/swimlane/pkg/observability"
	"github.com/aretw0/swimlane/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Serves boards over a JSON API with an SSE stream of board diffs.
With metrics enabled, Prometheus metrics are exposed on /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
			cfg.Listen = listen
		}
		if cmd.Flags().Changed("metrics") {
			cfg.Metrics, _ = cmd.Flags().GetBool("metrics")
		}
		demo, _ := cmd.Flags().GetBool("demo")

		streams := httpAdapter.NewStreamManager(logger)
		hooks := []session.Hooks{streams.Hooks(), observability.LogHooks(logger)}
		if cfg.Metrics {
			hooks = append(hooks, observability.NewMetrics(prometheus.DefaultRegisterer).Hooks())
		}

		manager, closeBackend, err := newManager(cmd.Context(), cfg, logger, hooks...)
		if err != nil {
			return err
		}
		defer closeBackend()

		if err := seed(cmd.Context(), manager, cfg.Seed, demo, cfg.Board); err != nil {
			return err
		}

		router := chi.NewRouter()
		if cfg.Metrics {
			router.Handle("/metrics", promhttp.Handler())
		}
		router.Mount("/", httpAdapter.NewHandler(manager,
			httpAdapter.WithLogger(logger),
			httpAdapter.WithStreams(streams),
		))

		srv := &http.Server{
			Addr:    cfg.Listen,
			Handler: router,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			if tui.IsTerminal(os.Stdout) {
				tui.PrintBanner(os.Stdout)
			}
			logger.Info("Starting swimlane server", "addr", srv.Addr, "metrics", cfg.Metrics)
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		// Blocking main and waiting for shutdown.
		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			logger.Info("Start shutdown", "signal", sig.String())

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			// Asking listener to shut down and shed load.
			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("Graceful shutdown did not complete", "timeout", 5*time.Second, "err", err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("error killing server: %w", err)
				}
			}
			logger.Info("swimlane server stopped gracefully")
			return nil
		}
	},
}

// seed applies the configured scenario (or the demo) to an empty board.
// Boards that already have events are left alone.
func seed(ctx context.Context, manager *session.Manager, path string, demo bool, board string) error {
	var sc *scenario.Scenario
	switch {
	case path != "":
		var err error
		if sc, err = scenario.Load(path); err != nil {
			return err
		}
	case demo:
		sc = scenario.Demo()
	default:
		return nil
	}

	wf, err := manager.Open(ctx, board)
	switch {
	case errors.Is(err, domain.ErrBoardNotFound):
	case err != nil:
		return err
	case wf.Version() > 0:
		return nil
	}
	if _, err := sc.Run(ctx, manager, board); err != nil {
		return fmt.Errorf("failed to seed board %q from %s: %w", board, sc.Name, err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("listen", "l", "", "Address to listen on (overrides config)")
	serveCmd.Flags().Bool("metrics", false, "Expose Prometheus metrics on /metrics")
	serveCmd.Flags().Bool("demo", false, "Seed the default board with the demo scenario")
}
