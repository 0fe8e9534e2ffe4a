package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/bnema/condenser/internal/adapters/notify"
	"github.com/bnema/condenser/internal/application"
	"github.com/spf13/cobra"
)

const metricsShutdownTimeout = 5 * time.Second

func newWatchCmd(app *app) *cobra.Command {
	var (
		interval    time.Duration
		once        bool
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Notify about new activity in your cravings until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if interval <= 0 {
				return errors.New("--interval must be greater than 0")
			}
			if !cmd.Flags().Changed("metrics-addr") {
				metricsAddr = app.cfg.Metrics.Addr
			}

			return app.withSession(cmd.Context(), func(s *session) error {
				notifier := notify.NewTerminal(cmd.OutOrStdout(), app.logger)
				service := application.NewNotificationService(s.store, app.settings, notifier, app.metrics, app.logger)

				if metricsAddr != "" {
					stop, err := serveMetrics(cmd.Context(), app, metricsAddr)
					if err != nil {
						return err
					}
					defer stop()
				}

				return runWatch(cmd.Context(), app, s.store, service, interval, once)
			})
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 10*time.Second, "Time between two checks")
	cmd.Flags().BoolVar(&once, "once", false, "Run a single check and exit")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve prometheus metrics on this address (default: metrics.addr)")

	return cmd
}

func runWatch(ctx context.Context, app *app, store *application.CondenserStore, service *application.NotificationService, interval time.Duration, once bool) error {
	check := func() {
		sent, err := service.Check(ctx)
		if err != nil {
			app.logger.Warn("notification check incomplete", "error", err)
		}
		app.logger.Debug("notification check done", "cravings", len(store.InstalledCravings()), "sent", len(sent))
	}

	check()
	if once {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			app.logger.Info("stopped watching")
			return nil
		case <-ticker.C:
			if err := store.Refresh(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				app.logger.Warn("index refresh failed", "error", err)
				continue
			}
			check()
		}
	}
}

// serveMetrics exposes the registry until the returned stop func is called.
func serveMetrics(ctx context.Context, app *app, addr string) (func(), error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", app.metrics.Handler())

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		app.logger.Info("metrics server starting", "addr", listener.Addr().String())
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error("metrics server stopped", "error", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Warn("metrics server shutdown", "error", err)
		}
	}, nil
}
