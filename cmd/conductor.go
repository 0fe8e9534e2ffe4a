package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/bnema/condenser/internal/adapters/conductor/ws"
	"github.com/spf13/cobra"
)

const serveShutdownTimeout = 10 * time.Second

func newConductorCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conductor",
		Short: "Run the offline in-memory conductor",
	}

	cmd.AddCommand(newConductorServeCmd(app))

	return cmd
}

func newConductorServeCmd(app *app) *cobra.Command {
	var (
		addr  string
		agent string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the in-memory conductor as an app websocket",
		Long:  "serve loads the in-memory conductor state from conductor.state_path, exposes it on a websocket app interface that other condenser processes can use with conductor.backend=websocket, and saves the state on exit.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if agent == "" {
				agent = app.cfg.Conductor.Agent
			}

			network, err := loadNetwork(app.cfg.Conductor.StatePath)
			if err != nil {
				return err
			}
			conductor := network.Conductor(app.cfg.Conductor.AppID, agent)
			handler := ws.NewServer(conductor, app.logger)

			listener, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", addr, err)
			}

			srv := &http.Server{
				Handler:           handler,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				app.logger.Info("conductor serving", "addr", listener.Addr().String(), "agent", agent)
				if serveErr := srv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
					errCh <- fmt.Errorf("conductor server: %w", serveErr)
				}
				close(errCh)
			}()
			if err := printf(cmd, "listening on ws://%s\n", listener.Addr()); err != nil {
				return err
			}

			var serveErr error
			select {
			case <-cmd.Context().Done():
				app.logger.Info("shutting down")
			case serveErr = <-errCh:
			}

			// Hijacked websocket connections are not closed by Shutdown.
			if err := handler.Close(); err != nil {
				app.logger.Debug("close app interface connections", "error", err)
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), serveShutdownTimeout)
			defer cancel()
			shutdownErr := srv.Shutdown(shutdownCtx)

			if err := saveNetwork(app.cfg.Conductor.StatePath, network); err != nil {
				return err
			}
			return errors.Join(serveErr, shutdownErr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8888", "Listen address")
	cmd.Flags().StringVar(&agent, "agent", "", "Agent served on this interface (default: conductor.agent)")

	return cmd
}
