package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"scanlink/internal/config"
	"scanlink/internal/relay"
)

func newServeCmd(configPath *string) *cobra.Command {
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the relay: websocket broadcast endpoint plus product store API",
		Long: `Starts the relay all clients connect to.

It serves the websocket endpoint on /ws and the product store HTTP API
(lookup, save, shops, login state, image fetch and upload).`,
		Example: `  # Start the relay on the configured address
  scanlink serve

  # Override the listen address
  scanlink serve --listen :9000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if listenAddr != "" {
				cfg.ListenAddr = listenAddr
			}

			srv, err := relay.NewServer(cfg)
			if err != nil {
				return err
			}

			server := &http.Server{
				Addr:    cfg.ListenAddr,
				Handler: srv.Router(),
			}

			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Relay listening", "addr", cfg.ListenAddr, "image_dir", cfg.ImageDir)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down relay...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Relay shutdown failed", "err", err)
					return err
				}
				slog.Info("Relay stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&listenAddr, "listen", "l", "", "Listen address (overrides config)")

	return cmd
}
