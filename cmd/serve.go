package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/extractcompare/internal/config"
	"github.com/lehigh-university-libraries/extractcompare/internal/handlers"
	"github.com/lehigh-university-libraries/extractcompare/internal/storage"
)

func newServeCmd(cfg *config.Config) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the comparison API server",
		Long: `Starts an HTTP server that compares extraction records on request.

Endpoints:
  POST   /api/compare       compare the records in a JSON body
  POST   /api/upload        compare every document in an uploaded records file
  GET    /api/reports       list stored reports
  GET    /api/reports/{id}  fetch a report (?format=csv|yaml|xlsx|parquet)
  DELETE /api/reports/{id}  delete a report
  GET    /healthcheck

Reports are kept in memory for the lifetime of the process.`,
		Example: `  # Start server on the configured port (8888 by default)
  extractcompare serve

  # Start server on custom port
  extractcompare serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			compareCfg, err := cfg.CompareConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("port") {
				port = cfg.Server.Port
			}

			handler := handlers.New(storage.New(), compareCfg)

			addr := ":" + port
			server := &http.Server{
				Addr:         addr,
				Handler:      handler.Routes(),
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Comparison API available", "addr", addr, "url", "http://localhost"+addr, "strategy", compareCfg.Strategy)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")

	return cmd
}
