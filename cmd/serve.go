package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiesman99/squarestitch/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for combining map tiles",
	Long: `Start an HTTP server that combines squaremap tiles on request.

Endpoints:
  GET  /api/v1/health    Health check
  GET  /api/v1/worlds    List available worlds
  POST /api/v1/combine   Combine tiles into a PNG

Examples:
  # Start the server on the default port 8080
  squarestitch serve --tiles ./web/tiles

  # Start the server on a custom bind address and port
  squarestitch serve --tiles ./web/tiles --bind 0.0.0.0 --port 3000`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	// Server configuration
	serveCmd.Flags().StringP("bind", "b", "localhost", "bind address")
	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	serveCmd.Flags().Duration("timeout", 5*time.Minute, "request timeout")

	// Bind flags to viper
	viper.BindPFlag("server.bind", serveCmd.Flags().Lookup("bind"))
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("server.timeout", serveCmd.Flags().Lookup("timeout"))
}

func runServe(cmd *cobra.Command, args []string) error {
	tilesDir := viper.GetString("tiles")
	if tilesDir == "" {
		return fmt.Errorf("tiles directory is required (use --tiles)")
	}
	bind := viper.GetString("server.bind")
	port := viper.GetInt("server.port")
	timeout := viper.GetDuration("server.timeout")
	logger := newLogger()

	addr := fmt.Sprintf("%s:%d", bind, port)

	apiServer := server.NewServer(tilesDir, version, logger)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      apiServer.Router(timeout),
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(ctx); err != nil {
			logger.Error("server shutdown", "err", err)
		}
	}()

	logger.Info("starting squarestitch server", "addr", addr)
	logger.Info("health check", "url", fmt.Sprintf("http://%s/api/v1/health", addr))
	logger.Info("combine endpoint", "url", fmt.Sprintf("http://%s/api/v1/combine", addr))

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("server error: %v", err)
	}

	return nil
}
