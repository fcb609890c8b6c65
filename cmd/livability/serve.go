package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/livability/internal/api/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetString("port")
		if port == "" {
			port = cfg.Port
		}

		p, err := newPipeline(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer p.Close()

		// Periodic reference reloads.
		if err := p.reload.Start(); err != nil {
			return err
		}

		app := httpapi.NewApp(httpapi.ServerConfig{
			AppName:      "livability",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: cfg.OracleTimeout + 30*time.Second,
			AccessLog:    true,
		})
		httpapi.RegisterRoutes(app, p.service, p.refs)

		go func() {
			zap.L().Info("listening", zap.String("port", port))
			if err := app.Listen(":" + port); err != nil {
				zap.L().Error("fiber server stopped", zap.Error(err))
			}
		}()

		// Wait for termination signal
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			zap.L().Error("error during shutdown", zap.Error(err))
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().String("port", "", "Port to listen on (overrides PORT)")
}
