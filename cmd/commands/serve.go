package commands

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/satriahrh/fluenty/server/adapters/audio"
	"github.com/satriahrh/fluenty/server/internal/api"
	"github.com/satriahrh/fluenty/server/internal/auth"
	"github.com/satriahrh/fluenty/server/internal/websocket"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and WebSocket server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Sync()

		issuer, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close(context.Background())

		janitor := audio.NewCacheJanitor(cfg.Audio.CacheDir, cfg.Audio.CacheMaxAge, cfg.Audio.SweepInterval, logger)
		janitor.Start()
		defer janitor.Stop()

		// Create Echo instance
		e := echo.New()
		e.HideBanner = true

		// Middleware
		e.Use(middleware.Logger())
		e.Use(middleware.Recover())
		e.Use(middleware.CORS())

		hub := websocket.NewHub(a.sessions, logger)
		go hub.Run()

		api.InitRoutes(e, api.Dependencies{
			Settings:    a.settings,
			Transcripts: a.transcripts,
			Issuer:      issuer,
			Hub:         hub,
			Logger:      logger,
		})

		// Graceful shutdown
		go func() {
			if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
				logger.Fatal("shutting down the server", zap.Error(err))
			}
		}()

		logger.Info("Server started",
			zap.String("port", cfg.Port),
			zap.String("environment", string(cfg.Environment)),
			zap.Bool("mocks", cfg.UseMocks))

		// Wait for interrupt signal to gracefully shutdown the server
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit

		logger.Info("Server is shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := hub.Shutdown(ctx); err != nil {
			logger.Warn("Sessions did not finish before shutdown", zap.Error(err))
		}
		if err := e.Shutdown(ctx); err != nil {
			logger.Error("Server forced to shutdown", zap.Error(err))
			return err
		}

		logger.Info("Server exited")
		return nil
	},
}
