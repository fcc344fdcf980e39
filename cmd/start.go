package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"inventory-sync/core/loader"
	"inventory-sync/core/logger"
	"inventory-sync/core/middleware"
	"inventory-sync/feature/health"
	"inventory-sync/feature/monitor"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var startDryRun bool

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the scheduler and the HTTP API",
	Long: `Starts the reconciliation scheduler and an HTTP server exposing
health checks and monitor endpoints.`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVar(&startDryRun, "dry-run", false, "Log registry writes and notifications instead of performing them")
	RootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, startDryRun, false)
	if err != nil {
		return err
	}
	defer a.close()

	logg := a.logger
	zap.ReplaceGlobals(logg)
	cfg := a.cfg

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	// RayID must be first so every log line carries it.
	app.Use(middleware.RayID())

	app.Use(func(c *fiber.Ctx) error {
		l := logger.WithRayID(logg, c)
		l.Debug("Request started",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("ip", c.IP()),
		)
		err := c.Next()
		if err != nil {
			l.Error("Request error", zap.Error(err))
		}
		return err
	})

	// Health stays public for load balancers; everything after Auth is protected.
	public := loader.NewManager(logg)
	public.Register(health.NewFeature(a.healthService()))
	if err := public.LoadAll(app); err != nil {
		return fmt.Errorf("failed to load public features: %w", err)
	}

	if cfg.Server.AuthEnabled() {
		app.Use(middleware.Auth(cfg.Server.ApiKey))
	} else {
		logg.Warn("API key not set, monitor endpoints are unauthenticated")
	}

	mon := a.monitorService()
	mgr := loader.NewManager(logg)
	mgr.Register(monitor.NewFeature(mon))
	if err := mgr.LoadAll(app); err != nil {
		return fmt.Errorf("failed to load features: %w", err)
	}

	if cfg.Monitor.Enabled {
		go mon.Start(ctx)
	} else {
		logg.Info("Scheduler disabled, runs are triggered through the API only")
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info("Starting server", zap.String("addr", cfg.Server.Addr()))
		errCh <- app.Listen(cfg.Server.Addr())
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logg.Info("Shutting down server...")
	if err := app.ShutdownWithTimeout(cfg.Server.ShutdownTimeout); err != nil {
		logg.Warn("Server shutdown incomplete", zap.Error(err))
	}
	return nil
}
