package bootstrap

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"web-agent/internal/console"
	"web-agent/internal/ports"
)

func runConsole(lc fx.Lifecycle, consoleInterface *console.Interface, browser ports.PageDriver, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Starting web agent console...")

			logger.Info("Launching browser...")

			if err := browser.Launch(ctx); err != nil {
				logger.Error("Failed to launch browser", zap.Error(err))

				return err
			}

			logger.Info("Browser launched successfully")

			go func() {
				if err := consoleInterface.Start(); err != nil {
					logger.Error("Console interface error", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down web agent...")

			if err := consoleInterface.Stop(); err != nil {
				logger.Error("Failed to stop console", zap.Error(err))
			}

			if err := browser.Close(ctx); err != nil {
				logger.Error("Failed to close browser", zap.Error(err))
			}

			return nil
		},
	})
}
