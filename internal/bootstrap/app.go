package bootstrap

import (
	"time"

	"go.uber.org/fx"

	"web-agent/internal/ai"
	"web-agent/internal/browser"
	"web-agent/internal/config"
	"web-agent/internal/console"
	"web-agent/internal/ports"
	"web-agent/internal/results"
	"web-agent/internal/usecase"
)

func NewApp() *fx.App {
	return fx.New(
		fx.Provide(
			config.GetConfig,
			newLogger,
			newTraceProvider,

			fx.Annotate(browser.NewManager, fx.As(new(ports.PageDriver))),
			fx.Annotate(ai.NewClient, fx.As(new(ports.Planner))),
			fx.Annotate(results.NewWriter, fx.As(new(ports.ResultSink))),

			usecase.NewUsecase,

			console.NewInterface,
		),

		fx.Invoke(
			runConsole,
		),

		fx.StartTimeout(10*time.Second),
	)
}
