package usecase

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"web-agent/internal/config"
	"web-agent/internal/ports"
	"web-agent/internal/usecase/adapters"
)

type Service struct {
	Agent   adapters.AgentService
	Browser adapters.BrowserService
	Planner adapters.PlannerService
}

type Params struct {
	fx.In

	Logger  *zap.Logger
	Config  *config.Config
	Browser ports.PageDriver
	Planner ports.Planner
	Results ports.ResultSink
}

func NewUsecase(params Params) *Service {
	factory := newServiceFactory(params)

	return &Service{
		Agent:   factory.CreateAgentService(),
		Browser: factory.CreateBrowserService(),
		Planner: factory.CreatePlannerService(),
	}
}
