package usecase

import (
	"web-agent/internal/usecase/adapters"
)

type serviceFactory struct {
	deps Params
}

func newServiceFactory(deps Params) *serviceFactory {
	return &serviceFactory{
		deps: deps,
	}
}

func (f *serviceFactory) CreateAgentService() adapters.AgentService {
	return NewAgentService(AgentServiceParams{
		Browser: f.deps.Browser,
		Planner: f.deps.Planner,
		Results: f.deps.Results,
		Config:  f.deps.Config,
		Logger:  f.deps.Logger,
	})
}

func (f *serviceFactory) CreateBrowserService() adapters.BrowserService {
	return f.deps.Browser
}

func (f *serviceFactory) CreatePlannerService() adapters.PlannerService {
	return f.deps.Planner
}
