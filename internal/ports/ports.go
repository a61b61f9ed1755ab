package ports

import (
	"context"

	"web-agent/internal/entity"
)

// PageDriver is the browser-automation surface the control loop runs
// against. Timeouts are milliseconds, matching the underlying driver.
type PageDriver interface {
	Launch(ctx context.Context) error
	Close(ctx context.Context) error
	Navigate(ctx context.Context, url string) error
	Content(ctx context.Context) (string, error)
	URL(ctx context.Context) (string, error)
	WaitForSelector(ctx context.Context, selector string, state entity.WaitState, timeoutMs float64) error
	Fill(ctx context.Context, selector, value string) error
	Click(ctx context.Context, selector string) error
	WaitForNetworkIdle(ctx context.Context, timeoutMs float64) error
	IsReady() bool
}

// Planner turns the current observation into the next plan. It never
// fails: planning errors degrade to a terminal finish plan.
type Planner interface {
	NextAction(ctx context.Context, goal, currentURL, domSnippet string, history []string) *entity.Plan
}

// ResultSink persists the collected data at finalization. Save returns
// the artifact location.
type ResultSink interface {
	Save(ctx context.Context, records []entity.ScrapeRecord) (string, error)
}

type AgentRunner interface {
	Run(ctx context.Context, targetURL, goal string) (*entity.Session, error)
	Stop()
}
