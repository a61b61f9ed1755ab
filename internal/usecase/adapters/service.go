package adapters

import (
	"context"

	"web-agent/internal/entity"
)

type BrowserService interface {
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

type PlannerService interface {
	NextAction(ctx context.Context, goal, currentURL, domSnippet string, history []string) *entity.Plan
}

type AgentService interface {
	Run(ctx context.Context, targetURL, goal string) (*entity.Session, error)
	Stop()
}
