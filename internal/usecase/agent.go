package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"web-agent/internal/config"
	"web-agent/internal/dom"
	"web-agent/internal/entity"
	"web-agent/internal/ports"
	"web-agent/pkg/apperr"
	"web-agent/pkg/logg"
	"web-agent/pkg/tracing"
)

const (
	agentServiceName = "AgentService"
	agentTracer      = "usecase.agent"

	// Per-action wait budgets, milliseconds. A timeout degrades to a
	// recorded failure or warning; it never aborts the run.
	interactWaitTimeoutMs = 10000
	scrapeWaitTimeoutMs   = 5000
	networkIdleTimeoutMs  = 5000
)

// AgentService drives the observe-plan-act loop. It is the sole
// mutator of the Session it creates; one Run is one Session.
type AgentService struct {
	config   *config.Config
	logger   *zap.Logger
	browser  ports.PageDriver
	planner  ports.Planner
	results  ports.ResultSink
	tracer   trace.Tracer
	stopChan chan struct{}
	running  bool
}

type AgentServiceParams struct {
	fx.In

	Config  *config.Config
	Logger  *zap.Logger
	Browser ports.PageDriver
	Planner ports.Planner
	Results ports.ResultSink
}

func NewAgentService(params AgentServiceParams) *AgentService {
	return &AgentService{
		config:   params.Config,
		logger:   params.Logger.With(zap.String(logg.Layer, agentServiceName)),
		browser:  params.Browser,
		planner:  params.Planner,
		results:  params.Results,
		tracer:   otel.Tracer(agentTracer),
		stopChan: make(chan struct{}),
		running:  false,
	}
}

func (s *AgentService) Run(ctx context.Context, targetURL, goal string) (session *entity.Session, err error) {
	const op = "Run"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.Goal, goal))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op,
		attribute.String("target_url", targetURL),
		attribute.String("goal", goal))
	defer func() {
		step.End(err)
	}()

	if goal == "" {
		return nil, apperr.InvalidReqError(op, "goal", errors.New("goal cannot be empty"))
	}

	if targetURL == "" {
		return nil, apperr.InvalidReqError(op, "target_url", errors.New("target URL cannot be empty"))
	}

	session = &entity.Session{
		ID:        uuid.New(),
		Goal:      goal,
		TargetURL: targetURL,
		Status:    entity.RunStatusRunning,
		CreatedAt: time.Now(),
		History:   make([]string, 0),
		Collected: make([]entity.ScrapeRecord, 0),
	}

	logger = logger.With(zap.String(logg.SessionID, session.ID.String()))
	step.AddEvent("session created")

	// Finalization runs on every exit path: normal finish, step
	// exhaustion, abort, and cancellation.
	defer s.finalize(session)

	if !s.browser.IsReady() {
		session.Status = entity.RunStatusAborted
		session.Error = "browser is not ready"

		return session, apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	fmt.Printf("🚀 Starting Agent.\nTarget: %s\nGoal: %s\n", targetURL, goal)

	if err := s.browser.Navigate(ctx, targetURL); err != nil {
		logger.Error("Initial navigation failed", zap.Error(err))
		session.Status = entity.RunStatusAborted
		session.Error = fmt.Sprintf("navigation failed: %v", err)

		return session, apperr.Wrap(op, apperr.CodeObservationFailed, err, map[string]any{
			apperr.MetaReason: "initial_navigation_failed",
			apperr.MetaStage:  apperr.StageNavigation,
			apperr.MetaURL:    targetURL,
		})
	}

	s.running = true
	s.stopChan = make(chan struct{})
	maxSteps := s.config.AgentConfig.MaxSteps

	for stepNum := 0; stepNum < maxSteps; stepNum++ {
		session.Step = stepNum

		select {
		case <-ctx.Done():
			fmt.Println("\n🛑 Stopped by user.")
			session.Status = entity.RunStatusAborted
			session.Error = "context cancelled"

			return session, apperr.Wrap(op, apperr.CodeCancelledByUser, ctx.Err(), map[string]any{
				apperr.MetaReason: "context_cancelled",
			})
		case <-s.stopChan:
			fmt.Println("\n🛑 Stopped by user.")
			session.Status = entity.RunStatusAborted
			session.Error = "stopped by user"

			return session, apperr.WrapErrorWithReason(op, apperr.CodeCancelledByUser, "stopped_by_user")
		default:
		}

		fmt.Printf("\n--- Step %d/%d ---\n", stepNum+1, maxSteps)
		step.AddEvent("observing page", attribute.Int("step", stepNum))

		content, err := s.browser.Content(ctx)
		if err != nil {
			logger.Error("Error reading page", zap.Error(err))
			fmt.Printf("❌ Error reading page: %v\n", err)
			session.Status = entity.RunStatusAborted
			session.Error = fmt.Sprintf("page unreadable: %v", err)

			return session, apperr.Wrap(op, apperr.CodeObservationFailed, err, map[string]any{
				apperr.MetaReason: "content_read_failed",
				apperr.MetaStage:  apperr.StageObservation,
			})
		}

		currentURL, err := s.browser.URL(ctx)
		if err != nil {
			logger.Error("Error reading page URL", zap.Error(err))
			fmt.Printf("❌ Error reading page: %v\n", err)
			session.Status = entity.RunStatusAborted
			session.Error = fmt.Sprintf("page unreadable: %v", err)

			return session, apperr.Wrap(op, apperr.CodeObservationFailed, err, map[string]any{
				apperr.MetaReason: "url_read_failed",
				apperr.MetaStage:  apperr.StageObservation,
			})
		}

		domSnippet := dom.Simplify(content)

		step.AddEvent("requesting plan")

		plan := s.planner.NextAction(ctx, session.Goal, currentURL, domSnippet, session.History)

		fmt.Printf("🤖 Thought: %s\n", plan.Thought)
		fmt.Printf("👉 Action: %s on '%s'\n", strings.ToUpper(string(plan.Action)), plan.Selector)

		if terminal := s.executeAction(ctx, session, plan); terminal {
			session.Status = entity.RunStatusFinished

			return session, nil
		}
	}

	logger.Info("Step budget exhausted")
	session.Status = entity.RunStatusFinished

	return session, nil
}

func (s *AgentService) Stop() {
	const op = "Stop"
	logger := s.logger.With(zap.String(logg.Operation, op))

	if !s.running {
		return
	}

	logger.Info("Stopping agent...")

	s.running = false
	close(s.stopChan)
}

func (s *AgentService) finalize(session *entity.Session) {
	const op = "finalize"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.SessionID, session.ID.String()))

	s.running = false
	finishedAt := time.Now()
	session.FinishedAt = &finishedAt

	if len(session.Collected) == 0 {
		fmt.Println("\n⚠️ No data collected.")

		return
	}

	path, err := s.results.Save(context.Background(), session.Collected)
	if err != nil {
		logger.Error("Failed to save results", zap.Error(err))
		fmt.Printf("\n❌ Failed to save results: %v\n", err)

		return
	}

	fmt.Printf("\n💾 Data saved to %s\n", path)
}
