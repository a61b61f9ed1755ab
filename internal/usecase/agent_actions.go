package usecase

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"web-agent/internal/dom"
	"web-agent/internal/entity"
	"web-agent/pkg/logg"
	"web-agent/pkg/tracing"
)

// executeAction applies one plan to the live page and records the
// outcome on the session. It returns true when the plan requests
// termination. Action failures are recorded in history and never
// propagate; each executed recognized action appends exactly one
// outcome entry (plus at most one warning for a zero-item scrape).
func (s *AgentService) executeAction(ctx context.Context, session *entity.Session, plan *entity.Plan) (terminal bool) {
	const op = "executeAction"
	logger := s.logger.With(
		zap.String(logg.Operation, op),
		zap.String(logg.Action, string(plan.Action)),
		zap.Int(logg.Step, session.Step))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op,
		attribute.String("action", string(plan.Action)),
		attribute.String("selector", plan.Selector))
	defer func() {
		step.End(nil)
	}()

	switch plan.Action {
	case entity.ActionTypeInput:
		s.actionType(ctx, session, plan)

		return false
	case entity.ActionTypeClick:
		s.actionClick(ctx, session, plan)

		return false
	case entity.ActionTypeScrape:
		return s.actionScrape(ctx, session, plan)
	case entity.ActionTypeFinish:
		fmt.Println("🏁 Goal achieved.")

		return true
	default:
		// Unrecognized variants are a no-op: logged, skipped, and
		// invisible to history.
		logger.Warn("Unknown action, skipping")
		fmt.Printf("⚠️ Unknown action: %s\n", plan.Action)

		return false
	}
}

func (s *AgentService) actionType(ctx context.Context, session *entity.Session, plan *entity.Plan) {
	const op = "actionType"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, plan.Selector))

	err := s.browser.WaitForSelector(ctx, plan.Selector, entity.WaitStateVisible, interactWaitTimeoutMs)
	if err == nil {
		err = s.browser.Fill(ctx, plan.Selector, plan.Value)
	}

	if err != nil {
		s.recordFailure(session, logger, plan, err)

		return
	}

	session.History = append(session.History, fmt.Sprintf("Typed '%s' into %s", plan.Value, plan.Selector))
}

func (s *AgentService) actionClick(ctx context.Context, session *entity.Session, plan *entity.Plan) {
	const op = "actionClick"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, plan.Selector))

	err := s.browser.WaitForSelector(ctx, plan.Selector, entity.WaitStateVisible, interactWaitTimeoutMs)
	if err == nil {
		err = s.browser.Click(ctx, plan.Selector)
	}

	if err != nil {
		s.recordFailure(session, logger, plan, err)

		return
	}

	session.History = append(session.History, fmt.Sprintf("Clicked %s", plan.Selector))

	// The click may have started a navigation; give the page a chance
	// to settle. Best-effort only.
	if err := s.browser.WaitForNetworkIdle(ctx, networkIdleTimeoutMs); err != nil {
		logger.Debug("Network idle wait elapsed", zap.Error(err))
	}
}

func (s *AgentService) actionScrape(ctx context.Context, session *entity.Session, plan *entity.Plan) (terminal bool) {
	const op = "actionScrape"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, plan.Selector))

	fmt.Printf("📄 Scraping content from: %s\n", plan.Selector)

	// Give slow pages a chance to attach the target elements; a miss
	// here is not fatal, the scrape is attempted regardless.
	if err := s.browser.WaitForSelector(ctx, plan.Selector, entity.WaitStateAttached, scrapeWaitTimeoutMs); err != nil {
		logger.Warn("Selector not found before scrape", zap.Error(err))
		fmt.Printf("⚠️ Warning: Selector %s not found immediately. Attempting scrape anyway.\n", plan.Selector)
	}

	var items []entity.ScrapedItem

	content, err := s.browser.Content(ctx)
	if err != nil {
		logger.Warn("Failed to read page for scrape", zap.Error(err))
	} else {
		pageURL, _ := s.browser.URL(ctx)
		items = dom.Extract(content, plan.Selector, pageURL)
	}

	if items == nil {
		items = make([]entity.ScrapedItem, 0)
	}

	session.Collected = append(session.Collected, entity.ScrapeRecord{
		Step:  session.Step,
		Items: items,
	})

	fmt.Printf("✅ Scraped %d items.\n", len(items))

	session.History = append(session.History, fmt.Sprintf("Scraped data from %s", plan.Selector))

	if plan.Value == entity.ScrapeValueFinish {
		fmt.Println("🏁 Scrape complete. Finishing.")

		return true
	}

	if len(items) == 0 {
		session.History = append(session.History,
			fmt.Sprintf("WARNING: Scraped 0 items using %s. Try a different selector.", plan.Selector))
	}

	return false
}

func (s *AgentService) recordFailure(session *entity.Session, logger *zap.Logger, plan *entity.Plan, err error) {
	msg := fmt.Sprintf("Failed to execute %s on %s: %v", plan.Action, plan.Selector, err)

	logger.Warn("Action failed", zap.Error(err))
	fmt.Printf("❌ %s\n", msg)

	session.History = append(session.History, msg)
}
