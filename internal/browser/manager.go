package browser

import (
	"context"
	"fmt"

	"github.com/playwright-community/playwright-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"web-agent/internal/config"
	"web-agent/internal/entity"
	"web-agent/pkg/apperr"
	"web-agent/pkg/logg"
	"web-agent/pkg/tracing"
)

const (
	browserManagerName = "BrowserManager"
	browserTracer      = "browser.manager"
)

// stealthInitScript hides the webdriver flag that automation-detecting
// sites check first.
const stealthInitScript = `
	Object.defineProperty(navigator, 'webdriver', {
		get: () => undefined
	});
`

type Manager struct {
	config         *config.Config
	logger         *zap.Logger
	tracer         trace.Tracer
	playwright     *playwright.Playwright
	browser        playwright.Browser
	browserContext playwright.BrowserContext
	page           playwright.Page
	ready          bool
}

type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

func NewManager(params Params) *Manager {
	return &Manager{
		config: params.Config,
		logger: params.Logger.With(zap.String(logg.Layer, browserManagerName)),
		tracer: otel.Tracer(browserTracer),
		ready:  false,
	}
}

func (m *Manager) Launch(ctx context.Context) (err error) {
	const op = "Launch"
	logger := m.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	logger.Info("Launching browser...")
	step.AddEvent("installing playwright")

	err = playwright.Install()
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "playwright_install_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	step.AddEvent("starting playwright")

	pw, err := playwright.Run()
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "playwright_start_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}
	m.playwright = pw

	browserOptions := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(m.config.BrowserConfig.Headless),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--no-sandbox",
		},
	}

	browser, err := m.playwright.Chromium.Launch(browserOptions)
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "browser_launch_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}
	m.browser = browser

	contextOptions := playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(m.config.BrowserConfig.UserAgent),
		Viewport: &playwright.Size{
			Width:  1280,
			Height: 720,
		},
		DeviceScaleFactor: playwright.Float(1),
		JavaScriptEnabled: playwright.Bool(true),
	}

	browserContext, err := browser.NewContext(contextOptions)
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "context_create_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}
	m.browserContext = browserContext

	step.AddEvent("adding stealth init script")

	if err := browserContext.AddInitScript(playwright.Script{
		Content: playwright.String(stealthInitScript),
	}); err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "init_script_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	page, err := browserContext.NewPage()
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "page_create_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}
	m.page = page

	m.ready = true
	logger.Info("Browser launched successfully")

	return nil
}

func (m *Manager) Close(ctx context.Context) (err error) {
	const op = "Close"
	logger := m.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	logger.Info("Closing browser...")

	if m.browserContext != nil {
		if err := m.browserContext.Close(); err != nil {
			logger.Warn("Failed to close context", zap.Error(err))
		}
	}

	if m.browser != nil {
		if err := m.browser.Close(); err != nil {
			logger.Warn("Failed to close browser", zap.Error(err))
		}
	}

	if m.playwright != nil {
		if err := m.playwright.Stop(); err != nil {
			return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
				apperr.MetaReason: "playwright_stop_failed",
			})
		}
	}

	m.ready = false
	logger.Info("Browser closed")

	return nil
}

func (m *Manager) ensurePageActive(ctx context.Context) error {
	if m.browserContext == nil {
		return fmt.Errorf("browser context is nil")
	}

	if m.page != nil && !m.page.IsClosed() {
		return nil
	}

	m.logger.Info("Page closed, reconnecting to active page...")

	for _, p := range m.browserContext.Pages() {
		if !p.IsClosed() {
			m.page = p
			m.logger.Info("Reconnected to existing page")

			return nil
		}
	}

	m.logger.Info("No active pages found, creating new page...")

	page, err := m.browserContext.NewPage()
	if err != nil {
		return fmt.Errorf("failed to create new page: %w", err)
	}

	m.page = page

	return nil
}

func (m *Manager) Navigate(ctx context.Context, url string) (err error) {
	const op = "Navigate"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.URL, url))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("url", url))
	defer func() {
		step.End(err)
	}()

	if !m.ready {
		return apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	if err := m.ensurePageActive(ctx); err != nil {
		return apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
			apperr.MetaReason: "page_not_active",
		})
	}

	step.AddEvent("navigating to URL")

	_, err = m.page.Goto(url, playwright.PageGotoOptions{
		Timeout:   playwright.Float(float64(m.config.BrowserConfig.Timeout)),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})

	if err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "goto_failed",
			apperr.MetaStage:  apperr.StageNavigation,
			apperr.MetaURL:    url,
		})
	}

	step.AddEvent("navigation completed")

	return nil
}

// Content returns the full rendered markup of the current page.
func (m *Manager) Content(ctx context.Context) (content string, err error) {
	const op = "Content"
	logger := m.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if !m.ready {
		return "", apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	if err := m.ensurePageActive(ctx); err != nil {
		return "", apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
			apperr.MetaReason: "page_not_active",
		})
	}

	content, err = m.page.Content()
	if err != nil {
		return "", apperr.Wrap(op, apperr.CodeObservationFailed, err, map[string]any{
			apperr.MetaReason: "content_read_failed",
			apperr.MetaStage:  apperr.StageObservation,
		})
	}

	return content, nil
}

func (m *Manager) URL(ctx context.Context) (string, error) {
	const op = "URL"

	if !m.ready {
		return "", apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	if err := m.ensurePageActive(ctx); err != nil {
		return "", apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
			apperr.MetaReason: "page_not_active",
		})
	}

	return m.page.URL(), nil
}

func (m *Manager) WaitForSelector(ctx context.Context, selector string, state entity.WaitState, timeoutMs float64) (err error) {
	const op = "WaitForSelector"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, selector))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op,
		attribute.String("selector", selector),
		attribute.String("state", string(state)))
	defer func() {
		step.End(err)
	}()

	if !m.ready {
		return apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	if err := m.ensurePageActive(ctx); err != nil {
		return apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
			apperr.MetaReason: "page_not_active",
		})
	}

	waitState := playwright.WaitForSelectorStateVisible
	if state == entity.WaitStateAttached {
		waitState = playwright.WaitForSelectorStateAttached
	}

	_, err = m.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(timeoutMs),
		State:   waitState,
	})

	if err != nil {
		return apperr.Wrap(op, apperr.CodeTimeout, err, map[string]any{
			apperr.MetaReason:   "wait_selector_timeout",
			apperr.MetaSelector: selector,
		})
	}

	return nil
}

func (m *Manager) Fill(ctx context.Context, selector, value string) (err error) {
	const op = "Fill"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, selector))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("selector", selector))
	defer func() {
		step.End(err)
	}()

	if !m.ready {
		return apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	if err := m.ensurePageActive(ctx); err != nil {
		return apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
			apperr.MetaReason: "page_not_active",
		})
	}

	step.AddEvent("filling field")

	err = m.page.Fill(selector, value, playwright.PageFillOptions{
		Timeout: playwright.Float(float64(m.config.BrowserConfig.Timeout)),
	})

	if err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason:   "fill_failed",
			apperr.MetaStage:    apperr.StageInteraction,
			apperr.MetaSelector: selector,
		})
	}

	return nil
}

func (m *Manager) Click(ctx context.Context, selector string) (err error) {
	const op = "Click"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, selector))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("selector", selector))
	defer func() {
		step.End(err)
	}()

	if !m.ready {
		return apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	if err := m.ensurePageActive(ctx); err != nil {
		return apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
			apperr.MetaReason: "page_not_active",
		})
	}

	step.AddEvent("clicking element")

	err = m.page.Click(selector, playwright.PageClickOptions{
		Timeout: playwright.Float(float64(m.config.BrowserConfig.Timeout)),
	})

	if err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason:   "click_failed",
			apperr.MetaStage:    apperr.StageInteraction,
			apperr.MetaSelector: selector,
		})
	}

	return nil
}

// WaitForNetworkIdle waits for in-flight requests to settle after a
// click that may have triggered navigation. Callers treat failure as
// best-effort.
func (m *Manager) WaitForNetworkIdle(ctx context.Context, timeoutMs float64) (err error) {
	const op = "WaitForNetworkIdle"
	logger := m.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if !m.ready {
		return apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	if err := m.ensurePageActive(ctx); err != nil {
		return apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
			apperr.MetaReason: "page_not_active",
		})
	}

	err = m.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: playwright.Float(timeoutMs),
	})

	if err != nil {
		return apperr.Wrap(op, apperr.CodeTimeout, err, map[string]any{
			apperr.MetaReason: "network_idle_timeout",
		})
	}

	return nil
}

func (m *Manager) IsReady() bool {
	return m.ready
}
