package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"web-agent/internal/ai"
	"web-agent/internal/config"
	"web-agent/internal/entity"
)

type fakeDriver struct {
	content     string
	url         string
	contentErr  error
	waitErr     map[string]error
	filled      map[string]string
	clicked     []string
	navigated   []string
	idleWaits   int
	networkErr  error
	notReady    bool
	navigateErr error
}

func newFakeDriver(content, url string) *fakeDriver {
	return &fakeDriver{
		content: content,
		url:     url,
		waitErr: make(map[string]error),
		filled:  make(map[string]string),
	}
}

func (d *fakeDriver) Launch(ctx context.Context) error { return nil }
func (d *fakeDriver) Close(ctx context.Context) error  { return nil }

func (d *fakeDriver) Navigate(ctx context.Context, url string) error {
	d.navigated = append(d.navigated, url)

	return d.navigateErr
}

func (d *fakeDriver) Content(ctx context.Context) (string, error) {
	return d.content, d.contentErr
}

func (d *fakeDriver) URL(ctx context.Context) (string, error) {
	return d.url, nil
}

func (d *fakeDriver) WaitForSelector(ctx context.Context, selector string, state entity.WaitState, timeoutMs float64) error {
	return d.waitErr[selector]
}

func (d *fakeDriver) Fill(ctx context.Context, selector, value string) error {
	d.filled[selector] = value

	return nil
}

func (d *fakeDriver) Click(ctx context.Context, selector string) error {
	d.clicked = append(d.clicked, selector)

	return nil
}

func (d *fakeDriver) WaitForNetworkIdle(ctx context.Context, timeoutMs float64) error {
	d.idleWaits++

	return d.networkErr
}

func (d *fakeDriver) IsReady() bool { return !d.notReady }

type fakePlanner struct {
	plans []*entity.Plan
	calls int
}

func (p *fakePlanner) NextAction(ctx context.Context, goal, currentURL, domSnippet string, history []string) *entity.Plan {
	p.calls++

	if len(p.plans) == 0 {
		return &entity.Plan{Action: entity.ActionTypeFinish, Thought: "out of plans"}
	}

	plan := p.plans[0]
	p.plans = p.plans[1:]

	return plan
}

type fakeSink struct {
	saved   [][]entity.ScrapeRecord
	saveErr error
}

func (s *fakeSink) Save(ctx context.Context, records []entity.ScrapeRecord) (string, error) {
	s.saved = append(s.saved, records)

	return "results.json", s.saveErr
}

func newTestAgent(driver *fakeDriver, planner *fakePlanner, sink *fakeSink, maxSteps int) *AgentService {
	return NewAgentService(AgentServiceParams{
		Config: &config.Config{
			AgentConfig: &config.AgentConfig{MaxSteps: maxSteps, ResultsFile: "results.json"},
		},
		Logger:  zap.NewNop(),
		Browser: driver,
		Planner: planner,
		Results: sink,
	})
}

const searchPage = `<html><body>
	<input id="search" type="text">
	<button id="submit">Go</button>
	<div class="result"><a href="/1">Result one</a></div>
	<div class="result"><a href="/2">Result two</a></div>
	<div class="result"><a href="/3">Result three</a></div>
</body></html>`

func TestRunSearchScrapeScenario(t *testing.T) {
	driver := newFakeDriver(searchPage, "https://example.com/search")
	planner := &fakePlanner{plans: []*entity.Plan{
		{Action: entity.ActionTypeInput, Selector: "#search", Value: "X"},
		{Action: entity.ActionTypeClick, Selector: "#submit"},
		{Action: entity.ActionTypeScrape, Selector: ".result", Value: entity.ScrapeValueFinish},
	}}
	sink := &fakeSink{}

	session, err := newTestAgent(driver, planner, sink, 10).Run(context.Background(), "https://example.com", "search X")

	require.NoError(t, err)
	assert.Equal(t, entity.RunStatusFinished, session.Status)

	assert.Equal(t, []string{
		"Typed 'X' into #search",
		"Clicked #submit",
		"Scraped data from .result",
	}, session.History)

	assert.Equal(t, "X", driver.filled["#search"])
	assert.Equal(t, []string{"#submit"}, driver.clicked)
	assert.Equal(t, 1, driver.idleWaits)

	require.Len(t, session.Collected, 1)
	assert.Equal(t, 2, session.Collected[0].Step)
	require.Len(t, session.Collected[0].Items, 3)
	assert.Equal(t, "Result one", session.Collected[0].Items[0].Text)
	require.NotNil(t, session.Collected[0].Items[0].Link)
	assert.Equal(t, "https://example.com/1", *session.Collected[0].Items[0].Link)
}

func TestRunZeroItemScrapeWarnsAndContinues(t *testing.T) {
	driver := newFakeDriver(searchPage, "https://example.com")
	driver.waitErr[".missing"] = errors.New("timeout")
	planner := &fakePlanner{plans: []*entity.Plan{
		{Action: entity.ActionTypeScrape, Selector: ".missing"},
		{Action: entity.ActionTypeFinish},
	}}

	session, err := newTestAgent(driver, planner, &fakeSink{}, 10).Run(context.Background(), "https://example.com", "scrape things")

	require.NoError(t, err)
	assert.Equal(t, entity.RunStatusFinished, session.Status)

	// The zero-item scrape still records an (empty) collected-data
	// entry, adds a corrective warning, and does not end the run.
	require.Len(t, session.Collected, 1)
	require.NotNil(t, session.Collected[0].Items)
	assert.Empty(t, session.Collected[0].Items)

	assert.Equal(t, []string{
		"Scraped data from .missing",
		"WARNING: Scraped 0 items using .missing. Try a different selector.",
	}, session.History)

	assert.Equal(t, 2, planner.calls)
}

func TestRunScrapeFinishBeatsZeroItemWarning(t *testing.T) {
	driver := newFakeDriver(searchPage, "https://example.com")
	planner := &fakePlanner{plans: []*entity.Plan{
		{Action: entity.ActionTypeScrape, Selector: ".missing", Value: entity.ScrapeValueFinish},
	}}

	session, err := newTestAgent(driver, planner, &fakeSink{}, 10).Run(context.Background(), "https://example.com", "g")

	require.NoError(t, err)
	assert.Equal(t, entity.RunStatusFinished, session.Status)
	assert.Equal(t, []string{"Scraped data from .missing"}, session.History)
}

func TestRunUnknownActionLeavesHistoryUnchanged(t *testing.T) {
	driver := newFakeDriver(searchPage, "https://example.com")
	planner := &fakePlanner{plans: []*entity.Plan{
		{Action: "hover", Selector: "#submit"},
		{Action: entity.ActionTypeFinish},
	}}

	session, err := newTestAgent(driver, planner, &fakeSink{}, 10).Run(context.Background(), "https://example.com", "g")

	require.NoError(t, err)
	assert.Empty(t, session.History)
	assert.Empty(t, session.Collected)
	assert.Empty(t, driver.clicked)
	assert.Empty(t, driver.filled)
}

func TestRunStepBudgetBoundsLoop(t *testing.T) {
	driver := newFakeDriver(searchPage, "https://example.com")
	planner := &fakePlanner{}

	// A planner that never terminates: refill the queue on every call.
	planner.plans = nil
	nonTerminal := func() *entity.Plan {
		return &entity.Plan{Action: entity.ActionTypeClick, Selector: "#submit"}
	}
	for i := 0; i < 100; i++ {
		planner.plans = append(planner.plans, nonTerminal())
	}

	maxSteps := 3

	session, err := newTestAgent(driver, planner, &fakeSink{}, maxSteps).Run(context.Background(), "https://example.com", "g")

	require.NoError(t, err)
	assert.Equal(t, entity.RunStatusFinished, session.Status)
	assert.Equal(t, maxSteps, planner.calls)
	assert.Len(t, session.History, maxSteps)
	assert.Less(t, session.Step, maxSteps)
}

func TestRunPlannerFailureEndsSameStep(t *testing.T) {
	driver := newFakeDriver(searchPage, "https://example.com")
	planner := &fakePlanner{plans: []*entity.Plan{ai.FailsafePlan()}}

	session, err := newTestAgent(driver, planner, &fakeSink{}, 10).Run(context.Background(), "https://example.com", "g")

	require.NoError(t, err)
	assert.Equal(t, entity.RunStatusFinished, session.Status)
	assert.Equal(t, 1, planner.calls)
	assert.Empty(t, session.History)
}

func TestRunActionFailureRecordedAndLoopContinues(t *testing.T) {
	driver := newFakeDriver(searchPage, "https://example.com")
	driver.waitErr["#missing"] = errors.New("waiting for selector timed out")
	planner := &fakePlanner{plans: []*entity.Plan{
		{Action: entity.ActionTypeInput, Selector: "#missing", Value: "X"},
		{Action: entity.ActionTypeFinish},
	}}

	session, err := newTestAgent(driver, planner, &fakeSink{}, 10).Run(context.Background(), "https://example.com", "g")

	require.NoError(t, err)
	assert.Equal(t, entity.RunStatusFinished, session.Status)

	require.Len(t, session.History, 1)
	assert.Contains(t, session.History[0], "Failed to execute type on #missing")
	assert.Empty(t, driver.filled)
}

func TestRunObservationFailureAborts(t *testing.T) {
	driver := newFakeDriver(searchPage, "https://example.com")
	driver.contentErr = errors.New("page crashed")
	planner := &fakePlanner{}

	session, err := newTestAgent(driver, planner, &fakeSink{}, 10).Run(context.Background(), "https://example.com", "g")

	require.Error(t, err)
	assert.Equal(t, entity.RunStatusAborted, session.Status)
	assert.Contains(t, session.Error, "page unreadable")
	assert.Zero(t, planner.calls)
	assert.NotNil(t, session.FinishedAt)
}

func TestRunInitialNavigationFailureAborts(t *testing.T) {
	driver := newFakeDriver(searchPage, "https://example.com")
	driver.navigateErr = errors.New("dns failure")

	session, err := newTestAgent(driver, &fakePlanner{}, &fakeSink{}, 10).Run(context.Background(), "https://example.com", "g")

	require.Error(t, err)
	assert.Equal(t, entity.RunStatusAborted, session.Status)
}

func TestRunBrowserNotReady(t *testing.T) {
	driver := newFakeDriver(searchPage, "https://example.com")
	driver.notReady = true

	session, err := newTestAgent(driver, &fakePlanner{}, &fakeSink{}, 10).Run(context.Background(), "https://example.com", "g")

	require.Error(t, err)
	assert.Equal(t, entity.RunStatusAborted, session.Status)
	assert.Empty(t, driver.navigated)
}

func TestRunEmptyInputsRejected(t *testing.T) {
	agent := newTestAgent(newFakeDriver("", ""), &fakePlanner{}, &fakeSink{}, 10)

	_, err := agent.Run(context.Background(), "", "goal")
	require.Error(t, err)

	_, err = agent.Run(context.Background(), "https://example.com", "")
	require.Error(t, err)
}

func TestRunCancelledContextAbortsAndFinalizes(t *testing.T) {
	driver := newFakeDriver(searchPage, "https://example.com")
	planner := &fakePlanner{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	session, err := newTestAgent(driver, planner, &fakeSink{}, 10).Run(ctx, "https://example.com", "g")

	require.Error(t, err)
	assert.Equal(t, entity.RunStatusAborted, session.Status)
	assert.Zero(t, planner.calls)
	assert.NotNil(t, session.FinishedAt)
}

func TestFinalizationSavesCollectedData(t *testing.T) {
	driver := newFakeDriver(searchPage, "https://example.com")
	planner := &fakePlanner{plans: []*entity.Plan{
		{Action: entity.ActionTypeScrape, Selector: ".result", Value: entity.ScrapeValueFinish},
	}}
	sink := &fakeSink{}

	session, err := newTestAgent(driver, planner, sink, 10).Run(context.Background(), "https://example.com", "g")

	require.NoError(t, err)
	require.Len(t, sink.saved, 1)
	assert.Equal(t, session.Collected, sink.saved[0])
}

func TestFinalizationSkipsSaveWhenNothingCollected(t *testing.T) {
	driver := newFakeDriver(searchPage, "https://example.com")
	planner := &fakePlanner{plans: []*entity.Plan{{Action: entity.ActionTypeFinish}}}
	sink := &fakeSink{}

	_, err := newTestAgent(driver, planner, sink, 10).Run(context.Background(), "https://example.com", "g")

	require.NoError(t, err)
	assert.Empty(t, sink.saved)
}
