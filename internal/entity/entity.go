package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Session is the state of one agent run. It is owned and mutated
// exclusively by the control loop for the run's lifetime.
type Session struct {
	ID         uuid.UUID
	Goal       string
	TargetURL  string
	Status     RunStatus
	Step       int
	History    []string
	Collected  []ScrapeRecord
	CreatedAt  time.Time
	FinishedAt *time.Time
	Error      string
}

type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusFinished RunStatus = "finished"
	RunStatusAborted  RunStatus = "aborted"
)

// Plan is one planner decision. Immutable once received.
type Plan struct {
	Thought  string     `json:"thought"`
	Action   ActionType `json:"action"`
	Selector string     `json:"selector"`
	Value    string     `json:"value"`
}

type ActionType string

const (
	ActionTypeInput  ActionType = "type"
	ActionTypeClick  ActionType = "click"
	ActionTypeScrape ActionType = "scrape"
	ActionTypeFinish ActionType = "finish"
)

// ScrapeValueFinish in a scrape plan's value field requests loop
// termination after the data is recorded.
const ScrapeValueFinish = "finish"

// Normalize canonicalizes the action tag. Unrecognized values are kept
// as-is so the executor can log and skip them.
func (p *Plan) Normalize() {
	p.Action = ActionType(strings.ToLower(strings.TrimSpace(string(p.Action))))
}

// Recognized reports whether the action is one of the four fixed variants.
func (a ActionType) Recognized() bool {
	switch a {
	case ActionTypeInput, ActionTypeClick, ActionTypeScrape, ActionTypeFinish:
		return true
	}

	return false
}

// ScrapedItem is the extraction result for one matched element.
// Link is nil when no link could be resolved.
type ScrapedItem struct {
	Text string  `json:"text"`
	Link *string `json:"link"`
}

// ScrapeRecord is one collected-data entry, recorded per executed
// scrape action (zero-item results included).
type ScrapeRecord struct {
	Step  int           `json:"step"`
	Items []ScrapedItem `json:"items"`
}

// WaitState mirrors the browser surface's element wait states.
type WaitState string

const (
	WaitStateVisible  WaitState = "visible"
	WaitStateAttached WaitState = "attached"
)
