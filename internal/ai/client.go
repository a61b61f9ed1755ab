package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

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
	aiClientName = "Planner"
	aiTracer     = "ai.client"
)

type Client struct {
	config     *config.Config
	logger     *zap.Logger
	tracer     trace.Tracer
	httpClient *http.Client
}

type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

func NewClient(params Params) *Client {
	return &Client{
		config:     params.Config,
		logger:     params.Logger.With(zap.String(logg.Layer, aiClientName)),
		tracer:     otel.Tracer(aiTracer),
		httpClient: &http.Client{},
	}
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	ResponseMimeType string `json:"response_mime_type"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// FailsafePlan is the degraded plan substituted for every planning
// failure. One reasoning failure ends the run gracefully; there is no
// retry.
func FailsafePlan() *entity.Plan {
	return &entity.Plan{
		Action:  entity.ActionTypeFinish,
		Thought: "API call failed.",
	}
}

// NextAction asks the reasoning service for the next plan. It never
// fails: transport errors, bad statuses, and unparseable responses all
// degrade to the failsafe finish plan.
func (c *Client) NextAction(ctx context.Context, goal, currentURL, domSnippet string, history []string) *entity.Plan {
	const op = "NextAction"
	logger := c.logger.With(zap.String(logg.Operation, op), zap.String(logg.URL, currentURL))

	fmt.Printf("\n[Planner] Thinking about %s...\n", currentURL)

	plan, err := c.call(ctx, goal, currentURL, domSnippet, history)
	if err != nil {
		logger.Error("Planning failed, degrading to finish", zap.Error(err))
		fmt.Printf("❌ Planner error: %v\n", err)

		return FailsafePlan()
	}

	return plan
}

func (c *Client) call(ctx context.Context, goal, currentURL, domSnippet string, history []string) (plan *entity.Plan, err error) {
	const op = "call"
	logger := c.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, c.tracer, logger, op,
		attribute.String("url", currentURL),
		attribute.Int("history_len", len(history)))
	defer func() {
		step.End(err)
	}()

	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: buildPrompt(goal, currentURL, domSnippet, history)}}},
		},
		GenerationConfig: geminiGenerationConfig{
			ResponseMimeType: "application/json",
		},
	}

	step.AddEvent("marshaling request")

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "marshal_failed",
			apperr.MetaStage:  apperr.StagePlanning,
		})
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.config.AIConfig.BaseURL, c.config.AIConfig.Model)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "request_create_failed",
			apperr.MetaStage:  apperr.StagePlanning,
		})
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.config.AIConfig.APIKey)

	step.AddEvent("sending HTTP request")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodePlannerError, err, map[string]any{
			apperr.MetaReason: "http_request_failed",
			apperr.MetaStage:  apperr.StagePlanning,
		})
	}
	defer httpResp.Body.Close()

	step.AddEvent("reading response")

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodePlannerError, err, map[string]any{
			apperr.MetaReason: "read_body_failed",
			apperr.MetaStage:  apperr.StagePlanning,
		})
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, apperr.Wrap(op, apperr.CodePlannerError, fmt.Errorf("API error (status %d): %s", httpResp.StatusCode, string(body)), map[string]any{
			apperr.MetaReason: "api_error",
			apperr.MetaStage:  apperr.StagePlanning,
			"status_code":     httpResp.StatusCode,
		})
	}

	step.AddEvent("unmarshaling response")

	var geminiResp geminiResponse

	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return nil, apperr.Wrap(op, apperr.CodePlannerError, err, map[string]any{
			apperr.MetaReason: "unmarshal_failed",
			apperr.MetaStage:  apperr.StagePlanning,
		})
	}

	step.AddEvent("parsing plan")

	plan, err = parsePlan(&geminiResp)
	if err != nil {
		return nil, err
	}

	return plan, nil
}

func parsePlan(resp *geminiResponse) (*entity.Plan, error) {
	const op = "parsePlan"

	if len(resp.Candidates) == 0 {
		return nil, apperr.WrapErrorWithReason(op, apperr.CodePlannerError, "no_candidates")
	}

	var text string

	for _, part := range resp.Candidates[0].Content.Parts {
		text += part.Text
	}

	var plan entity.Plan

	if err := json.Unmarshal([]byte(text), &plan); err != nil {
		return nil, apperr.Wrap(op, apperr.CodePlannerError, err, map[string]any{
			apperr.MetaReason: "plan_parse_failed",
			apperr.MetaStage:  apperr.StagePlanning,
		})
	}

	plan.Normalize()

	return &plan, nil
}
