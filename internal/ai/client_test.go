package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"web-agent/internal/config"
	"web-agent/internal/entity"
)

func newTestClient(baseURL string) *Client {
	return NewClient(Params{
		Config: &config.Config{
			AIConfig: &config.AIConfig{
				APIKey:  "test-key",
				Model:   "gemini-test",
				BaseURL: baseURL,
			},
		},
		Logger: zap.NewNop(),
	})
}

func planServer(t *testing.T, planJSON string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		envelope := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": planJSON}}}},
			},
		}

		require.NoError(t, json.NewEncoder(w).Encode(envelope))
	}))
}

func TestNextActionParsesPlan(t *testing.T) {
	srv := planServer(t, `{"thought":"search first","action":"type","selector":"#search","value":"shoes"}`)
	defer srv.Close()

	plan := newTestClient(srv.URL).NextAction(context.Background(), "buy shoes", "https://example.com", "<body></body>", nil)

	assert.Equal(t, entity.ActionTypeInput, plan.Action)
	assert.Equal(t, "#search", plan.Selector)
	assert.Equal(t, "shoes", plan.Value)
	assert.Equal(t, "search first", plan.Thought)
}

func TestNextActionNormalizesActionTag(t *testing.T) {
	srv := planServer(t, `{"thought":"t","action":" CLICK ","selector":"#go","value":""}`)
	defer srv.Close()

	plan := newTestClient(srv.URL).NextAction(context.Background(), "g", "u", "dom", nil)

	assert.Equal(t, entity.ActionTypeClick, plan.Action)
}

func TestNextActionDegradesOnUnparseablePlan(t *testing.T) {
	srv := planServer(t, `this is not json`)
	defer srv.Close()

	plan := newTestClient(srv.URL).NextAction(context.Background(), "g", "u", "dom", nil)

	assert.Equal(t, FailsafePlan(), plan)
}

func TestNextActionDegradesOnAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	plan := newTestClient(srv.URL).NextAction(context.Background(), "g", "u", "dom", nil)

	assert.Equal(t, FailsafePlan(), plan)
}

func TestNextActionDegradesOnTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	plan := newTestClient(srv.URL).NextAction(context.Background(), "g", "u", "dom", nil)

	assert.Equal(t, FailsafePlan(), plan)
}

func TestNextActionDegradesOnEmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"candidates":[]}`)
	}))
	defer srv.Close()

	plan := newTestClient(srv.URL).NextAction(context.Background(), "g", "u", "dom", nil)

	assert.Equal(t, FailsafePlan(), plan)
}

func TestBuildPromptTruncatesDOMSnippet(t *testing.T) {
	snippet := strings.Repeat("<div>", domSnippetLimit)

	prompt := buildPrompt("goal", "https://example.com", snippet, []string{"Clicked #a"})

	assert.Equal(t, domSnippetLimit, strings.Count(prompt, "<div>")*len("<div>"))
	assert.Contains(t, prompt, "GOAL: goal")
	assert.Contains(t, prompt, "Clicked #a")
	assert.Contains(t, prompt, "CURRENT URL: https://example.com")
}

func TestBuildPromptEmbedsHistoryInOrder(t *testing.T) {
	prompt := buildPrompt("g", "u", "dom", []string{"first", "second"})

	assert.Less(t, strings.Index(prompt, "first"), strings.Index(prompt, "second"))
}
