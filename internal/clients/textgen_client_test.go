package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NathanielJL/polsim-sub002/internal/config"
	"github.com/NathanielJL/polsim-sub002/internal/models"
)

// fakeCompletionServer отдает заранее заданный content в формате
// OpenAI-совместимого chat completion.
func fakeCompletionServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]interface{}{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  "test-model",
			"choices": []map[string]interface{}{
				{
					"index":         0,
					"finish_reason": "stop",
					"message": map[string]string{
						"role":    "assistant",
						"content": content,
					},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func newTestClient(t *testing.T, serverURL string) TextGenClient {
	t.Helper()
	return NewOpenAITextGenClient(&config.Config{
		AIAPIKey:  "test-key",
		AIBaseURL: serverURL + "/v1",
		AIModel:   "test-model",
		AITimeout: 5 * time.Second,
	}, zap.NewNop())
}

func TestJudgeEvent(t *testing.T) {
	eventCtx := EventContext{EventType: "annual_immigration", Severity: "routine", SessionYear: 1852}

	t.Run("parses markdown-wrapped judgment", func(t *testing.T) {
		srv := fakeCompletionServer(t, "```json\n{\"headline\": \"Great exodus to the cities\", \"immigration_shift\": 0.08, \"approval_shift\": 2, \"stability_shift\": -1}\n```")
		defer srv.Close()

		judgment, err := newTestClient(t, srv.URL).JudgeEvent(context.Background(), eventCtx)
		require.NoError(t, err)
		assert.Equal(t, "Great exodus to the cities", judgment.Headline)
		assert.Equal(t, 0.08, judgment.ImmigrationShift)
	})

	t.Run("prose without JSON is malformed", func(t *testing.T) {
		srv := fakeCompletionServer(t, "I am unable to produce a judgment for this event.")
		defer srv.Close()

		_, err := newTestClient(t, srv.URL).JudgeEvent(context.Background(), eventCtx)
		assert.ErrorIs(t, err, models.ErrMalformedAIResponse)
	})

	t.Run("unknown fields are malformed", func(t *testing.T) {
		srv := fakeCompletionServer(t, `{"headline": "x", "immigration_shift": 0.1, "approval_shift": 0, "stability_shift": 0, "mood": "grim"}`)
		defer srv.Close()

		_, err := newTestClient(t, srv.URL).JudgeEvent(context.Background(), eventCtx)
		assert.ErrorIs(t, err, models.ErrMalformedAIResponse)
	})

	t.Run("out-of-range shift is malformed", func(t *testing.T) {
		srv := fakeCompletionServer(t, `{"headline": "x", "immigration_shift": 0.9, "approval_shift": 0, "stability_shift": 0}`)
		defer srv.Close()

		_, err := newTestClient(t, srv.URL).JudgeEvent(context.Background(), eventCtx)
		assert.ErrorIs(t, err, models.ErrMalformedAIResponse)
	})

	t.Run("empty completion is malformed", func(t *testing.T) {
		srv := fakeCompletionServer(t, "")
		defer srv.Close()

		_, err := newTestClient(t, srv.URL).JudgeEvent(context.Background(), eventCtx)
		assert.ErrorIs(t, err, models.ErrMalformedAIResponse)
	})
}

func TestEventJudgmentValidate(t *testing.T) {
	valid := EventJudgment{Headline: "x", ImmigrationShift: 0.2, ApprovalShift: -10, StabilityShift: 5}
	assert.NoError(t, valid.validate())

	assert.Error(t, (&EventJudgment{ImmigrationShift: -0.01}).validate())
	assert.Error(t, (&EventJudgment{ApprovalShift: 11}).validate())
	assert.Error(t, (&EventJudgment{StabilityShift: -6}).validate())
}
