package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/godilite/email-qc/internal/scoring"
	"github.com/godilite/email-qc/internal/service"
)

type fakeIngestor struct {
	samples []scoring.EmailSample
	err     error
}

func (f *fakeIngestor) ScoreAndStore(_ context.Context, s scoring.EmailSample) (scoring.QCResult, int64, error) {
	f.samples = append(f.samples, s)
	return scoring.QCResult{TotalScore: 81.25}, 7, f.err
}

type countingObserver map[string]int

func (c countingObserver) ObserveWebhook(outcome string) { c[outcome]++ }

const agentReply = `{
	"ticket": {"id": 100, "created_at": "2025-10-18T09:00:00Z"},
	"article": {
		"id": 1001, "body": "Hi John, thanks for waiting. Best regards, Ana",
		"created_by_id": 12, "created_at": "2025-10-18T09:20:00.500Z",
		"sender": "Agent", "internal": false, "type": "email"
	}
}`

func post(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/helpdesk", strings.NewReader(body))
	NewRouter(h, nil).ServeHTTP(rec, req)
	return rec
}

func TestHandleArticle_Accepted(t *testing.T) {
	ing := &fakeIngestor{}
	obs := countingObserver{}
	rec := post(t, NewHandler(ing, obs, zap.NewNop()), agentReply)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp acceptedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(7), resp.ResultID)
	assert.Equal(t, 81.25, resp.TotalScore)
	_, err := uuid.Parse(resp.RequestID)
	assert.NoError(t, err)
	assert.Equal(t, resp.RequestID, rec.Header().Get("X-Request-ID"))

	require.Len(t, ing.samples, 1)
	s := ing.samples[0]
	assert.Equal(t, int64(100), s.TicketID)
	assert.Equal(t, int64(1001), s.ArticleID)
	assert.Equal(t, int64(12), s.AgentID)
	require.NotNil(t, s.ReceivedAt)
	require.NotNil(t, s.FirstResponseAt)
	assert.Equal(t, 20*time.Minute+500*time.Millisecond, s.FirstResponseAt.Sub(*s.ReceivedAt))
	assert.Equal(t, 1, obs[OutcomeAccepted])
}

func TestHandleArticle_Skipped(t *testing.T) {
	tests := []struct {
		name    string
		article string
	}{
		{"customer message", `{"id": 2, "sender": "Customer", "type": "email"}`},
		{"internal note", `{"id": 2, "sender": "Agent", "internal": true, "type": "note"}`},
		{"internal email", `{"id": 2, "sender": "Agent", "internal": true, "type": "email"}`},
		{"phone article", `{"id": 2, "sender": "Agent", "type": "phone"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ing := &fakeIngestor{}
			obs := countingObserver{}
			rec := post(t, NewHandler(ing, obs, zap.NewNop()), `{"ticket": {"id": 1}, "article": `+tt.article+`}`)

			assert.Equal(t, http.StatusNoContent, rec.Code)
			assert.Empty(t, ing.samples)
			assert.Equal(t, 1, obs[OutcomeSkipped])
		})
	}
}

func TestHandleArticle_BadRequest(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `ticket=1`},
		{"missing article", `{"ticket": {"id": 1}}`},
		{"missing ticket id", `{"article": {"id": 3, "sender": "Agent"}}`},
		{"bad timestamp", `{"ticket": {"id": 1, "created_at": "yesterday"}, "article": {"id": 3}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ing := &fakeIngestor{}
			rec := post(t, NewHandler(ing, nil, zap.NewNop()), tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, ing.samples)
		})
	}
}

func TestHandleArticle_Failures(t *testing.T) {
	t.Run("persistence", func(t *testing.T) {
		ing := &fakeIngestor{err: errors.Join(service.ErrPersistence, errors.New("locked"))}
		rec := post(t, NewHandler(ing, nil, zap.NewNop()), agentReply)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), "result could not be stored")
	})

	t.Run("scoring", func(t *testing.T) {
		ing := &fakeIngestor{err: errors.New("boom")}
		rec := post(t, NewHandler(ing, nil, zap.NewNop()), agentReply)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), "scoring failed")
	})
}

func TestRouter(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r := NewRouter(NewHandler(&fakeIngestor{}, nil, nil), metrics)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc")
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/webhooks/helpdesk", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
