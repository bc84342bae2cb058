// Package webhook receives helpdesk article events and scores outgoing agent
// replies.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/godilite/email-qc/internal/scoring"
	"github.com/godilite/email-qc/internal/service"
)

const (
	maxPayloadBytes = 1 << 20
	requestIDHeader = "X-Request-ID"

	OutcomeAccepted = "accepted"
	OutcomeSkipped  = "skipped"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Ingestor scores and stores one reply.
type Ingestor interface {
	ScoreAndStore(ctx context.Context, sample scoring.EmailSample) (scoring.QCResult, int64, error)
}

// Observer counts webhook outcomes.
type Observer interface {
	ObserveWebhook(outcome string)
}

// Payload is the helpdesk trigger body.
type Payload struct {
	Ticket struct {
		ID        int64      `json:"id"`
		CreatedAt *time.Time `json:"created_at"`
	} `json:"ticket"`
	Article *struct {
		ID          int64      `json:"id"`
		Body        string     `json:"body"`
		CreatedByID int64      `json:"created_by_id"`
		CreatedAt   *time.Time `json:"created_at"`
		Sender      string     `json:"sender"`
		Internal    bool       `json:"internal"`
		Type        string     `json:"type"`
	} `json:"article"`
}

// Sample converts an outgoing agent email into a scoring sample. It reports
// false for articles that are not scored.
func (p Payload) Sample() (scoring.EmailSample, bool) {
	a := p.Article
	if a == nil || a.Sender != "Agent" || a.Internal {
		return scoring.EmailSample{}, false
	}
	if a.Type != "" && a.Type != "email" {
		return scoring.EmailSample{}, false
	}
	return scoring.EmailSample{
		Body:            a.Body,
		TicketID:        p.Ticket.ID,
		ArticleID:       a.ID,
		AgentID:         a.CreatedByID,
		ReceivedAt:      p.Ticket.CreatedAt,
		FirstResponseAt: a.CreatedAt,
	}, true
}

type acceptedResponse struct {
	RequestID  string  `json:"request_id"`
	ResultID   int64   `json:"result_id"`
	TotalScore float64 `json:"total_score"`
}

type errorResponse struct {
	RequestID string `json:"request_id"`
	Error     string `json:"error"`
}

type Handler struct {
	ingestor Ingestor
	observer Observer
	logger   *zap.Logger
}

// NewHandler returns the webhook handler. observer may be nil.
func NewHandler(ingestor Ingestor, observer Observer, logger *zap.Logger) *Handler {
	if ingestor == nil {
		panic("nil Ingestor provided to NewHandler")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{ingestor: ingestor, observer: observer, logger: logger.Named("webhook")}
}

// NewRouter mounts the webhook and, when given, the metrics handler.
func NewRouter(h *Handler, metrics http.Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(requestIDMiddleware)
	r.HandleFunc("/webhooks/helpdesk", h.HandleArticle).Methods(http.MethodPost)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)
	if metrics != nil {
		r.Handle("/metrics", metrics).Methods(http.MethodGet)
	}
	return r
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// HandleArticle scores an article event: 202 when stored, 204 when the
// article is not an outgoing agent email, 400 on a malformed payload.
func (h *Handler) HandleArticle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := requestID(ctx)

	var p Payload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPayloadBytes)).Decode(&p); err != nil {
		h.observe(OutcomeRejected)
		h.logger.Info("rejected webhook payload", zap.String("request_id", reqID), zap.Error(err))
		respondJSON(w, http.StatusBadRequest, errorResponse{RequestID: reqID, Error: "invalid payload"})
		return
	}
	if p.Ticket.ID == 0 || p.Article == nil || p.Article.ID == 0 {
		h.observe(OutcomeRejected)
		respondJSON(w, http.StatusBadRequest, errorResponse{RequestID: reqID, Error: "ticket.id and article.id are required"})
		return
	}

	sample, ok := p.Sample()
	if !ok {
		h.observe(OutcomeSkipped)
		h.logger.Debug("skipped article",
			zap.String("request_id", reqID),
			zap.Int64("article_id", p.Article.ID),
			zap.String("sender", p.Article.Sender))
		w.WriteHeader(http.StatusNoContent)
		return
	}

	res, id, err := h.ingestor.ScoreAndStore(ctx, sample)
	if err != nil {
		h.observe(OutcomeFailed)
		h.logger.Error("failed to score article",
			zap.String("request_id", reqID),
			zap.Int64("article_id", sample.ArticleID),
			zap.Error(err))
		msg := "scoring failed"
		if errors.Is(err, service.ErrPersistence) {
			msg = "result could not be stored"
		}
		respondJSON(w, http.StatusInternalServerError, errorResponse{RequestID: reqID, Error: msg})
		return
	}

	h.observe(OutcomeAccepted)
	respondJSON(w, http.StatusAccepted, acceptedResponse{RequestID: reqID, ResultID: id, TotalScore: res.TotalScore})
}

func (h *Handler) observe(outcome string) {
	if h.observer != nil {
		h.observer.ObserveWebhook(outcome)
	}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
