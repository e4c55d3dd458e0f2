package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"conectasat/internal/audit"
	historymodels "conectasat/internal/history/models"
	"conectasat/internal/platform/metrics"
	"conectasat/internal/platform/middleware"
	"conectasat/internal/verification"
)

// Verifier is the single-call verification contract the handler depends on.
type Verifier interface {
	Verify(ctx context.Context, req verification.Request) (verification.Result, error)
}

// History is the persistence collaborator invoked after successful
// verifications.
type History interface {
	Record(ctx context.Context, userID int64, req verification.Request, res verification.Result) error
	ListByUser(ctx context.Context, userID int64, skip, limit int) ([]*historymodels.Entry, error)
	ListByUUID(ctx context.Context, cfdiUUID string) ([]*historymodels.Entry, error)
	CountByUser(ctx context.Context, userID int64) (int64, error)
}

// Auditor receives one event per verification attempt, single and batch
// alike. *audit.Publisher satisfies it.
type Auditor interface {
	Publish(ctx context.Context, ev audit.Event)
}

// Handler serves the CFDI verification endpoints.
type Handler struct {
	logger   *slog.Logger
	verifier Verifier
	history  History
	tokens   middleware.TokenValidator
	metrics  *metrics.Metrics
	audit    Auditor
}

// New creates a CFDI handler.
func New(verifier Verifier, history History, tokens middleware.TokenValidator, logger *slog.Logger, m *metrics.Metrics, auditor Auditor) *Handler {
	return &Handler{
		logger:   logger,
		verifier: verifier,
		history:  history,
		tokens:   tokens,
		metrics:  m,
		audit:    auditor,
	}
}

// Register mounts the CFDI routes. Everything under /cfdi requires a bearer
// API token.
func (h *Handler) Register(r chi.Router) {
	sub := chi.NewRouter()
	sub.Use(middleware.RequireToken(h.tokens, h.logger))
	sub.Post("/verify-cfdi", h.handleVerify)
	sub.Post("/verify-cfdi-batch", h.handleVerifyBatch)
	sub.Get("/history", h.handleHistory)
	sub.Get("/history/{uuid}", h.handleHistoryByUUID)
	r.Mount("/cfdi", sub)
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req CFDIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	result, err := h.verifier.Verify(ctx, req.toVerification())
	h.publishAudit(ctx, userID, req, result, err)
	if err != nil {
		h.logger.ErrorContext(ctx, "error verifying CFDI",
			"request_id", middleware.GetRequestID(ctx),
			"uuid", req.UUID,
			"error", err.Error(),
		)
		writeDetail(w, http.StatusInternalServerError, "Error verifying CFDI: "+err.Error())
		return
	}

	if err := h.history.Record(ctx, userID, req.toVerification(), result); err != nil {
		// History is an after-the-fact collaborator; the verification itself
		// succeeded, so the caller still gets the result.
		h.logger.ErrorContext(ctx, "could not record verification history",
			"request_id", middleware.GetRequestID(ctx),
			"uuid", req.UUID,
			"error", err.Error(),
		)
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleVerifyBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req BatchCFDIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	h.metrics.ObserveBatchSize(len(req.CFDIs))

	reqs := make([]verification.Request, len(req.CFDIs))
	for i, item := range req.CFDIs {
		reqs[i] = item.toVerification()
	}

	items := verification.VerifyBatch(ctx, h.verifier, reqs)

	resp := BatchCFDIResponse{Results: make([]BatchItemResponse, len(items))}
	for i, item := range items {
		h.publishAudit(ctx, userID, req.CFDIs[i], item.Result, item.Err)
		out := BatchItemResponse{Request: req.CFDIs[i], Response: item.Result}
		if item.Error != "" {
			msg := item.Error
			out.Error = &msg
		} else {
			if err := h.history.Record(ctx, userID, item.Request, item.Result); err != nil {
				h.logger.ErrorContext(ctx, "could not record verification history",
					"request_id", middleware.GetRequestID(ctx),
					"uuid", item.Request.UUID,
					"error", err.Error(),
				)
			}
		}
		resp.Results[i] = out
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	skip := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", 100)

	entries, err := h.history.ListByUser(ctx, userID, skip, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "could not list verification history",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		writeDetail(w, http.StatusInternalServerError, "could not list history")
		return
	}
	total, err := h.history.CountByUser(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "could not count verification history",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		writeDetail(w, http.StatusInternalServerError, "could not list history")
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{History: entries, Total: total})
}

func (h *Handler) handleHistoryByUUID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cfdiUUID := chi.URLParam(r, "uuid")

	entries, err := h.history.ListByUUID(ctx, cfdiUUID)
	if err != nil {
		h.logger.ErrorContext(ctx, "could not list verification history",
			"request_id", middleware.GetRequestID(ctx),
			"uuid", cfdiUUID,
			"error", err.Error(),
		)
		writeDetail(w, http.StatusInternalServerError, "could not list history")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) publishAudit(ctx context.Context, userID int64, req CFDIRequest, result verification.Result, err error) {
	if h.audit == nil {
		return
	}
	ev := audit.Event{
		UUID:        req.UUID,
		EmisorRFC:   req.EmisorRFC,
		ReceptorRFC: req.ReceptorRFC,
		UserID:      userID,
		Outcome:     metrics.OutcomeOK,
		Estado:      result.Estado,
		At:          time.Now().UTC(),
	}
	if err != nil {
		switch err.(type) {
		case *verification.ServiceError:
			ev.Outcome = metrics.OutcomeServiceError
		case *verification.ParseError:
			ev.Outcome = metrics.OutcomeParseError
		default:
			ev.Outcome = metrics.OutcomeTransportError
		}
		ev.Estado = ""
	}
	h.audit.Publish(ctx, ev)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
