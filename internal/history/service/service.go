package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"conectasat/internal/history/models"
	"conectasat/internal/history/store"
	"conectasat/internal/platform/metrics"
	"conectasat/internal/verification"
)

// Service records and queries CFDI verification history. Persistence is a
// collaborator of the verification pipeline, never part of it: the handler
// calls Record after a successful consulta.
type Service struct {
	store   store.Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New creates a history service.
func New(s store.Store, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{store: s, logger: logger, metrics: m}
}

// Record persists one verification outcome attributed to the given user.
func (s *Service) Record(ctx context.Context, userID int64, req verification.Request, res verification.Result) error {
	entry := &models.Entry{
		ID:                 uuid.New(),
		CFDIUUID:           req.UUID,
		EmisorRFC:          req.EmisorRFC,
		ReceptorRFC:        req.ReceptorRFC,
		Total:              req.Total,
		Estado:             res.Estado,
		EsCancelable:       res.EsCancelable,
		EstatusCancelacion: res.EstatusCancelacion,
		CodigoEstatus:      res.CodigoEstatus,
		ValidacionEFOS:     res.ValidacionEFOS,
		UserID:             userID,
		CreatedAt:          time.Now().UTC(),
	}
	if err := s.store.Create(ctx, entry); err != nil {
		return fmt.Errorf("record verification: %w", err)
	}
	s.metrics.IncHistoryRecorded()
	s.logger.InfoContext(ctx, "verification recorded",
		"uuid", req.UUID,
		"user_id", userID,
		"estado", res.Estado,
	)
	return nil
}

// ListByUser returns the user's verification history, newest first.
func (s *Service) ListByUser(ctx context.Context, userID int64, skip, limit int) ([]*models.Entry, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	return s.store.ListByUser(ctx, userID, skip, limit)
}

// ListByUUID returns every recorded verification of one CFDI.
func (s *Service) ListByUUID(ctx context.Context, cfdiUUID string) ([]*models.Entry, error) {
	return s.store.ListByUUID(ctx, cfdiUUID)
}

// CountByUser returns the number of entries recorded for the user.
func (s *Service) CountByUser(ctx context.Context, userID int64) (int64, error) {
	return s.store.CountByUser(ctx, userID)
}
