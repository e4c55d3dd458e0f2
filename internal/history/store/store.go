package store

import (
	"context"
	"errors"

	"conectasat/internal/history/models"
)

// ErrNotFound is returned when a lookup matches no entry.
var ErrNotFound = errors.New("history entry not found")

// Store persists verification history entries.
type Store interface {
	Create(ctx context.Context, entry *models.Entry) error
	// ListByUser returns the user's entries, newest first.
	ListByUser(ctx context.Context, userID int64, skip, limit int) ([]*models.Entry, error)
	// ListByUUID returns every recorded verification of one CFDI, newest first.
	ListByUUID(ctx context.Context, cfdiUUID string) ([]*models.Entry, error)
	CountByUser(ctx context.Context, userID int64) (int64, error)
}
