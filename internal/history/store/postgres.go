package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"conectasat/internal/history/models"
)

// Postgres persists history entries in PostgreSQL through a pgx pool. Schema
// lives in migrations/002_cfdi_history.sql.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a PostgreSQL-backed history store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (s *Postgres) Create(ctx context.Context, entry *models.Entry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO cfdi_history (
			id, uuid, emisor_rfc, receptor_rfc, total,
			estado, es_cancelable, estatus_cancelacion, codigo_estatus, validacion_efos,
			user_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		entry.ID, entry.CFDIUUID, entry.EmisorRFC, entry.ReceptorRFC, entry.Total,
		entry.Estado, entry.EsCancelable, entry.EstatusCancelacion, entry.CodigoEstatus, entry.ValidacionEFOS,
		entry.UserID, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create history entry: %w", err)
	}
	return nil
}

const entryColumns = `
	id, uuid, emisor_rfc, receptor_rfc, total,
	estado, es_cancelable, estatus_cancelacion, codigo_estatus, validacion_efos,
	user_id, created_at`

func (s *Postgres) ListByUser(ctx context.Context, userID int64, skip, limit int) ([]*models.Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	if skip < 0 {
		skip = 0
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+entryColumns+`
		FROM cfdi_history
		WHERE user_id = $1
		ORDER BY created_at DESC
		OFFSET $2 LIMIT $3`, userID, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("list history by user: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (s *Postgres) ListByUUID(ctx context.Context, cfdiUUID string) ([]*models.Entry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+entryColumns+`
		FROM cfdi_history
		WHERE uuid = $1
		ORDER BY created_at DESC`, cfdiUUID)
	if err != nil {
		return nil, fmt.Errorf("list history by uuid: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (s *Postgres) CountByUser(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM cfdi_history WHERE user_id = $1`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count history by user: %w", err)
	}
	return n, nil
}

type pgxRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanEntries(rows pgxRows) ([]*models.Entry, error) {
	entries := make([]*models.Entry, 0)
	for rows.Next() {
		var e models.Entry
		if err := rows.Scan(
			&e.ID, &e.CFDIUUID, &e.EmisorRFC, &e.ReceptorRFC, &e.Total,
			&e.Estado, &e.EsCancelable, &e.EstatusCancelacion, &e.CodigoEstatus, &e.ValidacionEFOS,
			&e.UserID, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history entries: %w", err)
	}
	return entries, nil
}
