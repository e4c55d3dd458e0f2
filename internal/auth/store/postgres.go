package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"conectasat/internal/auth/models"
)

// uniqueViolation is the PostgreSQL error code for unique constraint failures.
const uniqueViolation = "23505"

// Postgres implements TokenStore, AdminStore and UserStore over database/sql.
// Schema lives in migrations/001_auth.sql.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed auth store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Create(ctx context.Context, token *models.APIToken) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO api_tokens (token, description, is_active, user_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		token.Token, token.Description, token.IsActive, token.UserID,
	).Scan(&token.ID, &token.CreatedAt)
	if err != nil {
		return fmt.Errorf("create api token: %w", err)
	}
	return nil
}

const tokenColumns = `id, token, description, is_active, user_id, created_at, updated_at`

func (s *Postgres) GetByID(ctx context.Context, id int64) (*models.APIToken, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tokenColumns+` FROM api_tokens WHERE id = $1`, id)
	return scanToken(row)
}

func (s *Postgres) GetByValue(ctx context.Context, value string) (*models.APIToken, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tokenColumns+` FROM api_tokens WHERE token = $1`, value)
	return scanToken(row)
}

func (s *Postgres) List(ctx context.Context, skip, limit int) ([]*models.APIToken, error) {
	if limit <= 0 {
		limit = 100
	}
	if skip < 0 {
		skip = 0
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+tokenColumns+`
		FROM api_tokens
		ORDER BY id
		OFFSET $1 LIMIT $2`, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("list api tokens: %w", err)
	}
	defer rows.Close()

	tokens := make([]*models.APIToken, 0)
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate api tokens: %w", err)
	}
	return tokens, nil
}

func (s *Postgres) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM api_tokens`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count api tokens: %w", err)
	}
	return n, nil
}

func (s *Postgres) Update(ctx context.Context, token *models.APIToken) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE api_tokens
		SET token = $2, description = $3, is_active = $4, user_id = $5, updated_at = NOW()
		WHERE id = $1`,
		token.ID, token.Token, token.Description, token.IsActive, token.UserID)
	if err != nil {
		return fmt.Errorf("update api token: %w", err)
	}
	return requireRow(res)
}

func (s *Postgres) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM api_tokens WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete api token: %w", err)
	}
	return requireRow(res)
}

func (s *Postgres) CreateAdmin(ctx context.Context, admin *models.SuperAdmin) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO superadmins (username, hashed_password, is_active)
		VALUES (LOWER($1), $2, $3)
		RETURNING id, created_at`,
		admin.Username, admin.HashedPassword, admin.IsActive,
	).Scan(&admin.ID, &admin.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrAlreadyExists
		}
		return fmt.Errorf("create superadmin: %w", err)
	}
	return nil
}

func (s *Postgres) GetAdminByUsername(ctx context.Context, username string) (*models.SuperAdmin, error) {
	var admin models.SuperAdmin
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, hashed_password, is_active, created_at, updated_at
		FROM superadmins
		WHERE username = LOWER($1)`, username,
	).Scan(&admin.ID, &admin.Username, &admin.HashedPassword, &admin.IsActive, &admin.CreatedAt, &admin.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get superadmin: %w", err)
	}
	return &admin, nil
}

func (s *Postgres) UpdateAdmin(ctx context.Context, admin *models.SuperAdmin) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE superadmins
		SET hashed_password = $2, is_active = $3, updated_at = NOW()
		WHERE username = LOWER($1)`,
		admin.Username, admin.HashedPassword, admin.IsActive)
	if err != nil {
		return fmt.Errorf("update superadmin: %w", err)
	}
	return requireRow(res)
}

func (s *Postgres) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, is_active, created_at
		FROM users
		WHERE email = LOWER($1)`, email,
	).Scan(&user.ID, &user.Name, &user.Email, &user.IsActive, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

func (s *Postgres) CreateUser(ctx context.Context, user *models.User) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (name, email, is_active)
		VALUES ($1, LOWER($2), $3)
		RETURNING id, created_at`,
		user.Name, user.Email, user.IsActive,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanToken(row scannable) (*models.APIToken, error) {
	var t models.APIToken
	err := row.Scan(&t.ID, &t.Token, &t.Description, &t.IsActive, &t.UserID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan api token: %w", err)
	}
	return &t, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
