package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"seepage/internal/model"
	"seepage/internal/repository"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// EditorPostgres is a PostgreSQL implementation of repository.EditorRepository.
type EditorPostgres struct {
	db *sql.DB
}

// NewEditorPostgres creates a new EditorPostgres repository.
func NewEditorPostgres(db *sql.DB) *EditorPostgres {
	return &EditorPostgres{db: db}
}

var _ repository.EditorRepository = (*EditorPostgres)(nil)

// Create inserts a new editor row and returns the stored record.
func (r *EditorPostgres) Create(ctx context.Context, e *model.Editor) (*model.Editor, error) {
	const q = `
		INSERT INTO editors (id, email, password_hash, first_name, last_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, email, password_hash, first_name, last_name, created_at
	`
	row := r.db.QueryRowContext(ctx, q,
		e.ID,
		e.Email,
		e.PasswordHash,
		e.FirstName,
		e.LastName,
		e.CreatedAt,
	)
	out, err := scanEditor(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, repository.ErrDuplicate
		}
		return nil, err
	}
	return out, nil
}

// FindByEmail fetches an editor by email, ignoring case.
func (r *EditorPostgres) FindByEmail(ctx context.Context, email string) (*model.Editor, error) {
	const q = `
		SELECT id, email, password_hash, first_name, last_name, created_at
		FROM editors
		WHERE lower(email) = lower($1)
	`
	return scanEditor(r.db.QueryRowContext(ctx, q, email))
}

// ExistsByEmail reports whether the email is already registered.
func (r *EditorPostgres) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM editors WHERE lower(email) = lower($1))`
	var exists bool
	if err := r.db.QueryRowContext(ctx, q, email).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func scanEditor(row rowScanner) (*model.Editor, error) {
	var e model.Editor
	if err := row.Scan(
		&e.ID,
		&e.Email,
		&e.PasswordHash,
		&e.FirstName,
		&e.LastName,
		&e.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}
