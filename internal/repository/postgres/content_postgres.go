package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"seepage/internal/model"
	"seepage/internal/repository"
)

// ContentPostgres is a PostgreSQL implementation of repository.ContentRepository.
// The category, tags and files lists are stored as JSONB so that file appends
// and removals are single-statement updates.
type ContentPostgres struct {
	db *sql.DB
}

// NewContentPostgres creates a new ContentPostgres repository.
func NewContentPostgres(db *sql.DB) *ContentPostgres {
	return &ContentPostgres{db: db}
}

var _ repository.ContentRepository = (*ContentPostgres)(nil)

const contentColumns = `id, artist_name, title, description, category, tags, files, created_at, updated_at`

const contentColumnsQualified = `c.id, c.artist_name, c.title, c.description, c.category, c.tags, c.files, c.created_at, c.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// scanContent reads one content row; extra receives any trailing columns.
func scanContent(row rowScanner, extra ...any) (*model.Content, error) {
	var (
		c                     model.Content
		category, tags, files []byte
	)
	dest := []any{&c.ID, &c.ArtistName, &c.Title, &c.Description, &category, &tags, &files, &c.CreatedAt, &c.UpdatedAt}
	dest = append(dest, extra...)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	if err := decodeList(category, &c.Category); err != nil {
		return nil, fmt.Errorf("decode category: %w", err)
	}
	if err := decodeList(tags, &c.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	if err := decodeList(files, &c.Files); err != nil {
		return nil, fmt.Errorf("decode files: %w", err)
	}
	return &c, nil
}

func decodeList[T any](raw []byte, out *[]T) error {
	*out = make([]T, 0)
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func encodeList[T any](v []T) (string, error) {
	if v == nil {
		v = []T{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Create inserts the text fields of a content row and returns the stored record.
func (r *ContentPostgres) Create(ctx context.Context, c *model.Content) (*model.Content, error) {
	category, err := encodeList(c.Category)
	if err != nil {
		return nil, err
	}
	tags, err := encodeList(c.Tags)
	if err != nil {
		return nil, err
	}

	const q = `
		INSERT INTO contents (id, artist_name, title, description, category, tags, files, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6::jsonb, '[]'::jsonb, $7, $7)
		RETURNING ` + contentColumns
	row := r.db.QueryRowContext(ctx, q,
		c.ID,
		c.ArtistName,
		c.Title,
		c.Description,
		category,
		tags,
		c.CreatedAt,
	)
	return scanContent(row)
}

// FindByID fetches a single content record by its ID.
func (r *ContentPostgres) FindByID(ctx context.Context, id string) (*model.Content, error) {
	const q = `SELECT ` + contentColumns + ` FROM contents WHERE id = $1`
	return scanContent(r.db.QueryRowContext(ctx, q, id))
}

// categoryOrder sorts rows by the smallest element of their category array,
// compared bytewise. Ordering the jsonb column directly would rank shorter
// arrays first.
const categoryOrder = `(SELECT min(e.value COLLATE "C") FROM jsonb_array_elements_text(category) AS e(value)) ASC, id ASC`

// List returns every content record sorted by category.
func (r *ContentPostgres) List(ctx context.Context) ([]model.Content, error) {
	const q = `SELECT ` + contentColumns + ` FROM contents ORDER BY ` + categoryOrder
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Content, 0)
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Update replaces the patched fields in one statement. Unpatched columns keep
// their value through COALESCE.
func (r *ContentPostgres) Update(ctx context.Context, id string, patch model.ContentPatch) (*model.Content, error) {
	category, err := nullList(patch.Category)
	if err != nil {
		return nil, err
	}
	tags, err := nullList(patch.Tags)
	if err != nil {
		return nil, err
	}

	const q = `
		UPDATE contents SET
			artist_name = COALESCE($2, artist_name),
			title       = COALESCE($3, title),
			description = COALESCE($4, description),
			category    = COALESCE($5::jsonb, category),
			tags        = COALESCE($6::jsonb, tags),
			updated_at  = now()
		WHERE id = $1
		RETURNING ` + contentColumns
	row := r.db.QueryRowContext(ctx, q,
		id,
		nullString(patch.ArtistName),
		nullString(patch.Title),
		nullString(patch.Description),
		category,
		tags,
	)
	return scanContent(row)
}

// AppendFile pushes ref onto the files array.
func (r *ContentPostgres) AppendFile(ctx context.Context, id string, ref model.FileRef) (*model.Content, error) {
	b, err := json.Marshal(ref)
	if err != nil {
		return nil, err
	}
	const q = `
		UPDATE contents SET
			files      = files || jsonb_build_array($2::jsonb),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + contentColumns
	return scanContent(r.db.QueryRowContext(ctx, q, id, string(b)))
}

// RemoveFiles pulls every file whose ref ID is listed in refIDs. The removed
// refs are computed from the locked pre-update row in the same statement.
func (r *ContentPostgres) RemoveFiles(ctx context.Context, id string, refIDs []string) (*model.Content, []model.FileRef, error) {
	ids, err := encodeList(refIDs)
	if err != nil {
		return nil, nil, err
	}
	const q = `
		WITH target AS (
			SELECT id, files FROM contents WHERE id = $1 FOR UPDATE
		), removed AS (
			SELECT COALESCE(jsonb_agg(e.f ORDER BY e.i), '[]'::jsonb) AS files
			FROM target, jsonb_array_elements(target.files) WITH ORDINALITY AS e(f, i)
			WHERE e.f->>'id' IN (SELECT jsonb_array_elements_text($2::jsonb))
		), kept AS (
			SELECT COALESCE(jsonb_agg(e.f ORDER BY e.i), '[]'::jsonb) AS files
			FROM target, jsonb_array_elements(target.files) WITH ORDINALITY AS e(f, i)
			WHERE e.f->>'id' NOT IN (SELECT jsonb_array_elements_text($2::jsonb))
		)
		UPDATE contents c SET
			files      = kept.files,
			updated_at = now()
		FROM target, removed, kept
		WHERE c.id = target.id
		RETURNING ` + contentColumnsQualified + `, removed.files`

	var removedRaw []byte
	c, err := scanContent(r.db.QueryRowContext(ctx, q, id, ids), &removedRaw)
	if err != nil {
		return nil, nil, err
	}
	var removed []model.FileRef
	if err := decodeList(removedRaw, &removed); err != nil {
		return nil, nil, fmt.Errorf("decode removed files: %w", err)
	}
	return c, removed, nil
}

// Delete removes the row and returns what it held.
func (r *ContentPostgres) Delete(ctx context.Context, id string) (*model.Content, error) {
	const q = `DELETE FROM contents WHERE id = $1 RETURNING ` + contentColumns
	return scanContent(r.db.QueryRowContext(ctx, q, id))
}

// FindFileByName searches all files arrays for a stored file name.
func (r *ContentPostgres) FindFileByName(ctx context.Context, name string) (*model.FileRef, error) {
	const q = `
		SELECT f
		FROM contents, jsonb_array_elements(files) AS f
		WHERE f->>'fileName' = $1
		LIMIT 1`
	var raw []byte
	if err := r.db.QueryRowContext(ctx, q, name).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	var ref model.FileRef
	if err := json.Unmarshal(raw, &ref); err != nil {
		return nil, fmt.Errorf("decode file ref: %w", err)
	}
	return &ref, nil
}

// ReferencedBlobIDs collects the blob keys of every blob-backed file.
func (r *ContentPostgres) ReferencedBlobIDs(ctx context.Context) (map[string]struct{}, error) {
	const q = `
		SELECT DISTINCT f->>'fileId'
		FROM contents, jsonb_array_elements(files) AS f
		WHERE COALESCE(f->>'fileId', '') <> ''`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullList(v []string) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	s, err := encodeList(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: s, Valid: true}, nil
}
