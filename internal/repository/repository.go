package repository

import (
	"context"
	"errors"

	"seepage/internal/model"
)

// ErrNotFound is returned when a lookup or mutation matches no row.
// Implementations translate driver-specific "no rows" errors into it.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when an insert violates a unique constraint.
var ErrDuplicate = errors.New("duplicate record")

// EditorRepository defines data access for editor accounts.
type EditorRepository interface {
	// Create inserts a new editor. Returns ErrDuplicate if the email is taken.
	Create(ctx context.Context, e *model.Editor) (*model.Editor, error)

	// FindByEmail looks up an editor by case-insensitive email.
	FindByEmail(ctx context.Context, email string) (*model.Editor, error)

	// ExistsByEmail reports whether an editor with the email exists (case-insensitive).
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// ContentRepository defines data access for content records. Each method is a
// single statement, so every call is atomic on its own row.
type ContentRepository interface {
	// Create inserts a content record with its text fields; files start empty.
	Create(ctx context.Context, c *model.Content) (*model.Content, error)

	// FindByID returns a content record by its ID.
	FindByID(ctx context.Context, id string) (*model.Content, error)

	// List returns all content ordered by category ascending.
	List(ctx context.Context) ([]model.Content, error)

	// Update applies the non-nil fields of patch and returns the new state.
	Update(ctx context.Context, id string, patch model.ContentPatch) (*model.Content, error)

	// AppendFile appends ref to the files list and returns the new state.
	AppendFile(ctx context.Context, id string, ref model.FileRef) (*model.Content, error)

	// RemoveFiles drops every file whose ref ID is in refIDs. It returns the new
	// state and the refs that were removed.
	RemoveFiles(ctx context.Context, id string, refIDs []string) (*model.Content, []model.FileRef, error)

	// Delete removes the record and returns its pre-delete snapshot.
	Delete(ctx context.Context, id string) (*model.Content, error)

	// FindFileByName returns the file ref with the given stored file name.
	FindFileByName(ctx context.Context, name string) (*model.FileRef, error)

	// ReferencedBlobIDs returns every blob key referenced by any content record.
	ReferencedBlobIDs(ctx context.Context) (map[string]struct{}, error)
}
