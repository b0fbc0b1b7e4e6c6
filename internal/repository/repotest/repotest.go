// Package repotest provides in-memory repositories for tests. Each call is
// atomic on its own record, like the Postgres implementations.
package repotest

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"seepage/internal/model"
	"seepage/internal/repository"
)

// ContentRepo is an in-memory repository.ContentRepository. AppendErr and
// DeleteErr inject failures.
type ContentRepo struct {
	mu    sync.Mutex
	items map[string]*model.Content

	AppendErr func(ref model.FileRef) error
	DeleteErr error
}

var _ repository.ContentRepository = (*ContentRepo)(nil)

func NewContentRepo() *ContentRepo {
	return &ContentRepo{items: make(map[string]*model.Content)}
}

// Len returns the number of stored records.
func (r *ContentRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

func (r *ContentRepo) Create(_ context.Context, c *model.Content) (*model.Content, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := clone(c)
	stored.Files = []model.FileRef{}
	r.items[c.ID] = stored
	return clone(stored), nil
}

func (r *ContentRepo) FindByID(_ context.Context, id string) (*model.Content, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(c), nil
}

// List orders by the smallest category element, then id, matching the
// Postgres query.
func (r *ContentRepo) List(_ context.Context) ([]model.Content, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Content, 0, len(r.items))
	for _, c := range r.items {
		out = append(out, *clone(c))
	}
	sort.Slice(out, func(i, j int) bool {
		a, aok := smallestCategory(out[i].Category)
		b, bok := smallestCategory(out[j].Category)
		switch {
		case aok != bok:
			// NULLs last, as in Postgres.
			return aok
		case a != b:
			return a < b
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func smallestCategory(cats []string) (string, bool) {
	if len(cats) == 0 {
		return "", false
	}
	return slices.Min(cats), true
}

func (r *ContentRepo) Update(_ context.Context, id string, p model.ContentPatch) (*model.Content, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if p.ArtistName != nil {
		c.ArtistName = *p.ArtistName
	}
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.Category != nil {
		c.Category = slices.Clone(p.Category)
	}
	if p.Tags != nil {
		c.Tags = slices.Clone(p.Tags)
	}
	return clone(c), nil
}

func (r *ContentRepo) AppendFile(_ context.Context, id string, ref model.FileRef) (*model.Content, error) {
	if r.AppendErr != nil {
		if err := r.AppendErr(ref); err != nil {
			return nil, err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c.Files = append(c.Files, ref)
	return clone(c), nil
}

func (r *ContentRepo) RemoveFiles(_ context.Context, id string, refIDs []string) (*model.Content, []model.FileRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return nil, nil, repository.ErrNotFound
	}
	var kept, removed []model.FileRef
	for _, f := range c.Files {
		if slices.Contains(refIDs, f.ID) {
			removed = append(removed, f)
		} else {
			kept = append(kept, f)
		}
	}
	c.Files = kept
	return clone(c), removed, nil
}

func (r *ContentRepo) Delete(_ context.Context, id string) (*model.Content, error) {
	if r.DeleteErr != nil {
		return nil, r.DeleteErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(r.items, id)
	return clone(c), nil
}

func (r *ContentRepo) FindFileByName(_ context.Context, name string) (*model.FileRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.items {
		for _, f := range c.Files {
			if f.FileName == name {
				return &f, nil
			}
		}
	}
	return nil, repository.ErrNotFound
}

func (r *ContentRepo) ReferencedBlobIDs(_ context.Context) (map[string]struct{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]struct{})
	for _, c := range r.items {
		for _, id := range model.BlobIDs(c.Files) {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

func clone(c *model.Content) *model.Content {
	out := *c
	out.Category = slices.Clone(c.Category)
	out.Tags = slices.Clone(c.Tags)
	out.Files = slices.Clone(c.Files)
	if out.Files == nil {
		out.Files = []model.FileRef{}
	}
	return &out
}

// EditorRepo is an in-memory repository.EditorRepository keyed by
// lower-cased email.
type EditorRepo struct {
	mu      sync.Mutex
	byEmail map[string]model.Editor
}

var _ repository.EditorRepository = (*EditorRepo)(nil)

func NewEditorRepo() *EditorRepo {
	return &EditorRepo{byEmail: make(map[string]model.Editor)}
}

func (r *EditorRepo) Create(_ context.Context, e *model.Editor) (*model.Editor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(e.Email)
	if _, ok := r.byEmail[key]; ok {
		return nil, repository.ErrDuplicate
	}
	r.byEmail[key] = *e
	out := *e
	return &out, nil
}

func (r *EditorRepo) FindByEmail(_ context.Context, email string) (*model.Editor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (r *EditorRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byEmail[strings.ToLower(email)]
	return ok, nil
}
