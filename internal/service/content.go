package service

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/h2non/filetype"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"seepage/internal/logger"
	"seepage/internal/model"
	"seepage/internal/repository"
	"seepage/internal/storage"
)

// sniffLen is the number of leading bytes filetype needs to match every
// format it knows.
const sniffLen = 262

// Upload is one uploaded file. Open is called once, inside the branch that
// stores it, and the reader is closed there.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// FileInput is one file to attach: either an Upload or an external URL.
type FileInput struct {
	Upload *Upload
	URL    string
}

// CreateContentInput is the create request: text fields plus files in order.
type CreateContentInput struct {
	Fields model.ContentFields
	Files  []FileInput
}

// PatchFilesInput adds and removes files in one call. RemoveIDs are FileRef ids.
type PatchFilesInput struct {
	Add       []FileInput
	RemoveIDs []string
}

// ContentService defines the content lifecycle: every operation keeps the
// content repository and the blob store consistent with each other.
type ContentService interface {
	// Create inserts the record, then attaches every file concurrently. If any
	// file fails, everything written by the call is removed again.
	Create(ctx context.Context, in CreateContentInput) (*model.Content, error)

	// Get returns one record.
	Get(ctx context.Context, id string) (*model.Content, error)

	// List returns all records sorted by category.
	List(ctx context.Context) ([]model.Content, error)

	// UpdateFields applies a whitelisted field patch. Files are untouched.
	UpdateFields(ctx context.Context, id string, patch model.ContentPatch) (*model.Content, error)

	// PatchFiles adds and/or removes files. A *BlobCleanupError is returned
	// together with the updated record when removed blobs could not be deleted.
	PatchFiles(ctx context.Context, id string, in PatchFilesInput) (*model.Content, error)

	// Delete removes the record and all of its blobs.
	Delete(ctx context.Context, id string) error

	// OpenFile streams a blob by blob id or stored file name.
	OpenFile(ctx context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error)
}

type contentService struct {
	repo     repository.ContentRepository
	blobs    storage.BlobStore
	log      zerolog.Logger
	metrics  *Metrics
	sanitize *bluemonday.Policy
	now      func() time.Time
}

// NewContentService constructs a new ContentService. metrics may be nil.
func NewContentService(repo repository.ContentRepository, blobs storage.BlobStore, log zerolog.Logger, metrics *Metrics) ContentService {
	return &contentService{
		repo:     repo,
		blobs:    blobs,
		log:      logger.Component(log, "content"),
		metrics:  metrics,
		sanitize: bluemonday.StrictPolicy(),
		now:      time.Now,
	}
}

// branchResult is the outcome of attaching one file.
type branchResult struct {
	content *model.Content
	// blobID is set when the branch left a blob behind: on success, or when
	// its own compensation failed.
	blobID string
	err    error
}

func (s *contentService) Create(ctx context.Context, in CreateContentInput) (*model.Content, error) {
	fields, verr := s.normalizeFields(in.Fields)
	if verr != nil {
		return nil, verr
	}
	if verr := validateFileInputs("files", in.Files); verr != nil {
		return nil, verr
	}

	now := s.now().UTC()
	rec, err := s.repo.Create(ctx, &model.Content{
		ID:          uuid.NewString(),
		ArtistName:  fields.ArtistName,
		Title:       fields.Title,
		Description: fields.Description,
		Category:    fields.Category,
		Tags:        fields.Tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, storeErr("create content", err)
	}
	if len(in.Files) == 0 {
		return rec, nil
	}

	results := s.attachAll(ctx, rec, 0, in.Files)
	latest, errs := collect(results)
	if errs != nil {
		return nil, s.compensateCreate(ctx, rec.ID, results, errs)
	}
	return latest, nil
}

// compensateCreate undoes a failed create: it deletes the record and every
// blob the call wrote.
func (s *contentService) compensateCreate(ctx context.Context, id string, results []branchResult, cause error) error {
	ctx = context.WithoutCancel(ctx)
	failure := storeErr("attach files", cause)

	var blobIDs []string
	for _, r := range results {
		if r.blobID != "" {
			blobIDs = append(blobIDs, r.blobID)
		}
	}

	if _, err := s.repo.Delete(ctx, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.log.Error().Err(err).
			Str("event", "content_create_rollback").
			Str("status", "error").
			Str("content_id", id).
			Msg("rollback delete content failed")
		failure = errors.Join(failure, fmt.Errorf("rollback delete content: %w", err))
	}

	if len(blobIDs) > 0 {
		if cleanup := s.deleteBlobs(ctx, id, blobIDs); cleanup != nil {
			return errors.Join(failure, cleanup)
		}
	}

	s.log.Warn().
		Str("event", "content_create_rollback").
		Str("status", "success").
		Str("content_id", id).
		Int("blobs_removed", len(blobIDs)).
		Msg("content create rolled back")
	return failure
}

// attachAll runs one branch per file and waits for all of them.
func (s *contentService) attachAll(ctx context.Context, rec *model.Content, offset int, files []FileInput) []branchResult {
	results := make([]branchResult, len(files))
	var g errgroup.Group
	for i, f := range files {
		g.Go(func() error {
			results[i] = s.attach(ctx, rec, offset+i, f)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// attach stores one file and appends its FileRef. A blob whose append fails
// is deleted again.
func (s *contentService) attach(ctx context.Context, rec *model.Content, index int, f FileInput) branchResult {
	if f.Upload == nil {
		c, err := s.repo.AppendFile(ctx, rec.ID, model.FileRef{
			ID:       uuid.NewString(),
			FileType: model.FileTypeVideo,
			FileURL:  f.URL,
		})
		if err != nil {
			return branchResult{err: fmt.Errorf("append url %q: %w", f.URL, err)}
		}
		return branchResult{content: c}
	}

	up := f.Upload
	rc, err := up.Open()
	if err != nil {
		return branchResult{err: fmt.Errorf("open upload %q: %w", up.Filename, err)}
	}
	defer rc.Close()

	br := bufio.NewReaderSize(rc, sniffLen*2)
	head, _ := br.Peek(sniffLen)
	contentType := detectContentType(up.ContentType, head)

	info, err := s.blobs.Put(ctx, br, fileHint(rec.ArtistName, rec.Title, index, up.Filename), storage.PutOptions{
		Size:        up.Size,
		ContentType: contentType,
		Metadata: map[string]string{
			storage.MetaContentID:        rec.ID,
			storage.MetaOriginalFilename: filepath.Base(up.Filename),
		},
	})
	s.metrics.observe("put", err)
	if err != nil {
		return branchResult{err: fmt.Errorf("store upload %q: %w", up.Filename, err)}
	}

	c, err := s.repo.AppendFile(ctx, rec.ID, model.FileRef{
		ID:       uuid.NewString(),
		FileType: contentType,
		FileName: info.Name,
		FileID:   info.Key,
	})
	if err != nil {
		appendErr := fmt.Errorf("append upload %q: %w", up.Filename, err)
		delErr := s.blobs.Delete(context.WithoutCancel(ctx), info.Key)
		s.metrics.observe("delete", delErr)
		if delErr != nil {
			s.log.Error().Err(delErr).
				Str("event", "blob_compensate").
				Str("status", "error").
				Str("content_id", rec.ID).
				Str("blob_id", info.Key).
				Msg("failed to delete blob after append failure")
			return branchResult{blobID: info.Key, err: appendErr}
		}
		return branchResult{err: appendErr}
	}
	return branchResult{content: c, blobID: info.Key}
}

// collect returns the snapshot with the most files and the joined branch errors.
func collect(results []branchResult) (*model.Content, error) {
	var (
		latest *model.Content
		errs   []error
	)
	for _, r := range results {
		if r.err != nil {
			errs = append(errs, r.err)
			continue
		}
		if latest == nil || len(r.content.Files) > len(latest.Files) {
			latest = r.content
		}
	}
	return latest, errors.Join(errs...)
}

func (s *contentService) Get(ctx context.Context, id string) (*model.Content, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr("find content", err)
	}
	return c, nil
}

func (s *contentService) List(ctx context.Context) ([]model.Content, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, storeErr("list content", err)
	}
	return items, nil
}

func (s *contentService) UpdateFields(ctx context.Context, id string, patch model.ContentPatch) (*model.Content, error) {
	if patch.IsEmpty() {
		return nil, invalid("body", "No updatable fields in request body")
	}
	if patch.Description != nil {
		d := s.cleanDescription(*patch.Description)
		patch.Description = &d
	}
	c, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, mapRepoErr("update content", err)
	}
	return c, nil
}

func (s *contentService) PatchFiles(ctx context.Context, id string, in PatchFilesInput) (*model.Content, error) {
	removeIDs := dedupe(in.RemoveIDs)
	if len(in.Add) == 0 && len(removeIDs) == 0 {
		return nil, invalid("files", "No files to add or remove")
	}
	if verr := validateFileInputs("fileUrls", in.Add); verr != nil {
		return nil, verr
	}

	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr("find content", err)
	}

	switch {
	case len(in.Add) == 0:
		return s.removeFiles(ctx, id, removeIDs)

	case len(removeIDs) == 0:
		latest, errs := collect(s.attachAll(ctx, rec, len(rec.Files), in.Add))
		if errs != nil {
			return nil, storeErr("attach files", errs)
		}
		return latest, nil
	}

	var (
		g         errgroup.Group
		added     []branchResult
		removeErr error
	)
	g.Go(func() error {
		_, removeErr = s.removeFiles(ctx, id, removeIDs)
		return nil
	})
	g.Go(func() error {
		added = s.attachAll(ctx, rec, len(rec.Files), in.Add)
		return nil
	})
	_ = g.Wait()

	_, addErr := collect(added)
	final, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, errors.Join(mapRepoErr("reload content", err), removeErr, addErr)
	}

	var cleanup *BlobCleanupError
	switch {
	case addErr != nil:
		return final, errors.Join(storeErr("attach files", addErr), removeErr)
	case errors.As(removeErr, &cleanup):
		return final, removeErr
	case removeErr != nil:
		return nil, removeErr
	}
	return final, nil
}

// removeFiles drops the refs in one statement, then deletes their blobs.
// The metadata removal is never rolled back.
func (s *contentService) removeFiles(ctx context.Context, id string, refIDs []string) (*model.Content, error) {
	c, removed, err := s.repo.RemoveFiles(ctx, id, refIDs)
	if err != nil {
		return nil, mapRepoErr("remove files", err)
	}
	if blobIDs := model.BlobIDs(removed); len(blobIDs) > 0 {
		if cleanup := s.deleteBlobs(ctx, id, blobIDs); cleanup != nil {
			return c, cleanup
		}
	}
	return c, nil
}

func (s *contentService) Delete(ctx context.Context, id string) error {
	snap, err := s.repo.Delete(ctx, id)
	if err != nil {
		return mapRepoErr("delete content", err)
	}
	blobIDs := model.BlobIDs(snap.Files)
	if len(blobIDs) == 0 {
		return nil
	}
	if cleanup := s.deleteBlobs(ctx, id, blobIDs); cleanup != nil {
		return cleanup
	}
	return nil
}

// deleteBlobs awaits deletion of every id and reports the ones that remain.
func (s *contentService) deleteBlobs(ctx context.Context, contentID string, ids []string) *BlobCleanupError {
	_, err := s.blobs.DeleteMany(context.WithoutCancel(ctx), ids)
	s.metrics.observe("delete_many", err)
	if err == nil {
		return nil
	}

	var (
		failed []string
		de     *storage.DeleteError
	)
	if errors.As(err, &de) {
		failed = de.Keys()
	} else {
		failed = append([]string(nil), ids...)
		sort.Strings(failed)
	}

	s.log.Error().Err(err).
		Str("event", "blob_cleanup").
		Str("status", "error").
		Str("content_id", contentID).
		Strs("failed_blob_ids", failed).
		Msg("failed to delete blobs")
	return &BlobCleanupError{ContentID: contentID, Failed: failed, Err: err}
}

func (s *contentService) OpenFile(ctx context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error) {
	blobID := key
	if uuid.Validate(key) != nil {
		ref, err := s.repo.FindFileByName(ctx, key)
		if err != nil {
			return nil, storage.ObjectInfo{}, mapRepoErr("find file", err)
		}
		if !ref.IsBlob() {
			return nil, storage.ObjectInfo{}, ErrNotFound
		}
		blobID = ref.FileID
	}

	rc, info, err := s.blobs.Get(ctx, blobID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, storage.ObjectInfo{}, ErrNotFound
		}
		return nil, storage.ObjectInfo{}, storeErr("open file", err)
	}
	return rc, info, nil
}

// normalizeFields trims and sanitizes the text fields and checks the required
// ones in order.
func (s *contentService) normalizeFields(f model.ContentFields) (model.ContentFields, *ValidationError) {
	f.ArtistName = strings.TrimSpace(f.ArtistName)
	f.Title = strings.TrimSpace(f.Title)
	f.Description = s.cleanDescription(f.Description)
	f.Category = cleanList(f.Category)
	f.Tags = cleanList(f.Tags)

	required := []struct {
		name  string
		value any
	}{
		{"artistName", f.ArtistName},
		{"title", f.Title},
		{"category", f.Category},
		{"tags", f.Tags},
	}
	for _, r := range required {
		if err := validation.Validate(r.value, validation.Required); err != nil {
			return f, invalid(r.name, fmt.Sprintf("Missing `%s` in request body", r.name))
		}
	}
	return f, nil
}

// cleanDescription drops markup but keeps the text as typed. The strict policy
// escapes what it keeps, so entities are decoded again before storing.
func (s *contentService) cleanDescription(d string) string {
	return html.UnescapeString(s.sanitize.Sanitize(strings.TrimSpace(d)))
}

func validateFileInputs(field string, files []FileInput) *ValidationError {
	for _, f := range files {
		if f.Upload == nil && strings.TrimSpace(f.URL) == "" {
			return invalid(field, "File URL cannot be empty")
		}
		if f.Upload != nil && f.Upload.Open == nil {
			return invalid("files", "Upload has no content")
		}
	}
	return nil
}

// detectContentType keeps a specific declared MIME type and sniffs the
// content otherwise.
func detectContentType(declared string, head []byte) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if kind, err := filetype.Match(head); err == nil && kind != filetype.Unknown {
		return kind.MIME.Value
	}
	return "application/octet-stream"
}

// fileHint is the deterministic name for the index-th file of a record.
func fileHint(artist, title string, index int, original string) string {
	return slug.Make(artist) + "-" + slug.Make(title) + "-" + strconv.Itoa(index) + strings.ToLower(filepath.Ext(original))
}

func mapRepoErr(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return storeErr(op, err)
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if _, ok := seen[v]; ok || v == "" {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

var patchableFields = map[string]bool{
	"artistName":  true,
	"title":       true,
	"description": true,
	"category":    true,
	"tags":        true,
}

// DecodeContentPatch decodes a JSON patch body, rejecting keys outside the
// whitelist and values of the wrong type.
func DecodeContentPatch(body []byte) (model.ContentPatch, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return model.ContentPatch{}, invalid("body", "Request body must be a JSON object")
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !patchableFields[k] {
			return model.ContentPatch{}, invalid(k, fmt.Sprintf("Field `%s` cannot be updated", k))
		}
	}

	var p model.ContentPatch
	for _, k := range keys {
		v := raw[k]
		switch k {
		case "artistName", "title", "description":
			var s string
			if err := json.Unmarshal(v, &s); err != nil {
				return model.ContentPatch{}, invalid(k, "Incorrect field type: expected string")
			}
			s = strings.TrimSpace(s)
			if k != "description" && s == "" {
				return model.ContentPatch{}, invalid(k, fmt.Sprintf("`%s` cannot be empty", k))
			}
			switch k {
			case "artistName":
				p.ArtistName = &s
			case "title":
				p.Title = &s
			default:
				p.Description = &s
			}
		case "category", "tags":
			var list []string
			if err := json.Unmarshal(v, &list); err != nil {
				return model.ContentPatch{}, invalid(k, "Incorrect field type: expected array of strings")
			}
			list = cleanList(list)
			if len(list) == 0 {
				return model.ContentPatch{}, invalid(k, fmt.Sprintf("`%s` cannot be empty", k))
			}
			if k == "category" {
				p.Category = list
			} else {
				p.Tags = list
			}
		}
	}
	return p, nil
}
