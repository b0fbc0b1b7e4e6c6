package model

import (
	"errors"
	"time"
)

// FileTypeVideo is the file type recorded for externally hosted video URLs.
const FileTypeVideo = "video"

// Content is a content entry: text metadata plus an ordered list of attached files.
// Like the rest of this package it carries no persistence tags.
type Content struct {
	ID          string    `json:"id"`
	ArtistName  string    `json:"artistName"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Category    []string  `json:"category"`
	Tags        []string  `json:"tags"`
	Files       []FileRef `json:"files"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// FileRef is a file entry embedded in a Content record. Exactly one of FileID
// (a blob store key) or FileURL (an external URL) is set.
type FileRef struct {
	ID       string `json:"id"`
	FileType string `json:"fileType"`
	FileName string `json:"fileName,omitempty"`
	FileID   string `json:"fileId,omitempty"`
	FileURL  string `json:"fileUrl,omitempty"`
}

var errFileRefTarget = errors.New("file ref must have exactly one of fileId or fileUrl")

// Validate checks the fileId/fileUrl exclusivity invariant.
func (f FileRef) Validate() error {
	if (f.FileID == "") == (f.FileURL == "") {
		return errFileRefTarget
	}
	return nil
}

// IsBlob reports whether the file bytes live in the blob store.
func (f FileRef) IsBlob() bool {
	return f.FileID != ""
}

// BlobIDs returns the blob keys referenced by files, in order.
func BlobIDs(files []FileRef) []string {
	ids := make([]string, 0, len(files))
	for _, f := range files {
		if f.IsBlob() {
			ids = append(ids, f.FileID)
		}
	}
	return ids
}

// ContentFields holds the text fields accepted when creating content.
type ContentFields struct {
	ArtistName  string   `json:"artistName"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    []string `json:"category"`
	Tags        []string `json:"tags"`
}

// ContentPatch is a partial update of the patchable top-level fields.
// Nil fields are left unchanged.
type ContentPatch struct {
	ArtistName  *string
	Title       *string
	Description *string
	Category    []string
	Tags        []string
}

// IsEmpty reports whether the patch changes nothing.
func (p ContentPatch) IsEmpty() bool {
	return p.ArtistName == nil && p.Title == nil && p.Description == nil && p.Category == nil && p.Tags == nil
}
