package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"seepage/internal/model"
	"seepage/internal/service"
)

const contentNotFound = "content not found"

// createContentJSON is the JSON form of a create request. Files can only be
// given as URLs in this form.
type createContentJSON struct {
	model.ContentFields
	FileURLs []string `json:"fileUrls"`
}

type patchFilesJSON struct {
	FileURLs      []string `json:"fileUrls"`
	RemoveFileIDs []string `json:"removeFileIds"`
}

// ListContent returns every content record sorted by category.
func ListContent(svc service.ContentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items, err := svc.List(c.UserContext())
		if err != nil {
			return writeServiceError(c, err, contentNotFound)
		}
		if items == nil {
			items = []model.Content{}
		}
		return c.JSON(items)
	}
}

// GetContent returns one content record.
func GetContent(svc service.ContentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		item, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err, contentNotFound)
		}
		return c.JSON(item)
	}
}

// GetFile streams a stored file by blob id or stored file name.
func GetFile(svc service.ContentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rc, info, err := svc.OpenFile(c.UserContext(), c.Params("key"))
		if err != nil {
			return writeServiceError(c, err, "file not found")
		}

		if info.ContentType != "" {
			c.Set(fiber.HeaderContentType, info.ContentType)
		}
		if info.ETag != "" {
			c.Set(fiber.HeaderETag, info.ETag)
		}
		if info.Name != "" {
			c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", info.Name))
		}
		size := -1
		if info.Size > 0 {
			size = int(info.Size)
		}
		// The response writer closes rc once the body is sent.
		return c.SendStream(rc, size)
	}
}

// CreateContent creates a content record from a multipart form (text fields,
// "files" parts and "fileUrls" values) or a JSON body.
func CreateContent(svc service.ContentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in service.CreateContentInput

		if isMultipart(c) {
			form, err := c.MultipartForm()
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_FORM", "invalid multipart form")
			}
			in.Fields = model.ContentFields{
				ArtistName:  firstValue(form, "artistName"),
				Title:       firstValue(form, "title"),
				Description: firstValue(form, "description"),
				Category:    form.Value["category"],
				Tags:        form.Value["tags"],
			}
			in.Files = fileInputs(form.File["files"], form.Value["fileUrls"])
		} else {
			var body createContentJSON
			if err := json.Unmarshal(c.Body(), &body); err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "request body must be a JSON object")
			}
			in.Fields = body.ContentFields
			in.Files = fileInputs(nil, body.FileURLs)
		}

		item, err := svc.Create(c.UserContext(), in)
		if err != nil {
			return writeServiceError(c, err, contentNotFound)
		}
		return c.Status(fiber.StatusCreated).JSON(item)
	}
}

// PatchContent applies a JSON patch of the text fields.
func PatchContent(svc service.ContentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		patch, err := service.DecodeContentPatch(c.Body())
		if err != nil {
			return writeServiceError(c, err, contentNotFound)
		}

		item, err := svc.UpdateFields(c.UserContext(), id, patch)
		if err != nil {
			return writeServiceError(c, err, contentNotFound)
		}
		return c.JSON(item)
	}
}

// PatchFiles adds ("files" parts, "fileUrls") and removes ("removeFileIds")
// files of a content record.
func PatchFiles(svc service.ContentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		var in service.PatchFilesInput
		if isMultipart(c) {
			form, err := c.MultipartForm()
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_FORM", "invalid multipart form")
			}
			in.Add = fileInputs(form.File["files"], form.Value["fileUrls"])
			in.RemoveIDs = form.Value["removeFileIds"]
		} else {
			var body patchFilesJSON
			if err := json.Unmarshal(c.Body(), &body); err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "request body must be a JSON object")
			}
			in.Add = fileInputs(nil, body.FileURLs)
			in.RemoveIDs = body.RemoveFileIDs
		}

		item, err := svc.PatchFiles(c.UserContext(), id, in)
		if err != nil {
			return writeServiceError(c, err, contentNotFound)
		}
		return c.JSON(item)
	}
}

// DeleteContent removes a content record and all of its stored files.
func DeleteContent(svc service.ContentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		// Blob cleanup failures surface as 500 with failedBlobIds.
		if err := svc.Delete(c.UserContext(), id); err != nil {
			return writeServiceError(c, err, contentNotFound)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm)
}

func firstValue(form *multipart.Form, key string) string {
	if v := form.Value[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// fileInputs lists uploads first, then URLs, keeping the order of each.
func fileInputs(parts []*multipart.FileHeader, urls []string) []service.FileInput {
	out := make([]service.FileInput, 0, len(parts)+len(urls))
	for _, fh := range parts {
		out = append(out, service.FileInput{Upload: &service.Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get(fiber.HeaderContentType),
			Size:        fh.Size,
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		}})
	}
	for _, u := range urls {
		out = append(out, service.FileInput{URL: u})
	}
	return out
}
