package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"seepage/internal/model"
	"seepage/internal/service"
	serviceMocks "seepage/internal/service/mocks"
	"seepage/internal/storage"
)

func newID() string { return uuid.New().String() }

func TestListContent(t *testing.T) {
	mockSvc := new(serviceMocks.MockContentService)
	app := fiber.New()
	app.Get("/content", ListContent(mockSvc))

	t.Run("success", func(t *testing.T) {
		items := []model.Content{{ID: newID(), Title: "A"}, {ID: newID(), Title: "B"}}
		mockSvc.On("List", mock.Anything).Return(items, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/content", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result []model.Content
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Len(t, result, 2)
		mockSvc.AssertExpectations(t)
	})

	t.Run("empty list is an array", func(t *testing.T) {
		mockSvc.On("List", mock.Anything).Return(nil, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/content", nil))
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "[]", string(body))
	})

	t.Run("service error", func(t *testing.T) {
		mockSvc.On("List", mock.Anything).Return(nil, service.ErrStore).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/content", nil))
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})
}

func TestGetContent(t *testing.T) {
	mockSvc := new(serviceMocks.MockContentService)
	app := fiber.New()
	app.Get("/content/:id", GetContent(mockSvc))

	t.Run("success", func(t *testing.T) {
		id := newID()
		mockSvc.On("Get", mock.Anything, id).Return(&model.Content{ID: id}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/content/"+id, nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result model.Content
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, id, result.ID)
	})

	t.Run("not found", func(t *testing.T) {
		id := newID()
		mockSvc.On("Get", mock.Anything, id).Return(nil, service.ErrNotFound).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/content/"+id, nil))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "NOT_FOUND", res.Error.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/content/invalid-uuid", nil))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "INVALID_ID", res.Error.Code)
	})
}

func TestGetFile(t *testing.T) {
	mockSvc := new(serviceMocks.MockContentService)
	app := fiber.New()
	app.Get("/content/files/:key", GetFile(mockSvc))

	t.Run("streams bytes", func(t *testing.T) {
		info := storage.ObjectInfo{Key: "k1", Name: "abc.png", Size: 5, ContentType: "image/png"}
		mockSvc.On("OpenFile", mock.Anything, "abc.png").
			Return(io.NopCloser(strings.NewReader("hello")), info, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/content/files/abc.png", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "hello", string(body))
	})

	t.Run("missing file", func(t *testing.T) {
		mockSvc.On("OpenFile", mock.Anything, "gone.png").Return(nil, storage.ObjectInfo{}, service.ErrNotFound).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/content/files/gone.png", nil))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestCreateContent(t *testing.T) {
	t.Run("multipart with files and urls", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockContentService)
		app := fiber.New()
		app.Post("/protected/content", CreateContent(mockSvc))

		body := &bytes.Buffer{}
		w := multipart.NewWriter(body)
		w.WriteField("artistName", "Nina")
		w.WriteField("title", "Blue")
		w.WriteField("category", "music")
		w.WriteField("category", "jazz")
		w.WriteField("tags", "live")
		w.WriteField("fileUrls", "https://video.example/1")
		part, _ := w.CreateFormFile("files", "cover.png")
		part.Write([]byte("png-bytes"))
		w.Close()

		var got service.CreateContentInput
		created := &model.Content{ID: newID()}
		mockSvc.On("Create", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { got = args.Get(1).(service.CreateContentInput) }).
			Return(created, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/protected/content", body)
		req.Header.Set("Content-Type", w.FormDataContentType())
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Equal(t, "Nina", got.Fields.ArtistName)
		assert.Equal(t, []string{"music", "jazz"}, got.Fields.Category)
		require.Len(t, got.Files, 2)
		require.NotNil(t, got.Files[0].Upload)
		assert.Equal(t, "cover.png", got.Files[0].Upload.Filename)
		assert.Equal(t, "https://video.example/1", got.Files[1].URL)
		mockSvc.AssertExpectations(t)
	})

	t.Run("json body", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockContentService)
		app := fiber.New()
		app.Post("/protected/content", CreateContent(mockSvc))

		mockSvc.On("Create", mock.Anything, mock.MatchedBy(func(in service.CreateContentInput) bool {
			return in.Fields.Title == "Blue" && len(in.Files) == 1 && in.Files[0].URL == "https://v/1"
		})).Return(&model.Content{ID: newID()}, nil).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/protected/content",
			`{"artistName":"Nina","title":"Blue","category":["a"],"tags":["b"],"fileUrls":["https://v/1"]}`))
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("validation error", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockContentService)
		app := fiber.New()
		app.Post("/protected/content", CreateContent(mockSvc))

		mockSvc.On("Create", mock.Anything, mock.Anything).
			Return(nil, &service.ValidationError{Field: "title", Message: "Missing `title` in request body"}).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/protected/content", `{"artistName":"Nina"}`))
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

		var body validationPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "title", body.Location)
	})

	t.Run("store error", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockContentService)
		app := fiber.New()
		app.Post("/protected/content", CreateContent(mockSvc))

		mockSvc.On("Create", mock.Anything, mock.Anything).
			Return(nil, errors.Join(service.ErrStore, errors.New("put failed"))).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/protected/content", `{"artistName":"Nina"}`))
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "INTERNAL_ERROR", res.Error.Code)
		assert.NotContains(t, res.Error.Message, "put failed")
	})
}

func TestPatchContent(t *testing.T) {
	mockSvc := new(serviceMocks.MockContentService)
	app := fiber.New()
	app.Patch("/protected/content/:id", PatchContent(mockSvc))

	t.Run("success", func(t *testing.T) {
		id := newID()
		mockSvc.On("UpdateFields", mock.Anything, id, mock.MatchedBy(func(p model.ContentPatch) bool {
			return p.Title != nil && *p.Title == "New"
		})).Return(&model.Content{ID: id, Title: "New"}, nil).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPatch, "/protected/content/"+id, `{"title":"New"}`))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("unknown field", func(t *testing.T) {
		resp, _ := app.Test(jsonRequest(http.MethodPatch, "/protected/content/"+newID(), `{"files":[]}`))
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

		var body validationPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "files", body.Location)
	})

	t.Run("not found", func(t *testing.T) {
		id := newID()
		mockSvc.On("UpdateFields", mock.Anything, id, mock.Anything).Return(nil, service.ErrNotFound).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPatch, "/protected/content/"+id, `{"title":"New"}`))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestPatchFiles(t *testing.T) {
	t.Run("multipart add and remove", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockContentService)
		app := fiber.New()
		app.Patch("/protected/files/:id", PatchFiles(mockSvc))

		body := &bytes.Buffer{}
		w := multipart.NewWriter(body)
		w.WriteField("removeFileIds", "ref-1")
		w.WriteField("fileUrls", "https://v/2")
		part, _ := w.CreateFormFile("files", "clip.mp4")
		part.Write([]byte("mp4"))
		w.Close()

		id := newID()
		var got service.PatchFilesInput
		mockSvc.On("PatchFiles", mock.Anything, id, mock.Anything).
			Run(func(args mock.Arguments) { got = args.Get(2).(service.PatchFilesInput) }).
			Return(&model.Content{ID: id}, nil).Once()

		req := httptest.NewRequest(http.MethodPatch, "/protected/files/"+id, body)
		req.Header.Set("Content-Type", w.FormDataContentType())
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, []string{"ref-1"}, got.RemoveIDs)
		require.Len(t, got.Add, 2)
		assert.Equal(t, "clip.mp4", got.Add[0].Upload.Filename)
		assert.Equal(t, "https://v/2", got.Add[1].URL)
	})

	t.Run("blob cleanup failure", func(t *testing.T) {
		mockSvc := new(serviceMocks.MockContentService)
		app := fiber.New()
		app.Patch("/protected/files/:id", PatchFiles(mockSvc))

		id := newID()
		cleanup := &service.BlobCleanupError{ContentID: id, Failed: []string{"b1"}, Err: errors.New("s3 down")}
		mockSvc.On("PatchFiles", mock.Anything, id, mock.Anything).Return(&model.Content{ID: id}, cleanup).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPatch, "/protected/files/"+id, `{"removeFileIds":["ref-1"]}`))
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, []string{"b1"}, res.FailedBlobIDs)
	})
}

func TestDeleteContent(t *testing.T) {
	mockSvc := new(serviceMocks.MockContentService)
	app := fiber.New()
	app.Delete("/protected/content/:id", DeleteContent(mockSvc))

	t.Run("success", func(t *testing.T) {
		id := newID()
		mockSvc.On("Delete", mock.Anything, id).Return(nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodDelete, "/protected/content/"+id, nil))
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		id := newID()
		mockSvc.On("Delete", mock.Anything, id).Return(service.ErrNotFound).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodDelete, "/protected/content/"+id, nil))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("partial blob cleanup", func(t *testing.T) {
		id := newID()
		cleanup := &service.BlobCleanupError{ContentID: id, Failed: []string{"b2", "b3"}, Err: errors.New("boom")}
		mockSvc.On("Delete", mock.Anything, id).Return(cleanup).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodDelete, "/protected/content/"+id, nil))
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "BLOB_CLEANUP_FAILED", res.Error.Code)
		assert.Equal(t, []string{"b2", "b3"}, res.FailedBlobIDs)
	})
}

func TestFileInputs(t *testing.T) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for _, name := range []string{"one.png", "two.png", "three.png"} {
		part, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		part.Write([]byte("bytes of " + name))
	}
	require.NoError(t, w.Close())
	form, err := multipart.NewReader(body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	defer form.RemoveAll()

	inputs := fileInputs(form.File["files"], []string{"https://v/1"})

	require.Len(t, inputs, 4)
	for i, name := range []string{"one.png", "two.png", "three.png"} {
		up := inputs[i].Upload
		require.NotNil(t, up)
		assert.Equal(t, name, up.Filename)
		rc, err := up.Open()
		require.NoError(t, err)
		got, _ := io.ReadAll(rc)
		rc.Close()
		assert.Equal(t, "bytes of "+name, string(got))
	}
	assert.Equal(t, "https://v/1", inputs[3].URL)
}
