package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seepage/internal/auth"
	"seepage/internal/model"
	"seepage/internal/repository/repotest"
	"seepage/internal/service"
	"seepage/internal/storage"
)

// newLifecycleApp wires the real services over in-memory stores.
func newLifecycleApp(t *testing.T) (*fiber.App, *storage.Memory) {
	t.Helper()
	issuer, err := auth.NewTokenIssuer("lifecycle-secret", time.Hour)
	require.NoError(t, err)
	blobs := storage.NewMemory()

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
	RegisterRoutes(app, Deps{
		Editors:  service.NewEditorService(repotest.NewEditorRepo(), issuer),
		Contents: service.NewContentService(repotest.NewContentRepo(), blobs, zerolog.Nop(), nil),
		Tokens:   issuer,
	})
	return app, blobs
}

func doJSON(t *testing.T, app *fiber.App, req *http.Request, out any) *http.Response {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestLifecycle_RegisterTwice(t *testing.T) {
	app, _ := newLifecycleApp(t)
	body := `{"email":"a@b.com","password":"1234567890","firstName":"A","lastName":"B"}`

	var editor map[string]any
	resp := doJSON(t, app, jsonRequest(http.MethodPost, "/register", body), &editor)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "a@b.com", editor["email"])
	assert.Equal(t, "a", editor["firstName"])
	assert.Equal(t, "b", editor["lastName"])
	assert.NotContains(t, editor, "password")
	assert.NotContains(t, editor, "passwordHash")

	var verr validationPayload
	resp = doJSON(t, app, jsonRequest(http.MethodPost, "/register",
		`{"email":"A@B.COM","password":"1234567890","firstName":"A","lastName":"B"}`), &verr)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "ValidationError", verr.Reason)
	assert.Equal(t, "email", verr.Location)
}

func TestLifecycle_CreateFetchDelete(t *testing.T) {
	app, blobs := newLifecycleApp(t)

	doJSON(t, app, jsonRequest(http.MethodPost, "/register",
		`{"email":"ed@b.com","password":"1234567890","firstName":"Ed","lastName":"Itor"}`), nil)
	var tok tokenResponse
	resp := doJSON(t, app, jsonRequest(http.MethodPost, "/auth/login",
		`{"email":"ed@b.com","password":"1234567890"}`), &tok)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, tok.AuthToken)

	var refreshed tokenResponse
	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.Header.Set("Authorization", "Bearer "+tok.AuthToken)
	resp = doJSON(t, app, req, &refreshed)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, refreshed.AuthToken)

	payload := []byte("\x89PNG\r\n\x1a\nnot really an image")
	form := &bytes.Buffer{}
	w := multipart.NewWriter(form)
	w.WriteField("artistName", "Lisa Vanderpump")
	w.WriteField("title", "Good As Gold")
	w.WriteField("description", `Rock & Roll's "best"`)
	w.WriteField("category", "music")
	w.WriteField("tags", "single")
	part, err := w.CreateFormFile("files", "cover.png")
	require.NoError(t, err)
	part.Write(payload)
	require.NoError(t, w.Close())

	req = httptest.NewRequest(http.MethodPost, "/protected/content", form)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+refreshed.AuthToken)
	var created model.Content
	resp = doJSON(t, app, req, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Len(t, created.Files, 1)
	assert.Equal(t, `Rock & Roll's "best"`, created.Description)
	file := created.Files[0]

	tagged, err := blobs.List(context.Background(), storage.Filter{ContentID: created.ID})
	require.NoError(t, err)
	assert.Len(t, tagged, 1)

	for _, key := range []string{file.FileID, file.FileName} {
		resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/content/files/"+key, nil), -1)
		require.NoError(t, err)
		got, _ := io.ReadAll(resp.Body)
		assert.Equal(t, http.StatusOK, resp.StatusCode, key)
		assert.Equal(t, payload, got, key)
	}

	var listed []model.Content
	resp = doJSON(t, app, httptest.NewRequest(http.MethodGet, "/content", nil), &listed)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)

	req = httptest.NewRequest(http.MethodDelete, "/protected/content/"+created.ID, nil)
	req.Header.Set("Authorization", "Bearer "+refreshed.AuthToken)
	resp = doJSON(t, app, req, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	status, code := errorCode(t, app, httptest.NewRequest(http.MethodGet, "/content/files/"+file.FileID, nil))
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", code)
	status, _ = errorCode(t, app, httptest.NewRequest(http.MethodGet, "/content/"+created.ID, nil))
	assert.Equal(t, http.StatusNotFound, status)
	assert.Zero(t, blobs.Len())
}

func TestLifecycle_PatchFilesAddAndRemove(t *testing.T) {
	app, blobs := newLifecycleApp(t)
	issuer, err := auth.NewTokenIssuer("lifecycle-secret", time.Hour)
	require.NoError(t, err)
	token, err := issuer.Issue(model.EditorDTO{ID: "e1", Email: "ed@b.com"})
	require.NoError(t, err)

	multipartReq := func(method, target string, fields map[string][]string, files ...string) *http.Request {
		body := &bytes.Buffer{}
		w := multipart.NewWriter(body)
		for k, vs := range fields {
			for _, v := range vs {
				w.WriteField(k, v)
			}
		}
		for _, name := range files {
			p, _ := w.CreateFormFile("files", name)
			p.Write([]byte("bytes of " + name))
		}
		w.Close()
		req := httptest.NewRequest(method, target, body)
		req.Header.Set("Content-Type", w.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)
		return req
	}

	var created model.Content
	resp := doJSON(t, app, multipartReq(http.MethodPost, "/protected/content", map[string][]string{
		"artistName": {"Nina"}, "title": {"Blue"}, "category": {"music"}, "tags": {"live"},
	}, "a.png", "b.png"), &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Len(t, created.Files, 2)

	var patched model.Content
	resp = doJSON(t, app, multipartReq(http.MethodPatch, "/protected/files/"+created.ID, map[string][]string{
		"removeFileIds": {created.Files[0].ID},
		"fileUrls":      {"https://video.example/1"},
	}, "c.png"), &patched)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// 2 - 1 + 2
	assert.Len(t, patched.Files, 3)
	assert.Equal(t, 2, blobs.Len())
	for _, f := range patched.Files {
		assert.NotEqual(t, created.Files[0].ID, f.ID)
	}
}
