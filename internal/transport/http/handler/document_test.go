package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"examgen/internal/app"
	"examgen/internal/model"
	"examgen/internal/transport/http/response"
)

type fakeDocuments struct {
	uploaded  map[string]string
	gateErr   error
	uploadErr error
}

func (f *fakeDocuments) Upload(_ context.Context, name string, r io.Reader) (*model.DocumentState, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	b, _ := io.ReadAll(r)
	f.uploaded[name] = string(b)
	return &model.DocumentState{Name: name, Processed: true, Enabled: true, ChunkCount: 2}, nil
}

func (f *fakeDocuments) Dispatch(_ context.Context, name string) (*model.DocumentState, error) {
	return &model.DocumentState{Name: name}, nil
}

func (f *fakeDocuments) List() ([]model.DocumentState, error) {
	return []model.DocumentState{{Name: "a.pdf", Processed: true}}, nil
}

func (f *fakeDocuments) ToggleEnabled(name string) (*model.DocumentState, error) {
	return nil, fmt.Errorf("%w: %s", app.ErrDocumentNotProcessed, name)
}

func (f *fakeDocuments) RequireEnabled(string) error { return f.gateErr }

type fakeRetriever struct {
	gotK int
}

func (f *fakeRetriever) Retrieve(_ context.Context, document, query string, k int) ([]model.RetrievedChunk, error) {
	f.gotK = k
	return []model.RetrievedChunk{{ID: "b", Text: "chunk B", Source: document, Page: 2, Distance: 0.1}}, nil
}

func documentRouter(docs *fakeDocuments, retriever *fakeRetriever) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewDocumentHandler(docs, retriever, 5)
	r := gin.New()
	r.POST("/documents", h.Upload)
	r.GET("/documents", h.List)
	r.POST("/documents/:name/toggle", h.Toggle)
	r.GET("/documents/:name/chunks", h.Chunks)
	return r
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) response.APIResponse {
	t.Helper()
	var resp response.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestDocumentHandler_Upload(t *testing.T) {
	docs := &fakeDocuments{uploaded: map[string]string{}}
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "guide.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/documents", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	documentRouter(docs, &fakeRetriever{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, response.CodeOK, decodeResponse(t, rec).Code)
	assert.Equal(t, "%PDF-1.4", docs.uploaded["guide.pdf"])
}

func TestDocumentHandler_UploadErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   int
	}{
		{"too large", app.ErrDocumentTooLarge, http.StatusRequestEntityTooLarge, response.CodeTooLarge},
		{"not a pdf", fmt.Errorf("%w: bad name", app.ErrInvalidInput), http.StatusBadRequest, response.CodeBadRequest},
		{"nothing extracted", app.ErrNoExtractableContent, http.StatusUnprocessableEntity, response.CodeNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs := &fakeDocuments{uploaded: map[string]string{}, uploadErr: tt.err}
			var body bytes.Buffer
			mw := multipart.NewWriter(&body)
			part, _ := mw.CreateFormFile("file", "x.pdf")
			_, _ = part.Write([]byte("x"))
			_ = mw.Close()

			req := httptest.NewRequest(http.MethodPost, "/documents", &body)
			req.Header.Set("Content-Type", mw.FormDataContentType())
			rec := httptest.NewRecorder()
			documentRouter(docs, &fakeRetriever{}).ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeResponse(t, rec).Code)
		})
	}
}

func TestDocumentHandler_UploadMissingFile(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/documents", nil)
	rec := httptest.NewRecorder()

	documentRouter(&fakeDocuments{}, &fakeRetriever{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDocumentHandler_ToggleUnprocessed(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/documents/guide.pdf/toggle", nil)
	rec := httptest.NewRecorder()

	documentRouter(&fakeDocuments{}, &fakeRetriever{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, response.CodeDocumentNotProcessed, decodeResponse(t, rec).Code)
}

func TestDocumentHandler_Chunks(t *testing.T) {
	retriever := &fakeRetriever{}
	router := documentRouter(&fakeDocuments{}, retriever)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/documents/guide.pdf/chunks?query=risk&k=3", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, retriever.gotK)
	assert.Contains(t, rec.Body.String(), `"text":"chunk B"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/documents/guide.pdf/chunks?query=risk", nil))
	assert.Equal(t, 5, retriever.gotK)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/documents/guide.pdf/chunks", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDocumentHandler_ChunksGated(t *testing.T) {
	docs := &fakeDocuments{gateErr: app.ErrDocumentDisabled}
	rec := httptest.NewRecorder()

	documentRouter(docs, &fakeRetriever{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/documents/guide.pdf/chunks?query=risk", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, response.CodeDocumentDisabled, decodeResponse(t, rec).Code)
}
