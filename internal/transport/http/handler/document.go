package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"examgen/internal/app"
	"examgen/internal/model"
	"examgen/internal/transport/http/response"
)

type DocumentService interface {
	Upload(ctx context.Context, name string, r io.Reader) (*model.DocumentState, error)
	Dispatch(ctx context.Context, name string) (*model.DocumentState, error)
	List() ([]model.DocumentState, error)
	ToggleEnabled(name string) (*model.DocumentState, error)
	RequireEnabled(name string) error
}

type ChunkRetriever interface {
	Retrieve(ctx context.Context, document, query string, k int) ([]model.RetrievedChunk, error)
}

type DocumentHandler struct {
	documents DocumentService
	retriever ChunkRetriever
	topK      int
}

func NewDocumentHandler(documents DocumentService, retriever ChunkRetriever, topK int) *DocumentHandler {
	return &DocumentHandler{documents: documents, retriever: retriever, topK: topK}
}

// Upload accepts a multipart form with a "file" PDF.
func (h *DocumentHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}
	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}
	defer f.Close()

	state, err := h.documents.Upload(c.Request.Context(), file.Filename, f)
	if err != nil {
		writeError(c, err, "upload failed")
		return
	}
	response.OK(c, state)
}

func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.documents.List()
	if err != nil {
		writeError(c, err, "list documents failed")
		return
	}
	response.OK(c, docs)
}

func (h *DocumentHandler) Toggle(c *gin.Context) {
	state, err := h.documents.ToggleEnabled(c.Param("name"))
	if err != nil {
		writeError(c, err, "toggle document failed")
		return
	}
	response.OK(c, state)
}

// Ingest re-runs ingestion for an already uploaded document.
func (h *DocumentHandler) Ingest(c *gin.Context) {
	state, err := h.documents.Dispatch(c.Request.Context(), c.Param("name"))
	if err != nil {
		writeError(c, err, "ingest failed")
		return
	}
	response.OK(c, state)
}

func (h *DocumentHandler) Chunks(c *gin.Context) {
	name := c.Param("name")
	query := strings.TrimSpace(c.Query("query"))
	if query == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "query is required")
		return
	}
	k := h.topK
	if raw := c.Query("k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "k must be a positive integer")
			return
		}
		k = parsed
	}

	if err := h.documents.RequireEnabled(name); err != nil {
		writeError(c, err, "retrieve failed")
		return
	}
	chunks, err := h.retriever.Retrieve(c.Request.Context(), name, query, k)
	if err != nil {
		writeError(c, err, "retrieve failed")
		return
	}
	response.OK(c, chunks)
}

var _ DocumentService = (*app.DocumentService)(nil)
