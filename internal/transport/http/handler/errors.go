package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"examgen/internal/ai"
	"examgen/internal/app"
	"examgen/internal/pkg/pdfextract"
	"examgen/internal/transport/http/response"
)

// writeError maps service errors onto API responses. Provider failures keep
// their detail out of the body; anything unrecognised becomes a 500 carrying
// fallback as its message.
func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrDocumentTooLarge):
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodeTooLarge, err.Error())
	case errors.Is(err, app.ErrDocumentNotFound):
		response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, err.Error())
	case errors.Is(err, app.ErrQuestionNotFound):
		response.Error(c, http.StatusNotFound, response.CodeQuestionNotFound, err.Error())
	case errors.Is(err, app.ErrDocumentDisabled):
		response.Error(c, http.StatusBadRequest, response.CodeDocumentDisabled, err.Error())
	case errors.Is(err, app.ErrDocumentNotProcessed):
		response.Error(c, http.StatusNotFound, response.CodeDocumentNotProcessed, err.Error())
	case errors.Is(err, app.ErrNoExtractableContent),
		errors.Is(err, app.ErrNoRelevantContent),
		errors.Is(err, pdfextract.ErrUnreadableDocument):
		response.Error(c, http.StatusUnprocessableEntity, response.CodeNoContent, err.Error())
	case errors.Is(err, ai.ErrGenerationFailure),
		errors.Is(err, ai.ErrEmbeddingFailure),
		errors.Is(err, ai.ErrRateLimited):
		_ = c.Error(err)
		response.Error(c, http.StatusBadGateway, response.CodeUpstream, "model provider unavailable")
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}
