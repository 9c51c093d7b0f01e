package app

import "errors"

var (
	ErrNoExtractableContent = errors.New("no extractable content in document")
	ErrNoRelevantContent    = errors.New("no relevant content found for the query")
	ErrDocumentNotFound     = errors.New("document not found")
	ErrDocumentNotProcessed = errors.New("document has not been processed")
	ErrDocumentDisabled     = errors.New("document is not enabled")
	ErrQuestionNotFound     = errors.New("question not found")
)
