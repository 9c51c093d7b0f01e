package pdfextract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrUnreadableDocument is returned when a PDF cannot be decrypted, cannot be
// parsed, or has no page with extractable text.
var ErrUnreadableDocument = errors.New("unreadable document")

// Page is the text of one PDF page. Number is 1-based.
type Page struct {
	Number int
	Text   string
}

type pageSource interface {
	NumPage() int
	PlainText(n int) (string, error)
	SpanText(n int) (string, error)
}

type Extractor struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// Extract reads the whole document from r and returns every page that yields
// text through the plain-text decoder or, failing that, the raw span decoder.
func (e *Extractor) Extract(ctx context.Context, r io.Reader) ([]Page, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read document failed: %w", err)
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrUnreadableDocument)
	}

	src, err := open(b)
	if err != nil {
		return nil, err
	}
	return e.extractPages(ctx, src)
}

func (e *Extractor) extractPages(ctx context.Context, src pageSource) ([]Page, error) {
	total := src.NumPage()
	pages := make([]Page, 0, total)
	for n := 1; n <= total; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, err := src.PlainText(n)
		if err != nil {
			e.logger.Warn("plain text extraction failed, trying spans", "page", n, "error", err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			text, err = src.SpanText(n)
			if err != nil {
				e.logger.Warn("span extraction failed", "page", n, "error", err)
			}
			text = strings.TrimSpace(text)
		}
		if text == "" {
			e.logger.Info("page has no extractable text", "page", n)
			continue
		}
		pages = append(pages, Page{Number: n, Text: text})
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: no extractable text in %d pages", ErrUnreadableDocument, total)
	}
	return pages, nil
}

type pdfSource struct {
	reader *pdf.Reader
}

func open(b []byte) (src *pdfSource, err error) {
	defer func() {
		if r := recover(); r != nil {
			src = nil
			err = fmt.Errorf("%w: %v", ErrUnreadableDocument, r)
		}
	}()

	// The reader retries with the empty password once before consulting the callback;
	// returning "" from the callback stops it there.
	reader, err := pdf.NewReaderEncrypted(bytes.NewReader(b), int64(len(b)), func() string { return "" })
	if err != nil {
		if errors.Is(err, pdf.ErrInvalidPassword) {
			return nil, fmt.Errorf("%w: password protected", ErrUnreadableDocument)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnreadableDocument, err)
	}
	return &pdfSource{reader: reader}, nil
}

func (s *pdfSource) NumPage() int {
	return s.reader.NumPage()
}

func (s *pdfSource) PlainText(n int) (text string, err error) {
	defer recoverPage(&text, &err)
	p := s.reader.Page(n)
	if p.V.IsNull() {
		return "", nil
	}
	return p.GetPlainText(nil)
}

func (s *pdfSource) SpanText(n int) (text string, err error) {
	defer recoverPage(&text, &err)
	p := s.reader.Page(n)
	if p.V.IsNull() {
		return "", nil
	}
	rows, err := p.GetTextByRow()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, row := range rows {
		for _, span := range row.Content {
			b.WriteString(span.S)
		}
		b.WriteByte('\n')
	}
	return b.String(), nil
}

func recoverPage(text *string, err *error) {
	if r := recover(); r != nil {
		*text = ""
		*err = fmt.Errorf("page decode panic: %v", r)
	}
}
