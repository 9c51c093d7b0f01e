package pdfextract

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePage struct {
	plain    string
	plainErr error
	span     string
	spanErr  error
}

type fakeSource struct {
	pages     []fakePage
	spanCalls []int
}

func (f *fakeSource) NumPage() int { return len(f.pages) }

func (f *fakeSource) PlainText(n int) (string, error) {
	p := f.pages[n-1]
	return p.plain, p.plainErr
}

func (f *fakeSource) SpanText(n int) (string, error) {
	f.spanCalls = append(f.spanCalls, n)
	p := f.pages[n-1]
	return p.span, p.spanErr
}

func TestExtractPages_FallbackAndSkip(t *testing.T) {
	src := &fakeSource{pages: []fakePage{
		{plain: "  first page  "},
		{plain: "", span: "from spans"},
		{plainErr: errors.New("bad font"), span: "recovered"},
		{plain: " ", span: "\n"},
	}}

	pages, err := New(nil).extractPages(context.Background(), src)

	require.NoError(t, err)
	assert.Equal(t, []Page{
		{Number: 1, Text: "first page"},
		{Number: 2, Text: "from spans"},
		{Number: 3, Text: "recovered"},
	}, pages)
	assert.Equal(t, []int{2, 3, 4}, src.spanCalls)
}

func TestExtractPages_NoTextIsUnreadable(t *testing.T) {
	src := &fakeSource{pages: []fakePage{{}, {spanErr: errors.New("boom")}}}

	_, err := New(nil).extractPages(context.Background(), src)

	assert.ErrorIs(t, err, ErrUnreadableDocument)
}

func TestExtractPages_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(nil).extractPages(ctx, &fakeSource{pages: []fakePage{{plain: "x"}}})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtract_NotAPDF(t *testing.T) {
	_, err := New(nil).Extract(context.Background(), bytes.NewReader([]byte("hello, not a pdf")))
	assert.ErrorIs(t, err, ErrUnreadableDocument)
}

func TestExtract_EmptyFile(t *testing.T) {
	_, err := New(nil).Extract(context.Background(), bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrUnreadableDocument)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestExtract_ReadFailureIsNotUnreadable(t *testing.T) {
	_, err := New(nil).Extract(context.Background(), failingReader{})

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnreadableDocument)
	assert.Contains(t, err.Error(), "disk gone")
}
