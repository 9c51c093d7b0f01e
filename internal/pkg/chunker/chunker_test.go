package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "w"
	}
	return strings.Join(parts, " ")
}

func TestSplit_EmptyInput(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\t \r\n"} {
		assert.Empty(t, Split(in, 10), "input %q", in)
	}
}

func TestSplit_WordCounts(t *testing.T) {
	chunks := Split(words(650), 300)

	assert.Len(t, chunks, 3)
	assert.Len(t, strings.Fields(chunks[0]), 300)
	assert.Len(t, strings.Fields(chunks[1]), 300)
	assert.Len(t, strings.Fields(chunks[2]), 50)
}

func TestSplit_DefaultSize(t *testing.T) {
	chunks := Split(words(301), 0)
	assert.Len(t, chunks, 2)
	assert.Len(t, strings.Fields(chunks[1]), 1)
}

func TestSplit_PreservesWordSequence(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxWords int
	}{
		{name: "mixed whitespace", text: "  alpha\tbeta\n\ngamma  delta epsilon ", maxWords: 2},
		{name: "single chunk", text: "one two three", maxWords: 10},
		{name: "one word per chunk", text: "a b c d", maxWords: 1},
		{name: "unicode", text: "gouvernance de l’IA — principes éthiques", maxWords: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := Split(tt.text, tt.maxWords)

			var rejoined []string
			for _, c := range chunks {
				got := strings.Fields(c)
				assert.LessOrEqual(t, len(got), tt.maxWords)
				assert.Equal(t, strings.Join(got, " "), c)
				rejoined = append(rejoined, got...)
			}
			assert.Equal(t, strings.Fields(tt.text), rejoined)
		})
	}
}

func TestSplit_Deterministic(t *testing.T) {
	text := words(1000)
	assert.Equal(t, Split(text, 300), Split(text, 300))
}
