package chunker

import "strings"

// DefaultMaxWords is the chunk size used when callers pass a non-positive limit.
const DefaultMaxWords = 300

// Split breaks text into chunks of at most maxWords whitespace-delimited words,
// re-joined with single spaces. Empty input yields no chunks.
func Split(text string, maxWords int) []string {
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	chunks := make([]string, 0, (len(words)+maxWords-1)/maxWords)
	for start := 0; start < len(words); start += maxWords {
		end := start + maxWords
		if end > len(words) {
			end = len(words)
		}
		chunk := strings.TrimSpace(strings.Join(words[start:end], " "))
		if chunk == "" {
			continue
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}
