package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"examgen/internal/ai"
	"examgen/internal/model"
	"examgen/internal/pkg/llmjson"
	"examgen/internal/pkg/retry"
)

const (
	DefaultInstruction = "Generate an AIGP exam question"

	contextTopK      = 5
	maxContextRunes  = 3000
	questionOptions  = 4
	synthTemperature = 0.7
	synthMaxTokens   = 1000

	synthSystemPrompt = "You are an expert in AI governance and professional certification exam creation. Always respond with valid JSON only."
)

func fallbackDraft() questionDraft {
	return questionDraft{
		Question: "Which of the following is a key principle of AI governance according to the document?",
		Options: []string{
			"Transparency and accountability",
			"Speed of deployment",
			"Cost reduction",
			"Technical complexity",
		},
		CorrectAnswer: "Transparency and accountability",
		Explanation:   "AI governance emphasizes transparency and accountability as fundamental principles.",
	}
}

type ChunkRetriever interface {
	Retrieve(ctx context.Context, document, query string, k int) ([]model.RetrievedChunk, error)
}

// Synthesizer writes one multiple-choice question grounded in a document's
// most relevant chunks.
type Synthesizer struct {
	retriever ChunkRetriever
	completer ai.Completer
	logger    *slog.Logger
}

type SynthesizerOption func(*synthesizerConfig)

type synthesizerConfig struct {
	policy retry.Policy
	logger *slog.Logger
}

// WithGenerationRetry replaces the rate-limit retry policy used for completions.
func WithGenerationRetry(p retry.Policy) SynthesizerOption {
	return func(c *synthesizerConfig) { c.policy = p }
}

func WithSynthesizerLogger(l *slog.Logger) SynthesizerOption {
	return func(c *synthesizerConfig) { c.logger = l }
}

func NewSynthesizer(retriever ChunkRetriever, completer ai.Completer, opts ...SynthesizerOption) *Synthesizer {
	cfg := synthesizerConfig{policy: ai.RateLimitPolicy(), logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Synthesizer{
		retriever: retriever,
		completer: ai.NewRetryingCompleter(completer, cfg.policy),
		logger:    cfg.logger,
	}
}

type questionDraft struct {
	Question             string          `json:"question"`
	Options              []string        `json:"options"`
	CorrectAnswer        string          `json:"correct_answer"`
	Explanation          string          `json:"explanation"`
	DetailedExplanations json.RawMessage `json:"detailed_explanations"`
}

// Synthesize retrieves context for instruction from document and asks the
// model for a question. Unparseable output is replaced by a fixed fallback
// question marked Degraded; provider failures are returned.
func (s *Synthesizer) Synthesize(ctx context.Context, document, instruction string) (*model.Question, error) {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		instruction = DefaultInstruction
	}

	chunks, err := s.retriever.Retrieve(ctx, document, instruction, contextTopK)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoRelevantContent, document)
	}

	raw, err := s.completer.Complete(ctx, ai.CompletionRequest{
		System:      synthSystemPrompt,
		Prompt:      questionPrompt(buildContext(chunks), instruction),
		Temperature: synthTemperature,
		MaxTokens:   synthMaxTokens,
	})
	if err != nil {
		return nil, err
	}

	draft, ok := parseDraft(raw)
	if !ok {
		s.logger.Warn("question output unusable, using fallback", "document", document, "output", truncateRunes(raw, 200))
	}

	q := &model.Question{
		Version:              1,
		Question:             draft.Question,
		Options:              draft.Options,
		CorrectAnswer:        draft.CorrectAnswer,
		Explanation:          draft.Explanation,
		DetailedExplanations: decodeExplanations(draft.DetailedExplanations),
		Sources:              sourcesOf(chunks),
		DocumentUsed:         document,
		Degraded:             !ok,
	}
	return q, nil
}

func parseDraft(raw string) (questionDraft, bool) {
	var draft questionDraft
	if err := llmjson.Decode(raw, &draft); err != nil {
		return fallbackDraft(), false
	}
	draft.Question = strings.TrimSpace(draft.Question)
	if draft.Question == "" || len(draft.Options) < questionOptions {
		return fallbackDraft(), false
	}

	draft.Options = draft.Options[:questionOptions]
	for i, opt := range draft.Options {
		draft.Options[i] = strings.TrimSpace(opt)
	}
	draft.CorrectAnswer = strings.TrimSpace(draft.CorrectAnswer)
	if !containsString(draft.Options, draft.CorrectAnswer) {
		draft.CorrectAnswer = draft.Options[0]
	}
	return draft, true
}

func buildContext(chunks []model.RetrievedChunk) string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return truncateRunes(strings.Join(texts, "\n\n"), maxContextRunes)
}

func questionPrompt(context, instruction string) string {
	var b strings.Builder
	b.WriteString("Based on the following content from an AI governance document, create a challenging multiple-choice question suitable for the AIGP (AI Governance Professional) certification exam.\n\n")
	if instruction != DefaultInstruction {
		fmt.Fprintf(&b, "Focus: %s\n\n", instruction)
	}
	fmt.Fprintf(&b, "Context:\n%s\n\n", context)
	b.WriteString(`Requirements:
1. Create a question that tests understanding of AI governance concepts
2. Provide exactly 4 answer options (A, B, C, D)
3. Make sure only one answer is clearly correct
4. Include a detailed explanation for EACH option explaining why it is correct or incorrect
5. The question should be at professional certification level

Format your response as JSON with this exact structure:
{
    "question": "Your question here?",
    "options": ["Option A", "Option B", "Option C", "Option D"],
    "correct_answer": "Option A",
    "explanation": "Brief explanation of why the correct answer is right",
    "detailed_explanations": {
        "Option A": "Detailed explanation of why this option is correct...",
        "Option B": "Detailed explanation of why this option is incorrect...",
        "Option C": "Detailed explanation of why this option is incorrect...",
        "Option D": "Detailed explanation of why this option is incorrect..."
    }
}

IMPORTANT: Return ONLY the JSON object, no other text.`)
	return b.String()
}

// decodeExplanations accepts an object of strings; any other shape is dropped.
func decodeExplanations(raw json.RawMessage) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	var out map[string]string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

// sourcesOf keeps one provenance entry per retrieved chunk, in relevance order.
func sourcesOf(chunks []model.RetrievedChunk) []model.Source {
	out := make([]model.Source, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, model.Source{Source: c.Source, Page: c.Page})
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
