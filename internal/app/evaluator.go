package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"examgen/internal/ai"
	"examgen/internal/model"
	"examgen/internal/pkg/llmjson"
	"examgen/internal/pkg/retry"
)

const (
	evalTemperature = 0.3
	evalMaxTokens   = 1000

	evalSystemPrompt = "You are an expert AIGP certification evaluator. Provide detailed, objective analysis of exam questions. Always respond with valid JSON only."

	neutralConfidence = 50
)

// criterionAliases maps rubric names models commonly substitute onto the canonical keys.
var criterionAliases = map[string]string{
	"question_clarity":         model.CriterionClarity,
	"domain_relevance":         model.CriterionDomainRelevance,
	"relevance":                model.CriterionDomainRelevance,
	"difficulty":               model.CriterionDifficulty,
	"real_world_applicability": model.CriterionRealWorldApplication,
	"real_world_relevance":     model.CriterionRealWorldApplication,
}

// Evaluator scores a question against the fixed quality rubric.
type Evaluator struct {
	completer ai.Completer
	logger    *slog.Logger
	now       func() time.Time
}

type EvaluatorOption func(*evaluatorConfig)

type evaluatorConfig struct {
	policy retry.Policy
	logger *slog.Logger
	now    func() time.Time
}

func WithEvaluationRetry(p retry.Policy) EvaluatorOption {
	return func(c *evaluatorConfig) { c.policy = p }
}

func WithEvaluatorLogger(l *slog.Logger) EvaluatorOption {
	return func(c *evaluatorConfig) { c.logger = l }
}

func WithEvaluatorClock(now func() time.Time) EvaluatorOption {
	return func(c *evaluatorConfig) { c.now = now }
}

func NewEvaluator(completer ai.Completer, opts ...EvaluatorOption) *Evaluator {
	cfg := evaluatorConfig{
		policy: ai.RateLimitPolicy(),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Evaluator{
		completer: ai.NewRetryingCompleter(completer, cfg.policy),
		logger:    cfg.logger,
		now:       cfg.now,
	}
}

// Evaluate asks the model to grade q, optionally in light of a reviewer's
// feedback. Missing or out-of-range parts of the answer are filled with
// neutral values; a completely unusable answer yields NeutralEvaluation.
func (e *Evaluator) Evaluate(ctx context.Context, q *model.Question, feedback *model.HumanFeedback) (*model.QualityEvaluation, error) {
	if q == nil || strings.TrimSpace(q.Question) == "" || len(q.Options) < questionOptions {
		return nil, fmt.Errorf("%w: question needs text and %d options", ErrInvalidInput, questionOptions)
	}
	if feedback != nil && feedback.Rating != 0 && (feedback.Rating < 1 || feedback.Rating > 5) {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidInput)
	}

	raw, err := e.completer.Complete(ctx, ai.CompletionRequest{
		System:      evalSystemPrompt,
		Prompt:      evaluationPrompt(q, feedback),
		Temperature: evalTemperature,
		MaxTokens:   evalMaxTokens,
	})
	if err != nil {
		return nil, err
	}

	var draft evaluationDraft
	var eval *model.QualityEvaluation
	if err := llmjson.Decode(raw, &draft); err != nil {
		e.logger.Warn("evaluation output unusable, using neutral scores", "error", err, "output", truncateRunes(raw, 200))
		eval = model.NeutralEvaluation()
	} else {
		eval = draft.normalise()
	}
	eval.EvaluatedAt = e.now().UTC()
	return eval, nil
}

func evaluationPrompt(q *model.Question, feedback *model.HumanFeedback) string {
	var b strings.Builder
	b.WriteString("As an AI Governance Professional (AIGP) certification expert, evaluate the following multiple-choice question for quality, accuracy, and alignment with AIGP standards.\n\n")
	b.WriteString("QUESTION TO EVALUATE:\n")
	fmt.Fprintf(&b, "Question: %s\n\nOptions:\n", q.Question)
	for i, opt := range q.Options[:questionOptions] {
		fmt.Fprintf(&b, "%c) %s\n", 'A'+i, opt)
	}
	fmt.Fprintf(&b, "\nCorrect Answer: %s\nExplanation: %s\n", q.CorrectAnswer, q.Explanation)

	if len(q.DetailedExplanations) > 0 {
		if detailed, err := json.MarshalIndent(q.DetailedExplanations, "", "  "); err == nil {
			fmt.Fprintf(&b, "\nDetailed Explanations: %s\n", detailed)
		}
	}
	if feedback != nil {
		if feedback.Rating > 0 {
			fmt.Fprintf(&b, "\nAdmin Rating: %d/5 stars", feedback.Rating)
		}
		if c := strings.TrimSpace(feedback.Comments); c != "" {
			fmt.Fprintf(&b, "\nAdmin Comments: %s", c)
		}
		b.WriteString("\n")
	}

	b.WriteString(`
EVALUATION CRITERIA:
1. **Question Clarity**: Is the question clear and unambiguous?
2. **AIGP Relevance**: Does it test relevant AI governance concepts?
3. **Difficulty Level**: Appropriate for professional certification?
4. **Option Quality**: Are distractors realistic and the correct answer clearly best?
5. **Educational Value**: Does it help learners understand key concepts?
6. **Technical Accuracy**: Are all statements technically correct?
7. **Real-world Application**: Can knowledge be applied in practice?

Provide your evaluation in the following JSON format:
{
    "overall_score": 85,
    "criteria_scores": {
        "clarity": 90,
        "aigp_relevance": 85,
        "difficulty_level": 80,
        "option_quality": 85,
        "educational_value": 90,
        "technical_accuracy": 95,
        "real_world_application": 75
    },
    "strengths": ["Clear question structure", "Relevant to AI governance"],
    "weaknesses": ["Could be more challenging"],
    "improvement_suggestions": ["Make option B more plausible by relating it to a common misconception"],
    "aigp_alignment": "High - directly tests Domain 2 knowledge on AI risk management",
    "recommended_action": "Approve with minor revisions",
    "confidence_level": 92
}

Return ONLY the JSON object, no other text.`)
	return b.String()
}

type evaluationDraft struct {
	OverallScore           score            `json:"overall_score"`
	CriteriaScores         map[string]score `json:"criteria_scores"`
	Strengths              stringList       `json:"strengths"`
	Weaknesses             stringList       `json:"weaknesses"`
	ImprovementSuggestions stringList       `json:"improvement_suggestions"`
	Alignment              string           `json:"aigp_alignment"`
	RecommendedAction      string           `json:"recommended_action"`
	ConfidenceLevel        score            `json:"confidence_level"`
}

func (d evaluationDraft) normalise() *model.QualityEvaluation {
	neutral := model.NeutralEvaluation()

	scores := make(map[string]int, len(model.Criteria))
	for key, s := range d.CriteriaScores {
		key = strings.ToLower(strings.TrimSpace(key))
		if alias, ok := criterionAliases[key]; ok {
			key = alias
		}
		if _, known := neutral.CriteriaScores[key]; known && s.ok {
			scores[key] = s.clamped()
		}
	}
	for _, c := range model.Criteria {
		if _, ok := scores[c]; !ok {
			scores[c] = model.NeutralScore
		}
	}

	eval := &model.QualityEvaluation{
		OverallScore:           model.NeutralScore,
		CriteriaScores:         scores,
		Strengths:              []string(d.Strengths),
		Weaknesses:             []string(d.Weaknesses),
		ImprovementSuggestions: []string(d.ImprovementSuggestions),
		Alignment:              strings.TrimSpace(d.Alignment),
		RecommendedAction:      strings.TrimSpace(d.RecommendedAction),
		ConfidenceLevel:        neutralConfidence,
	}
	if d.OverallScore.ok {
		eval.OverallScore = d.OverallScore.clamped()
	}
	if d.ConfidenceLevel.ok {
		eval.ConfidenceLevel = d.ConfidenceLevel.clamped()
	}
	if eval.Alignment == "" {
		eval.Alignment = neutral.Alignment
	}
	if eval.RecommendedAction == "" {
		eval.RecommendedAction = neutral.RecommendedAction
	}
	if eval.Strengths == nil {
		eval.Strengths = []string{}
	}
	if eval.Weaknesses == nil {
		eval.Weaknesses = []string{}
	}
	if eval.ImprovementSuggestions == nil {
		eval.ImprovementSuggestions = []string{}
	}
	return eval
}

// score accepts a JSON number or a numeric string such as "85" or "85/100".
// Anything else decodes as absent.
type score struct {
	value float64
	ok    bool
}

func (s *score) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = score{}
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		*s = score{value: n, ok: true}
		return nil
	}
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		*s = score{}
		return nil
	}
	str = strings.TrimSpace(str)
	if i := strings.IndexAny(str, "/%"); i >= 0 {
		str = strings.TrimSpace(str[:i])
	}
	n, err := strconv.ParseFloat(str, 64)
	if err != nil {
		*s = score{}
		return nil
	}
	*s = score{value: n, ok: true}
	return nil
}

func (s score) clamped() int {
	v := int(math.Round(s.value))
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// stringList accepts either a JSON array of strings or a single string.
type stringList []string

func (l *stringList) UnmarshalJSON(b []byte) error {
	var many []string
	if err := json.Unmarshal(b, &many); err == nil {
		*l = many
		return nil
	}
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		if one = strings.TrimSpace(one); one != "" {
			*l = stringList{one}
		}
		return nil
	}
	*l = nil
	return nil
}
