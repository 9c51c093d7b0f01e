package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"examgen/internal/model"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200

	improveInstruction = "Generate an improved AIGP exam question. Previous feedback: %s"
)

type QuestionStore interface {
	Create(q *model.Question) error
	GetByID(id uint) (*model.Question, error)
	List(offset, limit int) ([]model.Question, int64, error)
	MaxVersion(rootID uint) (int, error)
	UpdateReview(id uint, review model.Review) error
	UpdateEvaluation(id uint, eval *model.QualityEvaluation) error
}

type DocumentGate interface {
	RequireEnabled(name string) error
}

type QuestionSynthesizer interface {
	Synthesize(ctx context.Context, document, instruction string) (*model.Question, error)
}

type QuestionEvaluator interface {
	Evaluate(ctx context.Context, q *model.Question, feedback *model.HumanFeedback) (*model.QualityEvaluation, error)
}

type QuestionService struct {
	questions   QuestionStore
	gate        DocumentGate
	synthesizer QuestionSynthesizer
	evaluator   QuestionEvaluator
	logger      *slog.Logger
}

// RateInput is one reviewer's verdict on a question.
type RateInput struct {
	ReviewerID uint
	Rating     int
	Comments   string
	Approved   *bool
}

type QuestionPage struct {
	Questions []model.Question `json:"questions"`
	Total     int64            `json:"total"`
}

func NewQuestionService(
	questions QuestionStore,
	gate DocumentGate,
	synthesizer QuestionSynthesizer,
	evaluator QuestionEvaluator,
	logger *slog.Logger,
) *QuestionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &QuestionService{
		questions:   questions,
		gate:        gate,
		synthesizer: synthesizer,
		evaluator:   evaluator,
		logger:      logger,
	}
}

// Generate writes, stores and grades a new question from an enabled document.
// Grading failures are logged and leave the question without an evaluation.
func (s *QuestionService) Generate(ctx context.Context, document, instruction string) (*model.Question, error) {
	document = strings.TrimSpace(document)
	if document == "" {
		return nil, fmt.Errorf("%w: document is required", ErrInvalidInput)
	}
	if err := s.gate.RequireEnabled(document); err != nil {
		return nil, err
	}

	q, err := s.synthesizer.Synthesize(ctx, document, instruction)
	if err != nil {
		return nil, err
	}
	q.Version = 1
	if err := s.questions.Create(q); err != nil {
		return nil, err
	}
	s.logger.Info("question generated", "question_id", q.ID, "document", document, "degraded", q.Degraded)

	s.grade(ctx, q, nil)
	return q, nil
}

// Rate stores a reviewer's rating and regrades the question with that feedback.
func (s *QuestionService) Rate(ctx context.Context, id uint, input RateInput) (*model.Question, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidInput)
	}
	if input.ReviewerID == 0 {
		return nil, fmt.Errorf("%w: reviewer is required", ErrInvalidInput)
	}
	q, err := s.get(id)
	if err != nil {
		return nil, err
	}

	rating := input.Rating
	q.Review.Rating = &rating
	q.Review.AdminComments = strings.TrimSpace(input.Comments)
	if input.Approved != nil {
		q.Review.Approved = *input.Approved
	}
	reviewedAt := time.Now().UTC()
	q.Review.ReviewedBy = input.ReviewerID
	q.Review.ReviewedAt = &reviewedAt
	if err := s.questions.UpdateReview(id, q.Review); err != nil {
		return nil, err
	}
	s.logger.Info("question rated", "question_id", id, "rating", rating, "reviewer_id", input.ReviewerID)

	s.grade(ctx, q, feedbackOf(q.Review))
	return q, nil
}

// Improve writes a replacement for question id using the reviewer's feedback
// and stores it as the next version of the same lineage.
func (s *QuestionService) Improve(ctx context.Context, id uint, feedback string) (*model.Question, error) {
	feedback = strings.TrimSpace(feedback)
	if feedback == "" {
		return nil, fmt.Errorf("%w: feedback is required", ErrInvalidInput)
	}
	prev, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if err := s.gate.RequireEnabled(prev.DocumentUsed); err != nil {
		return nil, err
	}

	q, err := s.synthesizer.Synthesize(ctx, prev.DocumentUsed, fmt.Sprintf(improveInstruction, feedback))
	if err != nil {
		return nil, err
	}

	rootID := prev.RootID
	if rootID == 0 {
		rootID = prev.ID
	}
	maxVersion, err := s.questions.MaxVersion(rootID)
	if err != nil {
		return nil, err
	}
	if maxVersion < prev.Version {
		maxVersion = prev.Version
	}
	q.RootID = rootID
	q.Version = maxVersion + 1
	if err := s.questions.Create(q); err != nil {
		return nil, err
	}
	q.ImprovementNote = "Improved based on: " + feedback
	s.logger.Info("question improved", "question_id", q.ID, "root_id", rootID, "version", q.Version)

	s.grade(ctx, q, nil)
	return q, nil
}

// Reevaluate replaces the stored evaluation, taking any stored review into account.
func (s *QuestionService) Reevaluate(ctx context.Context, id uint) (*model.Question, error) {
	q, err := s.get(id)
	if err != nil {
		return nil, err
	}
	eval, err := s.evaluator.Evaluate(ctx, q, feedbackOf(q.Review))
	if err != nil {
		return nil, err
	}
	if err := s.questions.UpdateEvaluation(id, eval); err != nil {
		return nil, err
	}
	q.Evaluation = eval
	return q, nil
}

// Evaluate grades a question that is not stored.
func (s *QuestionService) Evaluate(ctx context.Context, q *model.Question, feedback *model.HumanFeedback) (*model.QualityEvaluation, error) {
	return s.evaluator.Evaluate(ctx, q, feedback)
}

func (s *QuestionService) List(skip, limit int) (*QuestionPage, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	questions, total, err := s.questions.List(skip, limit)
	if err != nil {
		return nil, err
	}
	if questions == nil {
		questions = []model.Question{}
	}
	return &QuestionPage{Questions: questions, Total: total}, nil
}

func (s *QuestionService) get(id uint) (*model.Question, error) {
	if id == 0 {
		return nil, fmt.Errorf("%w: question id is required", ErrInvalidInput)
	}
	q, err := s.questions.GetByID(id)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, fmt.Errorf("%w: %d", ErrQuestionNotFound, id)
	}
	return q, nil
}

func (s *QuestionService) grade(ctx context.Context, q *model.Question, feedback *model.HumanFeedback) {
	eval, err := s.evaluator.Evaluate(ctx, q, feedback)
	if err != nil {
		s.logger.Warn("question evaluation failed", "question_id", q.ID, "error", err)
		return
	}
	if err := s.questions.UpdateEvaluation(q.ID, eval); err != nil {
		s.logger.Warn("store question evaluation failed", "question_id", q.ID, "error", err)
		return
	}
	q.Evaluation = eval
}

func feedbackOf(r model.Review) *model.HumanFeedback {
	if r.Rating == nil && r.AdminComments == "" {
		return nil
	}
	fb := &model.HumanFeedback{Comments: r.AdminComments}
	if r.Rating != nil {
		fb.Rating = *r.Rating
	}
	return fb
}
