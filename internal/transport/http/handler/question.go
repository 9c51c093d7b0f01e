package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"examgen/internal/app"
	"examgen/internal/model"
	"examgen/internal/transport/http/middleware"
	"examgen/internal/transport/http/response"
)

type QuestionService interface {
	Generate(ctx context.Context, document, instruction string) (*model.Question, error)
	Rate(ctx context.Context, id uint, input app.RateInput) (*model.Question, error)
	Improve(ctx context.Context, id uint, feedback string) (*model.Question, error)
	Reevaluate(ctx context.Context, id uint) (*model.Question, error)
	Evaluate(ctx context.Context, q *model.Question, feedback *model.HumanFeedback) (*model.QualityEvaluation, error)
	List(skip, limit int) (*app.QuestionPage, error)
}

type QuestionHandler struct {
	questions QuestionService
}

type GenerateQuestionRequest struct {
	Document string `json:"document" binding:"required"`
	Query    string `json:"query"`
}

type EvaluateQuestionRequest struct {
	Question             string            `json:"question" binding:"required"`
	Options              []string          `json:"options" binding:"required,len=4"`
	CorrectAnswer        string            `json:"correct_answer" binding:"required"`
	Explanation          string            `json:"explanation"`
	DetailedExplanations map[string]string `json:"detailed_explanations"`
	Rating               int               `json:"rating" binding:"omitempty,min=1,max=5"`
	Comments             string            `json:"admin_comments"`
}

type RateQuestionRequest struct {
	Rating        int    `json:"rating" binding:"required,min=1,max=5"`
	AdminComments string `json:"admin_comments"`
	Approved      *bool  `json:"approved"`
}

type ImproveQuestionRequest struct {
	Feedback string `json:"feedback" binding:"required"`
}

func NewQuestionHandler(questions QuestionService) *QuestionHandler {
	return &QuestionHandler{questions: questions}
}

func (h *QuestionHandler) Generate(c *gin.Context) {
	var req GenerateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	q, err := h.questions.Generate(c.Request.Context(), req.Document, req.Query)
	if err != nil {
		writeError(c, err, "generate question failed")
		return
	}
	response.OK(c, q)
}

// Evaluate grades a question supplied in the body without storing anything.
func (h *QuestionHandler) Evaluate(c *gin.Context) {
	var req EvaluateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	q := &model.Question{
		Question:             req.Question,
		Options:              req.Options,
		CorrectAnswer:        req.CorrectAnswer,
		Explanation:          req.Explanation,
		DetailedExplanations: req.DetailedExplanations,
	}
	var feedback *model.HumanFeedback
	if req.Rating > 0 || req.Comments != "" {
		feedback = &model.HumanFeedback{Rating: req.Rating, Comments: req.Comments}
	}

	eval, err := h.questions.Evaluate(c.Request.Context(), q, feedback)
	if err != nil {
		writeError(c, err, "evaluate question failed")
		return
	}
	response.OK(c, eval)
}

func (h *QuestionHandler) List(c *gin.Context) {
	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	page, err := h.questions.List(skip, limit)
	if err != nil {
		writeError(c, err, "list questions failed")
		return
	}
	response.OK(c, page)
}

// Rate records the signed-in reviewer's rating of a question.
func (h *QuestionHandler) Rate(c *gin.Context) {
	reviewerID, ok := middleware.ReviewerID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	id, ok := questionID(c)
	if !ok {
		return
	}
	var req RateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	q, err := h.questions.Rate(c.Request.Context(), id, app.RateInput{
		ReviewerID: reviewerID,
		Rating:     req.Rating,
		Comments:   req.AdminComments,
		Approved:   req.Approved,
	})
	if err != nil {
		writeError(c, err, "rate question failed")
		return
	}
	response.OK(c, q)
}

func (h *QuestionHandler) Improve(c *gin.Context) {
	id, ok := questionID(c)
	if !ok {
		return
	}
	var req ImproveQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	q, err := h.questions.Improve(c.Request.Context(), id, req.Feedback)
	if err != nil {
		writeError(c, err, "improve question failed")
		return
	}
	response.OK(c, q)
}

func (h *QuestionHandler) Reevaluate(c *gin.Context) {
	id, ok := questionID(c)
	if !ok {
		return
	}
	q, err := h.questions.Reevaluate(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, "evaluate question failed")
		return
	}
	response.OK(c, q)
}

func questionID(c *gin.Context) (uint, bool) {
	u, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || u == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid question id")
		return 0, false
	}
	return uint(u), true
}

var _ QuestionService = (*app.QuestionService)(nil)
