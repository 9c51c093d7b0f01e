package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"examgen/internal/app"
	"examgen/internal/model"
	"examgen/internal/transport/http/middleware"
	"examgen/internal/transport/http/response"
)

type AuthService interface {
	Register(input app.RegisterInput) (*app.AuthResult, error)
	Login(input app.LoginInput) (*app.AuthResult, error)
	Profile(id uint) (*app.ReviewerProfile, error)
}

type AuthHandler struct {
	authService AuthService
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Email    string `json:"email" binding:"required,email,max=128"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

// LoginRequest.Username also accepts the reviewer's email.
type LoginRequest struct {
	Username string `json:"username" binding:"required,min=3,max=128"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

func NewAuthHandler(authService AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type authFailure struct {
	err    error
	status int
	code   int
}

var authFailures = []authFailure{
	{app.ErrInvalidInput, http.StatusBadRequest, response.CodeBadRequest},
	{app.ErrUsernameExists, http.StatusBadRequest, response.CodeUsernameExists},
	{app.ErrEmailExists, http.StatusBadRequest, response.CodeEmailExists},
	{app.ErrInvalidCredential, http.StatusUnauthorized, response.CodeInvalidCredentials},
	{app.ErrReviewerNotFound, http.StatusUnauthorized, response.CodeUnauthorized},
}

func writeAuthError(c *gin.Context, err error, fallback string) {
	for _, f := range authFailures {
		if errors.Is(err, f.err) {
			response.Error(c, f.status, f.code, f.err.Error())
			return
		}
	}
	_ = c.Error(err)
	response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	result, err := h.authService.Register(app.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeAuthError(c, err, "register failed")
		return
	}
	response.OK(c, sessionView(result))
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	result, err := h.authService.Login(app.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		writeAuthError(c, err, "login failed")
		return
	}
	response.OK(c, sessionView(result))
}

// Me returns the signed-in reviewer and how many questions they last rated.
func (h *AuthHandler) Me(c *gin.Context) {
	reviewerID, ok := middleware.ReviewerID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	profile, err := h.authService.Profile(reviewerID)
	if err != nil {
		writeAuthError(c, err, "fetch current reviewer failed")
		return
	}
	view := reviewerView(profile.Reviewer)
	view["questions_reviewed"] = profile.QuestionsReviewed
	response.OK(c, view)
}

func sessionView(result *app.AuthResult) gin.H {
	return gin.H{
		"token":    result.Token,
		"reviewer": reviewerView(result.Reviewer),
	}
}

func reviewerView(r *model.Reviewer) gin.H {
	return gin.H{
		"id":       r.ID,
		"username": r.Username,
		"email":    r.Email,
	}
}

var _ AuthService = (*app.AuthService)(nil)
