package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"examgen/internal/model"
	"examgen/internal/pkg/jwtutil"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrUsernameExists    = errors.New("username already exists")
	ErrEmailExists       = errors.New("email already exists")
	ErrInvalidCredential = errors.New("invalid username or password")
	ErrReviewerNotFound  = errors.New("reviewer not found")
)

const minPasswordLen = 8

type ReviewerStore interface {
	Create(reviewer *model.Reviewer) error
	GetByUsername(username string) (*model.Reviewer, error)
	GetByEmail(email string) (*model.Reviewer, error)
	GetByID(id uint) (*model.Reviewer, error)
}

// ReviewActivity reports how much rating work a reviewer owns.
type ReviewActivity interface {
	CountReviewedBy(reviewerID uint) (int64, error)
}

// AuthService manages the reviewer accounts that may rate, improve and
// re-evaluate stored questions.
type AuthService struct {
	reviewers ReviewerStore
	activity  ReviewActivity
	secret    string
	ttl       time.Duration
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// LoginInput identifies a reviewer by username or email.
type LoginInput struct {
	Username string
	Password string
}

type AuthResult struct {
	Token    string
	Reviewer *model.Reviewer
}

// ReviewerProfile is a reviewer account with the number of questions it last rated.
type ReviewerProfile struct {
	Reviewer          *model.Reviewer
	QuestionsReviewed int64
}

func NewAuthService(reviewers ReviewerStore, activity ReviewActivity, secret string, ttl time.Duration) *AuthService {
	return &AuthService{
		reviewers: reviewers,
		activity:  activity,
		secret:    secret,
		ttl:       ttl,
	}
}

// Register creates a reviewer account and signs it in.
func (s *AuthService) Register(input RegisterInput) (*AuthResult, error) {
	reviewer := &model.Reviewer{
		Username: strings.TrimSpace(input.Username),
		Email:    normalizeEmail(input.Email),
	}
	password := strings.TrimSpace(input.Password)
	if reviewer.Username == "" || reviewer.Email == "" || len(password) < minPasswordLen {
		return nil, ErrInvalidInput
	}
	if err := s.ensureAvailable(reviewer); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password failed: %w", err)
	}
	reviewer.PasswordHash = string(hash)
	if err := s.reviewers.Create(reviewer); err != nil {
		return nil, err
	}
	return s.issue(reviewer)
}

func (s *AuthService) ensureAvailable(r *model.Reviewer) error {
	if existing, err := s.reviewers.GetByUsername(r.Username); err != nil {
		return err
	} else if existing != nil {
		return ErrUsernameExists
	}
	if existing, err := s.reviewers.GetByEmail(r.Email); err != nil {
		return err
	} else if existing != nil {
		return ErrEmailExists
	}
	return nil
}

// Login checks the password of the reviewer named by username or email.
// Unknown accounts and wrong passwords fail the same way.
func (s *AuthService) Login(input LoginInput) (*AuthResult, error) {
	identity := strings.TrimSpace(input.Username)
	password := strings.TrimSpace(input.Password)
	if identity == "" || password == "" {
		return nil, ErrInvalidInput
	}

	reviewer, err := s.lookup(identity)
	if err != nil {
		return nil, err
	}
	if reviewer == nil {
		return nil, ErrInvalidCredential
	}
	if err := bcrypt.CompareHashAndPassword([]byte(reviewer.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredential
	}
	return s.issue(reviewer)
}

func (s *AuthService) lookup(identity string) (*model.Reviewer, error) {
	if strings.Contains(identity, "@") {
		return s.reviewers.GetByEmail(normalizeEmail(identity))
	}
	return s.reviewers.GetByUsername(identity)
}

// Profile returns the reviewer behind a token subject.
func (s *AuthService) Profile(id uint) (*ReviewerProfile, error) {
	if id == 0 {
		return nil, ErrInvalidInput
	}
	reviewer, err := s.reviewers.GetByID(id)
	if err != nil {
		return nil, err
	}
	if reviewer == nil {
		return nil, ErrReviewerNotFound
	}
	profile := &ReviewerProfile{Reviewer: reviewer}
	if s.activity != nil {
		if profile.QuestionsReviewed, err = s.activity.CountReviewedBy(id); err != nil {
			return nil, err
		}
	}
	return profile, nil
}

func (s *AuthService) issue(reviewer *model.Reviewer) (*AuthResult, error) {
	token, err := jwtutil.GenerateToken(s.secret, s.ttl, reviewer.ID, reviewer.Username)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, Reviewer: reviewer}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
