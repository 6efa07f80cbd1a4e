package app

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"quizdesk-service/internal/auth"
	"quizdesk-service/internal/domain"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// RegisterInput carries the registration form fields.
type RegisterInput struct {
	Username string
	Password string
	Name     string
	Email    string
	Role     domain.Role
}

// Session is the outcome of a successful register or login.
type Session struct {
	Token string            `json:"token"`
	User  domain.PublicUser `json:"user"`
}

// AuthService implements the credential use cases: register, login, and
// session verification.
type AuthService struct {
	users  UserStore
	hasher *auth.Hasher
	tokens *auth.TokenManager
	now    func() time.Time
}

func NewAuthService(users UserStore, hasher *auth.Hasher, tokens *auth.TokenManager) *AuthService {
	return &AuthService{users: users, hasher: hasher, tokens: tokens, now: time.Now}
}

// NewAuthServiceWithClock is test-only for deterministic timestamps.
func NewAuthServiceWithClock(users UserStore, hasher *auth.Hasher, tokens *auth.TokenManager, now func() time.Time) *AuthService {
	s := NewAuthService(users, hasher, tokens)
	s.now = now
	return s
}

// Register validates the form, stores a new user with a hashed password, and
// issues a session token. Duplicate username or email yields domain.ErrConflict.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (Session, error) {
	username := strings.ToLower(strings.TrimSpace(in.Username))
	email := strings.ToLower(strings.TrimSpace(in.Email))
	name := strings.TrimSpace(in.Name)

	if username == "" || in.Password == "" || name == "" || email == "" {
		return Session{}, fmt.Errorf("%w: all fields are required", domain.ErrValidation)
	}
	if len(username) < 3 || len(username) > 20 {
		return Session{}, fmt.Errorf("%w: username must be 3-20 characters", domain.ErrValidation)
	}
	if len(in.Password) < 6 {
		return Session{}, fmt.Errorf("%w: password must be at least 6 characters", domain.ErrValidation)
	}
	if !emailPattern.MatchString(email) {
		return Session{}, fmt.Errorf("%w: invalid email address", domain.ErrValidation)
	}

	role := in.Role
	if role == "" {
		role = domain.RoleStudent
	}
	if role != domain.RoleAdmin && role != domain.RoleStudent {
		return Session{}, fmt.Errorf("%w: unknown role %q", domain.ErrValidation, in.Role)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	user := domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		Name:         name,
		Email:        email,
		Role:         role,
		IsActive:     true,
		CreatedAt:    s.now(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return Session{}, err
	}
	return s.issue(user)
}

// Login authenticates by username and password. Unknown user, deactivated
// account, and wrong password all produce the same generic error.
func (s *AuthService) Login(ctx context.Context, username, password string) (Session, error) {
	user, err := s.users.GetUserByUsername(ctx, strings.ToLower(strings.TrimSpace(username)))
	if err != nil {
		return Session{}, domain.ErrInvalidCredentials
	}
	if !user.IsActive || !s.hasher.Verify(password, user.PasswordHash) {
		return Session{}, domain.ErrInvalidCredentials
	}
	return s.issue(user)
}

// VerifySession decodes a bearer token into an actor.
func (s *AuthService) VerifySession(token string) (Actor, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return Actor{}, err
	}
	return Actor{ID: claims.UserID, Username: claims.Username, Name: claims.Name, Role: claims.Role}, nil
}

func (s *AuthService) issue(user domain.User) (Session, error) {
	token, err := s.tokens.Issue(user.Public())
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	return Session{Token: token, User: user.Public()}, nil
}
