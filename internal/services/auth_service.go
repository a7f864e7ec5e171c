package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

// Session is the result of a successful register or login.
type Session struct {
	User      core.User
	Token     string
	ExpiresAt time.Time
}

// AuthService registers users, checks credentials and resolves session
// tokens back to users.
type AuthService struct {
	users  ledger.UserStore
	tokens *auth.TokenIssuer
	now    func() time.Time
	newID  func() string

	checkPassword func(hash, password string) (bool, error)
}

func NewAuthService(users ledger.UserStore, tokens *auth.TokenIssuer) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,

		checkPassword: auth.CheckPassword,
	}
}

// CreateUser stores a new user without issuing a session.
func (s *AuthService) CreateUser(ctx context.Context, name, email, password string) (core.User, error) {
	name = strings.TrimSpace(name)
	email = core.NormalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return core.User{}, core.Validation("All fields are required")
	}

	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return core.User{}, core.Conflict("User Already Exists")
	} else if !errors.Is(err, core.ErrNotFound) {
		return core.User{}, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return core.User{}, err
	}

	now := s.now()
	u := core.User{
		ID:           s.newID(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		// Lost a race with a concurrent registration of the same email.
		if errors.Is(err, core.ErrConflict) {
			return core.User{}, core.Conflict("User Already Exists")
		}
		return core.User{}, fmt.Errorf("save user: %w", err)
	}

	slog.InfoContext(ctx, "User registered", "user_id", u.ID)
	return u, nil
}

// Register creates the user and opens a session for it.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (Session, error) {
	u, err := s.CreateUser(ctx, name, email, password)
	if err != nil {
		return Session{}, err
	}
	return s.issue(u)
}

// Login fails identically for an unknown email and a wrong password.
func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	invalid := core.Unauthenticated("Invalid Email or Password")
	if strings.TrimSpace(email) == "" || password == "" {
		return Session{}, invalid
	}

	u, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, core.ErrNotFound) {
		_, _ = s.checkPassword(auth.DummyHash(), password)
		return Session{}, invalid
	}
	if err != nil {
		return Session{}, fmt.Errorf("lookup user: %w", err)
	}

	ok, err := s.checkPassword(u.PasswordHash, password)
	if err != nil {
		return Session{}, err
	}
	if !ok {
		slog.WarnContext(ctx, "Failed login attempt", "user_id", u.ID)
		return Session{}, invalid
	}
	return s.issue(u)
}

// Authenticate resolves a session token to its user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (core.User, error) {
	if token == "" {
		return core.User{}, core.Unauthenticated("Unauthorized: Please log in first")
	}
	userID, err := s.tokens.Parse(token)
	if err != nil {
		return core.User{}, core.Unauthenticated("Unauthorized: Invalid or expired token")
	}
	u, err := s.users.GetUserByID(ctx, userID)
	if errors.Is(err, core.ErrNotFound) {
		return core.User{}, core.Unauthenticated("User not found")
	}
	if err != nil {
		return core.User{}, fmt.Errorf("lookup user: %w", err)
	}
	return u, nil
}

func (s *AuthService) issue(u core.User) (Session, error) {
	token, expires, err := s.tokens.Issue(u.ID)
	if err != nil {
		return Session{}, err
	}
	return Session{User: u, Token: token, ExpiresAt: expires}, nil
}
