package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/econfia/api/internal/auth"
	"github.com/econfia/api/internal/model"
	"github.com/econfia/api/internal/store"
)

// AuthService registers accounts and issues bearer tokens.
type AuthService struct {
	users     *store.UserRepository
	jwtSecret string
	tokenTTL  time.Duration
}

func NewAuthService(users *store.UserRepository, jwtSecret string, expirationHours int) *AuthService {
	if expirationHours <= 0 {
		expirationHours = 24
	}
	return &AuthService{
		users:     users,
		jwtSecret: jwtSecret,
		tokenTTL:  time.Duration(expirationHours) * time.Hour,
	}
}

// Register creates an account and returns a fresh token.
func (s *AuthService) Register(ctx context.Context, req *model.RegisterRequest) (*model.TokenResponse, error) {
	if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		ID:           uuid.New(),
		Email:        req.Email,
		PasswordHash: string(hash),
		Name:         req.Name,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	return s.issue(user)
}

// Login authenticates an account and returns a fresh token.
func (s *AuthService) Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issue(user)
}

func (s *AuthService) issue(user *model.User) (*model.TokenResponse, error) {
	token, expiresAt, err := auth.IssueToken(user.ID.String(), user.Email, s.jwtSecret, s.tokenTTL)
	if err != nil {
		return nil, err
	}
	return &model.TokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
	}, nil
}
