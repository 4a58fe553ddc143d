package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shinyyama/skillswap-backend/internal/auth"
	"github.com/shinyyama/skillswap-backend/internal/model"
	"github.com/shinyyama/skillswap-backend/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type TokenIssuer interface {
	Issue(userID, role string) (string, time.Time, error)
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Location string
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *model.User
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*LoginResult, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
}

type authService struct {
	users  repository.UserRepository
	tokens TokenIssuer
	logger *zap.Logger
}

func NewAuthService(users repository.UserRepository, tokens TokenIssuer, logger *zap.Logger) AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &authService{users: users, tokens: tokens, logger: logger}
}

func (s *authService) Register(ctx context.Context, in RegisterInput) (*LoginResult, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLen {
		return nil, invalidArg("name must be 1-%d characters", maxNameLen)
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(in.Email))
	if err != nil {
		return nil, invalidArg("invalid email")
	}
	email := strings.ToLower(addr.Address)
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) {
			return nil, invalidArg("password must be at least %d characters", auth.MinPasswordLen)
		}
		return nil, err
	}
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: email already registered", ErrConflict)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storeErr(err, "user")
	}

	u := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Location:     strings.TrimSpace(in.Location),
		Availability: "Not specified",
		IsPublic:     true,
		Role:         model.UserRoleUser,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: email already registered", ErrConflict)
		}
		return nil, storeErr(err, "user")
	}
	s.logger.Info("user registered", zap.String("user_id", u.ID))
	return s.issue(u)
}

func (s *authService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	u, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, storeErr(err, "user")
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if u.IsBanned {
		return nil, ErrBanned
	}
	return s.issue(u)
}

func (s *authService) issue(u *model.User) (*LoginResult, error) {
	token, exp, err := s.tokens.Issue(u.ID, string(u.Role))
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &LoginResult{Token: token, ExpiresAt: exp, User: u}, nil
}
