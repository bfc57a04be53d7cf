package service

import (
	"context"
	"net/mail"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/rentflow/rentflow/internal/auth/domain"
	"github.com/rentflow/rentflow/internal/auth/password"
	"github.com/rentflow/rentflow/internal/auth/token"
	"github.com/rentflow/rentflow/internal/clock"
	orgdomain "github.com/rentflow/rentflow/internal/organization/domain"
	"github.com/rentflow/rentflow/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const minPasswordLength = 8

type service struct {
	db     *gorm.DB
	repo   domain.Repository
	orgs   orgdomain.Service
	tokens *token.Manager
	clock  clock.Clock
	genID  *snowflake.Node
}

func New(conn *gorm.DB, repo domain.Repository, orgs orgdomain.Service, tokens *token.Manager, clk clock.Clock, genID *snowflake.Node) domain.Service {
	return &service{
		db:     conn,
		repo:   repo,
		orgs:   orgs,
		tokens: tokens,
		clock:  clk,
		genID:  genID,
	}
}

func (s *service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, domain.ErrInvalidEmail
	}
	if len(req.Password) < minPasswordLength {
		return nil, domain.ErrInvalidPassword
	}

	hashed, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	user := domain.User{
		ID:           s.genID.Generate(),
		Email:        email,
		PasswordHash: hashed,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Phone:        strings.TrimSpace(req.Phone),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// User, organization and starter subscription commit together, a failed
	// bootstrap rolls the signup back instead of leaving an org-less user.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, &user); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrUserExists
			}
			return err
		}

		if orgName := strings.TrimSpace(req.OrganizationName); orgName != "" {
			if _, err := s.orgs.Bootstrap(ctx, tx, user.ID, orgdomain.CreateOrganizationRequest{
				Name:  orgName,
				Email: email,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.issue(user)
}

func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*domain.AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if err == domain.ErrUserNotFound {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}
	if !password.Verify(req.Password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	now := s.clock.Now()
	if err := s.repo.UpdateFields(ctx, user.ID, map[string]any{"last_login_at": now}); err != nil {
		zap.L().Warn("update last login failed", zap.Error(err))
	}
	user.LastLoginAt = &now

	return s.issue(*user)
}

func (s *service) CurrentUser(ctx context.Context, userID snowflake.ID) (*domain.UserResponse, error) {
	if userID == 0 {
		return nil, domain.ErrUserNotFound
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toUserResponse(*user), nil
}

func (s *service) ChangePassword(ctx context.Context, userID snowflake.ID, currentPassword, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return domain.ErrInvalidPassword
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !password.Verify(currentPassword, user.PasswordHash) {
		return domain.ErrInvalidCredentials
	}

	hashed, err := password.Hash(newPassword)
	if err != nil {
		return err
	}
	return s.repo.UpdateFields(ctx, userID, map[string]any{
		"password_hash": hashed,
		"updated_at":    s.clock.Now(),
	})
}

func (s *service) issue(user domain.User) (*domain.AuthResult, error) {
	signed, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &domain.AuthResult{
		Token:     signed,
		ExpiresAt: expiresAt,
		User:      toUserResponse(user),
	}, nil
}

func toUserResponse(user domain.User) *domain.UserResponse {
	return &domain.UserResponse{
		ID:           user.ID.String(),
		Email:        user.Email,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Phone:        user.Phone,
		IsSuperAdmin: user.IsSuperAdmin,
		LastLoginAt:  user.LastLoginAt,
	}
}
