package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/rentflow/rentflow/internal/clock"
	"github.com/rentflow/rentflow/internal/organization/domain"
	"github.com/rentflow/rentflow/pkg/db"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DefaultSettings seeds organization preferences at creation time.
func DefaultSettings() datatypes.JSONMap {
	return datatypes.JSONMap{
		"currency":         "USD",
		"timezone":         "UTC",
		"date_format":      "YYYY-MM-DD",
		"payment_due_day":  float64(1),
		"late_fee_enabled": false,
	}
}

type service struct {
	db      *gorm.DB
	repo    domain.Repository
	clock   clock.Clock
	genID   *snowflake.Node
	starter domain.StarterAssigner
}

func NewService(conn *gorm.DB, repo domain.Repository, clk clock.Clock, genID *snowflake.Node, starter domain.StarterAssigner) domain.Service {
	return &service{db: conn, repo: repo, clock: clk, genID: genID, starter: starter}
}

func (s *service) Create(ctx context.Context, userID snowflake.ID, req domain.CreateOrganizationRequest) (*domain.OrganizationResponse, error) {
	var resp *domain.OrganizationResponse
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err := s.Bootstrap(ctx, tx, userID, req)
		if err != nil {
			return err
		}
		resp = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *service) Bootstrap(ctx context.Context, tx *gorm.DB, userID snowflake.ID, req domain.CreateOrganizationRequest) (*domain.OrganizationResponse, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	now := s.clock.Now()
	orgID := s.genID.Generate()
	org := domain.Organization{
		ID:        orgID,
		Name:      name,
		Slug:      slug.Make(name),
		Email:     strings.TrimSpace(req.Email),
		Phone:     strings.TrimSpace(req.Phone),
		Address:   strings.TrimSpace(req.Address),
		Settings:  DefaultSettings(),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	repo := s.repo.WithTx(tx)
	if err := repo.Create(ctx, org); err != nil {
		if !db.IsDuplicateKeyErr(err) {
			return nil, err
		}
		// Slug collision, disambiguate with the snowflake suffix.
		org.Slug = fmt.Sprintf("%s-%s", org.Slug, orgID.String()[len(orgID.String())-6:])
		if err := repo.Create(ctx, org); err != nil {
			return nil, err
		}
	}

	member := domain.OrganizationMember{
		ID:        s.genID.Generate(),
		OrgID:     orgID,
		UserID:    userID,
		Role:      domain.RoleOwner,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.AddMember(ctx, member); err != nil {
		return nil, err
	}

	if err := s.starter.AssignStarter(ctx, tx, orgID); err != nil {
		return nil, err
	}

	return toResponse(&org), nil
}

func (s *service) Deactivate(ctx context.Context, id snowflake.ID) error {
	if id == 0 {
		return domain.ErrInvalidOrganization
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.repo.UpdateFields(ctx, id, map[string]any{
		"is_active":  false,
		"updated_at": s.clock.Now(),
	})
}

func (s *service) GetByID(ctx context.Context, id snowflake.ID) (*domain.OrganizationResponse, error) {
	if id == 0 {
		return nil, domain.ErrInvalidOrganization
	}
	org, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toResponse(org), nil
}

func (s *service) Update(ctx context.Context, id snowflake.ID, req domain.UpdateOrganizationRequest) (*domain.OrganizationResponse, error) {
	if id == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	fields := map[string]any{"updated_at": s.clock.Now()}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		fields["name"] = name
	}
	if req.Email != nil {
		fields["email"] = strings.TrimSpace(*req.Email)
	}
	if req.Phone != nil {
		fields["phone"] = strings.TrimSpace(*req.Phone)
	}
	if req.Address != nil {
		fields["address"] = strings.TrimSpace(*req.Address)
	}

	if err := s.repo.UpdateFields(ctx, id, fields); err != nil {
		return nil, err
	}
	org, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toResponse(org), nil
}

func (s *service) UpdateSettings(ctx context.Context, id snowflake.ID, settings map[string]any) (*domain.OrganizationResponse, error) {
	if id == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	org, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Merge over existing settings, unknown keys are preserved as provided.
	merged := datatypes.JSONMap{}
	for k, v := range org.Settings {
		merged[k] = v
	}
	for k, v := range settings {
		merged[k] = v
	}

	err = s.repo.UpdateFields(ctx, id, map[string]any{
		"settings":   merged,
		"updated_at": s.clock.Now(),
	})
	if err != nil {
		return nil, err
	}

	org.Settings = merged
	return toResponse(org), nil
}

func (s *service) ListByUser(ctx context.Context, userID snowflake.ID) ([]domain.OrganizationListResponseItem, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}

	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.OrganizationListResponseItem, 0, len(items))
	for _, item := range items {
		resp = append(resp, domain.OrganizationListResponseItem{
			ID:        item.ID.String(),
			Name:      item.Name,
			Slug:      item.Slug,
			Role:      item.Role,
			CreatedAt: item.CreatedAt,
		})
	}
	return resp, nil
}

func (s *service) AddMember(ctx context.Context, orgID snowflake.ID, req domain.AddMemberRequest) error {
	if orgID == 0 {
		return domain.ErrInvalidOrganization
	}
	if req.UserID == 0 {
		return domain.ErrInvalidUser
	}
	if !domain.ValidRole(req.Role) {
		return domain.ErrInvalidRole
	}

	if _, err := s.repo.GetByID(ctx, orgID); err != nil {
		return err
	}

	now := s.clock.Now()
	member := domain.OrganizationMember{
		ID:        s.genID.Generate(),
		OrgID:     orgID,
		UserID:    req.UserID,
		Role:      req.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.AddMember(ctx, member); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.ErrMemberExists
		}
		return err
	}
	return nil
}

func (s *service) ListMembers(ctx context.Context, orgID snowflake.ID) ([]domain.MemberResponse, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	items, err := s.repo.ListMembers(ctx, orgID)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.MemberResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, domain.MemberResponse{
			UserID:    item.UserID.String(),
			Email:     item.Email,
			FirstName: item.FirstName,
			LastName:  item.LastName,
			Role:      item.Role,
			CreatedAt: item.CreatedAt,
		})
	}
	return resp, nil
}

func (s *service) UpdateMemberRole(ctx context.Context, orgID, userID snowflake.ID, role string) error {
	if orgID == 0 {
		return domain.ErrInvalidOrganization
	}
	if userID == 0 {
		return domain.ErrInvalidUser
	}
	if !domain.ValidRole(role) {
		return domain.ErrInvalidRole
	}

	member, err := s.repo.GetMember(ctx, orgID, userID)
	if err != nil {
		return err
	}
	if member.Role == domain.RoleOwner && role != domain.RoleOwner {
		if err := s.ensureNotLastOwner(ctx, orgID); err != nil {
			return err
		}
	}
	return s.repo.UpdateMemberRole(ctx, orgID, userID, role)
}

func (s *service) RemoveMember(ctx context.Context, orgID, userID snowflake.ID) error {
	if orgID == 0 {
		return domain.ErrInvalidOrganization
	}
	if userID == 0 {
		return domain.ErrInvalidUser
	}

	member, err := s.repo.GetMember(ctx, orgID, userID)
	if err != nil {
		return err
	}
	if member.Role == domain.RoleOwner {
		if err := s.ensureNotLastOwner(ctx, orgID); err != nil {
			return err
		}
	}
	return s.repo.RemoveMember(ctx, orgID, userID)
}

func (s *service) MemberRole(ctx context.Context, orgID, userID snowflake.ID) (string, error) {
	member, err := s.repo.GetMember(ctx, orgID, userID)
	if err != nil {
		return "", err
	}
	return member.Role, nil
}

func (s *service) ensureNotLastOwner(ctx context.Context, orgID snowflake.ID) error {
	owners, err := s.repo.CountMembersByRole(ctx, orgID, domain.RoleOwner)
	if err != nil {
		return err
	}
	if owners <= 1 {
		return domain.ErrLastOwner
	}
	return nil
}

func toResponse(org *domain.Organization) *domain.OrganizationResponse {
	return &domain.OrganizationResponse{
		ID:       org.ID.String(),
		Name:     org.Name,
		Slug:     org.Slug,
		Email:    org.Email,
		Phone:    org.Phone,
		Address:  org.Address,
		Settings: org.Settings,
		IsActive: org.IsActive,
	}
}
