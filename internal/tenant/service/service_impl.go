package service

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	alogdomain "github.com/rentflow/rentflow/internal/activitylog/domain"
	"github.com/rentflow/rentflow/internal/clock"
	"github.com/rentflow/rentflow/internal/orgcontext"
	"github.com/rentflow/rentflow/internal/realtime"
	"github.com/rentflow/rentflow/internal/tenant/domain"
	"github.com/rentflow/rentflow/pkg/db"
	"github.com/rentflow/rentflow/pkg/db/pagination"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

type service struct {
	db        *gorm.DB
	repo      domain.Repository
	clock     clock.Clock
	genID     *snowflake.Node
	audit     alogdomain.Recorder
	publisher realtime.Publisher
}

func New(conn *gorm.DB, repo domain.Repository, clk clock.Clock, genID *snowflake.Node, audit alogdomain.Recorder, publisher realtime.Publisher) domain.Service {
	return &service{
		db:        conn,
		repo:      repo,
		clock:     clk,
		genID:     genID,
		audit:     audit,
		publisher: publisher,
	}
}

func (s *service) Create(ctx context.Context, req domain.CreateTenantRequest) (*domain.TenantResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	firstName := strings.TrimSpace(req.FirstName)
	lastName := strings.TrimSpace(req.LastName)
	if firstName == "" && lastName == "" {
		return nil, domain.ErrInvalidName
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, domain.ErrInvalidEmail
	}

	var dateOfBirth *time.Time
	if raw := strings.TrimSpace(req.DateOfBirth); raw != "" {
		dob, err := time.Parse(dateLayout, raw)
		if err != nil {
			return nil, domain.ErrInvalidDateOfBirth
		}
		dateOfBirth = &dob
	}

	now := s.clock.Now()
	tenant := domain.Tenant{
		ID:               s.genID.Generate(),
		OrgID:            orgID,
		FirstName:        firstName,
		LastName:         lastName,
		Email:            email,
		Phone:            strings.TrimSpace(req.Phone),
		DateOfBirth:      dateOfBirth,
		EmergencyContact: datatypes.JSONMap(req.EmergencyContact),
		Notes:            strings.TrimSpace(req.Notes),
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if tenant.EmergencyContact == nil {
		tenant.EmergencyContact = datatypes.JSONMap{}
	}

	if err := s.repo.Insert(ctx, s.db, &tenant); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, err
	}

	s.audit.Record(ctx, alogdomain.Entry{
		OrgID:      orgID,
		Action:     "tenant.created",
		EntityType: "tenant",
		EntityID:   tenant.ID,
		Details:    map[string]any{"email": tenant.Email},
	})
	s.publisher.Publish(orgID, realtime.Event{
		Type:       "tenant.created",
		EntityType: "tenant",
		EntityID:   tenant.ID.String(),
	})

	return toResponse(&tenant), nil
}

func (s *service) GetByID(ctx context.Context, id string) (*domain.TenantResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	tenantID, err := parseID(id)
	if err != nil {
		return nil, domain.ErrInvalidTenant
	}

	tenant, err := s.repo.FindByID(ctx, s.db, orgID, tenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, domain.ErrNotFound
	}
	return toResponse(tenant), nil
}

func (s *service) List(ctx context.Context, req domain.ListTenantRequest) (domain.ListTenantResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ListTenantResponse{}, domain.ErrInvalidOrganization
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 25
	}

	items, err := s.repo.List(ctx, s.db, orgID, domain.ListTenantFilter{
		Search:          strings.TrimSpace(req.Search),
		IncludeInactive: req.IncludeInactive,
	}, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return domain.ListTenantResponse{}, err
	}

	items, pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(tenant *domain.Tenant) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        tenant.ID.String(),
			CreatedAt: tenant.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})

	resp := domain.ListTenantResponse{
		Tenants: make([]domain.TenantResponse, 0, len(items)),
	}
	for _, item := range items {
		resp.Tenants = append(resp.Tenants, *toResponse(item))
	}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *service) Update(ctx context.Context, id string, req domain.UpdateTenantRequest) (*domain.TenantResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	tenantID, err := parseID(id)
	if err != nil {
		return nil, domain.ErrInvalidTenant
	}

	fields := map[string]any{"updated_at": s.clock.Now()}
	if req.FirstName != nil {
		fields["first_name"] = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		fields["last_name"] = strings.TrimSpace(*req.LastName)
	}
	if req.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*req.Email))
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, domain.ErrInvalidEmail
		}
		fields["email"] = email
	}
	if req.Phone != nil {
		fields["phone"] = strings.TrimSpace(*req.Phone)
	}
	if req.DateOfBirth != nil {
		if raw := strings.TrimSpace(*req.DateOfBirth); raw != "" {
			dob, err := time.Parse(dateLayout, raw)
			if err != nil {
				return nil, domain.ErrInvalidDateOfBirth
			}
			fields["date_of_birth"] = dob
		} else {
			fields["date_of_birth"] = nil
		}
	}
	if req.EmergencyContact != nil {
		fields["emergency_contact"] = datatypes.JSONMap(*req.EmergencyContact)
	}
	if req.Notes != nil {
		fields["notes"] = strings.TrimSpace(*req.Notes)
	}

	if err := s.repo.UpdateFields(ctx, s.db, orgID, tenantID, fields); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, err
	}

	s.audit.Record(ctx, alogdomain.Entry{
		OrgID:      orgID,
		Action:     "tenant.updated",
		EntityType: "tenant",
		EntityID:   tenantID,
	})
	s.publisher.Publish(orgID, realtime.Event{
		Type:       "tenant.updated",
		EntityType: "tenant",
		EntityID:   tenantID.String(),
	})

	return s.GetByID(ctx, id)
}

func (s *service) Archive(ctx context.Context, id string) error {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ErrInvalidOrganization
	}

	tenantID, err := parseID(id)
	if err != nil {
		return domain.ErrInvalidTenant
	}

	active, err := s.repo.CountActiveContracts(ctx, s.db, tenantID)
	if err != nil {
		return err
	}
	if active > 0 {
		return domain.ErrTenantHasContract
	}

	err = s.repo.UpdateFields(ctx, s.db, orgID, tenantID, map[string]any{
		"is_active":  false,
		"updated_at": s.clock.Now(),
	})
	if err != nil {
		return err
	}

	s.audit.Record(ctx, alogdomain.Entry{
		OrgID:      orgID,
		Action:     "tenant.archived",
		EntityType: "tenant",
		EntityID:   tenantID,
	})
	s.publisher.Publish(orgID, realtime.Event{
		Type:       "tenant.archived",
		EntityType: "tenant",
		EntityID:   tenantID.String(),
	})
	return nil
}

func parseID(raw string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(raw))
}

func toResponse(tenant *domain.Tenant) *domain.TenantResponse {
	resp := &domain.TenantResponse{
		ID:               tenant.ID.String(),
		FirstName:        tenant.FirstName,
		LastName:         tenant.LastName,
		FullName:         tenant.FullName(),
		Email:            tenant.Email,
		Phone:            tenant.Phone,
		EmergencyContact: tenant.EmergencyContact,
		Notes:            tenant.Notes,
		IsActive:         tenant.IsActive,
	}
	if tenant.DateOfBirth != nil {
		resp.DateOfBirth = tenant.DateOfBirth.Format(dateLayout)
	}
	return resp
}
