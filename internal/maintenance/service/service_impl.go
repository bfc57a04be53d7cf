package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	alogdomain "github.com/rentflow/rentflow/internal/activitylog/domain"
	"github.com/rentflow/rentflow/internal/clock"
	"github.com/rentflow/rentflow/internal/cloudmetrics"
	"github.com/rentflow/rentflow/internal/maintenance/domain"
	"github.com/rentflow/rentflow/internal/orgcontext"
	propertydomain "github.com/rentflow/rentflow/internal/property/domain"
	"github.com/rentflow/rentflow/internal/realtime"
	"github.com/rentflow/rentflow/pkg/db"
	"github.com/rentflow/rentflow/pkg/db/pagination"
	"gorm.io/gorm"
)

type service struct {
	db         *gorm.DB
	repo       domain.Repository
	properties propertydomain.Repository
	clock      clock.Clock
	genID      *snowflake.Node
	audit      alogdomain.Recorder
	publisher  realtime.Publisher
}

func New(conn *gorm.DB, repo domain.Repository, properties propertydomain.Repository, clk clock.Clock, genID *snowflake.Node, audit alogdomain.Recorder, publisher realtime.Publisher) domain.Service {
	return &service{
		db:         conn,
		repo:       repo,
		properties: properties,
		clock:      clk,
		genID:      genID,
		audit:      audit,
		publisher:  publisher,
	}
}

func (s *service) Create(ctx context.Context, req domain.CreateMaintenanceRequest) (*domain.MaintenanceResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	propertyID, err := parseID(req.PropertyID)
	if err != nil {
		return nil, domain.ErrInvalidProperty
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.ErrInvalidTitle
	}
	priority := strings.ToUpper(strings.TrimSpace(req.Priority))
	if priority == "" {
		priority = domain.PriorityMedium
	}
	if !domain.ValidPriority(priority) {
		return nil, domain.ErrInvalidPriority
	}

	property, err := s.properties.FindByID(ctx, s.db, orgID, propertyID)
	if err != nil {
		return nil, err
	}
	if property == nil {
		return nil, domain.ErrInvalidProperty
	}

	var unitID, tenantID *snowflake.ID
	if raw := strings.TrimSpace(req.UnitID); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			return nil, domain.ErrInvalidUnit
		}
		unitID = &id
	}
	if raw := strings.TrimSpace(req.TenantID); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			return nil, domain.ErrInvalidTenant
		}
		tenantID = &id
	}

	now := s.clock.Now()
	request := domain.MaintenanceRequest{
		ID:          s.genID.Generate(),
		OrgID:       orgID,
		PropertyID:  propertyID,
		UnitID:      unitID,
		TenantID:    tenantID,
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Priority:    priority,
		Status:      domain.StatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Insert(ctx, s.db, &request); err != nil {
		if db.IsForeignKeyErr(err) {
			return nil, domain.ErrInvalidUnit
		}
		return nil, err
	}

	cloudmetrics.RecordMaintenanceOpened(orgID.String(), priority)
	s.audit.Record(ctx, alogdomain.Entry{
		OrgID:      orgID,
		Action:     "maintenance.created",
		EntityType: "maintenance_request",
		EntityID:   request.ID,
		Details:    map[string]any{"priority": priority, "title": title},
	})
	s.publisher.Publish(orgID, realtime.Event{
		Type:       "maintenance.created",
		EntityType: "maintenance_request",
		EntityID:   request.ID.String(),
	})

	return toResponse(&request), nil
}

func (s *service) GetByID(ctx context.Context, id string) (*domain.MaintenanceResponse, error) {
	request, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return toResponse(request), nil
}

func (s *service) List(ctx context.Context, req domain.ListMaintenanceRequest) (domain.ListMaintenanceResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ListMaintenanceResponse{}, domain.ErrInvalidOrganization
	}

	filter := domain.ListMaintenanceFilter{
		Status:   strings.ToUpper(strings.TrimSpace(req.Status)),
		Priority: strings.ToUpper(strings.TrimSpace(req.Priority)),
	}
	if filter.Status != "" && !domain.ValidStatus(filter.Status) {
		return domain.ListMaintenanceResponse{}, domain.ErrInvalidStatus
	}
	if filter.Priority != "" && !domain.ValidPriority(filter.Priority) {
		return domain.ListMaintenanceResponse{}, domain.ErrInvalidPriority
	}
	if raw := strings.TrimSpace(req.PropertyID); raw != "" {
		propertyID, err := parseID(raw)
		if err != nil {
			return domain.ListMaintenanceResponse{}, domain.ErrInvalidProperty
		}
		filter.PropertyID = propertyID
	}
	if raw := strings.TrimSpace(req.UnitID); raw != "" {
		unitID, err := parseID(raw)
		if err != nil {
			return domain.ListMaintenanceResponse{}, domain.ErrInvalidUnit
		}
		filter.UnitID = unitID
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 25
	}

	items, err := s.repo.List(ctx, s.db, orgID, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return domain.ListMaintenanceResponse{}, err
	}

	items, pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(request *domain.MaintenanceRequest) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        request.ID.String(),
			CreatedAt: request.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})

	resp := domain.ListMaintenanceResponse{
		Requests: make([]domain.MaintenanceResponse, 0, len(items)),
	}
	for _, item := range items {
		resp.Requests = append(resp.Requests, *toResponse(item))
	}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *service) Update(ctx context.Context, id string, req domain.UpdateMaintenanceRequest) (*domain.MaintenanceResponse, error) {
	orgID, _ := orgcontext.OrgIDFromContext(ctx)
	request, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.Status == domain.StatusResolved || request.Status == domain.StatusCancelled {
		return nil, domain.ErrAlreadyClosed
	}

	now := s.clock.Now()
	fields := map[string]any{"updated_at": now}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, domain.ErrInvalidTitle
		}
		fields["title"] = title
	}
	if req.Description != nil {
		fields["description"] = strings.TrimSpace(*req.Description)
	}
	if req.Priority != nil {
		priority := strings.ToUpper(strings.TrimSpace(*req.Priority))
		if !domain.ValidPriority(priority) {
			return nil, domain.ErrInvalidPriority
		}
		fields["priority"] = priority
	}
	if req.AssignedTo != nil {
		fields["assigned_to"] = strings.TrimSpace(*req.AssignedTo)
	}
	if req.Cost != nil {
		if *req.Cost < 0 {
			return nil, domain.ErrInvalidCost
		}
		fields["cost"] = *req.Cost
	}
	action := "maintenance.updated"
	if req.Status != nil {
		status := strings.ToUpper(strings.TrimSpace(*req.Status))
		if !domain.ValidStatus(status) {
			return nil, domain.ErrInvalidStatus
		}
		fields["status"] = status
		if status == domain.StatusResolved {
			fields["resolved_at"] = now
			action = "maintenance.resolved"
		}
	}

	if err := s.repo.UpdateFields(ctx, s.db, orgID, request.ID, fields); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, alogdomain.Entry{
		OrgID:      orgID,
		Action:     action,
		EntityType: "maintenance_request",
		EntityID:   request.ID,
	})
	s.publisher.Publish(orgID, realtime.Event{
		Type:       action,
		EntityType: "maintenance_request",
		EntityID:   request.ID.String(),
	})

	return s.GetByID(ctx, id)
}

func (s *service) find(ctx context.Context, id string) (*domain.MaintenanceRequest, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}
	requestID, err := parseID(id)
	if err != nil {
		return nil, domain.ErrInvalidRequest
	}
	request, err := s.repo.FindByID(ctx, s.db, orgID, requestID)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, domain.ErrNotFound
	}
	return request, nil
}

func parseID(raw string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(raw))
}

func toResponse(request *domain.MaintenanceRequest) *domain.MaintenanceResponse {
	resp := &domain.MaintenanceResponse{
		ID:          request.ID.String(),
		PropertyID:  request.PropertyID.String(),
		Title:       request.Title,
		Description: request.Description,
		Priority:    request.Priority,
		Status:      request.Status,
		AssignedTo:  request.AssignedTo,
		Cost:        request.Cost,
		CreatedAt:   request.CreatedAt.Format(time.RFC3339),
	}
	if request.UnitID != nil {
		resp.UnitID = request.UnitID.String()
	}
	if request.TenantID != nil {
		resp.TenantID = request.TenantID.String()
	}
	if request.ResolvedAt != nil {
		resp.ResolvedAt = request.ResolvedAt.Format(time.RFC3339)
	}
	return resp
}
