package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	alogdomain "github.com/rentflow/rentflow/internal/activitylog/domain"
	"github.com/rentflow/rentflow/internal/clock"
	"github.com/rentflow/rentflow/internal/orgcontext"
	propertydomain "github.com/rentflow/rentflow/internal/property/domain"
	"github.com/rentflow/rentflow/internal/realtime"
	"github.com/rentflow/rentflow/internal/unit/domain"
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

func (s *service) Create(ctx context.Context, req domain.CreateUnitRequest) (*domain.UnitResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	propertyID, err := parseID(req.PropertyID)
	if err != nil {
		return nil, domain.ErrInvalidProperty
	}
	unitNumber := strings.TrimSpace(req.UnitNumber)
	if unitNumber == "" {
		return nil, domain.ErrInvalidUnitNumber
	}
	if req.MarketRent < 0 {
		return nil, domain.ErrInvalidRent
	}

	property, err := s.properties.FindByID(ctx, s.db, orgID, propertyID)
	if err != nil {
		return nil, err
	}
	if property == nil {
		return nil, domain.ErrInvalidProperty
	}

	now := s.clock.Now()
	unit := domain.Unit{
		ID:          s.genID.Generate(),
		OrgID:       orgID,
		PropertyID:  propertyID,
		UnitNumber:  unitNumber,
		Floor:       req.Floor,
		Bedrooms:    req.Bedrooms,
		Bathrooms:   req.Bathrooms,
		SquareFeet:  req.SquareFeet,
		MarketRent:  req.MarketRent,
		Status:      domain.StatusVacant,
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Insert(ctx, s.db, &unit); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateUnitNumber
		}
		return nil, err
	}

	s.audit.Record(ctx, alogdomain.Entry{
		OrgID:      orgID,
		Action:     "unit.created",
		EntityType: "unit",
		EntityID:   unit.ID,
		Details:    map[string]any{"unit_number": unit.UnitNumber},
	})
	s.publisher.Publish(orgID, realtime.Event{
		Type:       "unit.created",
		EntityType: "unit",
		EntityID:   unit.ID.String(),
	})

	return toResponse(&unit), nil
}

func (s *service) GetByID(ctx context.Context, id string) (*domain.UnitResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	unitID, err := parseID(id)
	if err != nil {
		return nil, domain.ErrInvalidUnit
	}

	unit, err := s.repo.FindByID(ctx, s.db, orgID, unitID)
	if err != nil {
		return nil, err
	}
	if unit == nil {
		return nil, domain.ErrNotFound
	}
	return toResponse(unit), nil
}

func (s *service) List(ctx context.Context, req domain.ListUnitRequest) (domain.ListUnitResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ListUnitResponse{}, domain.ErrInvalidOrganization
	}

	filter := domain.ListUnitFilter{
		Status: strings.ToUpper(strings.TrimSpace(req.Status)),
	}
	if raw := strings.TrimSpace(req.PropertyID); raw != "" {
		propertyID, err := parseID(raw)
		if err != nil {
			return domain.ListUnitResponse{}, domain.ErrInvalidProperty
		}
		filter.PropertyID = propertyID
	}
	if filter.Status != "" && !domain.ValidStatus(filter.Status) {
		return domain.ListUnitResponse{}, domain.ErrInvalidStatus
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
		return domain.ListUnitResponse{}, err
	}

	items, pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(unit *domain.Unit) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        unit.ID.String(),
			CreatedAt: unit.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})

	resp := domain.ListUnitResponse{
		Units: make([]domain.UnitResponse, 0, len(items)),
	}
	for _, item := range items {
		resp.Units = append(resp.Units, *toResponse(item))
	}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *service) Update(ctx context.Context, id string, req domain.UpdateUnitRequest) (*domain.UnitResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	unitID, err := parseID(id)
	if err != nil {
		return nil, domain.ErrInvalidUnit
	}

	fields := map[string]any{"updated_at": s.clock.Now()}
	if req.UnitNumber != nil {
		unitNumber := strings.TrimSpace(*req.UnitNumber)
		if unitNumber == "" {
			return nil, domain.ErrInvalidUnitNumber
		}
		fields["unit_number"] = unitNumber
	}
	if req.Floor != nil {
		fields["floor"] = *req.Floor
	}
	if req.Bedrooms != nil {
		fields["bedrooms"] = *req.Bedrooms
	}
	if req.Bathrooms != nil {
		fields["bathrooms"] = *req.Bathrooms
	}
	if req.SquareFeet != nil {
		fields["square_feet"] = *req.SquareFeet
	}
	if req.MarketRent != nil {
		if *req.MarketRent < 0 {
			return nil, domain.ErrInvalidRent
		}
		fields["market_rent"] = *req.MarketRent
	}
	if req.Status != nil {
		status := strings.ToUpper(strings.TrimSpace(*req.Status))
		if !domain.ValidStatus(status) {
			return nil, domain.ErrInvalidStatus
		}
		fields["status"] = status
	}
	if req.Description != nil {
		fields["description"] = strings.TrimSpace(*req.Description)
	}

	if err := s.repo.UpdateFields(ctx, s.db, orgID, unitID, fields); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateUnitNumber
		}
		return nil, err
	}

	s.audit.Record(ctx, alogdomain.Entry{
		OrgID:      orgID,
		Action:     "unit.updated",
		EntityType: "unit",
		EntityID:   unitID,
	})
	s.publisher.Publish(orgID, realtime.Event{
		Type:       "unit.updated",
		EntityType: "unit",
		EntityID:   unitID.String(),
	})

	return s.GetByID(ctx, id)
}

func (s *service) Delete(ctx context.Context, id string) error {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ErrInvalidOrganization
	}

	unitID, err := parseID(id)
	if err != nil {
		return domain.ErrInvalidUnit
	}

	active, err := s.repo.CountActiveContracts(ctx, s.db, unitID)
	if err != nil {
		return err
	}
	if active > 0 {
		return domain.ErrUnitOccupied
	}

	if err := s.repo.Delete(ctx, s.db, orgID, unitID); err != nil {
		return err
	}

	s.audit.Record(ctx, alogdomain.Entry{
		OrgID:      orgID,
		Action:     "unit.deleted",
		EntityType: "unit",
		EntityID:   unitID,
	})
	s.publisher.Publish(orgID, realtime.Event{
		Type:       "unit.deleted",
		EntityType: "unit",
		EntityID:   unitID.String(),
	})
	return nil
}

func parseID(raw string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(raw))
}

func toResponse(unit *domain.Unit) *domain.UnitResponse {
	return &domain.UnitResponse{
		ID:          unit.ID.String(),
		PropertyID:  unit.PropertyID.String(),
		UnitNumber:  unit.UnitNumber,
		Floor:       unit.Floor,
		Bedrooms:    unit.Bedrooms,
		Bathrooms:   unit.Bathrooms,
		SquareFeet:  unit.SquareFeet,
		MarketRent:  unit.MarketRent,
		Status:      unit.Status,
		Description: unit.Description,
	}
}
