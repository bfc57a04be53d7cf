package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	alogdomain "github.com/rentflow/rentflow/internal/activitylog/domain"
	"github.com/rentflow/rentflow/internal/clock"
	"github.com/rentflow/rentflow/internal/orgcontext"
	"github.com/rentflow/rentflow/internal/property/domain"
	"github.com/rentflow/rentflow/internal/realtime"
	"github.com/rentflow/rentflow/pkg/db/pagination"
	"gorm.io/gorm"
)

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

func (s *service) Create(ctx context.Context, req domain.CreatePropertyRequest) (*domain.PropertyResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	address := strings.TrimSpace(req.Address)
	if address == "" {
		return nil, domain.ErrInvalidAddress
	}
	propertyType := strings.ToUpper(strings.TrimSpace(req.PropertyType))
	if propertyType == "" {
		propertyType = domain.TypeApartment
	}
	if !domain.ValidType(propertyType) {
		return nil, domain.ErrInvalidType
	}

	now := s.clock.Now()
	property := domain.Property{
		ID:           s.genID.Generate(),
		OrgID:        orgID,
		Name:         name,
		Address:      address,
		City:         strings.TrimSpace(req.City),
		State:        strings.TrimSpace(req.State),
		ZipCode:      strings.TrimSpace(req.ZipCode),
		Country:      strings.TrimSpace(req.Country),
		PropertyType: propertyType,
		YearBuilt:    req.YearBuilt,
		Description:  strings.TrimSpace(req.Description),
		Amenities:    normalizeAmenities(req.Amenities),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Insert(ctx, s.db, &property); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, alogdomain.Entry{
		OrgID:      orgID,
		Action:     "property.created",
		EntityType: "property",
		EntityID:   property.ID,
		Details:    map[string]any{"name": property.Name},
	})
	s.publisher.Publish(orgID, realtime.Event{
		Type:       "property.created",
		EntityType: "property",
		EntityID:   property.ID.String(),
		Payload:    map[string]any{"name": property.Name},
	})

	return toResponse(&property, 0, 0), nil
}

func (s *service) GetByID(ctx context.Context, id string) (*domain.PropertyResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	propertyID, err := parseID(id)
	if err != nil {
		return nil, domain.ErrInvalidProperty
	}

	property, err := s.repo.FindByID(ctx, s.db, orgID, propertyID)
	if err != nil {
		return nil, err
	}
	if property == nil {
		return nil, domain.ErrNotFound
	}

	total, occupied := s.unitCountsFor(ctx, orgID, property.ID)
	return toResponse(property, total, occupied), nil
}

func (s *service) List(ctx context.Context, req domain.ListPropertyRequest) (domain.ListPropertyResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ListPropertyResponse{}, domain.ErrInvalidOrganization
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 25
	}

	items, err := s.repo.List(ctx, s.db, orgID, domain.ListPropertyFilter{
		City:            strings.TrimSpace(req.City),
		PropertyType:    strings.ToUpper(strings.TrimSpace(req.PropertyType)),
		Search:          strings.TrimSpace(req.Search),
		IncludeInactive: req.IncludeInactive,
	}, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return domain.ListPropertyResponse{}, err
	}

	items, pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(property *domain.Property) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        property.ID.String(),
			CreatedAt: property.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})

	counts := map[snowflake.ID][2]int64{}
	ids := make([]snowflake.ID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	if unitCounts, err := s.repo.UnitCounts(ctx, s.db, orgID, ids); err == nil {
		for _, count := range unitCounts {
			counts[count.PropertyID] = [2]int64{count.Total, count.Occupied}
		}
	}

	resp := domain.ListPropertyResponse{
		Properties: make([]domain.PropertyResponse, 0, len(items)),
	}
	for _, item := range items {
		count := counts[item.ID]
		resp.Properties = append(resp.Properties, *toResponse(item, count[0], count[1]))
	}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *service) Update(ctx context.Context, id string, req domain.UpdatePropertyRequest) (*domain.PropertyResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	propertyID, err := parseID(id)
	if err != nil {
		return nil, domain.ErrInvalidProperty
	}

	fields := map[string]any{"updated_at": s.clock.Now()}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		fields["name"] = name
	}
	if req.Address != nil {
		address := strings.TrimSpace(*req.Address)
		if address == "" {
			return nil, domain.ErrInvalidAddress
		}
		fields["address"] = address
	}
	if req.City != nil {
		fields["city"] = strings.TrimSpace(*req.City)
	}
	if req.State != nil {
		fields["state"] = strings.TrimSpace(*req.State)
	}
	if req.ZipCode != nil {
		fields["zip_code"] = strings.TrimSpace(*req.ZipCode)
	}
	if req.Country != nil {
		fields["country"] = strings.TrimSpace(*req.Country)
	}
	if req.PropertyType != nil {
		propertyType := strings.ToUpper(strings.TrimSpace(*req.PropertyType))
		if !domain.ValidType(propertyType) {
			return nil, domain.ErrInvalidType
		}
		fields["property_type"] = propertyType
	}
	if req.YearBuilt != nil {
		fields["year_built"] = *req.YearBuilt
	}
	if req.Description != nil {
		fields["description"] = strings.TrimSpace(*req.Description)
	}
	if req.Amenities != nil {
		fields["amenities"] = normalizeAmenities(*req.Amenities)
	}

	if err := s.repo.UpdateFields(ctx, s.db, orgID, propertyID, fields); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, alogdomain.Entry{
		OrgID:      orgID,
		Action:     "property.updated",
		EntityType: "property",
		EntityID:   propertyID,
	})
	s.publisher.Publish(orgID, realtime.Event{
		Type:       "property.updated",
		EntityType: "property",
		EntityID:   propertyID.String(),
	})

	return s.GetByID(ctx, id)
}

func (s *service) Archive(ctx context.Context, id string) error {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ErrInvalidOrganization
	}

	propertyID, err := parseID(id)
	if err != nil {
		return domain.ErrInvalidProperty
	}

	// Archiving a property with tenants still under lease would orphan the
	// rent cycle. Contracts end or terminate first.
	active, err := s.repo.CountActiveContracts(ctx, s.db, orgID, propertyID)
	if err != nil {
		return err
	}
	if active > 0 {
		return domain.ErrHasActiveContract
	}

	err = s.repo.UpdateFields(ctx, s.db, orgID, propertyID, map[string]any{
		"is_active":  false,
		"updated_at": s.clock.Now(),
	})
	if err != nil {
		return err
	}

	s.audit.Record(ctx, alogdomain.Entry{
		OrgID:      orgID,
		Action:     "property.archived",
		EntityType: "property",
		EntityID:   propertyID,
	})
	s.publisher.Publish(orgID, realtime.Event{
		Type:       "property.archived",
		EntityType: "property",
		EntityID:   propertyID.String(),
	})
	return nil
}

func (s *service) unitCountsFor(ctx context.Context, orgID, propertyID snowflake.ID) (int64, int64) {
	counts, err := s.repo.UnitCounts(ctx, s.db, orgID, []snowflake.ID{propertyID})
	if err != nil || len(counts) == 0 {
		return 0, 0
	}
	return counts[0].Total, counts[0].Occupied
}

func parseID(raw string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(raw))
}

func normalizeAmenities(values []string) []string {
	out := make([]string, 0, len(values))
	seen := map[string]struct{}{}
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

func toResponse(property *domain.Property, totalUnits, occupiedUnits int64) *domain.PropertyResponse {
	return &domain.PropertyResponse{
		ID:            property.ID.String(),
		Name:          property.Name,
		Address:       property.Address,
		City:          property.City,
		State:         property.State,
		ZipCode:       property.ZipCode,
		Country:       property.Country,
		PropertyType:  property.PropertyType,
		YearBuilt:     property.YearBuilt,
		Description:   property.Description,
		Amenities:     property.Amenities,
		IsActive:      property.IsActive,
		TotalUnits:    totalUnits,
		OccupiedUnits: occupiedUnits,
	}
}
