package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	alogdomain "github.com/rentflow/rentflow/internal/activitylog/domain"
	"github.com/rentflow/rentflow/internal/clock"
	"github.com/rentflow/rentflow/internal/cloudmetrics"
	"github.com/rentflow/rentflow/internal/contract/domain"
	"github.com/rentflow/rentflow/internal/orgcontext"
	"github.com/rentflow/rentflow/internal/realtime"
	tenantdomain "github.com/rentflow/rentflow/internal/tenant/domain"
	unitdomain "github.com/rentflow/rentflow/internal/unit/domain"
	"github.com/rentflow/rentflow/pkg/db/pagination"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

type service struct {
	db        *gorm.DB
	repo      domain.Repository
	units     unitdomain.Repository
	tenants   tenantdomain.Repository
	clock     clock.Clock
	genID     *snowflake.Node
	audit     alogdomain.Recorder
	publisher realtime.Publisher
}

func New(conn *gorm.DB, repo domain.Repository, units unitdomain.Repository, tenants tenantdomain.Repository, clk clock.Clock, genID *snowflake.Node, audit alogdomain.Recorder, publisher realtime.Publisher) domain.Service {
	return &service{
		db:        conn,
		repo:      repo,
		units:     units,
		tenants:   tenants,
		clock:     clk,
		genID:     genID,
		audit:     audit,
		publisher: publisher,
	}
}

func (s *service) Create(ctx context.Context, req domain.CreateContractRequest) (*domain.ContractResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	unitID, err := parseID(req.UnitID)
	if err != nil {
		return nil, domain.ErrInvalidUnit
	}
	tenantID, err := parseID(req.TenantID)
	if err != nil {
		return nil, domain.ErrInvalidTenant
	}

	startDate, err := time.Parse(dateLayout, strings.TrimSpace(req.StartDate))
	if err != nil {
		return nil, domain.ErrInvalidDates
	}
	endDate, err := time.Parse(dateLayout, strings.TrimSpace(req.EndDate))
	if err != nil {
		return nil, domain.ErrInvalidDates
	}
	if !endDate.After(startDate) {
		return nil, domain.ErrInvalidDates
	}
	if req.RentAmount <= 0 {
		return nil, domain.ErrInvalidRent
	}
	if req.DepositAmount < 0 {
		return nil, domain.ErrInvalidRent
	}

	dueDay := req.PaymentDueDay
	if dueDay == 0 {
		dueDay = 1
	}
	if dueDay < 1 || dueDay > 28 {
		return nil, domain.ErrInvalidDueDay
	}

	unit, err := s.units.FindByID(ctx, s.db, orgID, unitID)
	if err != nil {
		return nil, err
	}
	if unit == nil {
		return nil, domain.ErrInvalidUnit
	}
	tenant, err := s.tenants.FindByID(ctx, s.db, orgID, tenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil || !tenant.IsActive {
		return nil, domain.ErrInvalidTenant
	}

	now := s.clock.Now()
	contract := domain.Contract{
		ID:            s.genID.Generate(),
		OrgID:         orgID,
		UnitID:        unitID,
		TenantID:      tenantID,
		Status:        domain.StatusDraft,
		StartDate:     startDate,
		EndDate:       endDate,
		RentAmount:    req.RentAmount,
		DepositAmount: req.DepositAmount,
		PaymentDueDay: dueDay,
		Notes:         strings.TrimSpace(req.Notes),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Insert(ctx, s.db, &contract); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, alogdomain.Entry{
		OrgID:      orgID,
		Action:     "contract.created",
		EntityType: "contract",
		EntityID:   contract.ID,
		Details:    map[string]any{"unit_id": unitID.String(), "tenant_id": tenantID.String()},
	})
	s.publisher.Publish(orgID, realtime.Event{
		Type:       "contract.created",
		EntityType: "contract",
		EntityID:   contract.ID.String(),
	})

	return toResponse(&contract), nil
}

func (s *service) GetByID(ctx context.Context, id string) (*domain.ContractResponse, error) {
	contract, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return toResponse(contract), nil
}

func (s *service) List(ctx context.Context, req domain.ListContractRequest) (domain.ListContractResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ListContractResponse{}, domain.ErrInvalidOrganization
	}

	filter := domain.ListContractFilter{
		Status: strings.ToUpper(strings.TrimSpace(req.Status)),
	}
	if filter.Status != "" && !domain.ValidStatus(filter.Status) {
		return domain.ListContractResponse{}, domain.ErrInvalidStatus
	}
	if raw := strings.TrimSpace(req.UnitID); raw != "" {
		unitID, err := parseID(raw)
		if err != nil {
			return domain.ListContractResponse{}, domain.ErrInvalidUnit
		}
		filter.UnitID = unitID
	}
	if raw := strings.TrimSpace(req.TenantID); raw != "" {
		tenantID, err := parseID(raw)
		if err != nil {
			return domain.ListContractResponse{}, domain.ErrInvalidTenant
		}
		filter.TenantID = tenantID
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
		return domain.ListContractResponse{}, err
	}

	items, pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(contract *domain.Contract) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        contract.ID.String(),
			CreatedAt: contract.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})

	resp := domain.ListContractResponse{
		Contracts: make([]domain.ContractResponse, 0, len(items)),
	}
	for _, item := range items {
		resp.Contracts = append(resp.Contracts, *toResponse(item))
	}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *service) Update(ctx context.Context, id string, req domain.UpdateContractRequest) (*domain.ContractResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	contract, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{"updated_at": s.clock.Now()}
	if req.Notes != nil {
		fields["notes"] = strings.TrimSpace(*req.Notes)
	}

	// Dates and amounts are frozen once a contract leaves DRAFT.
	draftOnly := req.StartDate != nil || req.EndDate != nil ||
		req.RentAmount != nil || req.DepositAmount != nil || req.PaymentDueDay != nil
	if draftOnly && contract.Status != domain.StatusDraft {
		return nil, domain.ErrNotDraft
	}

	startDate, endDate := contract.StartDate, contract.EndDate
	if req.StartDate != nil {
		startDate, err = time.Parse(dateLayout, strings.TrimSpace(*req.StartDate))
		if err != nil {
			return nil, domain.ErrInvalidDates
		}
		fields["start_date"] = startDate
	}
	if req.EndDate != nil {
		endDate, err = time.Parse(dateLayout, strings.TrimSpace(*req.EndDate))
		if err != nil {
			return nil, domain.ErrInvalidDates
		}
		fields["end_date"] = endDate
	}
	if !endDate.After(startDate) {
		return nil, domain.ErrInvalidDates
	}
	if req.RentAmount != nil {
		if *req.RentAmount <= 0 {
			return nil, domain.ErrInvalidRent
		}
		fields["rent_amount"] = *req.RentAmount
	}
	if req.DepositAmount != nil {
		if *req.DepositAmount < 0 {
			return nil, domain.ErrInvalidRent
		}
		fields["deposit_amount"] = *req.DepositAmount
	}
	if req.PaymentDueDay != nil {
		if *req.PaymentDueDay < 1 || *req.PaymentDueDay > 28 {
			return nil, domain.ErrInvalidDueDay
		}
		fields["payment_due_day"] = *req.PaymentDueDay
	}

	if err := s.repo.UpdateFields(ctx, s.db, orgID, contract.ID, fields); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, alogdomain.Entry{
		OrgID:      orgID,
		Action:     "contract.updated",
		EntityType: "contract",
		EntityID:   contract.ID,
	})
	s.publisher.Publish(orgID, realtime.Event{
		Type:       "contract.updated",
		EntityType: "contract",
		EntityID:   contract.ID.String(),
	})

	return s.GetByID(ctx, id)
}

func (s *service) Activate(ctx context.Context, id string) (*domain.ContractResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	contract, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if contract.Status != domain.StatusDraft {
		return nil, domain.ErrNotDraft
	}

	now := s.clock.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		active, err := s.repo.CountActiveByUnit(ctx, tx, contract.UnitID)
		if err != nil {
			return err
		}
		if active > 0 {
			return domain.ErrUnitOccupied
		}
		if err := s.repo.UpdateFields(ctx, tx, orgID, contract.ID, map[string]any{
			"status":     domain.StatusActive,
			"updated_at": now,
		}); err != nil {
			return err
		}
		return s.units.UpdateFields(ctx, tx, orgID, contract.UnitID, map[string]any{
			"status":     unitdomain.StatusOccupied,
			"updated_at": now,
		})
	})
	if err != nil {
		return nil, err
	}

	cloudmetrics.RecordContractActivated(orgID.String())
	s.audit.Record(ctx, alogdomain.Entry{
		OrgID:      orgID,
		Action:     "contract.activated",
		EntityType: "contract",
		EntityID:   contract.ID,
		Details:    map[string]any{"unit_id": contract.UnitID.String()},
	})
	s.publisher.Publish(orgID, realtime.Event{
		Type:       "contract.activated",
		EntityType: "contract",
		EntityID:   contract.ID.String(),
	})

	return s.GetByID(ctx, id)
}

func (s *service) Terminate(ctx context.Context, id string) (*domain.ContractResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	contract, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if contract.Status != domain.StatusActive {
		return nil, domain.ErrNotActive
	}

	now := s.clock.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.UpdateFields(ctx, tx, orgID, contract.ID, map[string]any{
			"status":        domain.StatusTerminated,
			"terminated_at": now,
			"updated_at":    now,
		}); err != nil {
			return err
		}
		return s.units.UpdateFields(ctx, tx, orgID, contract.UnitID, map[string]any{
			"status":     unitdomain.StatusVacant,
			"updated_at": now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, alogdomain.Entry{
		OrgID:      orgID,
		Action:     "contract.terminated",
		EntityType: "contract",
		EntityID:   contract.ID,
		Details:    map[string]any{"unit_id": contract.UnitID.String()},
	})
	s.publisher.Publish(orgID, realtime.Event{
		Type:       "contract.terminated",
		EntityType: "contract",
		EntityID:   contract.ID.String(),
	})

	return s.GetByID(ctx, id)
}

func (s *service) find(ctx context.Context, id string) (*domain.Contract, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}
	contractID, err := parseID(id)
	if err != nil {
		return nil, domain.ErrInvalidContract
	}
	contract, err := s.repo.FindByID(ctx, s.db, orgID, contractID)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, domain.ErrNotFound
	}
	return contract, nil
}

func parseID(raw string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(raw))
}

func toResponse(contract *domain.Contract) *domain.ContractResponse {
	resp := &domain.ContractResponse{
		ID:            contract.ID.String(),
		UnitID:        contract.UnitID.String(),
		TenantID:      contract.TenantID.String(),
		Status:        contract.Status,
		StartDate:     contract.StartDate.Format(dateLayout),
		EndDate:       contract.EndDate.Format(dateLayout),
		RentAmount:    contract.RentAmount,
		DepositAmount: contract.DepositAmount,
		PaymentDueDay: contract.PaymentDueDay,
		Notes:         contract.Notes,
	}
	if contract.TerminatedAt != nil {
		resp.TerminatedAt = contract.TerminatedAt.Format(time.RFC3339)
	}
	return resp
}
