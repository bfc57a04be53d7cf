package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	alogdomain "github.com/rentflow/rentflow/internal/activitylog/domain"
	"github.com/rentflow/rentflow/internal/clock"
	"github.com/rentflow/rentflow/internal/cloudmetrics"
	contractdomain "github.com/rentflow/rentflow/internal/contract/domain"
	"github.com/rentflow/rentflow/internal/orgcontext"
	"github.com/rentflow/rentflow/internal/payment/domain"
	"github.com/rentflow/rentflow/internal/realtime"
	"github.com/rentflow/rentflow/pkg/db"
	"github.com/rentflow/rentflow/pkg/db/pagination"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

type service struct {
	db        *gorm.DB
	repo      domain.Repository
	contracts contractdomain.Repository
	clock     clock.Clock
	genID     *snowflake.Node
	audit     alogdomain.Recorder
	publisher realtime.Publisher
}

func New(conn *gorm.DB, repo domain.Repository, contracts contractdomain.Repository, clk clock.Clock, genID *snowflake.Node, audit alogdomain.Recorder, publisher realtime.Publisher) domain.Service {
	return &service{
		db:        conn,
		repo:      repo,
		contracts: contracts,
		clock:     clk,
		genID:     genID,
		audit:     audit,
		publisher: publisher,
	}
}

func (s *service) Create(ctx context.Context, req domain.CreatePaymentRequest) (*domain.PaymentResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	contractID, err := parseID(req.ContractID)
	if err != nil {
		return nil, domain.ErrInvalidContract
	}
	paymentType := strings.ToUpper(strings.TrimSpace(req.Type))
	if paymentType == "" {
		paymentType = domain.TypeRent
	}
	if !domain.ValidType(paymentType) {
		return nil, domain.ErrInvalidType
	}
	if req.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	dueDate, err := time.Parse(dateLayout, strings.TrimSpace(req.DueDate))
	if err != nil {
		return nil, domain.ErrInvalidDates
	}

	var periodStart, periodEnd *time.Time
	if raw := strings.TrimSpace(req.PeriodStart); raw != "" {
		start, err := time.Parse(dateLayout, raw)
		if err != nil {
			return nil, domain.ErrInvalidDates
		}
		periodStart = &start
	}
	if raw := strings.TrimSpace(req.PeriodEnd); raw != "" {
		end, err := time.Parse(dateLayout, raw)
		if err != nil {
			return nil, domain.ErrInvalidDates
		}
		periodEnd = &end
	}
	if periodStart != nil && periodEnd != nil && periodEnd.Before(*periodStart) {
		return nil, domain.ErrInvalidDates
	}
	if paymentType == domain.TypeRent && periodStart == nil {
		return nil, domain.ErrInvalidDates
	}

	contract, err := s.contracts.FindByID(ctx, s.db, orgID, contractID)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, domain.ErrInvalidContract
	}

	now := s.clock.Now()
	payment := domain.Payment{
		ID:          s.genID.Generate(),
		OrgID:       orgID,
		ContractID:  contractID,
		TenantID:    contract.TenantID,
		Type:        paymentType,
		Status:      domain.StatusPending,
		Amount:      req.Amount,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		DueDate:     dueDate,
		Notes:       strings.TrimSpace(req.Notes),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Insert(ctx, s.db, &payment); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicatePeriod
		}
		if db.IsForeignKeyErr(err) {
			return nil, domain.ErrInvalidContract
		}
		return nil, err
	}

	s.audit.Record(ctx, alogdomain.Entry{
		OrgID:      orgID,
		Action:     "payment.created",
		EntityType: "payment",
		EntityID:   payment.ID,
		Details:    map[string]any{"type": payment.Type, "amount": payment.Amount},
	})
	s.publisher.Publish(orgID, realtime.Event{
		Type:       "payment.created",
		EntityType: "payment",
		EntityID:   payment.ID.String(),
	})

	return toResponse(&payment), nil
}

func (s *service) GetByID(ctx context.Context, id string) (*domain.PaymentResponse, error) {
	payment, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return toResponse(payment), nil
}

func (s *service) List(ctx context.Context, req domain.ListPaymentRequest) (domain.ListPaymentResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ListPaymentResponse{}, domain.ErrInvalidOrganization
	}

	filter := domain.ListPaymentFilter{
		Type:   strings.ToUpper(strings.TrimSpace(req.Type)),
		Status: strings.ToUpper(strings.TrimSpace(req.Status)),
	}
	if filter.Type != "" && !domain.ValidType(filter.Type) {
		return domain.ListPaymentResponse{}, domain.ErrInvalidType
	}
	if filter.Status != "" && !domain.ValidStatus(filter.Status) {
		return domain.ListPaymentResponse{}, domain.ErrInvalidStatus
	}
	if raw := strings.TrimSpace(req.ContractID); raw != "" {
		contractID, err := parseID(raw)
		if err != nil {
			return domain.ListPaymentResponse{}, domain.ErrInvalidContract
		}
		filter.ContractID = contractID
	}
	if raw := strings.TrimSpace(req.TenantID); raw != "" {
		tenantID, err := parseID(raw)
		if err != nil {
			return domain.ListPaymentResponse{}, domain.ErrInvalidTenant
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
		return domain.ListPaymentResponse{}, err
	}

	items, pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(payment *domain.Payment) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        payment.ID.String(),
			CreatedAt: payment.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})

	resp := domain.ListPaymentResponse{
		Payments: make([]domain.PaymentResponse, 0, len(items)),
	}
	for _, item := range items {
		resp.Payments = append(resp.Payments, *toResponse(item))
	}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *service) MarkPaid(ctx context.Context, id string, req domain.MarkPaidRequest) (*domain.PaymentResponse, error) {
	orgID, _ := orgcontext.OrgIDFromContext(ctx)
	payment, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	switch payment.Status {
	case domain.StatusPending, domain.StatusOverdue, domain.StatusPartial:
	default:
		return nil, domain.ErrNotSettleable
	}

	paidDate := s.clock.Now()
	if raw := strings.TrimSpace(req.PaidDate); raw != "" {
		paidDate, err = time.Parse(dateLayout, raw)
		if err != nil {
			return nil, domain.ErrInvalidDates
		}
	}

	err = s.repo.UpdateFields(ctx, s.db, orgID, payment.ID, map[string]any{
		"status":     domain.StatusPaid,
		"paid_date":  paidDate,
		"method":     strings.TrimSpace(req.Method),
		"reference":  strings.TrimSpace(req.Reference),
		"updated_at": s.clock.Now(),
	})
	if err != nil {
		return nil, err
	}

	cloudmetrics.RecordPaymentRecorded(orgID.String(), payment.Type)
	s.audit.Record(ctx, alogdomain.Entry{
		OrgID:      orgID,
		Action:     "payment.paid",
		EntityType: "payment",
		EntityID:   payment.ID,
		Details:    map[string]any{"amount": payment.Amount},
	})
	s.publisher.Publish(orgID, realtime.Event{
		Type:       "payment.paid",
		EntityType: "payment",
		EntityID:   payment.ID.String(),
	})

	return s.GetByID(ctx, id)
}

func (s *service) Cancel(ctx context.Context, id string) (*domain.PaymentResponse, error) {
	return s.toTerminal(ctx, id, domain.StatusCancelled, "payment.cancelled")
}

func (s *service) Refund(ctx context.Context, id string) (*domain.PaymentResponse, error) {
	payment, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment.Status != domain.StatusPaid && payment.Status != domain.StatusPartial {
		return nil, domain.ErrNotRefundable
	}
	return s.terminalUpdate(ctx, payment, domain.StatusRefunded, "payment.refunded")
}

func (s *service) toTerminal(ctx context.Context, id, status, action string) (*domain.PaymentResponse, error) {
	payment, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if domain.Terminal(payment.Status) {
		return nil, domain.ErrAlreadyTerminal
	}
	return s.terminalUpdate(ctx, payment, status, action)
}

func (s *service) terminalUpdate(ctx context.Context, payment *domain.Payment, status, action string) (*domain.PaymentResponse, error) {
	orgID, _ := orgcontext.OrgIDFromContext(ctx)
	err := s.repo.UpdateFields(ctx, s.db, orgID, payment.ID, map[string]any{
		"status":     status,
		"updated_at": s.clock.Now(),
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, alogdomain.Entry{
		OrgID:      orgID,
		Action:     action,
		EntityType: "payment",
		EntityID:   payment.ID,
	})
	s.publisher.Publish(orgID, realtime.Event{
		Type:       action,
		EntityType: "payment",
		EntityID:   payment.ID.String(),
	})

	return s.GetByID(ctx, payment.ID.String())
}

func (s *service) find(ctx context.Context, id string) (*domain.Payment, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}
	paymentID, err := parseID(id)
	if err != nil {
		return nil, domain.ErrInvalidPayment
	}
	payment, err := s.repo.FindByID(ctx, s.db, orgID, paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, domain.ErrNotFound
	}
	return payment, nil
}

func parseID(raw string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(raw))
}

func toResponse(payment *domain.Payment) *domain.PaymentResponse {
	resp := &domain.PaymentResponse{
		ID:         payment.ID.String(),
		ContractID: payment.ContractID.String(),
		TenantID:   payment.TenantID.String(),
		Type:       payment.Type,
		Status:     payment.Status,
		Amount:     payment.Amount,
		DueDate:    payment.DueDate.Format(dateLayout),
		Method:     payment.Method,
		Reference:  payment.Reference,
		Notes:      payment.Notes,
	}
	if payment.PeriodStart != nil {
		resp.PeriodStart = payment.PeriodStart.Format(dateLayout)
	}
	if payment.PeriodEnd != nil {
		resp.PeriodEnd = payment.PeriodEnd.Format(dateLayout)
	}
	if payment.PaidDate != nil {
		resp.PaidDate = payment.PaidDate.Format(dateLayout)
	}
	return resp
}
