package domain

import (
	"context"
	"errors"
	"time"

	"github.com/rentflow/rentflow/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, req CreatePaymentRequest) (*PaymentResponse, error)
	GetByID(ctx context.Context, id string) (*PaymentResponse, error)
	List(ctx context.Context, req ListPaymentRequest) (ListPaymentResponse, error)

	// MarkPaid settles a PENDING, OVERDUE or PARTIAL payment.
	MarkPaid(ctx context.Context, id string, req MarkPaidRequest) (*PaymentResponse, error)
	Cancel(ctx context.Context, id string) (*PaymentResponse, error)
	Refund(ctx context.Context, id string) (*PaymentResponse, error)
}

// Generator back-fills PENDING RENT payments for every ACTIVE contract, one
// per calendar month from the contract start through today, bounded by the
// contract end date. Months already holding a non-terminal payment are
// skipped. Runs across all organizations.
type Generator interface {
	GenerateRent(ctx context.Context, today time.Time) (int64, error)
}

type CreatePaymentRequest struct {
	ContractID  string  `json:"contract_id"`
	Type        string  `json:"type"`
	Amount      float64 `json:"amount"`
	DueDate     string  `json:"due_date"`
	PeriodStart string  `json:"period_start"`
	PeriodEnd   string  `json:"period_end"`
	Notes       string  `json:"notes"`
}

type MarkPaidRequest struct {
	PaidDate  string `json:"paid_date"`
	Method    string `json:"method"`
	Reference string `json:"reference"`
}

type ListPaymentRequest struct {
	ContractID string `form:"contract_id"`
	TenantID   string `form:"tenant_id"`
	Type       string `form:"type"`
	Status     string `form:"status"`
	PageToken  string `form:"page_token"`
	PageSize   int    `form:"page_size"`
}

type PaymentResponse struct {
	ID          string  `json:"id"`
	ContractID  string  `json:"contract_id"`
	TenantID    string  `json:"tenant_id"`
	Type        string  `json:"type"`
	Status      string  `json:"status"`
	Amount      float64 `json:"amount"`
	PeriodStart string  `json:"period_start,omitempty"`
	PeriodEnd   string  `json:"period_end,omitempty"`
	DueDate     string  `json:"due_date"`
	PaidDate    string  `json:"paid_date,omitempty"`
	Method      string  `json:"method,omitempty"`
	Reference   string  `json:"reference,omitempty"`
	Notes       string  `json:"notes,omitempty"`
}

type ListPaymentResponse struct {
	Payments []PaymentResponse   `json:"payments"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidPayment      = errors.New("invalid_payment")
	ErrInvalidContract     = errors.New("invalid_contract")
	ErrInvalidTenant       = errors.New("invalid_tenant")
	ErrInvalidType         = errors.New("invalid_payment_type")
	ErrInvalidStatus       = errors.New("invalid_payment_status")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidDates        = errors.New("invalid_payment_dates")
	ErrDuplicatePeriod     = errors.New("duplicate_payment_period")
	ErrNotFound            = errors.New("payment_not_found")
	ErrNotSettleable       = errors.New("payment_not_settleable")
	ErrNotRefundable       = errors.New("payment_not_refundable")
	ErrAlreadyTerminal     = errors.New("payment_already_terminal")
)
