package domain

import (
	"context"
	"errors"

	"github.com/rentflow/rentflow/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, req CreateContractRequest) (*ContractResponse, error)
	GetByID(ctx context.Context, id string) (*ContractResponse, error)
	List(ctx context.Context, req ListContractRequest) (ListContractResponse, error)
	Update(ctx context.Context, id string, req UpdateContractRequest) (*ContractResponse, error)

	// Activate moves a DRAFT contract to ACTIVE and marks its unit OCCUPIED.
	// Fails when the unit already has another ACTIVE contract.
	Activate(ctx context.Context, id string) (*ContractResponse, error)

	// Terminate ends an ACTIVE contract early and frees its unit.
	Terminate(ctx context.Context, id string) (*ContractResponse, error)
}

type CreateContractRequest struct {
	UnitID        string  `json:"unit_id"`
	TenantID      string  `json:"tenant_id"`
	StartDate     string  `json:"start_date"`
	EndDate       string  `json:"end_date"`
	RentAmount    float64 `json:"rent_amount"`
	DepositAmount float64 `json:"deposit_amount"`
	PaymentDueDay int     `json:"payment_due_day"`
	Notes         string  `json:"notes"`
}

type UpdateContractRequest struct {
	StartDate     *string  `json:"start_date"`
	EndDate       *string  `json:"end_date"`
	RentAmount    *float64 `json:"rent_amount"`
	DepositAmount *float64 `json:"deposit_amount"`
	PaymentDueDay *int     `json:"payment_due_day"`
	Notes         *string  `json:"notes"`
}

type ListContractRequest struct {
	Status    string `form:"status"`
	UnitID    string `form:"unit_id"`
	TenantID  string `form:"tenant_id"`
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
}

type ContractResponse struct {
	ID            string  `json:"id"`
	UnitID        string  `json:"unit_id"`
	TenantID      string  `json:"tenant_id"`
	Status        string  `json:"status"`
	StartDate     string  `json:"start_date"`
	EndDate       string  `json:"end_date"`
	RentAmount    float64 `json:"rent_amount"`
	DepositAmount float64 `json:"deposit_amount"`
	PaymentDueDay int     `json:"payment_due_day"`
	Notes         string  `json:"notes,omitempty"`
	TerminatedAt  string  `json:"terminated_at,omitempty"`
}

type ListContractResponse struct {
	Contracts []ContractResponse  `json:"contracts"`
	PageInfo  pagination.PageInfo `json:"page_info"`
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidContract     = errors.New("invalid_contract")
	ErrInvalidUnit         = errors.New("invalid_unit")
	ErrInvalidTenant       = errors.New("invalid_tenant")
	ErrInvalidDates        = errors.New("invalid_contract_dates")
	ErrInvalidRent         = errors.New("invalid_rent_amount")
	ErrInvalidDueDay       = errors.New("invalid_payment_due_day")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrNotFound            = errors.New("contract_not_found")
	ErrNotDraft            = errors.New("contract_not_draft")
	ErrNotActive           = errors.New("contract_not_active")
	ErrUnitOccupied        = errors.New("unit_has_active_contract")
)
