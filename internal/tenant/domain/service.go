package domain

import (
	"context"
	"errors"

	"github.com/rentflow/rentflow/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, req CreateTenantRequest) (*TenantResponse, error)
	GetByID(ctx context.Context, id string) (*TenantResponse, error)
	List(ctx context.Context, req ListTenantRequest) (ListTenantResponse, error)
	Update(ctx context.Context, id string, req UpdateTenantRequest) (*TenantResponse, error)
	Archive(ctx context.Context, id string) error
}

type CreateTenantRequest struct {
	FirstName        string         `json:"first_name"`
	LastName         string         `json:"last_name"`
	Email            string         `json:"email"`
	Phone            string         `json:"phone"`
	DateOfBirth      string         `json:"date_of_birth"`
	EmergencyContact map[string]any `json:"emergency_contact"`
	Notes            string         `json:"notes"`
}

type UpdateTenantRequest struct {
	FirstName        *string         `json:"first_name"`
	LastName         *string         `json:"last_name"`
	Email            *string         `json:"email"`
	Phone            *string         `json:"phone"`
	DateOfBirth      *string         `json:"date_of_birth"`
	EmergencyContact *map[string]any `json:"emergency_contact"`
	Notes            *string         `json:"notes"`
}

type ListTenantRequest struct {
	Search          string `form:"search"`
	IncludeInactive bool   `form:"include_inactive"`
	PageToken       string `form:"page_token"`
	PageSize        int    `form:"page_size"`
}

type TenantResponse struct {
	ID               string         `json:"id"`
	FirstName        string         `json:"first_name"`
	LastName         string         `json:"last_name"`
	FullName         string         `json:"full_name"`
	Email            string         `json:"email"`
	Phone            string         `json:"phone,omitempty"`
	DateOfBirth      string         `json:"date_of_birth,omitempty"`
	EmergencyContact map[string]any `json:"emergency_contact"`
	Notes            string         `json:"notes,omitempty"`
	IsActive         bool           `json:"is_active"`
}

type ListTenantResponse struct {
	Tenants  []TenantResponse    `json:"tenants"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidTenant       = errors.New("invalid_tenant")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidEmail        = errors.New("invalid_email")
	ErrInvalidDateOfBirth  = errors.New("invalid_date_of_birth")
	ErrDuplicateEmail      = errors.New("duplicate_tenant_email")
	ErrNotFound            = errors.New("tenant_not_found")
	ErrTenantHasContract   = errors.New("tenant_has_active_contract")
)
