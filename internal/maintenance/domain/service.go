package domain

import (
	"context"
	"errors"

	"github.com/rentflow/rentflow/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, req CreateMaintenanceRequest) (*MaintenanceResponse, error)
	GetByID(ctx context.Context, id string) (*MaintenanceResponse, error)
	List(ctx context.Context, req ListMaintenanceRequest) (ListMaintenanceResponse, error)
	Update(ctx context.Context, id string, req UpdateMaintenanceRequest) (*MaintenanceResponse, error)
}

type CreateMaintenanceRequest struct {
	PropertyID  string `json:"property_id"`
	UnitID      string `json:"unit_id"`
	TenantID    string `json:"tenant_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

type UpdateMaintenanceRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Priority    *string  `json:"priority"`
	Status      *string  `json:"status"`
	AssignedTo  *string  `json:"assigned_to"`
	Cost        *float64 `json:"cost"`
}

type ListMaintenanceRequest struct {
	PropertyID string `form:"property_id"`
	UnitID     string `form:"unit_id"`
	Status     string `form:"status"`
	Priority   string `form:"priority"`
	PageToken  string `form:"page_token"`
	PageSize   int    `form:"page_size"`
}

type MaintenanceResponse struct {
	ID          string   `json:"id"`
	PropertyID  string   `json:"property_id"`
	UnitID      string   `json:"unit_id,omitempty"`
	TenantID    string   `json:"tenant_id,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Priority    string   `json:"priority"`
	Status      string   `json:"status"`
	AssignedTo  string   `json:"assigned_to,omitempty"`
	Cost        *float64 `json:"cost,omitempty"`
	ResolvedAt  string   `json:"resolved_at,omitempty"`
	CreatedAt   string   `json:"created_at"`
}

type ListMaintenanceResponse struct {
	Requests []MaintenanceResponse `json:"requests"`
	PageInfo pagination.PageInfo   `json:"page_info"`
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidRequest      = errors.New("invalid_maintenance_request")
	ErrInvalidProperty     = errors.New("invalid_property")
	ErrInvalidUnit         = errors.New("invalid_unit")
	ErrInvalidTenant       = errors.New("invalid_tenant")
	ErrInvalidTitle        = errors.New("invalid_title")
	ErrInvalidPriority     = errors.New("invalid_priority")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrInvalidCost         = errors.New("invalid_cost")
	ErrNotFound            = errors.New("maintenance_request_not_found")
	ErrAlreadyClosed       = errors.New("maintenance_request_closed")
)
