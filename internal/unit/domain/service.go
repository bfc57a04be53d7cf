package domain

import (
	"context"
	"errors"

	"github.com/rentflow/rentflow/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, req CreateUnitRequest) (*UnitResponse, error)
	GetByID(ctx context.Context, id string) (*UnitResponse, error)
	List(ctx context.Context, req ListUnitRequest) (ListUnitResponse, error)
	Update(ctx context.Context, id string, req UpdateUnitRequest) (*UnitResponse, error)
	Delete(ctx context.Context, id string) error
}

type CreateUnitRequest struct {
	PropertyID  string  `json:"property_id"`
	UnitNumber  string  `json:"unit_number"`
	Floor       int     `json:"floor"`
	Bedrooms    int     `json:"bedrooms"`
	Bathrooms   float64 `json:"bathrooms"`
	SquareFeet  int     `json:"square_feet"`
	MarketRent  float64 `json:"market_rent"`
	Description string  `json:"description"`
}

type UpdateUnitRequest struct {
	UnitNumber  *string  `json:"unit_number"`
	Floor       *int     `json:"floor"`
	Bedrooms    *int     `json:"bedrooms"`
	Bathrooms   *float64 `json:"bathrooms"`
	SquareFeet  *int     `json:"square_feet"`
	MarketRent  *float64 `json:"market_rent"`
	Status      *string  `json:"status"`
	Description *string  `json:"description"`
}

type ListUnitRequest struct {
	PropertyID string `form:"property_id"`
	Status     string `form:"status"`
	PageToken  string `form:"page_token"`
	PageSize   int    `form:"page_size"`
}

type UnitResponse struct {
	ID          string  `json:"id"`
	PropertyID  string  `json:"property_id"`
	UnitNumber  string  `json:"unit_number"`
	Floor       int     `json:"floor,omitempty"`
	Bedrooms    int     `json:"bedrooms"`
	Bathrooms   float64 `json:"bathrooms"`
	SquareFeet  int     `json:"square_feet,omitempty"`
	MarketRent  float64 `json:"market_rent"`
	Status      string  `json:"status"`
	Description string  `json:"description"`
}

type ListUnitResponse struct {
	Units    []UnitResponse      `json:"units"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidProperty     = errors.New("invalid_property")
	ErrInvalidUnit         = errors.New("invalid_unit")
	ErrInvalidUnitNumber   = errors.New("invalid_unit_number")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrInvalidRent         = errors.New("invalid_rent")
	ErrDuplicateUnitNumber = errors.New("duplicate_unit_number")
	ErrNotFound            = errors.New("unit_not_found")
	ErrUnitOccupied        = errors.New("unit_has_active_contract")
)
