package domain

import (
	"context"
	"errors"

	"github.com/rentflow/rentflow/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, req CreatePropertyRequest) (*PropertyResponse, error)
	GetByID(ctx context.Context, id string) (*PropertyResponse, error)
	List(ctx context.Context, req ListPropertyRequest) (ListPropertyResponse, error)
	Update(ctx context.Context, id string, req UpdatePropertyRequest) (*PropertyResponse, error)
	Archive(ctx context.Context, id string) error
}

type CreatePropertyRequest struct {
	Name         string   `json:"name"`
	Address      string   `json:"address"`
	City         string   `json:"city"`
	State        string   `json:"state"`
	ZipCode      string   `json:"zip_code"`
	Country      string   `json:"country"`
	PropertyType string   `json:"property_type"`
	YearBuilt    int      `json:"year_built"`
	Description  string   `json:"description"`
	Amenities    []string `json:"amenities"`
}

type UpdatePropertyRequest struct {
	Name         *string   `json:"name"`
	Address      *string   `json:"address"`
	City         *string   `json:"city"`
	State        *string   `json:"state"`
	ZipCode      *string   `json:"zip_code"`
	Country      *string   `json:"country"`
	PropertyType *string   `json:"property_type"`
	YearBuilt    *int      `json:"year_built"`
	Description  *string   `json:"description"`
	Amenities    *[]string `json:"amenities"`
}

type ListPropertyRequest struct {
	City            string `form:"city"`
	PropertyType    string `form:"property_type"`
	Search          string `form:"search"`
	IncludeInactive bool   `form:"include_inactive"`
	PageToken       string `form:"page_token"`
	PageSize        int    `form:"page_size"`
}

type PropertyResponse struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Address       string   `json:"address"`
	City          string   `json:"city"`
	State         string   `json:"state"`
	ZipCode       string   `json:"zip_code"`
	Country       string   `json:"country"`
	PropertyType  string   `json:"property_type"`
	YearBuilt     int      `json:"year_built,omitempty"`
	Description   string   `json:"description"`
	Amenities     []string `json:"amenities"`
	IsActive      bool     `json:"is_active"`
	TotalUnits    int64    `json:"total_units"`
	OccupiedUnits int64    `json:"occupied_units"`
}

type ListPropertyResponse struct {
	Properties []PropertyResponse  `json:"properties"`
	PageInfo   pagination.PageInfo `json:"page_info"`
}

var (
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidAddress      = errors.New("invalid_address")
	ErrInvalidType         = errors.New("invalid_property_type")
	ErrInvalidProperty     = errors.New("invalid_property")
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrNotFound            = errors.New("property_not_found")
	ErrHasActiveContract   = errors.New("property_has_active_contract")
)
