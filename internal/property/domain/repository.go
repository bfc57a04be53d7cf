package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/rentflow/rentflow/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListPropertyFilter struct {
	City            string
	PropertyType    string
	Search          string
	IncludeInactive bool
}

// UnitCount pairs a property with its unit occupancy tallies.
type UnitCount struct {
	PropertyID snowflake.ID
	Total      int64
	Occupied   int64
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, property *Property) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Property, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListPropertyFilter, page pagination.Pagination) ([]*Property, error)
	UpdateFields(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, fields map[string]any) error
	CountActive(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (int64, error)
	CountActiveContracts(ctx context.Context, db *gorm.DB, orgID, propertyID snowflake.ID) (int64, error)
	UnitCounts(ctx context.Context, db *gorm.DB, orgID snowflake.ID, propertyIDs []snowflake.ID) ([]UnitCount, error)
}
