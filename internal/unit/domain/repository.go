package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/rentflow/rentflow/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListUnitFilter struct {
	PropertyID snowflake.ID
	Status     string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, unit *Unit) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Unit, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListUnitFilter, page pagination.Pagination) ([]*Unit, error)
	UpdateFields(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, fields map[string]any) error
	Delete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) error
	CountActiveContracts(ctx context.Context, db *gorm.DB, unitID snowflake.ID) (int64, error)
}
