package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rentflow/rentflow/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListContractFilter struct {
	Status   string
	UnitID   snowflake.ID
	TenantID snowflake.ID
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, contract *Contract) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Contract, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListContractFilter, page pagination.Pagination) ([]*Contract, error)
	UpdateFields(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, fields map[string]any) error
	CountActiveByUnit(ctx context.Context, db *gorm.DB, unitID snowflake.ID) (int64, error)

	// ListActive returns every ACTIVE contract across all organizations.
	// Used by the rent generator, which scans the full table.
	ListActive(ctx context.Context, db *gorm.DB) ([]*Contract, error)

	// ExpireDue flips ACTIVE contracts whose end_date is before today to
	// EXPIRED in one bulk update and returns the number of rows changed.
	// now stamps updated_at, today only bounds the comparison.
	ExpireDue(ctx context.Context, db *gorm.DB, today, now time.Time) (int64, error)
}
