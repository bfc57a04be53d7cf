package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/rentflow/rentflow/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListPaymentFilter struct {
	ContractID snowflake.ID
	TenantID   snowflake.ID
	Type       string
	Status     string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Payment, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListPaymentFilter, page pagination.Pagination) ([]*Payment, error)
	UpdateFields(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, fields map[string]any) error

	// ListRentByContracts returns every RENT payment for the given contracts
	// regardless of status. The generator filters terminal rows itself.
	ListRentByContracts(ctx context.Context, db *gorm.DB, contractIDs []snowflake.ID) ([]*Payment, error)

	// BulkInsert writes the batch in one statement, skipping rows that
	// collide with the per-period unique index.
	BulkInsert(ctx context.Context, db *gorm.DB, payments []*Payment) (int64, error)
}
