package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/rentflow/rentflow/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListTenantFilter struct {
	Search          string
	IncludeInactive bool
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, tenant *Tenant) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Tenant, error)
	FindByEmail(ctx context.Context, db *gorm.DB, orgID snowflake.ID, email string) (*Tenant, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListTenantFilter, page pagination.Pagination) ([]*Tenant, error)
	UpdateFields(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, fields map[string]any) error
	CountActiveContracts(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (int64, error)
}
