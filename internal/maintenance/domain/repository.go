package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/rentflow/rentflow/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListMaintenanceFilter struct {
	PropertyID snowflake.ID
	UnitID     snowflake.ID
	Status     string
	Priority   string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, req *MaintenanceRequest) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*MaintenanceRequest, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListMaintenanceFilter, page pagination.Pagination) ([]*MaintenanceRequest, error)
	UpdateFields(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, fields map[string]any) error
	CountByStatus(ctx context.Context, db *gorm.DB, orgID snowflake.ID, status string) (int64, error)
}
