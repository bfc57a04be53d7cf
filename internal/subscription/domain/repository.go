package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertPlan(ctx context.Context, db *gorm.DB, plan *Plan) error
	FindPlanByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Plan, error)
	FindPlanByCode(ctx context.Context, db *gorm.DB, code string) (*Plan, error)
	ListPlans(ctx context.Context, db *gorm.DB, includeInactive bool) ([]*Plan, error)

	InsertSubscription(ctx context.Context, db *gorm.DB, sub *OrgSubscription) error
	FindSubscriptionByOrg(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (*OrgSubscription, error)
	UpdateSubscriptionFields(ctx context.Context, db *gorm.DB, orgID snowflake.ID, fields map[string]any) error
}
