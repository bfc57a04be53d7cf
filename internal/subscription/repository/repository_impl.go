package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/rentflow/rentflow/internal/subscription/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertPlan(ctx context.Context, db *gorm.DB, plan *domain.Plan) error {
	return db.WithContext(ctx).Create(plan).Error
}

func (r *repo) FindPlanByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Plan, error) {
	var plan domain.Plan
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Take(&plan).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *repo) FindPlanByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Plan, error) {
	var plan domain.Plan
	err := db.WithContext(ctx).
		Where("code = ?", strings.ToLower(code)).
		Take(&plan).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *repo) ListPlans(ctx context.Context, db *gorm.DB, includeInactive bool) ([]*domain.Plan, error) {
	var plans []*domain.Plan
	stmt := db.WithContext(ctx).Model(&domain.Plan{})
	if !includeInactive {
		stmt = stmt.Where("is_active = ?", true)
	}
	err := stmt.Order("price asc").Find(&plans).Error
	if err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *repo) InsertSubscription(ctx context.Context, db *gorm.DB, sub *domain.OrgSubscription) error {
	return db.WithContext(ctx).Create(sub).Error
}

func (r *repo) FindSubscriptionByOrg(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (*domain.OrgSubscription, error) {
	var sub domain.OrgSubscription
	err := db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("created_at desc").
		Take(&sub).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *repo) UpdateSubscriptionFields(ctx context.Context, db *gorm.DB, orgID snowflake.ID, fields map[string]any) error {
	result := db.WithContext(ctx).
		Model(&domain.OrgSubscription{}).
		Where("org_id = ?", orgID).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNoSubscription
	}
	return nil
}
