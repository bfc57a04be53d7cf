package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/rentflow/rentflow/internal/property/domain"
	"github.com/rentflow/rentflow/pkg/db/option"
	"github.com/rentflow/rentflow/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, property *domain.Property) error {
	return db.WithContext(ctx).Create(property).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Property, error) {
	var property domain.Property
	err := db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		Take(&property).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &property, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.ListPropertyFilter, page pagination.Pagination) ([]*domain.Property, error) {
	var properties []*domain.Property
	stmt := db.WithContext(ctx).
		Model(&domain.Property{}).
		Where("org_id = ?", orgID)
	if !filter.IncludeInactive {
		stmt = stmt.Where("is_active = ?", true)
	}
	if filter.City != "" {
		stmt = stmt.Where("city = ?", filter.City)
	}
	if filter.PropertyType != "" {
		stmt = stmt.Where("property_type = ?", filter.PropertyType)
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		stmt = stmt.Where("lower(name) LIKE ? OR lower(address) LIKE ?", like, like)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&properties).Error
	if err != nil {
		return nil, err
	}
	return properties, nil
}

func (r *repo) UpdateFields(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, fields map[string]any) error {
	result := db.WithContext(ctx).
		Model(&domain.Property{}).
		Where("org_id = ? AND id = ?", orgID, id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repo) CountActive(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Property{}).
		Where("org_id = ? AND is_active = ?", orgID, true).
		Count(&count).Error
	return count, err
}

func (r *repo) CountActiveContracts(ctx context.Context, db *gorm.DB, orgID, propertyID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Table("contracts").
		Joins("JOIN units ON units.id = contracts.unit_id").
		Where("units.org_id = ? AND units.property_id = ? AND contracts.status = ?", orgID, propertyID, "ACTIVE").
		Count(&count).Error
	return count, err
}

func (r *repo) UnitCounts(ctx context.Context, db *gorm.DB, orgID snowflake.ID, propertyIDs []snowflake.ID) ([]domain.UnitCount, error) {
	if len(propertyIDs) == 0 {
		return nil, nil
	}
	var counts []domain.UnitCount
	err := db.WithContext(ctx).Raw(
		`SELECT property_id,
		        COUNT(*) AS total,
		        COUNT(*) FILTER (WHERE status = 'OCCUPIED') AS occupied
		 FROM units
		 WHERE org_id = ? AND property_id IN ?
		 GROUP BY property_id`,
		orgID,
		propertyIDs,
	).Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}
