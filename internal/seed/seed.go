package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/rentflow/rentflow/internal/auth/domain"
	"github.com/rentflow/rentflow/internal/auth/password"
	organizationdomain "github.com/rentflow/rentflow/internal/organization/domain"
	orgservice "github.com/rentflow/rentflow/internal/organization/service"
	subscriptiondomain "github.com/rentflow/rentflow/internal/subscription/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultOrgName       = "Main"
	defaultOrgSlug       = "main"
	defaultAdminEmail    = "admin@rentflow.local"
	defaultAdminPassword = "admin"
)

// EnsureDefaultOrgAndAdmin seeds the default organization, the super-admin
// user and its OWNER membership, and the built-in plans. Safe to run on every
// startup, existing rows are left alone.
func EnsureDefaultOrgAndAdmin(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		org, err := ensureDefaultOrgTx(ctx, tx, node)
		if err != nil {
			return err
		}

		var user authdomain.User
		err = tx.WithContext(ctx).
			Where("lower(email) = ?", defaultAdminEmail).
			First(&user).Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			hashed, err := password.Hash(defaultAdminPassword)
			if err != nil {
				return err
			}
			now := time.Now().UTC()
			user = authdomain.User{
				ID:           node.Generate(),
				Email:        strings.ToLower(defaultAdminEmail),
				PasswordHash: hashed,
				FirstName:    "RentFlow",
				LastName:     "Admin",
				IsSuperAdmin: true,
				IsActive:     true,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := tx.WithContext(ctx).Create(&user).Error; err != nil {
				return err
			}
		}

		var member organizationdomain.OrganizationMember
		err = tx.WithContext(ctx).
			Where("org_id = ? AND user_id = ?", org.ID, user.ID).
			First(&member).Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			now := time.Now().UTC()
			member = organizationdomain.OrganizationMember{
				ID:        node.Generate(),
				OrgID:     org.ID,
				UserID:    user.ID,
				Role:      organizationdomain.RoleOwner,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := tx.WithContext(ctx).Create(&member).Error; err != nil {
				return err
			}
		}

		return ensureDefaultPlans(ctx, tx, node)
	})
}

func ensureDefaultOrgTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) (organizationdomain.Organization, error) {
	var org organizationdomain.Organization
	err := tx.WithContext(ctx).Where("slug = ?", defaultOrgSlug).First(&org).Error
	if err == nil {
		return org, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return org, err
	}
	now := time.Now().UTC()
	org = organizationdomain.Organization{
		ID:        node.Generate(),
		Name:      defaultOrgName,
		Slug:      defaultOrgSlug,
		Settings:  orgservice.DefaultSettings(),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(&org).Error; err != nil {
		return org, err
	}
	return org, nil
}

func ensureDefaultPlans(ctx context.Context, tx *gorm.DB, node *snowflake.Node) error {
	plans := []subscriptiondomain.Plan{
		{
			Code:            "free",
			Name:            "Free",
			Description:     "For individual landlords getting started.",
			Price:           0,
			BillingInterval: "month",
			MaxProperties:   1,
			MaxUnits:        5,
			Features:        datatypes.JSONMap{"reports": false, "realtime": true},
		},
		{
			Code:            "pro",
			Name:            "Pro",
			Description:     "For growing property managers.",
			Price:           49,
			BillingInterval: "month",
			MaxProperties:   20,
			MaxUnits:        200,
			Features:        datatypes.JSONMap{"reports": true, "realtime": true},
		},
		{
			Code:            "business",
			Name:            "Business",
			Description:     "Unlimited portfolio, priority support.",
			Price:           199,
			BillingInterval: "month",
			Features:        datatypes.JSONMap{"reports": true, "realtime": true, "priority_support": true},
		},
	}

	now := time.Now().UTC()
	for _, plan := range plans {
		var existing subscriptiondomain.Plan
		err := tx.WithContext(ctx).Where("code = ?", plan.Code).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		plan.ID = node.Generate()
		plan.IsActive = true
		plan.CreatedAt = now
		plan.UpdatedAt = now
		if err := tx.WithContext(ctx).Create(&plan).Error; err != nil {
			return err
		}
	}
	return nil
}
