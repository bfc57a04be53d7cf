package migration

import (
	activitylogdomain "github.com/rentflow/rentflow/internal/activitylog/domain"
	authdomain "github.com/rentflow/rentflow/internal/auth/domain"
	"github.com/rentflow/rentflow/internal/config"
	contractdomain "github.com/rentflow/rentflow/internal/contract/domain"
	maintenancedomain "github.com/rentflow/rentflow/internal/maintenance/domain"
	organizationdomain "github.com/rentflow/rentflow/internal/organization/domain"
	paymentdomain "github.com/rentflow/rentflow/internal/payment/domain"
	propertydomain "github.com/rentflow/rentflow/internal/property/domain"
	"github.com/rentflow/rentflow/internal/seed"
	subscriptiondomain "github.com/rentflow/rentflow/internal/subscription/domain"
	tenantdomain "github.com/rentflow/rentflow/internal/tenant/domain"
	unitdomain "github.com/rentflow/rentflow/internal/unit/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// Versioned SQL is written for postgres. Other dialects, used
			// for local work and tests, get the schema from the models.
			if err := conn.AutoMigrate(
				&organizationdomain.Organization{},
				&organizationdomain.OrganizationMember{},
				&authdomain.User{},
				&subscriptiondomain.Plan{},
				&subscriptiondomain.OrgSubscription{},
				&propertydomain.Property{},
				&unitdomain.Unit{},
				&tenantdomain.Tenant{},
				&contractdomain.Contract{},
				&paymentdomain.Payment{},
				&maintenancedomain.MaintenanceRequest{},
				&activitylogdomain.ActivityLog{},
			); err != nil {
				return err
			}
		}

		if cfg.BootstrapDefaultOrg {
			return seed.EnsureDefaultOrgAndAdmin(conn)
		}
		return nil
	}),
)
