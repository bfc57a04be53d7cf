// Package domain contains persistence models for plans and subscriptions.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	SubStatusActive   = "ACTIVE"
	SubStatusPastDue  = "PAST_DUE"
	SubStatusCanceled = "CANCELED"
	SubStatusTrialing = "TRIALING"
)

// Plan is a global pricing tier. Zero limits mean unlimited.
type Plan struct {
	ID              snowflake.ID      `gorm:"primaryKey" json:"id"`
	Code            string            `gorm:"type:text;not null;uniqueIndex:ux_plans_code" json:"code"`
	Name            string            `gorm:"type:text;not null" json:"name"`
	Description     string            `gorm:"type:text" json:"description,omitempty"`
	Price           float64           `gorm:"type:numeric(12,2);not null;default:0" json:"price"`
	BillingInterval string            `gorm:"column:billing_interval;type:text;not null;default:month" json:"billing_interval"`
	MaxProperties   int               `gorm:"column:max_properties;not null;default:0" json:"max_properties"`
	MaxUnits        int               `gorm:"column:max_units;not null;default:0" json:"max_units"`
	Features        datatypes.JSONMap `gorm:"type:jsonb" json:"features"`
	IsActive        bool              `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt       time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Plan) TableName() string { return "plans" }

// OrgSubscription links an organization to its current plan.
type OrgSubscription struct {
	ID                 snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID              snowflake.ID `gorm:"not null;index:ix_org_subscriptions_org" json:"org_id"`
	PlanID             snowflake.ID `gorm:"column:plan_id;not null" json:"plan_id"`
	Status             string       `gorm:"type:text;not null;default:ACTIVE" json:"status"`
	CurrentPeriodStart *time.Time   `gorm:"column:current_period_start" json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time   `gorm:"column:current_period_end" json:"current_period_end,omitempty"`
	CancelAtPeriodEnd  bool         `gorm:"column:cancel_at_period_end;not null;default:false" json:"cancel_at_period_end"`
	ExternalRef        string       `gorm:"column:external_ref;type:text" json:"external_ref,omitempty"`
	CreatedAt          time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (OrgSubscription) TableName() string { return "org_subscriptions" }
