// Package domain contains persistence models for the activity log service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// ActivityLog is an append-only audit record of a tenant-visible action.
type ActivityLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrgID      snowflake.ID      `gorm:"not null;index:ix_activity_logs_org_created,priority:1" json:"org_id"`
	UserID     snowflake.ID      `gorm:"column:user_id" json:"user_id,omitempty"`
	Action     string            `gorm:"type:text;not null" json:"action"`
	EntityType string            `gorm:"column:entity_type;type:text;not null" json:"entity_type"`
	EntityID   snowflake.ID      `gorm:"column:entity_id" json:"entity_id,omitempty"`
	Details    datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"details"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP;index:ix_activity_logs_org_created,priority:2,sort:desc" json:"created_at"`
}

// TableName sets the database table name.
func (ActivityLog) TableName() string { return "activity_logs" }
