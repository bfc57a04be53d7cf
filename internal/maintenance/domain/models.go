// Package domain contains persistence models for the maintenance service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	PriorityLow    = "LOW"
	PriorityMedium = "MEDIUM"
	PriorityHigh   = "HIGH"
	PriorityUrgent = "URGENT"
)

const (
	StatusOpen       = "OPEN"
	StatusInProgress = "IN_PROGRESS"
	StatusResolved   = "RESOLVED"
	StatusCancelled  = "CANCELLED"
)

// MaintenanceRequest tracks repair work against a property. Unit and tenant
// are optional, building-wide issues carry neither.
type MaintenanceRequest struct {
	ID          snowflake.ID  `gorm:"primaryKey" json:"id"`
	OrgID       snowflake.ID  `gorm:"not null;index:ix_maintenance_requests_org_status,priority:1" json:"org_id"`
	PropertyID  snowflake.ID  `gorm:"column:property_id;not null" json:"property_id"`
	UnitID      *snowflake.ID `gorm:"column:unit_id" json:"unit_id,omitempty"`
	TenantID    *snowflake.ID `gorm:"column:tenant_id" json:"tenant_id,omitempty"`
	Title       string        `gorm:"type:text;not null" json:"title"`
	Description string        `gorm:"type:text" json:"description,omitempty"`
	Priority    string        `gorm:"type:text;not null;default:MEDIUM" json:"priority"`
	Status      string        `gorm:"type:text;not null;default:OPEN;index:ix_maintenance_requests_org_status,priority:2" json:"status"`
	AssignedTo  string        `gorm:"column:assigned_to;type:text" json:"assigned_to,omitempty"`
	Cost        *float64      `gorm:"type:numeric(12,2)" json:"cost,omitempty"`
	ResolvedAt  *time.Time    `gorm:"column:resolved_at" json:"resolved_at,omitempty"`
	CreatedAt   time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (MaintenanceRequest) TableName() string { return "maintenance_requests" }

// ValidPriority reports whether p is a known priority.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

// ValidStatus reports whether st is a known request status.
func ValidStatus(st string) bool {
	switch st {
	case StatusOpen, StatusInProgress, StatusResolved, StatusCancelled:
		return true
	default:
		return false
	}
}
