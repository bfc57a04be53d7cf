// Package domain contains persistence models for the tenant service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Tenant is a person who rents, or has rented, a unit. Email is unique per
// organization, enforced case-insensitively by ux_tenants_org_email.
type Tenant struct {
	ID               snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrgID            snowflake.ID      `gorm:"not null;index:ix_tenants_org" json:"org_id"`
	FirstName        string            `gorm:"column:first_name;type:text;not null" json:"first_name"`
	LastName         string            `gorm:"column:last_name;type:text;not null" json:"last_name"`
	Email            string            `gorm:"type:text;not null" json:"email"`
	Phone            string            `gorm:"type:text" json:"phone,omitempty"`
	DateOfBirth      *time.Time        `gorm:"column:date_of_birth;type:date" json:"date_of_birth,omitempty"`
	EmergencyContact datatypes.JSONMap `gorm:"column:emergency_contact;type:jsonb" json:"emergency_contact"`
	Notes            string            `gorm:"type:text" json:"notes,omitempty"`
	IsActive         bool              `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt        time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Tenant) TableName() string { return "tenants" }

// FullName joins first and last name for display.
func (t Tenant) FullName() string {
	if t.FirstName == "" {
		return t.LastName
	}
	if t.LastName == "" {
		return t.FirstName
	}
	return t.FirstName + " " + t.LastName
}
