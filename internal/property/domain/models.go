// Package domain contains persistence models for the property service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lib/pq"
)

const (
	TypeApartment  = "APARTMENT"
	TypeHouse      = "HOUSE"
	TypeCondo      = "CONDO"
	TypeCommercial = "COMMERCIAL"
	TypeOther      = "OTHER"
)

// Property represents a building or site with rentable units.
type Property struct {
	ID           snowflake.ID   `gorm:"primaryKey" json:"id"`
	OrgID        snowflake.ID   `gorm:"not null;index:ix_properties_org" json:"org_id"`
	Name         string         `gorm:"type:text;not null" json:"name"`
	Address      string         `gorm:"type:text;not null" json:"address"`
	City         string         `gorm:"type:text" json:"city"`
	State        string         `gorm:"type:text" json:"state"`
	ZipCode      string         `gorm:"column:zip_code;type:text" json:"zip_code"`
	Country      string         `gorm:"type:text" json:"country"`
	PropertyType string         `gorm:"column:property_type;type:text;not null;default:APARTMENT" json:"property_type"`
	YearBuilt    int            `gorm:"column:year_built" json:"year_built,omitempty"`
	Description  string         `gorm:"type:text" json:"description"`
	Amenities    pq.StringArray `gorm:"type:text[];not null;default:'{}'" json:"amenities"`
	IsActive     bool           `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt    time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Property) TableName() string { return "properties" }

// ValidType reports whether t is a known property type.
func ValidType(t string) bool {
	switch t {
	case TypeApartment, TypeHouse, TypeCondo, TypeCommercial, TypeOther:
		return true
	default:
		return false
	}
}
