// Package domain contains persistence models for the unit service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	StatusVacant      = "VACANT"
	StatusOccupied    = "OCCUPIED"
	StatusMaintenance = "MAINTENANCE"
	StatusUnavailable = "UNAVAILABLE"
)

// Unit represents a rentable unit within a property.
type Unit struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID       snowflake.ID `gorm:"not null;index:ix_units_org" json:"org_id"`
	PropertyID  snowflake.ID `gorm:"column:property_id;not null;uniqueIndex:ux_units_property_number,priority:1" json:"property_id"`
	UnitNumber  string       `gorm:"column:unit_number;type:text;not null;uniqueIndex:ux_units_property_number,priority:2" json:"unit_number"`
	Floor       int          `gorm:"column:floor" json:"floor,omitempty"`
	Bedrooms    int          `gorm:"not null;default:0" json:"bedrooms"`
	Bathrooms   float64      `gorm:"type:numeric(3,1);not null;default:0" json:"bathrooms"`
	SquareFeet  int          `gorm:"column:square_feet" json:"square_feet,omitempty"`
	MarketRent  float64      `gorm:"column:market_rent;type:numeric(12,2);not null;default:0" json:"market_rent"`
	Status      string       `gorm:"type:text;not null;default:VACANT" json:"status"`
	Description string       `gorm:"type:text" json:"description"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Unit) TableName() string { return "units" }

// ValidStatus reports whether st is a known unit status.
func ValidStatus(st string) bool {
	switch st {
	case StatusVacant, StatusOccupied, StatusMaintenance, StatusUnavailable:
		return true
	default:
		return false
	}
}
