// Package domain contains persistence models for the contract service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	StatusDraft      = "DRAFT"
	StatusActive     = "ACTIVE"
	StatusExpired    = "EXPIRED"
	StatusTerminated = "TERMINATED"
)

// Contract binds a tenant to a unit for a rental period. Only ACTIVE
// contracts generate rent payments, and end_date drives automatic expiry.
type Contract struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID         snowflake.ID `gorm:"not null;index:ix_contracts_org_status,priority:1" json:"org_id"`
	UnitID        snowflake.ID `gorm:"column:unit_id;not null" json:"unit_id"`
	TenantID      snowflake.ID `gorm:"column:tenant_id;not null" json:"tenant_id"`
	Status        string       `gorm:"type:text;not null;default:DRAFT;index:ix_contracts_org_status,priority:2" json:"status"`
	StartDate     time.Time    `gorm:"column:start_date;type:date;not null" json:"start_date"`
	EndDate       time.Time    `gorm:"column:end_date;type:date;not null" json:"end_date"`
	RentAmount    float64      `gorm:"column:rent_amount;type:numeric(12,2);not null" json:"rent_amount"`
	DepositAmount float64      `gorm:"column:deposit_amount;type:numeric(12,2);not null;default:0" json:"deposit_amount"`
	PaymentDueDay int          `gorm:"column:payment_due_day;not null;default:1" json:"payment_due_day"`
	Notes         string       `gorm:"type:text" json:"notes,omitempty"`
	TerminatedAt  *time.Time   `gorm:"column:terminated_at" json:"terminated_at,omitempty"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Contract) TableName() string { return "contracts" }

// ValidStatus reports whether st is a known contract status.
func ValidStatus(st string) bool {
	switch st {
	case StatusDraft, StatusActive, StatusExpired, StatusTerminated:
		return true
	default:
		return false
	}
}
