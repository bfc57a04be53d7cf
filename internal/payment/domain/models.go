// Package domain contains persistence models for the payment service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	TypeRent        = "RENT"
	TypeDeposit     = "DEPOSIT"
	TypeLateFee     = "LATE_FEE"
	TypeUtility     = "UTILITY"
	TypeMaintenance = "MAINTENANCE"
)

const (
	StatusPending   = "PENDING"
	StatusPaid      = "PAID"
	StatusOverdue   = "OVERDUE"
	StatusPartial   = "PARTIAL"
	StatusCancelled = "CANCELLED"
	StatusRefunded  = "REFUNDED"
)

// Payment is a single charge against a contract. Tenant and organization ids
// are denormalized so listings avoid joins. At most one non-terminal RENT
// payment may exist per contract per calendar month, enforced by
// ux_payments_contract_period.
type Payment struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID       snowflake.ID `gorm:"not null;index:ix_payments_org" json:"org_id"`
	ContractID  snowflake.ID `gorm:"column:contract_id;not null;index:ix_payments_contract" json:"contract_id"`
	TenantID    snowflake.ID `gorm:"column:tenant_id;not null" json:"tenant_id"`
	Type        string       `gorm:"type:text;not null;default:RENT" json:"type"`
	Status      string       `gorm:"type:text;not null;default:PENDING" json:"status"`
	Amount      float64      `gorm:"type:numeric(12,2);not null" json:"amount"`
	PeriodStart *time.Time   `gorm:"column:period_start;type:date" json:"period_start,omitempty"`
	PeriodEnd   *time.Time   `gorm:"column:period_end;type:date" json:"period_end,omitempty"`
	DueDate     time.Time    `gorm:"column:due_date;type:date;not null" json:"due_date"`
	PaidDate    *time.Time   `gorm:"column:paid_date;type:date" json:"paid_date,omitempty"`
	Method      string       `gorm:"type:text" json:"method,omitempty"`
	Reference   string       `gorm:"type:text" json:"reference,omitempty"`
	Notes       string       `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }

// ValidType reports whether t is a known payment type.
func ValidType(t string) bool {
	switch t {
	case TypeRent, TypeDeposit, TypeLateFee, TypeUtility, TypeMaintenance:
		return true
	default:
		return false
	}
}

// ValidStatus reports whether st is a known payment status.
func ValidStatus(st string) bool {
	switch st {
	case StatusPending, StatusPaid, StatusOverdue, StatusPartial, StatusCancelled, StatusRefunded:
		return true
	default:
		return false
	}
}

// Terminal reports whether st excludes a payment from duplicate-period checks.
func Terminal(st string) bool {
	return st == StatusCancelled || st == StatusRefunded
}
