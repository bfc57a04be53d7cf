// Package domain defines the read models served by the report service.
package domain

import (
	"context"
	"errors"
)

var ErrInvalidOrganization = errors.New("invalid_organization")

type Service interface {
	DashboardSummary(ctx context.Context) (*DashboardSummary, error)
	PaymentAging(ctx context.Context) (*PaymentAgingReport, error)
	Occupancy(ctx context.Context) (*OccupancyReport, error)
}

// DashboardSummary is the landing-page rollup for one organization.
type DashboardSummary struct {
	Properties       int64   `json:"properties"`
	Units            int64   `json:"units"`
	OccupiedUnits    int64   `json:"occupied_units"`
	ActiveContracts  int64   `json:"active_contracts"`
	ActiveTenants    int64   `json:"active_tenants"`
	OpenMaintenance  int64   `json:"open_maintenance"`
	PendingPayments  int64   `json:"pending_payments"`
	OverduePayments  int64   `json:"overdue_payments"`
	MonthlyRentRoll  float64 `json:"monthly_rent_roll"`
	CollectedThisMon float64 `json:"collected_this_month"`
}

// AgingBucket groups unpaid payments by days overdue.
type AgingBucket struct {
	Label  string  `json:"label"`
	Count  int64   `json:"count"`
	Amount float64 `json:"amount"`
}

type PaymentAgingReport struct {
	Buckets      []AgingBucket `json:"buckets"`
	TotalUnpaid  float64       `json:"total_unpaid"`
	UnpaidCount  int64         `json:"unpaid_count"`
	AsOf         string        `json:"as_of"`
	GraceDays    int           `json:"grace_days"`
	OldestDueAge int           `json:"oldest_due_age_days"`
}

// PropertyOccupancy is the per-property slice of the occupancy report.
type PropertyOccupancy struct {
	PropertyID   string  `json:"property_id"`
	PropertyName string  `json:"property_name"`
	TotalUnits   int64   `json:"total_units"`
	Occupied     int64   `json:"occupied"`
	Vacant       int64   `json:"vacant"`
	Rate         float64 `json:"rate"`
}

type OccupancyReport struct {
	Properties  []PropertyOccupancy `json:"properties"`
	TotalUnits  int64               `json:"total_units"`
	Occupied    int64               `json:"occupied"`
	OverallRate float64             `json:"overall_rate"`
}
