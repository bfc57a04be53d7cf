package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rentflow/rentflow/internal/clock"
	"github.com/rentflow/rentflow/internal/config"
	"github.com/rentflow/rentflow/internal/orgcontext"
	"github.com/rentflow/rentflow/internal/report/domain"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

type service struct {
	db     *gorm.DB
	policy *config.BillingPolicyHolder
	clock  clock.Clock
}

func New(conn *gorm.DB, policy *config.BillingPolicyHolder, clk clock.Clock) domain.Service {
	return &service{db: conn, policy: policy, clock: clk}
}

func (s *service) DashboardSummary(ctx context.Context) (*domain.DashboardSummary, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	var summary domain.DashboardSummary
	counts := []struct {
		dest  *int64
		query string
		args  []any
	}{
		{&summary.Properties, "SELECT COUNT(*) FROM properties WHERE org_id = ? AND is_active", []any{orgID}},
		{&summary.Units, "SELECT COUNT(*) FROM units WHERE org_id = ?", []any{orgID}},
		{&summary.OccupiedUnits, "SELECT COUNT(*) FROM units WHERE org_id = ? AND status = 'OCCUPIED'", []any{orgID}},
		{&summary.ActiveContracts, "SELECT COUNT(*) FROM contracts WHERE org_id = ? AND status = 'ACTIVE'", []any{orgID}},
		{&summary.ActiveTenants, "SELECT COUNT(*) FROM tenants WHERE org_id = ? AND is_active", []any{orgID}},
		{&summary.OpenMaintenance, "SELECT COUNT(*) FROM maintenance_requests WHERE org_id = ? AND status IN ('OPEN', 'IN_PROGRESS')", []any{orgID}},
		{&summary.PendingPayments, "SELECT COUNT(*) FROM payments WHERE org_id = ? AND status = 'PENDING'", []any{orgID}},
		{&summary.OverduePayments, "SELECT COUNT(*) FROM payments WHERE org_id = ? AND status = 'OVERDUE'", []any{orgID}},
	}
	for _, c := range counts {
		if err := s.db.WithContext(ctx).Raw(c.query, c.args...).Scan(c.dest).Error; err != nil {
			return nil, err
		}
	}

	err := s.db.WithContext(ctx).
		Raw("SELECT COALESCE(SUM(rent_amount), 0) FROM contracts WHERE org_id = ? AND status = 'ACTIVE'", orgID).
		Scan(&summary.MonthlyRentRoll).Error
	if err != nil {
		return nil, err
	}

	monthStart := monthStartOf(s.clock.Now().UTC())
	err = s.db.WithContext(ctx).
		Raw(
			"SELECT COALESCE(SUM(amount), 0) FROM payments WHERE org_id = ? AND status = 'PAID' AND paid_date >= ?",
			orgID, monthStart,
		).
		Scan(&summary.CollectedThisMon).Error
	if err != nil {
		return nil, err
	}

	return &summary, nil
}

type unpaidRow struct {
	DueDate time.Time `gorm:"column:due_date"`
	Amount  float64   `gorm:"column:amount"`
}

func (s *service) PaymentAging(ctx context.Context) (*domain.PaymentAgingReport, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	policy := s.policy.Get()
	today := truncateDay(s.clock.Now().UTC())

	var rows []unpaidRow
	err := s.db.WithContext(ctx).
		Raw(
			"SELECT due_date, amount FROM payments WHERE org_id = ? AND status IN ('PENDING', 'OVERDUE', 'PARTIAL') AND due_date < ?",
			orgID, today,
		).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	report := &domain.PaymentAgingReport{
		Buckets:   make([]domain.AgingBucket, len(policy.AgingBuckets)),
		AsOf:      today.Format(dateLayout),
		GraceDays: policy.GraceDays,
	}
	for i, bucket := range policy.AgingBuckets {
		report.Buckets[i] = domain.AgingBucket{Label: bucket.Label}
	}

	for _, row := range rows {
		age := int(today.Sub(truncateDay(row.DueDate.UTC())).Hours() / 24)
		if age <= policy.GraceDays {
			continue
		}
		report.TotalUnpaid += row.Amount
		report.UnpaidCount++
		if age > report.OldestDueAge {
			report.OldestDueAge = age
		}
		for i, bucket := range policy.AgingBuckets {
			if age < bucket.MinDays {
				continue
			}
			if bucket.MaxDays != nil && age > *bucket.MaxDays {
				continue
			}
			report.Buckets[i].Count++
			report.Buckets[i].Amount += row.Amount
			break
		}
	}

	return report, nil
}

type occupancyRow struct {
	PropertyID snowflake.ID `gorm:"column:property_id"`
	Name       string       `gorm:"column:name"`
	Total      int64        `gorm:"column:total"`
	Occupied   int64        `gorm:"column:occupied"`
}

func (s *service) Occupancy(ctx context.Context) (*domain.OccupancyReport, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	var rows []occupancyRow
	err := s.db.WithContext(ctx).
		Raw(`
			SELECT p.id AS property_id,
			       p.name AS name,
			       COUNT(u.id) AS total,
			       COUNT(CASE WHEN u.status = 'OCCUPIED' THEN 1 END) AS occupied
			FROM properties p
			LEFT JOIN units u ON u.property_id = p.id
			WHERE p.org_id = ? AND p.is_active
			GROUP BY p.id, p.name
			ORDER BY p.name`,
			orgID,
		).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	report := &domain.OccupancyReport{
		Properties: make([]domain.PropertyOccupancy, 0, len(rows)),
	}
	for _, row := range rows {
		entry := domain.PropertyOccupancy{
			PropertyID:   row.PropertyID.String(),
			PropertyName: row.Name,
			TotalUnits:   row.Total,
			Occupied:     row.Occupied,
			Vacant:       row.Total - row.Occupied,
		}
		if row.Total > 0 {
			entry.Rate = float64(row.Occupied) / float64(row.Total)
		}
		report.Properties = append(report.Properties, entry)
		report.TotalUnits += row.Total
		report.Occupied += row.Occupied
	}
	if report.TotalUnits > 0 {
		report.OverallRate = float64(report.Occupied) / float64(report.TotalUnits)
	}
	return report, nil
}

func monthStartOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
