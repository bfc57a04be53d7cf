package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rentflow/rentflow/internal/clock"
	contractdomain "github.com/rentflow/rentflow/internal/contract/domain"
	"github.com/rentflow/rentflow/internal/payment/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type generator struct {
	db        *gorm.DB
	payments  domain.Repository
	contracts contractdomain.Repository
	clock     clock.Clock
	genID     *snowflake.Node
	logger    *zap.Logger
}

func NewGenerator(conn *gorm.DB, payments domain.Repository, contracts contractdomain.Repository, clk clock.Clock, genID *snowflake.Node, logger *zap.Logger) domain.Generator {
	return &generator{
		db:        conn,
		payments:  payments,
		contracts: contracts,
		clock:     clk,
		genID:     genID,
		logger:    logger,
	}
}

type monthKey struct {
	contractID snowflake.ID
	year       int
	month      time.Month
}

// GenerateRent walks every ACTIVE contract month by month from its start date
// and queues a PENDING RENT payment for each month that has no non-terminal
// payment yet. Period boundaries are anchored to the start day of the
// contract, so a contract starting on the 15th bills the 15th through the
// 14th. The whole batch is inserted in one statement; the per-period unique
// index absorbs rows a concurrent run already wrote.
func (g *generator) GenerateRent(ctx context.Context, today time.Time) (int64, error) {
	today = truncateDay(today.UTC())

	contracts, err := g.contracts.ListActive(ctx, g.db)
	if err != nil {
		return 0, err
	}
	if len(contracts) == 0 {
		return 0, nil
	}

	contractIDs := make([]snowflake.ID, 0, len(contracts))
	for _, c := range contracts {
		contractIDs = append(contractIDs, c.ID)
	}

	existing, err := g.payments.ListRentByContracts(ctx, g.db, contractIDs)
	if err != nil {
		return 0, err
	}

	covered := make(map[monthKey]bool, len(existing))
	for _, p := range existing {
		if p.PeriodStart == nil || domain.Terminal(p.Status) {
			continue
		}
		start := p.PeriodStart.UTC()
		covered[monthKey{p.ContractID, start.Year(), start.Month()}] = true
	}

	now := g.clock.Now()
	var queued []*domain.Payment
	for _, contract := range contracts {
		start := truncateDay(contract.StartDate.UTC())
		end := truncateDay(contract.EndDate.UTC())
		for i := 0; ; i++ {
			cursor := addMonths(start, i)
			if cursor.After(today) || cursor.After(end) {
				break
			}
			key := monthKey{contract.ID, cursor.Year(), cursor.Month()}
			if covered[key] {
				continue
			}
			covered[key] = true
			periodEnd := addMonths(start, i+1).AddDate(0, 0, -1)
			queued = append(queued, &domain.Payment{
				ID:          g.genID.Generate(),
				OrgID:       contract.OrgID,
				ContractID:  contract.ID,
				TenantID:    contract.TenantID,
				Type:        domain.TypeRent,
				Status:      domain.StatusPending,
				Amount:      contract.RentAmount,
				PeriodStart: ptrTime(cursor),
				PeriodEnd:   ptrTime(periodEnd),
				DueDate:     cursor,
				CreatedAt:   now,
				UpdatedAt:   now,
			})
		}
	}

	inserted, err := g.payments.BulkInsert(ctx, g.db, queued)
	if err != nil {
		return 0, err
	}
	if inserted > 0 {
		g.logger.Info("rent payments generated",
			zap.Int64("inserted", inserted),
			zap.Int("contracts", len(contracts)),
		)
	}
	return inserted, nil
}

// addMonths advances by whole calendar months, clamping the day so a
// month-end anchor stays in the target month: Jan 31 + 1 month is Feb 29,
// not Mar 2. Without the clamp two cursors can land in the same month and
// the skipped month never gets a payment.
func addMonths(t time.Time, months int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	day := t.Day()
	if last := first.AddDate(0, 1, -1).Day(); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func ptrTime(t time.Time) *time.Time { return &t }
