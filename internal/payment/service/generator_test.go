package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/rentflow/rentflow/internal/clock"
	contractdomain "github.com/rentflow/rentflow/internal/contract/domain"
	contractrepo "github.com/rentflow/rentflow/internal/contract/repository"
	"github.com/rentflow/rentflow/internal/payment/domain"
	"github.com/rentflow/rentflow/internal/payment/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newGeneratorTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := conn.AutoMigrate(&contractdomain.Contract{}, &domain.Payment{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func newTestGenerator(t *testing.T, conn *gorm.DB, now time.Time) domain.Generator {
	t.Helper()

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return NewGenerator(conn, repository.Provide(), contractrepo.Provide(), clock.NewFakeClock(now), node, zap.NewNop())
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func insertContract(t *testing.T, conn *gorm.DB, node *snowflake.Node, status string, start, end time.Time, rent float64) *contractdomain.Contract {
	t.Helper()

	now := time.Now().UTC()
	contract := &contractdomain.Contract{
		ID:         node.Generate(),
		OrgID:      node.Generate(),
		UnitID:     node.Generate(),
		TenantID:   node.Generate(),
		Status:     status,
		StartDate:  start,
		EndDate:    end,
		RentAmount: rent,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := conn.Create(contract).Error; err != nil {
		t.Fatalf("insert contract: %v", err)
	}
	return contract
}

func loadRentPayments(t *testing.T, conn *gorm.DB, contractID snowflake.ID) []domain.Payment {
	t.Helper()

	var payments []domain.Payment
	if err := conn.Where("contract_id = ?", contractID).Find(&payments).Error; err != nil {
		t.Fatalf("load payments: %v", err)
	}
	sort.Slice(payments, func(i, j int) bool {
		return payments[i].PeriodStart.Before(*payments[j].PeriodStart)
	})
	return payments
}

func TestGenerateRentBackfillsMidMonthContract(t *testing.T) {
	conn := newGeneratorTestDB(t)
	node, _ := snowflake.NewNode(2)
	contract := insertContract(t, conn, node, contractdomain.StatusActive,
		date(2024, time.January, 15), date(2025, time.January, 14), 1200)

	today := date(2024, time.March, 20)
	gen := newTestGenerator(t, conn, today)

	inserted, err := gen.GenerateRent(context.Background(), today)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if inserted != 3 {
		t.Fatalf("expected 3 payments, got %d", inserted)
	}

	payments := loadRentPayments(t, conn, contract.ID)
	wantStarts := []time.Time{
		date(2024, time.January, 15),
		date(2024, time.February, 15),
		date(2024, time.March, 15),
	}
	wantEnds := []time.Time{
		date(2024, time.February, 14),
		date(2024, time.March, 14),
		date(2024, time.April, 14),
	}
	for i, p := range payments {
		if !p.PeriodStart.Equal(wantStarts[i]) {
			t.Fatalf("payment %d period start = %v, want %v", i, p.PeriodStart, wantStarts[i])
		}
		if !p.PeriodEnd.Equal(wantEnds[i]) {
			t.Fatalf("payment %d period end = %v, want %v", i, p.PeriodEnd, wantEnds[i])
		}
		if !p.DueDate.Equal(wantStarts[i]) {
			t.Fatalf("payment %d due date = %v, want %v", i, p.DueDate, wantStarts[i])
		}
		if p.Type != domain.TypeRent || p.Status != domain.StatusPending {
			t.Fatalf("payment %d type/status = %s/%s", i, p.Type, p.Status)
		}
		if p.Amount != 1200 {
			t.Fatalf("payment %d amount = %v", i, p.Amount)
		}
		if p.OrgID != contract.OrgID || p.TenantID != contract.TenantID {
			t.Fatalf("payment %d carries wrong org or tenant", i)
		}
	}
}

func TestGenerateRentIsIdempotent(t *testing.T) {
	conn := newGeneratorTestDB(t)
	node, _ := snowflake.NewNode(3)
	insertContract(t, conn, node, contractdomain.StatusActive,
		date(2024, time.January, 1), date(2024, time.December, 31), 900)

	today := date(2024, time.April, 10)
	gen := newTestGenerator(t, conn, today)

	first, err := gen.GenerateRent(context.Background(), today)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first != 4 {
		t.Fatalf("first run inserted %d, want 4", first)
	}

	second, err := gen.GenerateRent(context.Background(), today)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second != 0 {
		t.Fatalf("second run inserted %d, want 0", second)
	}
}

func TestGenerateRentRegeneratesCancelledMonth(t *testing.T) {
	conn := newGeneratorTestDB(t)
	node, _ := snowflake.NewNode(4)
	contract := insertContract(t, conn, node, contractdomain.StatusActive,
		date(2024, time.January, 1), date(2024, time.December, 31), 800)

	today := date(2024, time.March, 1)
	gen := newTestGenerator(t, conn, today)
	if _, err := gen.GenerateRent(context.Background(), today); err != nil {
		t.Fatalf("seed run: %v", err)
	}

	// Cancelled rows no longer cover their month.
	res := conn.Model(&domain.Payment{}).
		Where("contract_id = ? AND period_start = ?", contract.ID, date(2024, time.February, 1)).
		Update("status", domain.StatusCancelled)
	if res.Error != nil || res.RowsAffected != 1 {
		t.Fatalf("cancel february: %v rows=%d", res.Error, res.RowsAffected)
	}

	inserted, err := gen.GenerateRent(context.Background(), today)
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if inserted != 1 {
		t.Fatalf("expected 1 regenerated payment, got %d", inserted)
	}
}

func TestGenerateRentStopsAtContractEnd(t *testing.T) {
	conn := newGeneratorTestDB(t)
	node, _ := snowflake.NewNode(5)
	contract := insertContract(t, conn, node, contractdomain.StatusActive,
		date(2024, time.January, 1), date(2024, time.February, 20), 700)

	today := date(2024, time.June, 1)
	gen := newTestGenerator(t, conn, today)

	inserted, err := gen.GenerateRent(context.Background(), today)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if inserted != 2 {
		t.Fatalf("expected 2 payments, got %d", inserted)
	}

	payments := loadRentPayments(t, conn, contract.ID)
	last := payments[len(payments)-1]
	if !last.PeriodStart.Equal(date(2024, time.February, 1)) {
		t.Fatalf("last period start = %v", last.PeriodStart)
	}
}

func TestGenerateRentIgnoresInactiveContracts(t *testing.T) {
	conn := newGeneratorTestDB(t)
	node, _ := snowflake.NewNode(6)
	insertContract(t, conn, node, contractdomain.StatusDraft,
		date(2024, time.January, 1), date(2024, time.December, 31), 650)
	insertContract(t, conn, node, contractdomain.StatusTerminated,
		date(2024, time.January, 1), date(2024, time.December, 31), 650)

	today := date(2024, time.March, 1)
	gen := newTestGenerator(t, conn, today)

	inserted, err := gen.GenerateRent(context.Background(), today)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if inserted != 0 {
		t.Fatalf("expected no payments, got %d", inserted)
	}
}

func TestGenerateRentMonthEndStartBillsEveryMonth(t *testing.T) {
	conn := newGeneratorTestDB(t)
	node, _ := snowflake.NewNode(8)
	contract := insertContract(t, conn, node, contractdomain.StatusActive,
		date(2024, time.January, 31), date(2024, time.December, 31), 1500)

	today := date(2024, time.April, 30)
	gen := newTestGenerator(t, conn, today)

	inserted, err := gen.GenerateRent(context.Background(), today)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if inserted != 4 {
		t.Fatalf("expected 4 payments, got %d", inserted)
	}

	payments := loadRentPayments(t, conn, contract.ID)
	wantStarts := []time.Time{
		date(2024, time.January, 31),
		date(2024, time.February, 29),
		date(2024, time.March, 31),
		date(2024, time.April, 30),
	}
	seen := map[time.Month]int{}
	for i, p := range payments {
		if !p.PeriodStart.Equal(wantStarts[i]) {
			t.Fatalf("payment %d period start = %v, want %v", i, p.PeriodStart, wantStarts[i])
		}
		seen[p.PeriodStart.Month()]++
	}
	for month, count := range seen {
		if count != 1 {
			t.Fatalf("month %s has %d rent payments, want exactly 1", month, count)
		}
	}

	// Periods stay contiguous across the clamped boundaries.
	for i := 1; i < len(payments); i++ {
		if !payments[i].PeriodStart.Equal(payments[i-1].PeriodEnd.AddDate(0, 0, 1)) {
			t.Fatalf("gap between period %d end %v and period %d start %v",
				i-1, payments[i-1].PeriodEnd, i, payments[i].PeriodStart)
		}
	}

	second, err := gen.GenerateRent(context.Background(), today)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second != 0 {
		t.Fatalf("second run inserted %d, want 0", second)
	}
}

func TestGenerateRentFutureStartProducesNothing(t *testing.T) {
	conn := newGeneratorTestDB(t)
	node, _ := snowflake.NewNode(7)
	insertContract(t, conn, node, contractdomain.StatusActive,
		date(2024, time.September, 1), date(2025, time.August, 31), 1000)

	today := date(2024, time.June, 1)
	gen := newTestGenerator(t, conn, today)

	inserted, err := gen.GenerateRent(context.Background(), today)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if inserted != 0 {
		t.Fatalf("expected no payments, got %d", inserted)
	}
}
