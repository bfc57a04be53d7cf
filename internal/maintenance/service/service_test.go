package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	alogdomain "github.com/rentflow/rentflow/internal/activitylog/domain"
	"github.com/rentflow/rentflow/internal/clock"
	"github.com/rentflow/rentflow/internal/maintenance/domain"
	"github.com/rentflow/rentflow/internal/maintenance/repository"
	"github.com/rentflow/rentflow/internal/orgcontext"
	propertydomain "github.com/rentflow/rentflow/internal/property/domain"
	propertyrepo "github.com/rentflow/rentflow/internal/property/repository"
	"github.com/rentflow/rentflow/internal/realtime"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, alogdomain.Entry) {}

type maintenanceFixture struct {
	svc      domain.Service
	conn     *gorm.DB
	node     *snowflake.Node
	orgID    snowflake.ID
	ctx      context.Context
	property *propertydomain.Property
}

func newMaintenanceFixture(t *testing.T) *maintenanceFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := conn.DB()
	sqlDB.SetMaxOpenConns(1)

	if err := conn.AutoMigrate(&domain.MaintenanceRequest{}, &propertydomain.Property{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	orgID := node.Generate()
	now := time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC)

	property := &propertydomain.Property{
		ID:           node.Generate(),
		OrgID:        orgID,
		Name:         "Elm Street Flats",
		Address:      "12 Elm St",
		PropertyType: propertydomain.TypeApartment,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := conn.Create(property).Error; err != nil {
		t.Fatalf("insert property: %v", err)
	}

	svc := New(conn, repository.Provide(), propertyrepo.Provide(),
		clock.NewFakeClock(now), node, nopRecorder{}, realtime.NewHub())

	return &maintenanceFixture{
		svc:      svc,
		conn:     conn,
		node:     node,
		orgID:    orgID,
		ctx:      orgcontext.WithOrgID(context.Background(), orgID),
		property: property,
	}
}

func (f *maintenanceFixture) create(t *testing.T, title, priority string) *domain.MaintenanceResponse {
	t.Helper()

	resp, err := f.svc.Create(f.ctx, domain.CreateMaintenanceRequest{
		PropertyID: f.property.ID.String(),
		Title:      title,
		Priority:   priority,
	})
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	return resp
}

func TestMaintenanceCreateDefaults(t *testing.T) {
	f := newMaintenanceFixture(t)
	resp := f.create(t, "Leaky tap", "")

	if resp.Status != domain.StatusOpen {
		t.Fatalf("status = %s, want OPEN", resp.Status)
	}
	if resp.Priority != domain.PriorityMedium {
		t.Fatalf("priority = %s, want MEDIUM default", resp.Priority)
	}
}

func TestMaintenanceCreateValidation(t *testing.T) {
	f := newMaintenanceFixture(t)

	if _, err := f.svc.Create(f.ctx, domain.CreateMaintenanceRequest{
		PropertyID: f.property.ID.String(),
	}); !errors.Is(err, domain.ErrInvalidTitle) {
		t.Fatalf("err = %v, want ErrInvalidTitle", err)
	}
	if _, err := f.svc.Create(f.ctx, domain.CreateMaintenanceRequest{
		PropertyID: f.property.ID.String(),
		Title:      "Broken door",
		Priority:   "PANIC",
	}); !errors.Is(err, domain.ErrInvalidPriority) {
		t.Fatalf("err = %v, want ErrInvalidPriority", err)
	}
	if _, err := f.svc.Create(f.ctx, domain.CreateMaintenanceRequest{
		PropertyID: f.node.Generate().String(),
		Title:      "Broken door",
	}); !errors.Is(err, domain.ErrInvalidProperty) {
		t.Fatalf("err = %v, want ErrInvalidProperty", err)
	}
}

func TestMaintenanceResolveStampsTimestamp(t *testing.T) {
	f := newMaintenanceFixture(t)
	resp := f.create(t, "Leaky tap", domain.PriorityHigh)

	status := domain.StatusResolved
	cost := 120.50
	resolved, err := f.svc.Update(f.ctx, resp.ID, domain.UpdateMaintenanceRequest{
		Status: &status,
		Cost:   &cost,
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Status != domain.StatusResolved {
		t.Fatalf("status = %s", resolved.Status)
	}
	if resolved.ResolvedAt == "" {
		t.Fatal("resolved_at not set")
	}
	if resolved.Cost == nil || *resolved.Cost != 120.50 {
		t.Fatalf("cost = %v", resolved.Cost)
	}
}

func TestMaintenanceClosedRequestsAreFrozen(t *testing.T) {
	f := newMaintenanceFixture(t)
	resp := f.create(t, "Leaky tap", "")

	status := domain.StatusResolved
	if _, err := f.svc.Update(f.ctx, resp.ID, domain.UpdateMaintenanceRequest{Status: &status}); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	reopen := domain.StatusOpen
	if _, err := f.svc.Update(f.ctx, resp.ID, domain.UpdateMaintenanceRequest{Status: &reopen}); !errors.Is(err, domain.ErrAlreadyClosed) {
		t.Fatalf("err = %v, want ErrAlreadyClosed", err)
	}
}

func TestMaintenanceUpdateRejectsNegativeCost(t *testing.T) {
	f := newMaintenanceFixture(t)
	resp := f.create(t, "Leaky tap", "")

	cost := -5.0
	if _, err := f.svc.Update(f.ctx, resp.ID, domain.UpdateMaintenanceRequest{Cost: &cost}); !errors.Is(err, domain.ErrInvalidCost) {
		t.Fatalf("err = %v, want ErrInvalidCost", err)
	}
}

func TestMaintenanceListFilters(t *testing.T) {
	f := newMaintenanceFixture(t)
	f.create(t, "Leaky tap", domain.PriorityLow)
	urgent := f.create(t, "Gas smell", domain.PriorityUrgent)

	resp, err := f.svc.List(f.ctx, domain.ListMaintenanceRequest{Priority: "urgent"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(resp.Requests) != 1 || resp.Requests[0].ID != urgent.ID {
		t.Fatalf("filtered list = %+v", resp.Requests)
	}

	if _, err := f.svc.List(f.ctx, domain.ListMaintenanceRequest{Status: "SOMEDAY"}); !errors.Is(err, domain.ErrInvalidStatus) {
		t.Fatalf("err = %v, want ErrInvalidStatus", err)
	}
}
