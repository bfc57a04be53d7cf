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
	contractdomain "github.com/rentflow/rentflow/internal/contract/domain"
	"github.com/rentflow/rentflow/internal/orgcontext"
	propertydomain "github.com/rentflow/rentflow/internal/property/domain"
	propertyrepo "github.com/rentflow/rentflow/internal/property/repository"
	"github.com/rentflow/rentflow/internal/realtime"
	"github.com/rentflow/rentflow/internal/unit/domain"
	"github.com/rentflow/rentflow/internal/unit/repository"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, alogdomain.Entry) {}

type unitFixture struct {
	svc      domain.Service
	conn     *gorm.DB
	node     *snowflake.Node
	orgID    snowflake.ID
	ctx      context.Context
	property *propertydomain.Property
}

func newUnitFixture(t *testing.T) *unitFixture {
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

	if err := conn.AutoMigrate(&propertydomain.Property{}, &domain.Unit{}, &contractdomain.Contract{}); err != nil {
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

	return &unitFixture{
		svc:      svc,
		conn:     conn,
		node:     node,
		orgID:    orgID,
		ctx:      orgcontext.WithOrgID(context.Background(), orgID),
		property: property,
	}
}

func (f *unitFixture) create(t *testing.T, number string) *domain.UnitResponse {
	t.Helper()

	resp, err := f.svc.Create(f.ctx, domain.CreateUnitRequest{
		PropertyID: f.property.ID.String(),
		UnitNumber: number,
		Bedrooms:   2,
		Bathrooms:  1,
		MarketRent: 1100,
	})
	if err != nil {
		t.Fatalf("create unit %s: %v", number, err)
	}
	return resp
}

func TestUnitCreateStartsVacant(t *testing.T) {
	f := newUnitFixture(t)
	resp := f.create(t, "3B")

	if resp.Status != domain.StatusVacant {
		t.Fatalf("status = %s, want VACANT", resp.Status)
	}
	if resp.PropertyID != f.property.ID.String() {
		t.Fatalf("property id = %s", resp.PropertyID)
	}
}

func TestUnitCreateRejectsUnknownProperty(t *testing.T) {
	f := newUnitFixture(t)

	_, err := f.svc.Create(f.ctx, domain.CreateUnitRequest{
		PropertyID: f.node.Generate().String(),
		UnitNumber: "1A",
	})
	if !errors.Is(err, domain.ErrInvalidProperty) {
		t.Fatalf("err = %v, want ErrInvalidProperty", err)
	}
}

func TestUnitNumberUniquePerProperty(t *testing.T) {
	f := newUnitFixture(t)
	f.create(t, "3B")

	_, err := f.svc.Create(f.ctx, domain.CreateUnitRequest{
		PropertyID: f.property.ID.String(),
		UnitNumber: "3B",
	})
	if !errors.Is(err, domain.ErrDuplicateUnitNumber) {
		t.Fatalf("err = %v, want ErrDuplicateUnitNumber", err)
	}
}

func TestUnitUpdateRejectsUnknownStatus(t *testing.T) {
	f := newUnitFixture(t)
	resp := f.create(t, "3B")

	bad := "DEMOLISHED"
	if _, err := f.svc.Update(f.ctx, resp.ID, domain.UpdateUnitRequest{Status: &bad}); !errors.Is(err, domain.ErrInvalidStatus) {
		t.Fatalf("err = %v, want ErrInvalidStatus", err)
	}
}

func TestUnitDeleteBlockedByActiveContract(t *testing.T) {
	f := newUnitFixture(t)
	resp := f.create(t, "3B")
	unitID, _ := snowflake.ParseString(resp.ID)

	now := time.Now().UTC()
	contract := &contractdomain.Contract{
		ID:         f.node.Generate(),
		OrgID:      f.orgID,
		UnitID:     unitID,
		TenantID:   f.node.Generate(),
		Status:     contractdomain.StatusActive,
		StartDate:  now.AddDate(0, -1, 0),
		EndDate:    now.AddDate(1, 0, 0),
		RentAmount: 1100,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := f.conn.Create(contract).Error; err != nil {
		t.Fatalf("insert contract: %v", err)
	}

	if err := f.svc.Delete(f.ctx, resp.ID); !errors.Is(err, domain.ErrUnitOccupied) {
		t.Fatalf("err = %v, want ErrUnitOccupied", err)
	}

	// Terminating the contract unblocks the delete.
	if err := f.conn.Model(contract).Update("status", contractdomain.StatusTerminated).Error; err != nil {
		t.Fatalf("terminate contract: %v", err)
	}
	if err := f.svc.Delete(f.ctx, resp.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.svc.GetByID(f.ctx, resp.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound after delete", err)
	}
}

func TestUnitListFiltersByStatus(t *testing.T) {
	f := newUnitFixture(t)
	f.create(t, "1A")
	occupied := f.create(t, "1B")

	st := domain.StatusOccupied
	if _, err := f.svc.Update(f.ctx, occupied.ID, domain.UpdateUnitRequest{Status: &st}); err != nil {
		t.Fatalf("update status: %v", err)
	}

	resp, err := f.svc.List(f.ctx, domain.ListUnitRequest{Status: "occupied"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(resp.Units) != 1 || resp.Units[0].ID != occupied.ID {
		t.Fatalf("filtered list = %+v", resp.Units)
	}
}
