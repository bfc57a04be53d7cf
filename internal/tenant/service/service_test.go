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
	"github.com/rentflow/rentflow/internal/realtime"
	"github.com/rentflow/rentflow/internal/tenant/domain"
	"github.com/rentflow/rentflow/internal/tenant/repository"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, alogdomain.Entry) {}

type tenantFixture struct {
	svc   domain.Service
	conn  *gorm.DB
	node  *snowflake.Node
	orgID snowflake.ID
	ctx   context.Context
}

func newTenantFixture(t *testing.T) *tenantFixture {
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

	if err := conn.AutoMigrate(&domain.Tenant{}, &contractdomain.Contract{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// The migration files create this index; AutoMigrate does not.
	if err := conn.Exec("CREATE UNIQUE INDEX IF NOT EXISTS ux_tenants_org_email ON tenants(org_id, email)").Error; err != nil {
		t.Fatalf("create index: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	orgID := node.Generate()
	now := time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC)

	svc := New(conn, repository.Provide(), clock.NewFakeClock(now), node, nopRecorder{}, realtime.NewHub())

	return &tenantFixture{
		svc:   svc,
		conn:  conn,
		node:  node,
		orgID: orgID,
		ctx:   orgcontext.WithOrgID(context.Background(), orgID),
	}
}

func (f *tenantFixture) create(t *testing.T, email string) *domain.TenantResponse {
	t.Helper()

	resp, err := f.svc.Create(f.ctx, domain.CreateTenantRequest{
		FirstName: "Grace",
		LastName:  "Hopper",
		Email:     email,
	})
	if err != nil {
		t.Fatalf("create tenant: %v", err)
	}
	return resp
}

func TestTenantCreateNormalizesEmail(t *testing.T) {
	f := newTenantFixture(t)
	resp := f.create(t, "  Grace.Hopper@Example.COM ")

	if resp.Email != "grace.hopper@example.com" {
		t.Fatalf("email = %q", resp.Email)
	}
	if !resp.IsActive {
		t.Fatal("new tenant should be active")
	}
	if resp.FullName != "Grace Hopper" {
		t.Fatalf("full name = %q", resp.FullName)
	}
}

func TestTenantCreateRejectsBadInput(t *testing.T) {
	f := newTenantFixture(t)

	_, err := f.svc.Create(f.ctx, domain.CreateTenantRequest{Email: "g@example.com"})
	if !errors.Is(err, domain.ErrInvalidName) {
		t.Fatalf("err = %v, want ErrInvalidName", err)
	}

	_, err = f.svc.Create(f.ctx, domain.CreateTenantRequest{FirstName: "Grace", Email: "not-an-email"})
	if !errors.Is(err, domain.ErrInvalidEmail) {
		t.Fatalf("err = %v, want ErrInvalidEmail", err)
	}

	_, err = f.svc.Create(f.ctx, domain.CreateTenantRequest{
		FirstName:   "Grace",
		Email:       "g@example.com",
		DateOfBirth: "01/02/1990",
	})
	if !errors.Is(err, domain.ErrInvalidDateOfBirth) {
		t.Fatalf("err = %v, want ErrInvalidDateOfBirth", err)
	}
}

func TestTenantEmailUniquePerOrganization(t *testing.T) {
	f := newTenantFixture(t)
	f.create(t, "grace@example.com")

	_, err := f.svc.Create(f.ctx, domain.CreateTenantRequest{
		FirstName: "Another",
		Email:     "GRACE@example.com",
	})
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("err = %v, want ErrDuplicateEmail", err)
	}

	// Same email in a different organization is fine.
	otherCtx := orgcontext.WithOrgID(context.Background(), f.node.Generate())
	if _, err := f.svc.Create(otherCtx, domain.CreateTenantRequest{
		FirstName: "Grace",
		Email:     "grace@example.com",
	}); err != nil {
		t.Fatalf("create in other org: %v", err)
	}
}

func TestTenantArchiveBlockedByActiveContract(t *testing.T) {
	f := newTenantFixture(t)
	resp := f.create(t, "grace@example.com")
	tenantID, _ := snowflake.ParseString(resp.ID)

	now := time.Now().UTC()
	contract := &contractdomain.Contract{
		ID:         f.node.Generate(),
		OrgID:      f.orgID,
		UnitID:     f.node.Generate(),
		TenantID:   tenantID,
		Status:     contractdomain.StatusActive,
		StartDate:  now.AddDate(0, -2, 0),
		EndDate:    now.AddDate(1, 0, 0),
		RentAmount: 950,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := f.conn.Create(contract).Error; err != nil {
		t.Fatalf("insert contract: %v", err)
	}

	if err := f.svc.Archive(f.ctx, resp.ID); !errors.Is(err, domain.ErrTenantHasContract) {
		t.Fatalf("err = %v, want ErrTenantHasContract", err)
	}

	if err := f.conn.Model(contract).Update("status", contractdomain.StatusExpired).Error; err != nil {
		t.Fatalf("expire contract: %v", err)
	}
	if err := f.svc.Archive(f.ctx, resp.ID); err != nil {
		t.Fatalf("archive: %v", err)
	}

	got, err := f.svc.GetByID(f.ctx, resp.ID)
	if err != nil {
		t.Fatalf("get archived tenant: %v", err)
	}
	if got.IsActive {
		t.Fatal("archived tenant still active")
	}
}

func TestTenantListExcludesArchivedByDefault(t *testing.T) {
	f := newTenantFixture(t)
	keep := f.create(t, "keep@example.com")
	gone := f.create(t, "gone@example.com")

	if err := f.svc.Archive(f.ctx, gone.ID); err != nil {
		t.Fatalf("archive: %v", err)
	}

	resp, err := f.svc.List(f.ctx, domain.ListTenantRequest{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(resp.Tenants) != 1 || resp.Tenants[0].ID != keep.ID {
		t.Fatalf("list = %+v", resp.Tenants)
	}

	all, err := f.svc.List(f.ctx, domain.ListTenantRequest{IncludeInactive: true})
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all.Tenants) != 2 {
		t.Fatalf("list all = %d tenants, want 2", len(all.Tenants))
	}
}
