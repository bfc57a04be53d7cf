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
	"github.com/rentflow/rentflow/internal/activitylog/domain"
	"github.com/rentflow/rentflow/internal/activitylog/repository"
	"github.com/rentflow/rentflow/internal/authctx"
	"github.com/rentflow/rentflow/internal/clock"
	"github.com/rentflow/rentflow/internal/orgcontext"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type activityFixture struct {
	svc   domain.Service
	conn  *gorm.DB
	node  *snowflake.Node
	clk   *clock.FakeClock
	orgID snowflake.ID
	ctx   context.Context
}

func newActivityFixture(t *testing.T) *activityFixture {
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

	if err := conn.AutoMigrate(&domain.ActivityLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	orgID := node.Generate()
	clk := clock.NewFakeClock(time.Date(2024, time.April, 1, 8, 0, 0, 0, time.UTC))

	return &activityFixture{
		svc:   New(conn, repository.Provide(), clk, node),
		conn:  conn,
		node:  node,
		clk:   clk,
		orgID: orgID,
		ctx:   orgcontext.WithOrgID(context.Background(), orgID),
	}
}

func (f *activityFixture) count(t *testing.T) int64 {
	t.Helper()

	var count int64
	if err := f.conn.Model(&domain.ActivityLog{}).Count(&count).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	return count
}

func TestRecordWritesEntryFromContext(t *testing.T) {
	f := newActivityFixture(t)
	userID := f.node.Generate()
	ctx := authctx.WithClaims(f.ctx, authctx.Claims{UserID: userID})

	f.svc.Record(ctx, domain.Entry{
		Action:     "property.created",
		EntityType: "property",
		EntityID:   f.node.Generate(),
		Details:    map[string]any{"name": "Elm Street Flats"},
	})

	var row domain.ActivityLog
	if err := f.conn.First(&row).Error; err != nil {
		t.Fatalf("load entry: %v", err)
	}
	if row.OrgID != f.orgID {
		t.Fatalf("org = %s, want resolved from context", row.OrgID)
	}
	if row.UserID != userID {
		t.Fatalf("user = %s, want resolved from claims", row.UserID)
	}
	if row.Details["name"] != "Elm Street Flats" {
		t.Fatalf("details = %v", row.Details)
	}
}

func TestRecordWithoutOrganizationIsDropped(t *testing.T) {
	f := newActivityFixture(t)

	f.svc.Record(context.Background(), domain.Entry{
		Action:     "property.created",
		EntityType: "property",
	})

	if n := f.count(t); n != 0 {
		t.Fatalf("rows = %d, entry without an organization must be dropped", n)
	}
}

func TestRecordExplicitIDsWinOverContext(t *testing.T) {
	f := newActivityFixture(t)
	explicitOrg := f.node.Generate()
	explicitUser := f.node.Generate()

	f.svc.Record(f.ctx, domain.Entry{
		OrgID:      explicitOrg,
		UserID:     explicitUser,
		Action:     "rent.generated",
		EntityType: "payment",
	})

	var row domain.ActivityLog
	if err := f.conn.First(&row).Error; err != nil {
		t.Fatalf("load entry: %v", err)
	}
	if row.OrgID != explicitOrg || row.UserID != explicitUser {
		t.Fatalf("org/user = %s/%s, explicit ids must win", row.OrgID, row.UserID)
	}
}

func TestListFiltersByEntityAndAction(t *testing.T) {
	f := newActivityFixture(t)

	f.svc.Record(f.ctx, domain.Entry{Action: "unit.created", EntityType: "unit"})
	f.clk.Advance(time.Second)
	f.svc.Record(f.ctx, domain.Entry{Action: "unit.updated", EntityType: "unit"})
	f.clk.Advance(time.Second)
	f.svc.Record(f.ctx, domain.Entry{Action: "tenant.created", EntityType: "tenant"})

	resp, err := f.svc.List(f.ctx, domain.ListActivityRequest{EntityType: "unit"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(resp.Activities) != 2 {
		t.Fatalf("entries = %d, want 2", len(resp.Activities))
	}
	// Newest first.
	if resp.Activities[0].Action != "unit.updated" {
		t.Fatalf("first = %s, want newest first", resp.Activities[0].Action)
	}

	resp, err = f.svc.List(f.ctx, domain.ListActivityRequest{Action: "tenant.created"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(resp.Activities) != 1 {
		t.Fatalf("entries = %d, want 1", len(resp.Activities))
	}
}

func TestListPaginatesWithCursor(t *testing.T) {
	f := newActivityFixture(t)
	for i := 0; i < 5; i++ {
		f.svc.Record(f.ctx, domain.Entry{
			Action:     fmt.Sprintf("payment.%d", i),
			EntityType: "payment",
		})
		f.clk.Advance(time.Minute)
	}

	first, err := f.svc.List(f.ctx, domain.ListActivityRequest{PageSize: 2})
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(first.Activities) != 2 || !first.PageInfo.HasMore {
		t.Fatalf("first page = %d entries, has_more = %v", len(first.Activities), first.PageInfo.HasMore)
	}

	second, err := f.svc.List(f.ctx, domain.ListActivityRequest{
		PageSize:  2,
		PageToken: first.PageInfo.NextPageToken,
	})
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(second.Activities) != 2 || !second.PageInfo.HasMore {
		t.Fatalf("second page = %d entries, has_more = %v", len(second.Activities), second.PageInfo.HasMore)
	}
	if second.Activities[0].ID == first.Activities[0].ID {
		t.Fatal("second page repeats the first")
	}

	last, err := f.svc.List(f.ctx, domain.ListActivityRequest{
		PageSize:  2,
		PageToken: second.PageInfo.NextPageToken,
	})
	if err != nil {
		t.Fatalf("last page: %v", err)
	}
	if len(last.Activities) != 1 || last.PageInfo.HasMore {
		t.Fatalf("last page = %d entries, has_more = %v", len(last.Activities), last.PageInfo.HasMore)
	}
}

func TestListScopedToOrganization(t *testing.T) {
	f := newActivityFixture(t)
	f.svc.Record(f.ctx, domain.Entry{Action: "unit.created", EntityType: "unit"})

	otherCtx := orgcontext.WithOrgID(context.Background(), f.node.Generate())
	resp, err := f.svc.List(otherCtx, domain.ListActivityRequest{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(resp.Activities) != 0 {
		t.Fatalf("entries = %d, want isolation across organizations", len(resp.Activities))
	}

	if _, err := f.svc.List(context.Background(), domain.ListActivityRequest{}); !errors.Is(err, domain.ErrInvalidOrganization) {
		t.Fatalf("err = %v, want ErrInvalidOrganization", err)
	}
}
