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
	authdomain "github.com/rentflow/rentflow/internal/auth/domain"
	"github.com/rentflow/rentflow/internal/clock"
	"github.com/rentflow/rentflow/internal/organization/domain"
	"github.com/rentflow/rentflow/internal/organization/repository"
	propertyrepo "github.com/rentflow/rentflow/internal/property/repository"
	subdomain "github.com/rentflow/rentflow/internal/subscription/domain"
	subrepo "github.com/rentflow/rentflow/internal/subscription/repository"
	subservice "github.com/rentflow/rentflow/internal/subscription/service"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, alogdomain.Entry) {}

type orgFixture struct {
	svc  domain.Service
	conn *gorm.DB
	node *snowflake.Node
	clk  *clock.FakeClock
	ctx  context.Context
}

func newOrgFixture(t *testing.T) *orgFixture {
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

	if err := conn.AutoMigrate(&domain.Organization{}, &domain.OrganizationMember{}, &authdomain.User{},
		&subdomain.Plan{}, &subdomain.OrgSubscription{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	clk := clock.NewFakeClock(time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC))

	// Every new organization gets the starter plan, so the tier has to exist.
	plan := &subdomain.Plan{
		ID:              node.Generate(),
		Code:            subdomain.StarterPlanCode,
		Name:            "Free",
		BillingInterval: "month",
		MaxProperties:   1,
		MaxUnits:        5,
		IsActive:        true,
		CreatedAt:       clk.Now(),
		UpdatedAt:       clk.Now(),
	}
	if err := conn.Create(plan).Error; err != nil {
		t.Fatalf("seed starter plan: %v", err)
	}

	subs := subservice.New(conn, subrepo.Provide(), propertyrepo.Provide(), clk, node, nopRecorder{})

	return &orgFixture{
		svc:  NewService(conn, repository.NewRepository(conn), clk, node, subs),
		conn: conn,
		node: node,
		clk:  clk,
		ctx:  context.Background(),
	}
}

func (f *orgFixture) insertUser(t *testing.T, email string) snowflake.ID {
	t.Helper()

	user := &authdomain.User{
		ID:        f.node.Generate(),
		Email:     email,
		FirstName: "Test",
		LastName:  "User",
		IsActive:  true,
	}
	if err := f.conn.Create(user).Error; err != nil {
		t.Fatalf("insert user: %v", err)
	}
	return user.ID
}

func TestOrganizationCreateSeedsOwnerMembership(t *testing.T) {
	f := newOrgFixture(t)
	userID := f.insertUser(t, "owner@example.com")

	resp, err := f.svc.Create(f.ctx, userID, domain.CreateOrganizationRequest{Name: "Acme Property Co"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if resp.Slug != "acme-property-co" {
		t.Fatalf("slug = %q", resp.Slug)
	}
	if resp.Settings["currency"] != "USD" {
		t.Fatalf("settings = %v, want seeded defaults", resp.Settings)
	}

	orgID, _ := snowflake.ParseString(resp.ID)
	role, err := f.svc.MemberRole(f.ctx, orgID, userID)
	if err != nil {
		t.Fatalf("member role: %v", err)
	}
	if role != domain.RoleOwner {
		t.Fatalf("role = %s, want OWNER", role)
	}
}

func TestOrganizationCreateAssignsStarterPlan(t *testing.T) {
	f := newOrgFixture(t)
	userID := f.insertUser(t, "owner@example.com")

	resp, err := f.svc.Create(f.ctx, userID, domain.CreateOrganizationRequest{Name: "Acme"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	orgID, _ := snowflake.ParseString(resp.ID)

	var sub subdomain.OrgSubscription
	if err := f.conn.First(&sub, "org_id = ?", orgID).Error; err != nil {
		t.Fatalf("load subscription: %v", err)
	}
	if sub.Status != subdomain.SubStatusActive {
		t.Fatalf("status = %s, want ACTIVE", sub.Status)
	}

	var plan subdomain.Plan
	if err := f.conn.First(&plan, "id = ?", sub.PlanID).Error; err != nil {
		t.Fatalf("load plan: %v", err)
	}
	if plan.Code != subdomain.StarterPlanCode {
		t.Fatalf("plan = %s, want %s", plan.Code, subdomain.StarterPlanCode)
	}
}

func TestOrganizationCreateRollsBackWhenStarterPlanMissing(t *testing.T) {
	f := newOrgFixture(t)
	userID := f.insertUser(t, "owner@example.com")

	if err := f.conn.Where("code = ?", subdomain.StarterPlanCode).Delete(&subdomain.Plan{}).Error; err != nil {
		t.Fatalf("remove starter plan: %v", err)
	}

	if _, err := f.svc.Create(f.ctx, userID, domain.CreateOrganizationRequest{Name: "Acme"}); !errors.Is(err, subdomain.ErrPlanNotFound) {
		t.Fatalf("err = %v, want ErrPlanNotFound", err)
	}

	// The failed assignment must take the organization down with it.
	var orgs int64
	if err := f.conn.Model(&domain.Organization{}).Count(&orgs).Error; err != nil {
		t.Fatalf("count orgs: %v", err)
	}
	if orgs != 0 {
		t.Fatalf("orgs = %d, want rollback", orgs)
	}
}

func TestOrganizationDeactivate(t *testing.T) {
	f := newOrgFixture(t)
	userID := f.insertUser(t, "owner@example.com")

	resp, err := f.svc.Create(f.ctx, userID, domain.CreateOrganizationRequest{Name: "Acme"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	orgID, _ := snowflake.ParseString(resp.ID)

	f.clk.Advance(2 * time.Hour)
	if err := f.svc.Deactivate(f.ctx, orgID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	var org domain.Organization
	if err := f.conn.First(&org, "id = ?", orgID).Error; err != nil {
		t.Fatalf("reload org: %v", err)
	}
	if org.IsActive {
		t.Fatal("organization still active")
	}
	if !org.UpdatedAt.Equal(f.clk.Now()) {
		t.Fatalf("updated_at = %v, want %v", org.UpdatedAt, f.clk.Now())
	}

	if err := f.svc.Deactivate(f.ctx, f.node.Generate()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestOrganizationSlugCollisionGetsSuffix(t *testing.T) {
	f := newOrgFixture(t)
	userID := f.insertUser(t, "owner@example.com")

	first, err := f.svc.Create(f.ctx, userID, domain.CreateOrganizationRequest{Name: "Acme"})
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := f.svc.Create(f.ctx, userID, domain.CreateOrganizationRequest{Name: "Acme"})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if second.Slug == first.Slug {
		t.Fatalf("slug %q not disambiguated", second.Slug)
	}
	if !strings.HasPrefix(second.Slug, "acme-") {
		t.Fatalf("slug = %q", second.Slug)
	}
}

func TestOrganizationSettingsMergeOverDefaults(t *testing.T) {
	f := newOrgFixture(t)
	userID := f.insertUser(t, "owner@example.com")

	resp, err := f.svc.Create(f.ctx, userID, domain.CreateOrganizationRequest{Name: "Acme"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	orgID, _ := snowflake.ParseString(resp.ID)

	updated, err := f.svc.UpdateSettings(f.ctx, orgID, map[string]any{"currency": "EUR"})
	if err != nil {
		t.Fatalf("update settings: %v", err)
	}
	if updated.Settings["currency"] != "EUR" {
		t.Fatalf("currency = %v", updated.Settings["currency"])
	}
	if updated.Settings["timezone"] != "UTC" {
		t.Fatalf("timezone lost on merge: %v", updated.Settings)
	}
}

func TestOrganizationMemberLifecycle(t *testing.T) {
	f := newOrgFixture(t)
	ownerID := f.insertUser(t, "owner@example.com")
	memberID := f.insertUser(t, "member@example.com")

	resp, err := f.svc.Create(f.ctx, ownerID, domain.CreateOrganizationRequest{Name: "Acme"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	orgID, _ := snowflake.ParseString(resp.ID)

	if err := f.svc.AddMember(f.ctx, orgID, domain.AddMemberRequest{UserID: memberID, Role: "JANITOR"}); !errors.Is(err, domain.ErrInvalidRole) {
		t.Fatalf("err = %v, want ErrInvalidRole", err)
	}
	if err := f.svc.AddMember(f.ctx, orgID, domain.AddMemberRequest{UserID: memberID, Role: domain.RoleManager}); err != nil {
		t.Fatalf("add member: %v", err)
	}
	if err := f.svc.AddMember(f.ctx, orgID, domain.AddMemberRequest{UserID: memberID, Role: domain.RoleViewer}); !errors.Is(err, domain.ErrMemberExists) {
		t.Fatalf("err = %v, want ErrMemberExists", err)
	}

	members, err := f.svc.ListMembers(f.ctx, orgID)
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("members = %d, want 2", len(members))
	}

	if err := f.svc.UpdateMemberRole(f.ctx, orgID, memberID, domain.RoleAdmin); err != nil {
		t.Fatalf("update role: %v", err)
	}
	role, err := f.svc.MemberRole(f.ctx, orgID, memberID)
	if err != nil {
		t.Fatalf("member role: %v", err)
	}
	if role != domain.RoleAdmin {
		t.Fatalf("role = %s, want ADMIN", role)
	}

	if err := f.svc.RemoveMember(f.ctx, orgID, memberID); err != nil {
		t.Fatalf("remove member: %v", err)
	}
	if _, err := f.svc.MemberRole(f.ctx, orgID, memberID); !errors.Is(err, domain.ErrMemberNotFound) {
		t.Fatalf("err = %v, want ErrMemberNotFound", err)
	}
}

func TestOrganizationLastOwnerProtected(t *testing.T) {
	f := newOrgFixture(t)
	ownerID := f.insertUser(t, "owner@example.com")

	resp, err := f.svc.Create(f.ctx, ownerID, domain.CreateOrganizationRequest{Name: "Acme"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	orgID, _ := snowflake.ParseString(resp.ID)

	if err := f.svc.RemoveMember(f.ctx, orgID, ownerID); !errors.Is(err, domain.ErrLastOwner) {
		t.Fatalf("remove err = %v, want ErrLastOwner", err)
	}
	if err := f.svc.UpdateMemberRole(f.ctx, orgID, ownerID, domain.RoleAdmin); !errors.Is(err, domain.ErrLastOwner) {
		t.Fatalf("demote err = %v, want ErrLastOwner", err)
	}

	// A second owner lifts the restriction.
	secondID := f.insertUser(t, "second@example.com")
	if err := f.svc.AddMember(f.ctx, orgID, domain.AddMemberRequest{UserID: secondID, Role: domain.RoleOwner}); err != nil {
		t.Fatalf("add second owner: %v", err)
	}
	if err := f.svc.UpdateMemberRole(f.ctx, orgID, ownerID, domain.RoleAdmin); err != nil {
		t.Fatalf("demote with second owner: %v", err)
	}
}

func TestOrganizationListByUser(t *testing.T) {
	f := newOrgFixture(t)
	userID := f.insertUser(t, "owner@example.com")

	if _, err := f.svc.Create(f.ctx, userID, domain.CreateOrganizationRequest{Name: "First"}); err != nil {
		t.Fatalf("create first: %v", err)
	}
	if _, err := f.svc.Create(f.ctx, userID, domain.CreateOrganizationRequest{Name: "Second"}); err != nil {
		t.Fatalf("create second: %v", err)
	}

	items, err := f.svc.ListByUser(f.ctx, userID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	for _, item := range items {
		if item.Role != domain.RoleOwner {
			t.Fatalf("role = %s, want OWNER", item.Role)
		}
	}
}
