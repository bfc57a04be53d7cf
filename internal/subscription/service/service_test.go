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
	"github.com/rentflow/rentflow/internal/orgcontext"
	propertydomain "github.com/rentflow/rentflow/internal/property/domain"
	propertyrepo "github.com/rentflow/rentflow/internal/property/repository"
	"github.com/rentflow/rentflow/internal/subscription/domain"
	"github.com/rentflow/rentflow/internal/subscription/repository"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, alogdomain.Entry) {}

type subscriptionFixture struct {
	svc   domain.Service
	conn  *gorm.DB
	node  *snowflake.Node
	orgID snowflake.ID
	ctx   context.Context
	now   time.Time
}

func newSubscriptionFixture(t *testing.T) *subscriptionFixture {
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

	if err := conn.AutoMigrate(&domain.Plan{}, &domain.OrgSubscription{}, &propertydomain.Property{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	orgID := node.Generate()
	now := time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)

	svc := New(conn, repository.Provide(), propertyrepo.Provide(),
		clock.NewFakeClock(now), node, nopRecorder{})

	return &subscriptionFixture{
		svc:   svc,
		conn:  conn,
		node:  node,
		orgID: orgID,
		ctx:   orgcontext.WithOrgID(context.Background(), orgID),
		now:   now,
	}
}

func (f *subscriptionFixture) insertPlan(t *testing.T, code string, maxProperties int, active bool) *domain.Plan {
	t.Helper()

	plan := &domain.Plan{
		ID:              f.node.Generate(),
		Code:            code,
		Name:            strings.ToUpper(code[:1]) + code[1:],
		Price:           29,
		BillingInterval: "month",
		MaxProperties:   maxProperties,
		IsActive:        active,
		CreatedAt:       f.now,
		UpdatedAt:       f.now,
	}
	if err := f.conn.Create(plan).Error; err != nil {
		t.Fatalf("insert plan %s: %v", code, err)
	}
	return plan
}

func (f *subscriptionFixture) insertProperties(t *testing.T, n int) {
	t.Helper()

	for i := 0; i < n; i++ {
		property := &propertydomain.Property{
			ID:           f.node.Generate(),
			OrgID:        f.orgID,
			Name:         fmt.Sprintf("Property %d", i),
			Address:      "1 Main St",
			PropertyType: propertydomain.TypeApartment,
			IsActive:     true,
			CreatedAt:    f.now,
			UpdatedAt:    f.now,
		}
		if err := f.conn.Create(property).Error; err != nil {
			t.Fatalf("insert property: %v", err)
		}
	}
}

func TestAssignStarterCreatesActiveSubscription(t *testing.T) {
	f := newSubscriptionFixture(t)
	plan := f.insertPlan(t, domain.StarterPlanCode, 1, true)

	if err := f.svc.AssignStarter(f.ctx, f.conn, f.orgID); err != nil {
		t.Fatalf("assign starter: %v", err)
	}

	var sub domain.OrgSubscription
	if err := f.conn.First(&sub, "org_id = ?", f.orgID).Error; err != nil {
		t.Fatalf("load subscription: %v", err)
	}
	if sub.PlanID != plan.ID {
		t.Fatalf("plan id = %v, want %v", sub.PlanID, plan.ID)
	}
	if sub.Status != domain.SubStatusActive {
		t.Fatalf("status = %s, want ACTIVE", sub.Status)
	}
	if sub.CurrentPeriodEnd == nil || !sub.CurrentPeriodEnd.Equal(f.now.AddDate(0, 1, 0)) {
		t.Fatalf("period end = %v, want one month out", sub.CurrentPeriodEnd)
	}
}

func TestAssignStarterRequiresPlan(t *testing.T) {
	f := newSubscriptionFixture(t)

	if err := f.svc.AssignStarter(f.ctx, f.conn, f.orgID); !errors.Is(err, domain.ErrPlanNotFound) {
		t.Fatalf("err = %v, want ErrPlanNotFound", err)
	}
	if err := f.svc.AssignStarter(f.ctx, f.conn, 0); !errors.Is(err, domain.ErrInvalidOrganization) {
		t.Fatalf("err = %v, want ErrInvalidOrganization", err)
	}
}

func TestChangePlanCreatesSubscription(t *testing.T) {
	f := newSubscriptionFixture(t)
	f.insertPlan(t, "starter", 3, true)

	resp, err := f.svc.ChangePlan(f.ctx, "starter")
	if err != nil {
		t.Fatalf("change plan: %v", err)
	}
	if resp.Status != domain.SubStatusActive {
		t.Fatalf("status = %s, want ACTIVE", resp.Status)
	}
	if resp.Plan.Code != "starter" {
		t.Fatalf("plan = %s", resp.Plan.Code)
	}
	if resp.CurrentPeriodEnd == "" {
		t.Fatal("period end not set")
	}
}

func TestChangePlanRejectsUnknownOrInactivePlan(t *testing.T) {
	f := newSubscriptionFixture(t)
	f.insertPlan(t, "legacy", 0, false)

	if _, err := f.svc.ChangePlan(f.ctx, "ghost"); !errors.Is(err, domain.ErrPlanNotFound) {
		t.Fatalf("err = %v, want ErrPlanNotFound", err)
	}
	if _, err := f.svc.ChangePlan(f.ctx, "legacy"); !errors.Is(err, domain.ErrPlanInactive) {
		t.Fatalf("err = %v, want ErrPlanInactive", err)
	}
}

func TestChangePlanEnforcesPropertyLimit(t *testing.T) {
	f := newSubscriptionFixture(t)
	f.insertPlan(t, "starter", 2, true)
	f.insertPlan(t, "unlimited", 0, true)
	f.insertProperties(t, 3)

	if _, err := f.svc.ChangePlan(f.ctx, "starter"); !errors.Is(err, domain.ErrOverPlanLimit) {
		t.Fatalf("err = %v, want ErrOverPlanLimit", err)
	}

	// Zero limit means unlimited.
	if _, err := f.svc.ChangePlan(f.ctx, "unlimited"); err != nil {
		t.Fatalf("change to unlimited: %v", err)
	}
}

func TestChangePlanSwitchesExistingSubscription(t *testing.T) {
	f := newSubscriptionFixture(t)
	f.insertPlan(t, "starter", 0, true)
	f.insertPlan(t, "pro", 0, true)

	if _, err := f.svc.ChangePlan(f.ctx, "starter"); err != nil {
		t.Fatalf("initial plan: %v", err)
	}
	resp, err := f.svc.ChangePlan(f.ctx, "pro")
	if err != nil {
		t.Fatalf("switch plan: %v", err)
	}
	if resp.Plan.Code != "pro" {
		t.Fatalf("plan = %s, want pro", resp.Plan.Code)
	}

	var count int64
	if err := f.conn.Model(&domain.OrgSubscription{}).Where("org_id = ?", f.orgID).Count(&count).Error; err != nil {
		t.Fatalf("count subscriptions: %v", err)
	}
	if count != 1 {
		t.Fatalf("subscriptions = %d, switch must update in place", count)
	}
}

func TestCancelMarksPeriodEnd(t *testing.T) {
	f := newSubscriptionFixture(t)
	f.insertPlan(t, "starter", 0, true)

	if _, err := f.svc.Cancel(f.ctx); !errors.Is(err, domain.ErrNoSubscription) {
		t.Fatalf("err = %v, want ErrNoSubscription", err)
	}

	if _, err := f.svc.ChangePlan(f.ctx, "starter"); err != nil {
		t.Fatalf("change plan: %v", err)
	}

	resp, err := f.svc.Cancel(f.ctx)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !resp.CancelAtPeriodEnd {
		t.Fatal("cancel_at_period_end not set")
	}

	if _, err := f.svc.Cancel(f.ctx); !errors.Is(err, domain.ErrAlreadyCanceled) {
		t.Fatalf("err = %v, want ErrAlreadyCanceled", err)
	}

	// Re-subscribing clears the pending cancellation.
	again, err := f.svc.ChangePlan(f.ctx, "starter")
	if err != nil {
		t.Fatalf("resubscribe: %v", err)
	}
	if again.CancelAtPeriodEnd {
		t.Fatal("resubscribe should clear cancel_at_period_end")
	}
}

func TestListPlansSkipsInactive(t *testing.T) {
	f := newSubscriptionFixture(t)
	f.insertPlan(t, "starter", 0, true)
	f.insertPlan(t, "legacy", 0, false)

	plans, err := f.svc.ListPlans(f.ctx)
	if err != nil {
		t.Fatalf("list plans: %v", err)
	}
	if len(plans) != 1 || plans[0].Code != "starter" {
		t.Fatalf("plans = %+v", plans)
	}
}
