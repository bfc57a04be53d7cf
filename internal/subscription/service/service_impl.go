package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	alogdomain "github.com/rentflow/rentflow/internal/activitylog/domain"
	"github.com/rentflow/rentflow/internal/clock"
	"github.com/rentflow/rentflow/internal/orgcontext"
	propertydomain "github.com/rentflow/rentflow/internal/property/domain"
	"github.com/rentflow/rentflow/internal/subscription/domain"
	"gorm.io/gorm"
)

type service struct {
	db         *gorm.DB
	repo       domain.Repository
	properties propertydomain.Repository
	clock      clock.Clock
	genID      *snowflake.Node
	audit      alogdomain.Recorder
}

func New(conn *gorm.DB, repo domain.Repository, properties propertydomain.Repository, clk clock.Clock, genID *snowflake.Node, audit alogdomain.Recorder) domain.Service {
	return &service{
		db:         conn,
		repo:       repo,
		properties: properties,
		clock:      clk,
		genID:      genID,
		audit:      audit,
	}
}

func (s *service) ListPlans(ctx context.Context) ([]domain.PlanResponse, error) {
	plans, err := s.repo.ListPlans(ctx, s.db, false)
	if err != nil {
		return nil, err
	}
	out := make([]domain.PlanResponse, 0, len(plans))
	for _, plan := range plans {
		out = append(out, toPlanResponse(plan))
	}
	return out, nil
}

func (s *service) Current(ctx context.Context) (*domain.SubscriptionResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	sub, err := s.repo.FindSubscriptionByOrg(ctx, s.db, orgID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, domain.ErrNoSubscription
	}
	plan, err := s.repo.FindPlanByID(ctx, s.db, sub.PlanID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, domain.ErrPlanNotFound
	}
	return toSubscriptionResponse(sub, plan), nil
}

func (s *service) AssignStarter(ctx context.Context, tx *gorm.DB, orgID snowflake.ID) error {
	if orgID == 0 {
		return domain.ErrInvalidOrganization
	}

	plan, err := s.repo.FindPlanByCode(ctx, tx, domain.StarterPlanCode)
	if err != nil {
		return err
	}
	if plan == nil {
		return domain.ErrPlanNotFound
	}

	now := s.clock.Now()
	periodEnd := now.AddDate(0, 1, 0)
	if plan.BillingInterval == "year" {
		periodEnd = now.AddDate(1, 0, 0)
	}
	return s.repo.InsertSubscription(ctx, tx, &domain.OrgSubscription{
		ID:                 s.genID.Generate(),
		OrgID:              orgID,
		PlanID:             plan.ID,
		Status:             domain.SubStatusActive,
		CurrentPeriodStart: &now,
		CurrentPeriodEnd:   &periodEnd,
		CreatedAt:          now,
		UpdatedAt:          now,
	})
}

func (s *service) ChangePlan(ctx context.Context, planCode string) (*domain.SubscriptionResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	plan, err := s.repo.FindPlanByCode(ctx, s.db, strings.TrimSpace(planCode))
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, domain.ErrPlanNotFound
	}
	if !plan.IsActive {
		return nil, domain.ErrPlanInactive
	}

	if plan.MaxProperties > 0 {
		count, err := s.properties.CountActive(ctx, s.db, orgID)
		if err != nil {
			return nil, err
		}
		if count > int64(plan.MaxProperties) {
			return nil, domain.ErrOverPlanLimit
		}
	}

	now := s.clock.Now()
	periodEnd := now.AddDate(0, 1, 0)
	if plan.BillingInterval == "year" {
		periodEnd = now.AddDate(1, 0, 0)
	}

	sub, err := s.repo.FindSubscriptionByOrg(ctx, s.db, orgID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		sub = &domain.OrgSubscription{
			ID:                 s.genID.Generate(),
			OrgID:              orgID,
			PlanID:             plan.ID,
			Status:             domain.SubStatusActive,
			CurrentPeriodStart: &now,
			CurrentPeriodEnd:   &periodEnd,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if err := s.repo.InsertSubscription(ctx, s.db, sub); err != nil {
			return nil, err
		}
	} else {
		err = s.repo.UpdateSubscriptionFields(ctx, s.db, orgID, map[string]any{
			"plan_id":              plan.ID,
			"status":               domain.SubStatusActive,
			"current_period_start": now,
			"current_period_end":   periodEnd,
			"cancel_at_period_end": false,
			"updated_at":           now,
		})
		if err != nil {
			return nil, err
		}
	}

	s.audit.Record(ctx, alogdomain.Entry{
		OrgID:      orgID,
		Action:     "subscription.plan_changed",
		EntityType: "subscription",
		EntityID:   sub.ID,
		Details:    map[string]any{"plan_code": plan.Code},
	})

	return s.Current(ctx)
}

func (s *service) Cancel(ctx context.Context) (*domain.SubscriptionResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	sub, err := s.repo.FindSubscriptionByOrg(ctx, s.db, orgID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, domain.ErrNoSubscription
	}
	if sub.CancelAtPeriodEnd || sub.Status == domain.SubStatusCanceled {
		return nil, domain.ErrAlreadyCanceled
	}

	err = s.repo.UpdateSubscriptionFields(ctx, s.db, orgID, map[string]any{
		"cancel_at_period_end": true,
		"updated_at":           s.clock.Now(),
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, alogdomain.Entry{
		OrgID:      orgID,
		Action:     "subscription.canceled",
		EntityType: "subscription",
		EntityID:   sub.ID,
	})

	return s.Current(ctx)
}

func toPlanResponse(plan *domain.Plan) domain.PlanResponse {
	return domain.PlanResponse{
		ID:              plan.ID.String(),
		Code:            plan.Code,
		Name:            plan.Name,
		Description:     plan.Description,
		Price:           plan.Price,
		BillingInterval: plan.BillingInterval,
		MaxProperties:   plan.MaxProperties,
		MaxUnits:        plan.MaxUnits,
		Features:        plan.Features,
	}
}

func toSubscriptionResponse(sub *domain.OrgSubscription, plan *domain.Plan) *domain.SubscriptionResponse {
	resp := &domain.SubscriptionResponse{
		ID:                sub.ID.String(),
		Status:            sub.Status,
		Plan:              toPlanResponse(plan),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
	if sub.CurrentPeriodStart != nil {
		resp.CurrentPeriodStart = sub.CurrentPeriodStart.Format(time.RFC3339)
	}
	if sub.CurrentPeriodEnd != nil {
		resp.CurrentPeriodEnd = sub.CurrentPeriodEnd.Format(time.RFC3339)
	}
	return resp
}
