package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// StarterPlanCode is the plan every new organization starts on.
const StarterPlanCode = "free"

type Service interface {
	ListPlans(ctx context.Context) ([]PlanResponse, error)
	Current(ctx context.Context) (*SubscriptionResponse, error)

	// AssignStarter creates the starter-plan subscription for a new
	// organization inside the caller's transaction.
	AssignStarter(ctx context.Context, tx *gorm.DB, orgID snowflake.ID) error

	// ChangePlan switches the organization to the plan identified by code,
	// creating the subscription row on first assignment. Downgrades below
	// current usage are rejected.
	ChangePlan(ctx context.Context, planCode string) (*SubscriptionResponse, error)

	// Cancel flags the subscription to lapse at the end of the current
	// period. The organization keeps access until then.
	Cancel(ctx context.Context) (*SubscriptionResponse, error)
}

type PlanResponse struct {
	ID              string         `json:"id"`
	Code            string         `json:"code"`
	Name            string         `json:"name"`
	Description     string         `json:"description,omitempty"`
	Price           float64        `json:"price"`
	BillingInterval string         `json:"billing_interval"`
	MaxProperties   int            `json:"max_properties"`
	MaxUnits        int            `json:"max_units"`
	Features        map[string]any `json:"features"`
}

type SubscriptionResponse struct {
	ID                 string       `json:"id"`
	Status             string       `json:"status"`
	Plan               PlanResponse `json:"plan"`
	CurrentPeriodStart string       `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   string       `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd  bool         `json:"cancel_at_period_end"`
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrPlanNotFound        = errors.New("plan_not_found")
	ErrPlanInactive        = errors.New("plan_inactive")
	ErrNoSubscription      = errors.New("no_subscription")
	ErrOverPlanLimit       = errors.New("usage_exceeds_plan_limit")
	ErrAlreadyCanceled     = errors.New("subscription_already_canceled")
)
