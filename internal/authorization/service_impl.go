package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	alogdomain "github.com/rentflow/rentflow/internal/activitylog/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectOrganization = "organization"
	ObjectMember       = "member"
	ObjectProperty     = "property"
	ObjectUnit         = "unit"
	ObjectTenant       = "tenant"
	ObjectContract     = "contract"
	ObjectPayment      = "payment"
	ObjectMaintenance  = "maintenance"
	ObjectReport       = "report"
	ObjectActivityLog  = "activity_log"
	ObjectSubscription = "subscription"
)

const (
	ActionView   = "view"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"

	ActionContractActivate  = "contract.activate"
	ActionContractTerminate = "contract.terminate"

	ActionPaymentMarkPaid = "payment.mark_paid"
	ActionPaymentCancel   = "payment.cancel"
	ActionPaymentRefund   = "payment.refund"

	ActionMemberManage = "member.manage"

	ActionSubscriptionChangePlan = "subscription.change_plan"
	ActionSubscriptionCancel     = "subscription.cancel"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	Audit    alogdomain.Recorder `optional:"true"`
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	audit    alogdomain.Recorder
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		audit:    p.Audit,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor, orgID, object, action string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ErrInvalidActor
	}
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return ErrInvalidOrganization
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject, roleName, err := s.resolveActor(ctx, actor, orgID)
	if err != nil {
		s.auditDenied(ctx, actor, orgID, object, action)
		return err
	}

	domain := fmt.Sprintf("org:%s", orgID)
	if err := s.ensureGrouping(subject, roleName, domain); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.auditDenied(ctx, actor, orgID, object, action)
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) resolveActor(ctx context.Context, actor, orgID string) (string, string, error) {
	if actor == "system" {
		return actor, "role:system", nil
	}
	if strings.HasPrefix(actor, "user:") {
		userID, err := snowflake.ParseString(strings.TrimPrefix(actor, "user:"))
		if err != nil || userID == 0 {
			return "", "", ErrInvalidActor
		}
		parsedOrgID, err := snowflake.ParseString(orgID)
		if err != nil || parsedOrgID == 0 {
			return "", "", ErrInvalidOrganization
		}
		role, err := s.roleForUser(ctx, parsedOrgID, userID)
		if err != nil {
			return "", "", err
		}
		return actor, fmt.Sprintf("role:%s", strings.ToLower(role)), nil
	}
	return "", "", ErrInvalidActor
}

func (s *ServiceImpl) roleForUser(ctx context.Context, orgID, userID snowflake.ID) (string, error) {
	var row struct {
		Role string `gorm:"column:role"`
	}
	if err := s.db.WithContext(ctx).Raw(
		`SELECT role
		 FROM organization_members
		 WHERE org_id = ? AND user_id = ?
		 LIMIT 1`,
		orgID,
		userID,
	).Scan(&row).Error; err != nil {
		return "", err
	}

	role := strings.TrimSpace(row.Role)
	if role == "" {
		return "", ErrForbidden
	}
	return role, nil
}

func (s *ServiceImpl) ensureGrouping(subject, roleName, domain string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName, domain)
	return err
}

func (s *ServiceImpl) auditDenied(ctx context.Context, actor, orgID, object, action string) {
	if s.audit == nil {
		return
	}
	parsedOrgID, err := snowflake.ParseString(orgID)
	if err != nil || parsedOrgID == 0 {
		return
	}
	s.audit.Record(ctx, alogdomain.Entry{
		OrgID:      parsedOrgID,
		Action:     "authorization.denied",
		EntityType: "authorization",
		Details: map[string]any{
			"actor":  actor,
			"object": object,
			"action": action,
		},
	})
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	viewable := []string{
		ObjectOrganization, ObjectMember, ObjectProperty, ObjectUnit,
		ObjectTenant, ObjectContract, ObjectPayment, ObjectMaintenance,
		ObjectReport, ObjectActivityLog, ObjectSubscription,
	}
	editable := []string{
		ObjectProperty, ObjectUnit, ObjectTenant, ObjectContract, ObjectMaintenance,
	}

	var policies [][]string
	addForRoles := func(roles []string, object, action string) {
		for _, role := range roles {
			policies = append(policies, []string{role, object, action})
		}
	}

	everyone := []string{"role:viewer", "role:manager", "role:admin", "role:owner", "role:system"}
	managersUp := []string{"role:manager", "role:admin", "role:owner", "role:system"}
	adminsUp := []string{"role:admin", "role:owner", "role:system"}
	ownersUp := []string{"role:owner", "role:system"}

	for _, object := range viewable {
		addForRoles(everyone, object, ActionView)
	}
	for _, object := range editable {
		addForRoles(managersUp, object, ActionCreate)
		addForRoles(managersUp, object, ActionUpdate)
		addForRoles(adminsUp, object, ActionDelete)
	}

	addForRoles(managersUp, ObjectContract, ActionContractActivate)
	addForRoles(managersUp, ObjectContract, ActionContractTerminate)

	addForRoles(managersUp, ObjectPayment, ActionCreate)
	addForRoles(managersUp, ObjectPayment, ActionPaymentMarkPaid)
	addForRoles(adminsUp, ObjectPayment, ActionPaymentCancel)
	addForRoles(adminsUp, ObjectPayment, ActionPaymentRefund)

	addForRoles(adminsUp, ObjectOrganization, ActionUpdate)
	addForRoles(ownersUp, ObjectMember, ActionMemberManage)
	addForRoles(ownersUp, ObjectSubscription, ActionSubscriptionChangePlan)
	addForRoles(ownersUp, ObjectSubscription, ActionSubscriptionCancel)

	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
