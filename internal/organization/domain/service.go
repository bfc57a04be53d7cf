package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

const (
	RoleSuperAdmin = "SUPER_ADMIN"
	RoleOwner      = "OWNER"
	RoleAdmin      = "ADMIN"
	RoleManager    = "MANAGER"
	RoleViewer     = "VIEWER"
)

// ValidRole reports whether role is an assignable membership role.
// SUPER_ADMIN is a user flag, never a membership role.
func ValidRole(role string) bool {
	switch role {
	case RoleOwner, RoleAdmin, RoleManager, RoleViewer:
		return true
	default:
		return false
	}
}

// StarterAssigner provisions the default plan subscription for a freshly
// created organization. Runs inside the caller's transaction so the
// organization never exists without a subscription.
type StarterAssigner interface {
	AssignStarter(ctx context.Context, tx *gorm.DB, orgID snowflake.ID) error
}

type Service interface {
	Create(ctx context.Context, userID snowflake.ID, req CreateOrganizationRequest) (*OrganizationResponse, error)

	// Bootstrap creates the organization, its OWNER membership and the
	// starter subscription inside the caller's transaction. Registration
	// uses it so a failed bootstrap rolls the whole signup back.
	Bootstrap(ctx context.Context, tx *gorm.DB, userID snowflake.ID, req CreateOrganizationRequest) (*OrganizationResponse, error)

	GetByID(ctx context.Context, id snowflake.ID) (*OrganizationResponse, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateOrganizationRequest) (*OrganizationResponse, error)
	UpdateSettings(ctx context.Context, id snowflake.ID, settings map[string]any) (*OrganizationResponse, error)

	// Deactivate soft-disables the organization. Scoped requests against a
	// disabled organization are rejected by the middleware.
	Deactivate(ctx context.Context, id snowflake.ID) error

	ListByUser(ctx context.Context, userID snowflake.ID) ([]OrganizationListResponseItem, error)

	AddMember(ctx context.Context, orgID snowflake.ID, req AddMemberRequest) error
	ListMembers(ctx context.Context, orgID snowflake.ID) ([]MemberResponse, error)
	UpdateMemberRole(ctx context.Context, orgID, userID snowflake.ID, role string) error
	RemoveMember(ctx context.Context, orgID, userID snowflake.ID) error
	MemberRole(ctx context.Context, orgID, userID snowflake.ID) (string, error)
}

type CreateOrganizationRequest struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

type UpdateOrganizationRequest struct {
	Name    *string
	Email   *string
	Phone   *string
	Address *string
}

type AddMemberRequest struct {
	UserID snowflake.ID
	Role   string
}

type OrganizationResponse struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Slug     string         `json:"slug"`
	Email    string         `json:"email"`
	Phone    string         `json:"phone"`
	Address  string         `json:"address"`
	Settings map[string]any `json:"settings"`
	IsActive bool           `json:"is_active"`
}

type OrganizationListResponseItem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type MemberResponse struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidUser         = errors.New("invalid_user")
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidRole         = errors.New("invalid_role")
	ErrNotFound            = errors.New("organization_not_found")
	ErrMemberNotFound      = errors.New("member_not_found")
	ErrMemberExists        = errors.New("member_already_exists")
	ErrLastOwner           = errors.New("cannot_remove_last_owner")
)
