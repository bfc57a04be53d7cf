// Package domain contains core types for the auth service.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// User represents a system user account.
type User struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	Email        string       `gorm:"type:text;not null;uniqueIndex:ux_users_email" json:"email"`
	PasswordHash string       `gorm:"type:text;not null" json:"-"`
	FirstName    string       `gorm:"type:text" json:"first_name"`
	LastName     string       `gorm:"type:text" json:"last_name"`
	Phone        string       `gorm:"type:text" json:"phone"`
	IsSuperAdmin bool         `gorm:"column:is_super_admin" json:"is_super_admin"`
	IsActive     bool         `gorm:"column:is_active;not null;default:true" json:"is_active"`
	LastLoginAt  *time.Time   `gorm:"column:last_login_at" json:"last_login_at,omitempty"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// FullName joins the user's name parts for display.
func (u User) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
}
