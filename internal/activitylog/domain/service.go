package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rentflow/rentflow/pkg/db/pagination"
)

// Recorder is the write-side interface handed to domain services. Recording
// must never fail a caller's operation, implementations log and move on.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}

// Entry describes a single action to append to the log.
type Entry struct {
	OrgID      snowflake.ID
	UserID     snowflake.ID
	Action     string
	EntityType string
	EntityID   snowflake.ID
	Details    map[string]any
}

type Service interface {
	Recorder
	List(ctx context.Context, req ListActivityRequest) (ListActivityResponse, error)
}

type ListActivityRequest struct {
	EntityType string `form:"entity_type"`
	Action     string `form:"action"`
	PageToken  string `form:"page_token"`
	PageSize   int    `form:"page_size"`
}

type ActivityResponse struct {
	ID         string         `json:"id"`
	UserID     string         `json:"user_id,omitempty"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id,omitempty"`
	Details    map[string]any `json:"details"`
	CreatedAt  time.Time      `json:"created_at"`
}

type ListActivityResponse struct {
	Activities []ActivityResponse  `json:"activities"`
	PageInfo   pagination.PageInfo `json:"page_info"`
}

var ErrInvalidOrganization = errors.New("invalid_organization")
