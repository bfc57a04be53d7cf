package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rentflow/rentflow/internal/activitylog/domain"
	"github.com/rentflow/rentflow/internal/authctx"
	"github.com/rentflow/rentflow/internal/clock"
	"github.com/rentflow/rentflow/internal/orgcontext"
	"github.com/rentflow/rentflow/pkg/db/pagination"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type service struct {
	db    *gorm.DB
	repo  domain.Repository
	clock clock.Clock
	genID *snowflake.Node
}

func New(conn *gorm.DB, repo domain.Repository, clk clock.Clock, genID *snowflake.Node) domain.Service {
	return &service{db: conn, repo: repo, clock: clk, genID: genID}
}

// Record appends an audit entry. Failures are logged, never returned, so a
// failed audit write cannot roll back the action it describes.
func (s *service) Record(ctx context.Context, entry domain.Entry) {
	orgID := entry.OrgID
	if orgID == 0 {
		orgID = orgcontext.RequireOrgID(ctx)
	}
	if orgID == 0 {
		return
	}

	userID := entry.UserID
	if userID == 0 {
		if claims, ok := authctx.ClaimsFromContext(ctx); ok {
			userID = claims.UserID
		}
	}

	details := datatypes.JSONMap{}
	for k, v := range entry.Details {
		details[k] = v
	}

	row := domain.ActivityLog{
		ID:         s.genID.Generate(),
		OrgID:      orgID,
		UserID:     userID,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Details:    details,
		CreatedAt:  s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, s.db, &row); err != nil {
		zap.L().Warn("activity log write failed",
			zap.String("action", entry.Action),
			zap.String("entity_type", entry.EntityType),
			zap.Error(err))
	}
}

func (s *service) List(ctx context.Context, req domain.ListActivityRequest) (domain.ListActivityResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ListActivityResponse{}, domain.ErrInvalidOrganization
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	entries, err := s.repo.List(ctx, s.db, orgID, domain.ListActivityFilter{
		EntityType: req.EntityType,
		Action:     req.Action,
	}, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return domain.ListActivityResponse{}, err
	}

	entries, pageInfo := pagination.BuildCursorPageInfo(entries, pageSize, func(entry *domain.ActivityLog) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        entry.ID.String(),
			CreatedAt: entry.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})

	resp := domain.ListActivityResponse{
		Activities: make([]domain.ActivityResponse, 0, len(entries)),
	}
	for _, entry := range entries {
		item := domain.ActivityResponse{
			ID:         entry.ID.String(),
			Action:     entry.Action,
			EntityType: entry.EntityType,
			Details:    entry.Details,
			CreatedAt:  entry.CreatedAt,
		}
		if entry.UserID != 0 {
			item.UserID = entry.UserID.String()
		}
		if entry.EntityID != 0 {
			item.EntityID = entry.EntityID.String()
		}
		resp.Activities = append(resp.Activities, item)
	}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}
