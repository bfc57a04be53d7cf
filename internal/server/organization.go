package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	organizationdomain "github.com/rentflow/rentflow/internal/organization/domain"
	"github.com/rentflow/rentflow/internal/orgcontext"
)

func (s *Server) ListMyOrganizations(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	orgs, err := s.organizationSvc.ListByUser(c.Request.Context(), claims.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": orgs})
}

type createOrganizationRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

func (s *Server) CreateOrganization(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	org, err := s.organizationSvc.Create(c.Request.Context(), claims.UserID, organizationdomain.CreateOrganizationRequest{
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.TrimSpace(req.Email),
		Phone:   strings.TrimSpace(req.Phone),
		Address: strings.TrimSpace(req.Address),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": org})
}

// DeactivateOrganization soft-disables an organization. Scoped requests
// against it are rejected by OrgContext until support re-enables it.
func (s *Server) DeactivateOrganization(c *gin.Context) {
	orgID, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil || orgID == 0 {
		AbortWithError(c, organizationdomain.ErrInvalidOrganization)
		return
	}

	if err := s.organizationSvc.Deactivate(c.Request.Context(), orgID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deactivated": true}})
}

func (s *Server) GetOrganization(c *gin.Context) {
	orgID := orgcontext.RequireOrgID(c.Request.Context())
	org, err := s.organizationSvc.GetByID(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if org == nil {
		AbortWithError(c, organizationdomain.ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": org})
}

type updateOrganizationRequest struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

func (s *Server) UpdateOrganization(c *gin.Context) {
	var req updateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	orgID := orgcontext.RequireOrgID(c.Request.Context())
	org, err := s.organizationSvc.Update(c.Request.Context(), orgID, organizationdomain.UpdateOrganizationRequest{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": org})
}

func (s *Server) GetOrganizationSettings(c *gin.Context) {
	orgID := orgcontext.RequireOrgID(c.Request.Context())
	org, err := s.organizationSvc.GetByID(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if org == nil {
		AbortWithError(c, organizationdomain.ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": org.Settings})
}

func (s *Server) UpdateOrganizationSettings(c *gin.Context) {
	var settings map[string]any
	if err := c.ShouldBindJSON(&settings); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	orgID := orgcontext.RequireOrgID(c.Request.Context())
	org, err := s.organizationSvc.UpdateSettings(c.Request.Context(), orgID, settings)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": org.Settings})
}

func (s *Server) ListMembers(c *gin.Context) {
	orgID := orgcontext.RequireOrgID(c.Request.Context())
	members, err := s.organizationSvc.ListMembers(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": members})
}

type addMemberRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

func (s *Server) AddMember(c *gin.Context) {
	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	userID, err := snowflake.ParseString(strings.TrimSpace(req.UserID))
	if err != nil || userID == 0 {
		AbortWithError(c, organizationdomain.ErrInvalidUser)
		return
	}

	orgID := orgcontext.RequireOrgID(c.Request.Context())
	if err := s.organizationSvc.AddMember(c.Request.Context(), orgID, organizationdomain.AddMemberRequest{
		UserID: userID,
		Role:   strings.ToUpper(strings.TrimSpace(req.Role)),
	}); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": gin.H{"added": true}})
}

type updateMemberRoleRequest struct {
	Role string `json:"role"`
}

func (s *Server) UpdateMemberRole(c *gin.Context) {
	userID, err := snowflake.ParseString(strings.TrimSpace(c.Param("userId")))
	if err != nil || userID == 0 {
		AbortWithError(c, organizationdomain.ErrInvalidUser)
		return
	}

	var req updateMemberRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	orgID := orgcontext.RequireOrgID(c.Request.Context())
	if err := s.organizationSvc.UpdateMemberRole(c.Request.Context(), orgID, userID, strings.ToUpper(strings.TrimSpace(req.Role))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"updated": true}})
}

func (s *Server) RemoveMember(c *gin.Context) {
	userID, err := snowflake.ParseString(strings.TrimSpace(c.Param("userId")))
	if err != nil || userID == 0 {
		AbortWithError(c, organizationdomain.ErrInvalidUser)
		return
	}

	orgID := orgcontext.RequireOrgID(c.Request.Context())
	if err := s.organizationSvc.RemoveMember(c.Request.Context(), orgID, userID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"removed": true}})
}
