package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	activitylogdomain "github.com/rentflow/rentflow/internal/activitylog/domain"
)

func (s *Server) ListActivityLogs(c *gin.Context) {
	var req activitylogdomain.ListActivityRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.activitySvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
