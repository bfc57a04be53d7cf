package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// StripeWebhook acknowledges billing provider callbacks without processing
// them. Payload processing lands together with real charge support.
func (s *Server) StripeWebhook(c *gin.Context) {
	// Drain so the provider sees a clean request cycle.
	_, _ = io.Copy(io.Discard, io.LimitReader(c.Request.Body, 1<<20))

	c.JSON(http.StatusNotImplemented, gin.H{
		"received":  true,
		"processed": false,
	})
}
