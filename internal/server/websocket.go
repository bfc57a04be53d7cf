package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 50 * time.Second
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients carry the JWT, not a cookie, so origin checks add
	// nothing here.
	CheckOrigin: func(*http.Request) bool { return true },
}

// StreamEvents upgrades the connection and streams the organization's change
// events. Auth rides in the query string because browsers cannot set headers
// on websocket dials; the replay backlog is flushed before live events.
func (s *Server) StreamEvents(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("token"))
	if raw == "" {
		raw = bearerToken(c.GetHeader("Authorization"))
	}
	claims, err := s.tokens.Parse(raw)
	if err != nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	orgRaw := strings.TrimSpace(c.Query("organization_id"))
	if orgRaw == "" {
		orgRaw = strings.TrimSpace(c.GetHeader(HeaderOrg))
	}
	orgID, err := snowflake.ParseString(orgRaw)
	if err != nil || orgID == 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if !claims.IsSuperAdmin {
		if _, err := s.organizationSvc.MemberRole(c.Request.Context(), orgID, claims.UserID); err != nil {
			AbortWithError(c, ErrForbidden)
			return
		}
	}

	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the handshake failure.
		return
	}

	sub, backlog, err := s.hub.Subscribe(orgID)
	if err != nil {
		_ = conn.Close()
		return
	}

	log := s.log.With(
		zap.String("org_id", orgID.String()),
		zap.String("user_id", claims.UserID.String()),
	)
	log.Debug("websocket subscriber connected", zap.Int("backlog", len(backlog)))

	done := make(chan struct{})

	// Reader exists only to notice the peer going away.
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	defer func() {
		sub.Close()
		_ = conn.Close()
	}()

	for _, event := range backlog {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(event); err != nil {
			return
		}
	}

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
