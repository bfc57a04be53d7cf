package token

import (
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/rentflow/rentflow/internal/auth/domain"
	"github.com/rentflow/rentflow/internal/clock"
	"github.com/rentflow/rentflow/internal/config"
)

func newTestManager(t *testing.T, secret string, ttl time.Duration, clk clock.Clock) *Manager {
	t.Helper()

	mgr, err := NewManager(config.Config{AuthJWTSecret: secret, AuthTokenTTL: ttl}, clk)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return mgr
}

func testUser(t *testing.T) domain.User {
	t.Helper()

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return domain.User{
		ID:           node.Generate(),
		Email:        "user@example.com",
		IsSuperAdmin: true,
	}
}

func TestTokenRoundTrip(t *testing.T) {
	now := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)
	clk := clock.NewFakeClock(now)
	mgr := newTestManager(t, "test-secret", time.Hour, clk)
	user := testUser(t)

	raw, expiresAt, err := mgr.Issue(user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !expiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("expires at = %v", expiresAt)
	}

	claims, err := mgr.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != user.ID {
		t.Fatalf("user id = %v, want %v", claims.UserID, user.ID)
	}
	if claims.Email != user.Email {
		t.Fatalf("email = %q", claims.Email)
	}
	if !claims.IsSuperAdmin {
		t.Fatal("super admin flag lost")
	}
}

func TestTokenExpires(t *testing.T) {
	now := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)
	clk := clock.NewFakeClock(now)
	mgr := newTestManager(t, "test-secret", time.Hour, clk)

	raw, _, err := mgr.Issue(testUser(t))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	clk.Advance(2 * time.Hour)
	if _, err := mgr.Parse(raw); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("err = %v, want ErrTokenExpired", err)
	}
}

func TestTokenRejectsGarbage(t *testing.T) {
	clk := clock.NewFakeClock(time.Now())
	mgr := newTestManager(t, "test-secret", time.Hour, clk)

	for _, raw := range []string{"", "   ", "not.a.token", "aaaa.bbbb.cccc"} {
		if _, err := mgr.Parse(raw); !errors.Is(err, domain.ErrInvalidToken) {
			t.Fatalf("Parse(%q) err = %v, want ErrInvalidToken", raw, err)
		}
	}
}

func TestTokenRejectsForeignSignature(t *testing.T) {
	clk := clock.NewFakeClock(time.Now())
	issuerMgr := newTestManager(t, "secret-one", time.Hour, clk)
	verifyMgr := newTestManager(t, "secret-two", time.Hour, clk)

	raw, _, err := issuerMgr.Issue(testUser(t))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := verifyMgr.Parse(raw); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestManagerRequiresSecret(t *testing.T) {
	if _, err := NewManager(config.Config{AuthJWTSecret: "  "}, clock.NewFakeClock(time.Now())); err == nil {
		t.Fatal("expected error for empty secret")
	}
}
