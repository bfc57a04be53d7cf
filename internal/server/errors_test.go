package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	authdomain "github.com/rentflow/rentflow/internal/auth/domain"
	contractdomain "github.com/rentflow/rentflow/internal/contract/domain"
	organizationdomain "github.com/rentflow/rentflow/internal/organization/domain"
	paymentdomain "github.com/rentflow/rentflow/internal/payment/domain"
	tenantdomain "github.com/rentflow/rentflow/internal/tenant/domain"
	unitdomain "github.com/rentflow/rentflow/internal/unit/domain"
	"gorm.io/gorm"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid credentials", authdomain.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
		{"missing token", ErrTokenRequired, http.StatusUnauthorized, "token_required"},
		{"expired token", authdomain.ErrTokenExpired, http.StatusUnauthorized, "token_expired"},
		{"forbidden", ErrForbidden, http.StatusForbidden, "forbidden"},
		{"inactive org", ErrOrgInactive, http.StatusForbidden, "organization_inactive"},
		{"non-member org", ErrOrgAccess, http.StatusForbidden, "organization_access_denied"},
		{"unit not found", unitdomain.ErrNotFound, http.StatusNotFound, "unit_not_found"},
		{"gorm not found", gorm.ErrRecordNotFound, http.StatusNotFound, "record not found"},
		{"duplicate email", tenantdomain.ErrDuplicateEmail, http.StatusConflict, "duplicate_tenant_email"},
		{"unit occupied", contractdomain.ErrUnitOccupied, http.StatusConflict, "unit_has_active_contract"},
		{"last owner", organizationdomain.ErrLastOwner, http.StatusConflict, "cannot_remove_last_owner"},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
		{"validation", paymentdomain.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, "internal_error"},
		{"nil", nil, http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		status, payload := mapError(tc.err)
		if status != tc.wantStatus {
			t.Errorf("%s: status = %d, want %d", tc.name, status, tc.wantStatus)
		}
		if payload.Code != tc.wantCode {
			t.Errorf("%s: code = %q, want %q", tc.name, payload.Code, tc.wantCode)
		}
	}
}

func TestMapErrorMatchesWrappedErrors(t *testing.T) {
	wrapped := errors.Join(errors.New("activate contract"), contractdomain.ErrNotDraft)
	status, _ := mapError(wrapped)
	if status != http.StatusConflict {
		t.Fatalf("status = %d, want 409 for wrapped conflict", status)
	}
}

func TestErrorCodeFallsBackOnLongMessages(t *testing.T) {
	long := errors.New("this error message is far too long to be useful as a machine readable code value")
	if code := errorCode(long, "invalid_request"); code != "invalid_request" {
		t.Fatalf("code = %q, want fallback", code)
	}
	if code := errorCode(unitdomain.ErrInvalidStatus, "invalid_request"); code != "invalid_status" {
		t.Fatalf("code = %q, want domain message", code)
	}
}

func TestErrorHandlingMiddlewareRendersEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(ErrorHandlingMiddleware(false))
	router.GET("/boom", func(c *gin.Context) {
		AbortWithError(c, tenantdomain.ErrNotFound)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error != "not found" {
		t.Fatalf("error = %q", body.Error)
	}
	if body.Code != "tenant_not_found" {
		t.Fatalf("code = %q", body.Code)
	}
	if body.Details != nil {
		t.Fatalf("details leaked on a 4xx: %v", body.Details)
	}

	// The envelope is flat: error, code and details live at the top level.
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode raw body: %v", err)
	}
	if _, nested := raw["error"]; !nested {
		t.Fatal("missing top-level error field")
	}
	if string(raw["error"]) != `"not found"` {
		t.Fatalf("error field = %s, want a plain string", raw["error"])
	}
	if _, ok := raw["code"]; !ok {
		t.Fatal("missing top-level code field")
	}
}

func TestErrorHandlingMiddlewareDetailOnlyFor5xx(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(ErrorHandlingMiddleware(true))
	router.GET("/boom", func(c *gin.Context) {
		AbortWithError(c, errors.New("pg: connection refused"))
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Details != "pg: connection refused" {
		t.Fatalf("details = %v", body.Details)
	}
}

func TestErrorHandlingMiddlewareSkipsWrittenResponses(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(ErrorHandlingMiddleware(false))
	router.GET("/ok", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		_ = c.Error(errors.New("late error"))
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, handler output must win", rec.Code)
	}
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi"},
		{"bearer abc.def.ghi", "abc.def.ghi"},
		{"  Bearer   spaced-token  ", "spaced-token"},
		{"Basic dXNlcjpwYXNz", ""},
		{"Bearer", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := bearerToken(tc.header); got != tc.want {
			t.Errorf("bearerToken(%q) = %q, want %q", tc.header, got, tc.want)
		}
	}
}

func TestIsWriteMethod(t *testing.T) {
	for _, method := range []string{"POST", "PUT", "PATCH", "DELETE"} {
		if !isWriteMethod(method) {
			t.Errorf("%s should count as a write", method)
		}
	}
	for _, method := range []string{"GET", "HEAD", "OPTIONS"} {
		if isWriteMethod(method) {
			t.Errorf("%s should not count as a write", method)
		}
	}
}

func TestClassifyErrorForLog(t *testing.T) {
	cases := []struct {
		err        error
		wantFamily string
	}{
		{authdomain.ErrInvalidToken, "auth"},
		{ErrRateLimited, "rate_limit"},
		{unitdomain.ErrInvalidStatus, "client"},
		{errors.New("boom"), "internal"},
	}
	for _, tc := range cases {
		family, _ := classifyErrorForLog(tc.err)
		if family != tc.wantFamily {
			t.Errorf("classify(%v) = %q, want %q", tc.err, family, tc.wantFamily)
		}
	}
}
