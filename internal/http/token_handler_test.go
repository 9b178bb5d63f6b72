package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ceebrain-identity/internal/domain"
	"ceebrain-identity/internal/service"
)

func TestRefresh_SuspendedUserIsRejected(t *testing.T) {
	s := newTestServer(t)
	rec, out := s.do(t, http.MethodPost, "/signup", signupBody(), "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d", rec.Code)
	}
	result := out["result"].(map[string]any)
	id := result["user"].(map[string]any)["_id"].(string)
	refresh := result["refreshToken"].(string)

	if err := s.users.UpdateStatus(context.Background(), id, domain.AccountSuspended); err != nil {
		t.Fatalf("suspend: %v", err)
	}

	rec, out = s.do(t, http.MethodPost, "/auth/refresh", map[string]string{"refreshToken": refresh}, "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
	if out["message"] != service.ErrAccountSuspended.Message || out["token"] != nil {
		t.Fatalf("unexpected body %v", out)
	}

	// Reactivada la cuenta, el mismo token sigue siendo valido.
	if err := s.users.UpdateStatus(context.Background(), id, domain.AccountActive); err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	if rec, _ := s.do(t, http.MethodPost, "/auth/refresh", map[string]string{"refreshToken": refresh}, ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 after reactivation, got %d", rec.Code)
	}
}

func TestRefresh_InactiveAdminIsRejected(t *testing.T) {
	s := newTestServer(t)
	admin := domain.Admin{ID: "a-inactive", Name: "Old", Email: "old@example.com", Number: "0000000001", Role: domain.AdminRoleAdmin, Active: false}
	if err := s.admins.Create(context.Background(), admin); err != nil {
		t.Fatalf("create admin: %v", err)
	}
	pair, err := s.jwt.GeneratePair(service.AdminPrincipal(admin))
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}

	rec, out := s.do(t, http.MethodPost, "/auth/refresh", map[string]string{"refreshToken": pair.RefreshToken}, "")
	if rec.Code != http.StatusForbidden || out["message"] != service.ErrAdminInactive.Message {
		t.Fatalf("expected 403 inactive admin, got %d %v", rec.Code, out)
	}
}

func TestRefresh_UnknownUserIsUnauthorized(t *testing.T) {
	s := newTestServer(t)
	pair, err := s.jwt.GeneratePair(service.Principal{ID: "7d6b1c0e-3f4a-4b7e-9a51-2c8d9e0f1a2b", Kind: service.PrincipalUser})
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}
	rec, out := s.do(t, http.MethodPost, "/auth/refresh", map[string]string{"refreshToken": pair.RefreshToken}, "")
	if rec.Code != http.StatusUnauthorized || out["message"] != "User not found" {
		t.Fatalf("expected 401 user not found, got %d %v", rec.Code, out)
	}
}

type brokenRevokeStore struct {
	service.RefreshTokenStore
}

func (brokenRevokeStore) Revoke(string) error { return errors.New("redis down") }

func TestLogout_StoreFailureIsReported(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jwtSvc := service.NewJWTServiceWithStore("secret", 15*time.Minute, time.Hour, brokenRevokeStore{service.NewMemoryRefreshTokenStore()})
	h := NewTokenHandler(zap.NewNop(), jwtSvc, nil)
	r := gin.New()
	r.POST("/auth/logout", h.Logout)

	pair, err := jwtSvc.GeneratePair(service.Principal{ID: "u1", Kind: service.PrincipalUser})
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}

	post := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/auth/logout", strings.NewReader(`{"refreshToken":"`+token+`"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	if rec := post(pair.RefreshToken); rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 when the store fails, got %d", rec.Code)
	}
	if rec := post("garbage"); rec.Code != http.StatusNoContent {
		t.Fatalf("invalid tokens still log out with 204, got %d", rec.Code)
	}
}
