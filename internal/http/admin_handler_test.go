package http

import (
	"context"
	"net/http"
	"testing"

	"ceebrain-identity/internal/service"
)

func (s *testServer) bootstrapAdmin(t *testing.T) string {
	t.Helper()
	_, err := s.admin.EnsureDefaultAdmin(context.Background(), service.AdminInput{
		Name:     "Admin",
		Email:    "admin@example.com",
		Number:   "0000000000",
		Password: "changeme123",
	})
	if err != nil {
		t.Fatalf("bootstrap admin: %v", err)
	}
	rec, out := s.do(t, http.MethodPost, "/admin/login", map[string]string{"email": "admin@example.com", "password": "changeme123"}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("admin login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	return out["token"].(string)
}

func TestAdminLogin_InvalidCredentials(t *testing.T) {
	s := newTestServer(t)
	s.bootstrapAdmin(t)
	rec, out := s.do(t, http.MethodPost, "/admin/login", map[string]string{"email": "admin@example.com", "password": "wrong-pass"}, "")
	if rec.Code != http.StatusUnauthorized || out["status"] != false {
		t.Fatalf("expected 401, got %d %v", rec.Code, out)
	}
}

func TestAdminRegister_SuperadminOnly(t *testing.T) {
	s := newTestServer(t)
	root := s.bootstrapAdmin(t)

	ops := map[string]string{"name": "Ops", "email": "ops@example.com", "password": "opspassword", "number": "9000000001"}
	rec, out := s.do(t, http.MethodPost, "/admin/register", ops, root)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if out["admin"].(map[string]any)["role"] != "admin" {
		t.Fatalf("expected default role admin, got %v", out["admin"])
	}
	if rec, _ := s.do(t, http.MethodPost, "/admin/register", ops, root); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d", rec.Code)
	}

	_, out = s.do(t, http.MethodPost, "/admin/login", map[string]string{"email": "ops@example.com", "password": "opspassword"}, "")
	opsToken := out["token"].(string)
	other := map[string]string{"name": "X", "email": "x@example.com", "password": "xpassword", "number": "9000000002"}
	if rec, _ := s.do(t, http.MethodPost, "/admin/register", other, opsToken); rec.Code != http.StatusForbidden {
		t.Fatalf("plain admin must get 403, got %d", rec.Code)
	}

	_, userToken := s.signup(t, signupBody())
	if rec, _ := s.do(t, http.MethodPost, "/admin/register", other, userToken); rec.Code != http.StatusForbidden {
		t.Fatalf("user token must get 403, got %d", rec.Code)
	}
}

func TestAdminModeration_SuspendBlocksUser(t *testing.T) {
	s := newTestServer(t)
	root := s.bootstrapAdmin(t)
	id, userToken := s.signup(t, signupBody())

	if rec, _ := s.do(t, http.MethodPut, "/admin/users/"+id+"/status", map[string]string{"status": "Suspended"}, userToken); rec.Code != http.StatusForbidden {
		t.Fatalf("user must not moderate, got %d", rec.Code)
	}
	if rec, _ := s.do(t, http.MethodPut, "/admin/users/"+id+"/status", map[string]string{"status": "Frozen"}, root); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", rec.Code)
	}
	rec, out := s.do(t, http.MethodPut, "/admin/users/"+id+"/status", map[string]string{"status": "Suspended"}, root)
	if rec.Code != http.StatusOK {
		t.Fatalf("suspend: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if out["user"].(map[string]any)["status"] != "Suspended" {
		t.Fatalf("expected suspended user, got %v", out["user"])
	}

	rec, out = s.do(t, http.MethodGet, "/users", nil, userToken)
	if rec.Code != http.StatusForbidden || out["message"] != service.ErrAccountSuspended.Message {
		t.Fatalf("suspended token must be rejected, got %d %v", rec.Code, out)
	}
	if rec, _ := s.do(t, http.MethodPost, "/login", map[string]string{"email": "asha@example.com", "password": "supersecret"}, ""); rec.Code != http.StatusForbidden {
		t.Fatalf("suspended login must get 403, got %d", rec.Code)
	}
}

func TestAdminModeration_Verification(t *testing.T) {
	s := newTestServer(t)
	root := s.bootstrapAdmin(t)
	id, _ := s.signup(t, signupBody())

	rec, out := s.do(t, http.MethodPut, "/admin/users/"+id+"/verification", map[string]string{"verificationStatus": "Verified"}, root)
	if rec.Code != http.StatusOK {
		t.Fatalf("verify: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if out["verifiedBy"].(map[string]any)["verifierRole"] != "superadmin" {
		t.Fatalf("expected verifier recorded, got %v", out["verifiedBy"])
	}
	stored, _ := s.users.GetByID(context.Background(), id)
	if stored.VerificationStatus != "Verified" || stored.VerifiedBy == nil {
		t.Fatalf("expected verification persisted, got %+v", stored)
	}
}

func TestAdminPasswordReset(t *testing.T) {
	s := newTestServer(t)
	s.bootstrapAdmin(t)

	rec, _ := s.do(t, http.MethodPost, "/admin/forgot-password", map[string]string{"email": "ghost@example.com"}, "")
	if rec.Code != http.StatusOK || s.mail.code != "" {
		t.Fatalf("unknown email must answer 200 without mailing, got %d", rec.Code)
	}
	if rec, _ := s.do(t, http.MethodPost, "/admin/forgot-password", map[string]string{"email": "admin@example.com"}, ""); rec.Code != http.StatusOK {
		t.Fatalf("forgot: expected 200, got %d", rec.Code)
	}

	reset := map[string]string{"email": "admin@example.com", "otp": s.mail.code, "newPassword": "brandnew123"}
	if rec, _ := s.do(t, http.MethodPost, "/admin/reset-password", reset, ""); rec.Code != http.StatusOK {
		t.Fatalf("reset: expected 200, got %d", rec.Code)
	}
	if rec, _ := s.do(t, http.MethodPost, "/admin/login", map[string]string{"email": "admin@example.com", "password": "brandnew123"}, ""); rec.Code != http.StatusOK {
		t.Fatalf("login with new password: expected 200, got %d", rec.Code)
	}
	if rec, _ := s.do(t, http.MethodPost, "/admin/reset-password", reset, ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("reused code must get 400, got %d", rec.Code)
	}
}
