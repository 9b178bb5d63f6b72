package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"ceebrain-identity/internal/domain"
)

func TestJWTService_GenerateParseAccess(t *testing.T) {
	svc := NewJWTServiceWithStore("secret", 15*time.Minute, 30*time.Minute, NewMemoryRefreshTokenStore())
	user := domain.User{
		ID:           "u1",
		CeebrainID:   "CB-00A1B2-XK7Q",
		AuthProvider: domain.AuthProviderBoth,
		Role:         domain.DefaultUserRole,
		CreatedAt:    time.Now().UTC(),
	}

	pair, err := svc.GeneratePair(UserPrincipal(user))
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected tokens")
	}

	claims, err := svc.ParseAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}
	if claims.UserID != "u1" || claims.CeebrainID != "CB-00A1B2-XK7Q" || claims.Kind != PrincipalUser {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestJWTService_RefreshRotation(t *testing.T) {
	svc := NewJWTServiceWithStore("secret", 15*time.Minute, 30*time.Minute, NewMemoryRefreshTokenStore())
	user := domain.User{ID: "u1", CeebrainID: "CB-00A1B2-XK7Q", CreatedAt: time.Now().UTC()}

	pair, err := svc.GeneratePair(UserPrincipal(user))
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}

	refreshed, err := svc.RefreshPair(context.Background(), pair.RefreshToken, nil)
	if err != nil {
		t.Fatalf("refresh pair: %v", err)
	}
	if refreshed.AccessToken == "" || refreshed.RefreshToken == "" {
		t.Fatalf("expected refreshed tokens")
	}

	_, err = svc.RefreshPair(context.Background(), pair.RefreshToken, nil)
	if err == nil {
		t.Fatalf("expected old refresh token to be revoked")
	}
}

func TestJWTService_RevokeRefresh(t *testing.T) {
	svc := NewJWTServiceWithStore("secret", 15*time.Minute, 30*time.Minute, NewMemoryRefreshTokenStore())
	user := domain.User{ID: "u1", CreatedAt: time.Now().UTC()}
	pair, err := svc.GeneratePair(UserPrincipal(user))
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}

	if err := svc.RevokeRefresh(pair.RefreshToken); err != nil {
		t.Fatalf("revoke refresh: %v", err)
	}
	if _, err := svc.RefreshPair(context.Background(), pair.RefreshToken, nil); err == nil {
		t.Fatalf("expected refresh to fail after revoke")
	}
}

func TestJWTService_RejectsEmptySecret(t *testing.T) {
	svc := NewJWTServiceWithStore("", 15*time.Minute, 30*time.Minute, NewMemoryRefreshTokenStore())
	user := domain.User{ID: "u1", CreatedAt: time.Now().UTC()}

	if _, err := svc.GeneratePair(UserPrincipal(user)); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected ErrJWTInvalid on empty secret, got %v", err)
	}
}

func TestJWTService_RejectsAccessTokenInRefreshFlow(t *testing.T) {
	svc := NewJWTServiceWithStore("secret", 15*time.Minute, 30*time.Minute, NewMemoryRefreshTokenStore())
	user := domain.User{ID: "u1", CreatedAt: time.Now().UTC()}
	pair, err := svc.GeneratePair(UserPrincipal(user))
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}

	if _, err := svc.RefreshPair(context.Background(), pair.AccessToken, nil); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected ErrJWTInvalid for access token used as refresh, got %v", err)
	}
}

func TestJWTService_RejectsWrongIssuer(t *testing.T) {
	svc := NewJWTServiceWithStore("secret", 15*time.Minute, 30*time.Minute, NewMemoryRefreshTokenStore())
	now := time.Now().UTC()
	claims := Claims{
		UserID:    "u1",
		Kind:      PrincipalUser,
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "other-issuer",
			Subject:   "u1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Minute)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := svc.ParseAccessToken(signed); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected ErrJWTInvalid for wrong issuer, got %v", err)
	}
}

func TestJWTService_RefreshKeepsCeebrainClaims(t *testing.T) {
	svc := NewJWTServiceWithStore("secret", 15*time.Minute, 30*time.Minute, NewMemoryRefreshTokenStore())
	user := domain.User{ID: "u1", CeebrainID: "CB-00A1B2-XK7Q", AuthProvider: domain.AuthProviderMobileOTP, Role: "user"}
	pair, err := svc.GeneratePair(UserPrincipal(user))
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}
	refreshed, err := svc.RefreshPair(context.Background(), pair.RefreshToken, nil)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	claims, err := svc.ParseAccessToken(refreshed.AccessToken)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.CeebrainID != "CB-00A1B2-XK7Q" || claims.AuthProvider != "MOBILE_OTP" || claims.Role != "user" {
		t.Fatalf("claims lost on refresh: %+v", claims)
	}
}

func TestJWTService_AdminPrincipal(t *testing.T) {
	svc := NewJWTService("secret", time.Minute, time.Hour)
	admin := domain.Admin{ID: "a1", Role: domain.AdminRoleSuperAdmin}
	pair, err := svc.GeneratePair(AdminPrincipal(admin))
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}
	claims, err := svc.ParseAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Kind != PrincipalAdmin || claims.Role != "superadmin" {
		t.Fatalf("unexpected admin claims: %+v", claims)
	}
}

func TestJWTService_ExpiredAccessToken(t *testing.T) {
	svc := NewJWTService("secret", time.Minute, time.Hour)
	past := time.Now().UTC().Add(-time.Hour)
	claims := Claims{
		UserID:    "u1",
		Kind:      PrincipalUser,
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "ceebrain-identity",
			Subject:   "u1",
			IssuedAt:  jwt.NewNumericDate(past),
			ExpiresAt: jwt.NewNumericDate(past.Add(time.Minute)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := svc.ParseAccessToken(signed); !errors.Is(err, ErrJWTExpired) {
		t.Fatalf("expected ErrJWTExpired, got %v", err)
	}
}

func TestJWTService_RefreshCheckRunsBeforeRotation(t *testing.T) {
	svc := NewJWTServiceWithStore("secret", 15*time.Minute, 30*time.Minute, NewMemoryRefreshTokenStore())
	pair, err := svc.GeneratePair(Principal{ID: "u1", Kind: PrincipalUser})
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}

	var seen Principal
	deny := func(_ context.Context, p Principal) error {
		seen = p
		return ErrAccountSuspended
	}
	if _, err := svc.RefreshPair(context.Background(), pair.RefreshToken, deny); !errors.Is(err, ErrAccountSuspended) {
		t.Fatalf("expected check error, got %v", err)
	}
	if seen.ID != "u1" || seen.Kind != PrincipalUser {
		t.Fatalf("check received %+v", seen)
	}

	// Un rechazo no consume el token.
	if _, err := svc.RefreshPair(context.Background(), pair.RefreshToken, nil); err != nil {
		t.Fatalf("expected token still valid after rejected check, got %v", err)
	}
}

type failingRefreshStore struct {
	RefreshTokenStore
	revokeErr error
}

func (s failingRefreshStore) Revoke(string) error { return s.revokeErr }

func TestJWTService_RevokeRefreshPropagatesStoreErrors(t *testing.T) {
	storeErr := errors.New("redis down")
	svc := NewJWTServiceWithStore("secret", 15*time.Minute, 30*time.Minute, failingRefreshStore{
		RefreshTokenStore: NewMemoryRefreshTokenStore(),
		revokeErr:         storeErr,
	})
	pair, err := svc.GeneratePair(Principal{ID: "u1", Kind: PrincipalUser})
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}
	if err := svc.RevokeRefresh(pair.RefreshToken); !errors.Is(err, storeErr) || errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
	if err := svc.RevokeRefresh("not-a-token"); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected ErrJWTInvalid for malformed token, got %v", err)
	}
}
