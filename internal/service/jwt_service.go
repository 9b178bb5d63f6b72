package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"ceebrain-identity/internal/domain"
)

const (
	PrincipalUser  = "user"
	PrincipalAdmin = "admin"
)

// JWTService emite y valida tokens JWT.
type JWTService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	store      RefreshTokenStore
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// Principal es la identidad que viaja en el token: un usuario o un administrador.
type Principal struct {
	ID           string
	Kind         string
	CeebrainID   string
	AuthProvider string
	Role         string
}

func UserPrincipal(u domain.User) Principal {
	return Principal{
		ID:           u.ID,
		Kind:         PrincipalUser,
		CeebrainID:   u.CeebrainID,
		AuthProvider: string(u.AuthProvider),
		Role:         u.Role,
	}
}

func AdminPrincipal(a domain.Admin) Principal {
	return Principal{
		ID:   a.ID,
		Kind: PrincipalAdmin,
		Role: string(a.Role),
	}
}

type Claims struct {
	UserID       string `json:"uid"`
	Kind         string `json:"kind"`
	CeebrainID   string `json:"ceebrainId,omitempty"`
	AuthProvider string `json:"authProvider,omitempty"`
	Role         string `json:"role,omitempty"`
	TokenType    string `json:"typ"`
	jwt.RegisteredClaims
}

func (c Claims) Principal() Principal {
	return Principal{
		ID:           c.UserID,
		Kind:         c.Kind,
		CeebrainID:   c.CeebrainID,
		AuthProvider: c.AuthProvider,
		Role:         c.Role,
	}
}

var (
	ErrJWTInvalid = errors.New("jwt invalid")
	ErrJWTExpired = errors.New("jwt expired")
)

func NewJWTService(secret string, accessTTL, refreshTTL time.Duration) *JWTService {
	if accessTTL <= 0 {
		accessTTL = 24 * time.Hour
	}
	if refreshTTL <= 0 {
		refreshTTL = 30 * 24 * time.Hour
	}
	return &JWTService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		issuer:     "ceebrain-identity",
		store:      NewMemoryRefreshTokenStore(),
	}
}

func NewJWTServiceWithStore(secret string, accessTTL, refreshTTL time.Duration, store RefreshTokenStore) *JWTService {
	svc := NewJWTService(secret, accessTTL, refreshTTL)
	if store != nil {
		svc.store = store
	}
	return svc
}

func (s *JWTService) GeneratePair(p Principal) (TokenPair, error) {
	if len(s.secret) == 0 || strings.TrimSpace(p.ID) == "" {
		return TokenPair{}, ErrJWTInvalid
	}
	if p.Kind == "" {
		p.Kind = PrincipalUser
	}
	now := time.Now().UTC()
	access, _, err := s.sign(p, now, s.accessTTL, "access")
	if err != nil {
		return TokenPair{}, err
	}
	refresh, jti, err := s.sign(p, now, s.refreshTTL, "refresh")
	if err != nil {
		return TokenPair{}, err
	}
	if s.store != nil {
		if err := s.store.Store(jti, p.ID, s.refreshTTL); err != nil {
			return TokenPair{}, err
		}
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}

// PrincipalCheck confirma que el titular de un refresh token sigue habilitado.
type PrincipalCheck func(ctx context.Context, p Principal) error

// RefreshPair rota el refresh token: valida firma y jti, ejecuta check (si no
// es nil) y solo entonces revoca el jti usado y emite el nuevo par. Un error de
// check se devuelve tal cual y deja el token intacto.
func (s *JWTService) RefreshPair(ctx context.Context, refreshToken string, check PrincipalCheck) (TokenPair, error) {
	claims, err := s.parseRefresh(refreshToken)
	if err != nil {
		return TokenPair{}, err
	}
	ok, err := s.store.Exists(claims.ID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("refresh store lookup: %w", err)
	}
	if !ok {
		return TokenPair{}, ErrJWTInvalid
	}
	principal := claims.Principal()
	if check != nil {
		if err := check(ctx, principal); err != nil {
			return TokenPair{}, err
		}
	}
	if err := s.store.Revoke(claims.ID); err != nil {
		return TokenPair{}, fmt.Errorf("refresh store revoke: %w", err)
	}
	return s.GeneratePair(principal)
}

// RevokeRefresh invalida el jti del token. Tokens mal formados o vencidos
// devuelven ErrJWTInvalid/ErrJWTExpired; fallos del store se propagan envueltos.
func (s *JWTService) RevokeRefresh(refreshToken string) error {
	claims, err := s.parseRefresh(refreshToken)
	if err != nil {
		return err
	}
	if err := s.store.Revoke(claims.ID); err != nil {
		return fmt.Errorf("refresh store revoke: %w", err)
	}
	return nil
}

func (s *JWTService) ParseAccessToken(accessToken string) (Claims, error) {
	if len(s.secret) == 0 {
		return Claims{}, ErrJWTInvalid
	}
	if strings.TrimSpace(accessToken) == "" {
		return Claims{}, ErrJWTInvalid
	}
	claims, err := s.parseToken(accessToken)
	if err != nil {
		return Claims{}, err
	}
	if claims.TokenType != "access" {
		return Claims{}, ErrJWTInvalid
	}
	if !s.isValidClaims(claims) {
		return Claims{}, ErrJWTInvalid
	}
	return claims, nil
}

func (s *JWTService) parseRefresh(refreshToken string) (Claims, error) {
	if len(s.secret) == 0 || s.store == nil {
		return Claims{}, ErrJWTInvalid
	}
	if strings.TrimSpace(refreshToken) == "" {
		return Claims{}, ErrJWTInvalid
	}
	claims, err := s.parseToken(refreshToken)
	if err != nil {
		return Claims{}, err
	}
	if claims.TokenType != "refresh" || claims.ID == "" {
		return Claims{}, ErrJWTInvalid
	}
	if !s.isValidClaims(claims) {
		return Claims{}, ErrJWTInvalid
	}
	return claims, nil
}

func (s *JWTService) sign(p Principal, now time.Time, ttl time.Duration, tokenType string) (string, string, error) {
	jti := uuid.NewString()
	claims := Claims{
		UserID:       p.ID,
		Kind:         p.Kind,
		CeebrainID:   p.CeebrainID,
		AuthProvider: p.AuthProvider,
		Role:         p.Role,
		TokenType:    tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    s.issuer,
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	return signed, jti, err
}

func (s *JWTService) parseToken(tokenString string) (Claims, error) {
	var claims Claims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	_, err := parser.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrJWTExpired
		}
		return Claims{}, ErrJWTInvalid
	}
	return claims, nil
}

func (s *JWTService) isValidClaims(claims Claims) bool {
	if strings.TrimSpace(claims.UserID) == "" {
		return false
	}
	if claims.Subject != claims.UserID {
		return false
	}
	if claims.Kind != PrincipalUser && claims.Kind != PrincipalAdmin {
		return false
	}
	return strings.TrimSpace(claims.Issuer) == s.issuer
}
