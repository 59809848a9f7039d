package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/cafe-backend/internal/auth"
	"github.com/angelmondragon/cafe-backend/internal/users"
	pkgAuth "github.com/angelmondragon/cafe-backend/pkg/auth"
	"github.com/angelmondragon/cafe-backend/pkg/auth/session"
	"github.com/angelmondragon/cafe-backend/pkg/config"
	"github.com/angelmondragon/cafe-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cafe-backend/pkg/errors"
)

type stubRotator struct {
	revoked string
	rotated string
	err     error
}

func (s *stubRotator) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	if s.err != nil {
		return "", "", s.err
	}
	s.rotated = oldAccessID
	return "new-access-id", "new-refresh", nil
}

func (s *stubRotator) Revoke(ctx context.Context, accessID string) error {
	s.revoked = accessID
	return s.err
}

func sessionJWT() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "cafe", ExpirationMinutes: 15}
}

func expiredToken(t *testing.T, cfg config.JWTConfig, userID uuid.UUID) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg, time.Now().Add(-time.Hour), pkgAuth.AccessTokenPayload{
		UserID: userID,
		Role:   enums.UserRoleCustomer,
		JTI:    "old-access-id",
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestAuthRefreshAcceptsExpiredToken(t *testing.T) {
	cfg := sessionJWT()
	userID := uuid.New()
	rotator := &stubRotator{}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader(`{"refresh_token":"r1"}`))
	req.Header.Set("Authorization", "Bearer "+expiredToken(t, cfg, userID))
	resp := httptest.NewRecorder()
	AuthRefresh(rotator, cfg, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if rotator.rotated != "old-access-id" {
		t.Fatalf("expected rotation of old session, got %q", rotator.rotated)
	}

	var envelope struct {
		Data refreshResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	claims, err := pkgAuth.ParseAccessToken(cfg, envelope.Data.AccessToken)
	if err != nil {
		t.Fatalf("new access token should be valid: %v", err)
	}
	if claims.UserID != userID || claims.ID != "new-access-id" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestAuthRefreshInvalidRefreshToken(t *testing.T) {
	cfg := sessionJWT()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader(`{"refresh_token":"wrong"}`))
	req.Header.Set("Authorization", "Bearer "+expiredToken(t, cfg, uuid.New()))
	resp := httptest.NewRecorder()
	AuthRefresh(&stubRotator{err: session.ErrInvalidRefreshToken}, cfg, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthLogout(t *testing.T) {
	cfg := sessionJWT()
	rotator := &stubRotator{}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+expiredToken(t, cfg, uuid.New()))
	resp := httptest.NewRecorder()
	AuthLogout(rotator, cfg, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if rotator.revoked != "old-access-id" {
		t.Fatalf("expected revoke of old-access-id, got %q", rotator.revoked)
	}

	resp = httptest.NewRecorder()
	AuthLogout(rotator, cfg, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

type stubLogin struct{ got auth.LoginRequest }

func (s *stubLogin) Login(_ context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	s.got = req
	return &auth.LoginResponse{AccessToken: "a", RefreshToken: "r"}, nil
}

type stubRegister struct{ err error }

func (s stubRegister) Register(_ context.Context, req auth.RegisterRequest) (*users.Profile, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &users.Profile{ID: uuid.New(), Email: req.Email}, nil
}

func TestAuthRegisterSignsIn(t *testing.T) {
	login := &stubLogin{}
	body := `{"name":"Bea","email":"bea@example.com","password":"espresso-1"}`
	resp := httptest.NewRecorder()
	AuthRegister(stubRegister{}, login, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body)))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if login.got.Email != "bea@example.com" || login.got.Password != "espresso-1" {
		t.Fatalf("expected login with registered credentials, got %+v", login.got)
	}
}

func TestAuthRegisterConflictSkipsLogin(t *testing.T) {
	login := &stubLogin{}
	reg := stubRegister{err: pkgerrors.New(pkgerrors.CodeConflict, "email already registered")}
	body := `{"name":"Bea","email":"bea@example.com","password":"espresso-1"}`
	resp := httptest.NewRecorder()
	AuthRegister(reg, login, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body)))

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	if login.got.Email != "" {
		t.Fatal("login must not run after a failed registration")
	}
}

func TestAuthLoginValidatesBody(t *testing.T) {
	resp := httptest.NewRecorder()
	AuthLogin(&stubLogin{}, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"nope"}`)))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
