package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var testSigningKey = []byte("test-secret-key-for-unit-tests-only")

func createTestToken(t *testing.T, claims Claims, key []byte) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return tokenStr
}

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func expectStatus(t *testing.T, err error, code int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %d, got no error", code)
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != code {
		t.Errorf("expected %d, got %d", code, httpErr.Code)
	}
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/responses", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	err := JWTMiddleware(JWTConfig{SigningKey: testSigningKey})(okHandler)(c)
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_InvalidFormat(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no bearer prefix", "Token abc123"},
		{"missing token", "Bearer"},
		{"empty value", "Bearer "},
		{"basic auth", "Basic dXNlcjpwYXNz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", tt.header)
			c := e.NewContext(req, httptest.NewRecorder())

			err := JWTMiddleware(JWTConfig{SigningKey: testSigningKey})(okHandler)(c)
			expectStatus(t, err, http.StatusUnauthorized)
		})
	}
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	tokenStr := createTestToken(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "coordinator-1",
			Issuer:    "https://auth.example.org",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Roles: []string{RoleResearcher},
	}, testSigningKey)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)
	c := e.NewContext(req, httptest.NewRecorder())

	var uid string
	var roles []string
	handler := func(c echo.Context) error {
		uid = UserIDFromContext(c.Request().Context())
		roles = RolesFromContext(c.Request().Context())
		return nil
	}
	cfg := JWTConfig{SigningKey: testSigningKey, Issuer: "https://auth.example.org"}
	if err := JWTMiddleware(cfg)(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if uid != "coordinator-1" {
		t.Errorf("expected subject coordinator-1, got %q", uid)
	}
	if len(roles) != 1 || roles[0] != RoleResearcher {
		t.Errorf("unexpected roles %v", roles)
	}
}

func TestJWTMiddleware_Rejections(t *testing.T) {
	valid := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
	tests := []struct {
		name   string
		claims Claims
		key    []byte
		cfg    JWTConfig
	}{
		{
			name:   "expired",
			claims: Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour))}},
			key:    testSigningKey,
			cfg:    JWTConfig{SigningKey: testSigningKey},
		},
		{
			name:   "wrong key",
			claims: Claims{RegisteredClaims: valid},
			key:    []byte("another-key"),
			cfg:    JWTConfig{SigningKey: testSigningKey},
		},
		{
			name:   "wrong issuer",
			claims: Claims{RegisteredClaims: jwt.RegisteredClaims{Issuer: "evil", ExpiresAt: valid.ExpiresAt}},
			key:    testSigningKey,
			cfg:    JWTConfig{SigningKey: testSigningKey, Issuer: "https://auth.example.org"},
		},
		{
			name:   "wrong audience",
			claims: Claims{RegisteredClaims: jwt.RegisteredClaims{Audience: jwt.ClaimStrings{"other"}, ExpiresAt: valid.ExpiresAt}},
			key:    testSigningKey,
			cfg:    JWTConfig{SigningKey: testSigningKey, Audience: "pretest-admin"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+createTestToken(t, tt.claims, tt.key))
			c := e.NewContext(req, httptest.NewRecorder())
			expectStatus(t, JWTMiddleware(tt.cfg)(okHandler)(c), http.StatusUnauthorized)
		})
	}
}

func TestJWTMiddleware_SkipsPublicPaths(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/pretest/submissions", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/v1/pretest/submissions")

	called := false
	handler := func(c echo.Context) error { called = true; return nil }
	cfg := JWTConfig{SigningKey: testSigningKey, Skipper: AuthSkipper}
	if err := JWTMiddleware(cfg)(handler)(c); err != nil {
		t.Fatalf("public path should skip auth: %v", err)
	}
	if !called {
		t.Error("handler was not called")
	}
}

func TestJWTMiddleware_DoesNotSkipAdminPaths(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/slots/stats", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/v1/admin/slots/stats")

	cfg := JWTConfig{SigningKey: testSigningKey, Skipper: AuthSkipper}
	expectStatus(t, JWTMiddleware(cfg)(okHandler)(c), http.StatusUnauthorized)
}

func TestDevAuthMiddleware(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	var roles []string
	handler := func(c echo.Context) error {
		roles = RolesFromContext(c.Request().Context())
		return nil
	}
	if err := DevAuthMiddleware()(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(roles) != 1 || roles[0] != RoleAdmin {
		t.Errorf("expected admin role, got %v", roles)
	}
	if UserIDFromContext(c.Request().Context()) != "dev-user" {
		t.Error("expected dev-user identity")
	}
}

func TestAuthSkipper(t *testing.T) {
	e := echo.New()
	tests := map[string]bool{
		"/health":                     true,
		"/api/v1/pretest/form":        true,
		"/api/v1/pretest/submissions": true,
		"/api/v1/admin/responses":     false,
		"/api/v1/admin/slots/stats":   false,
	}
	for path, want := range tests {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, path, nil), httptest.NewRecorder())
		c.SetPath(path)
		if got := AuthSkipper(c); got != want {
			t.Errorf("AuthSkipper(%s) = %v, want %v", path, got, want)
		}
	}
}
