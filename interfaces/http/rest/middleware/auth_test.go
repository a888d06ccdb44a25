package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"catalogo-backend/infrastructure/config"
)

const testSecret = "unit-test-secret"

func withUser(r *http.Request, user *UserContext) context.Context {
	return context.WithValue(r.Context(), userContextKey, user)
}

func localConfig() *config.Config {
	return &config.Config{
		IsLambda:  false,
		JWTSecret: testSecret,
		JWTIssuer: "catalogo-backend",
	}
}

func signToken(t *testing.T, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func echoUser(t *testing.T) (http.Handler, **UserContext) {
	t.Helper()
	var captured *UserContext
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetUser(r.Context())
		w.WriteHeader(http.StatusOK)
	}), &captured
}

func validClaims() Claims {
	return Claims{
		Email: "admin@example.com",
		Roles: []string{"admin"},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    "catalogo-backend",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestAuthenticateJWTAcceptsValidToken(t *testing.T) {
	next, captured := echoUser(t)
	handler := Authenticate(localConfig(), zap.NewNop())(next)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, validClaims()))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, *captured)
	assert.Equal(t, "user-1", (*captured).UserID)
	assert.Equal(t, "admin@example.com", (*captured).Email)
	assert.Equal(t, []string{"admin"}, (*captured).Roles)
}

func TestAuthenticateJWTRejectsMissingHeader(t *testing.T) {
	next, _ := echoUser(t)
	handler := Authenticate(localConfig(), zap.NewNop())(next)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateJWTRejectsExpiredToken(t *testing.T) {
	claims := validClaims()
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))

	next, _ := echoUser(t)
	handler := Authenticate(localConfig(), zap.NewNop())(next)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, claims))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "expired")
}

func TestAuthenticateJWTRejectsWrongIssuer(t *testing.T) {
	claims := validClaims()
	claims.Issuer = "someone-else"

	next, _ := echoUser(t)
	handler := Authenticate(localConfig(), zap.NewNop())(next)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, claims))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateJWTRejectsWrongKey(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims()).SignedString([]byte("other-secret"))
	require.NoError(t, err)

	next, _ := echoUser(t)
	handler := Authenticate(localConfig(), zap.NewNop())(next)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateGatewayTrustsAuthorizerHeaders(t *testing.T) {
	cfg := &config.Config{IsLambda: true}
	next, captured := echoUser(t)
	handler := Authenticate(cfg, zap.NewNop())(next)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("X-API-Gateway-Authorized", "true")
	req.Header.Set("X-User-ID", "user-9")
	req.Header.Set("X-User-Email", "nine@example.com")
	req.Header.Set("X-User-Roles", "admin,editor")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, *captured)
	assert.Equal(t, "user-9", (*captured).UserID)
	assert.Equal(t, []string{"admin", "editor"}, (*captured).Roles)
}

func TestAuthenticateGatewayRejectsUnauthorizedRequest(t *testing.T) {
	cfg := &config.Config{IsLambda: true}
	next, _ := echoUser(t)
	handler := Authenticate(cfg, zap.NewNop())(next)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("X-User-ID", "user-9")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	next, _ := echoUser(t)
	guarded := RequireRole("admin")(next)

	t.Run("allows matching role", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req = req.WithContext(withUser(req, &UserContext{UserID: "u", Roles: []string{"admin"}}))
		rec := httptest.NewRecorder()
		guarded.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("forbids missing role", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req = req.WithContext(withUser(req, &UserContext{UserID: "u", Roles: []string{"viewer"}}))
		rec := httptest.NewRecorder()
		guarded.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("rejects anonymous", func(t *testing.T) {
		rec := httptest.NewRecorder()
		guarded.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
