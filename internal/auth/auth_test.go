package auth

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, secret []byte, userID, role string, expiresAt time.Time) string {
	t.Helper()
	claims := &Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return token
}

func newAuthenticator() *Authenticator {
	return NewAuthenticator(testSecret, slog.New(slog.DiscardHandler))
}

func TestRequire_ValidToken(t *testing.T) {
	var got Identity
	var ok bool
	next := func(w http.ResponseWriter, r *http.Request) {
		got, ok = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "user-1", RoleBuyer, time.Now().Add(time.Hour)))

	rec := httptest.NewRecorder()
	newAuthenticator().Require(RoleBuyer, next)(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, ok, "identity missing from request context")
	assert.Equal(t, Identity{UserID: "user-1", Role: RoleBuyer}, got)
}

func TestRequire_MissingHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/cart", nil)

	rec := httptest.NewRecorder()
	newAuthenticator().Require(RoleBuyer, failHandler(t))(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequire_MalformedToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")

	rec := httptest.NewRecorder()
	newAuthenticator().Require(RoleBuyer, failHandler(t))(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequire_ExpiredToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "user-1", RoleBuyer, time.Now().Add(-time.Hour)))

	rec := httptest.NewRecorder()
	newAuthenticator().Require(RoleBuyer, failHandler(t))(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequire_WrongSecret(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, []byte("other-secret"), "user-1", RoleBuyer, time.Now().Add(time.Hour)))

	rec := httptest.NewRecorder()
	newAuthenticator().Require(RoleBuyer, failHandler(t))(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequire_WrongRole(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/products", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "user-1", RoleBuyer, time.Now().Add(time.Hour)))

	rec := httptest.NewRecorder()
	newAuthenticator().Require(RoleSeller, failHandler(t))(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequire_AdminPassesEveryGate(t *testing.T) {
	for _, role := range []string{RoleBuyer, RoleSeller} {
		req := httptest.NewRequest(http.MethodGet, "/cart", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "admin-1", RoleAdmin, time.Now().Add(time.Hour)))

		rec := httptest.NewRecorder()
		newAuthenticator().Require(role, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, "admin rejected at %s gate", role)
	}
}

func failHandler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not have been called")
	}
}
