package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

const (
	RoleBuyer  = "buyer"
	RoleSeller = "seller"
	RoleAdmin  = "admin"
)

// Identity is the authenticated caller extracted from a bearer token. Tokens
// are issued by the identity service; this package only verifies them.
type Identity struct {
	UserID string
	Role   string
}

type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type contextKey struct{}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

type Authenticator struct {
	secret []byte
	logger *slog.Logger
}

func NewAuthenticator(secret []byte, logger *slog.Logger) *Authenticator {
	return &Authenticator{secret: secret, logger: logger}
}

// Require wraps a handler with bearer-token verification. When role is
// non-empty the caller must hold that role; admins pass every gate.
func (a *Authenticator) Require(role string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := a.verify(r)
		if err != nil {
			a.writeError(w, http.StatusUnauthorized, "invalid or missing token")
			return
		}

		if role != "" && identity.Role != role && identity.Role != RoleAdmin {
			a.writeError(w, http.StatusForbidden, fmt.Sprintf("requires %s role", role))
			return
		}

		next(w, r.WithContext(ContextWithIdentity(r.Context(), identity)))
	}
}

func (a *Authenticator) verify(r *http.Request) (Identity, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return Identity{}, errors.New("missing bearer token")
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return Identity{}, err
	}
	if !parsed.Valid || claims.UserID == "" {
		return Identity{}, errors.New("invalid token claims")
	}

	return Identity{UserID: claims.UserID, Role: claims.Role}, nil
}

func (a *Authenticator) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		a.logger.Error("failed to encode error response", "error", err)
	}
}
