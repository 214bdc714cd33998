// Package auth implements an optional bearer-token middleware guarding
// internal/httpapi's session-scoped endpoints. The core memory service
// has no notion of users or tenants (spec.md's Non-goals exclude a
// façade's worth of identity), but a deployable HTTP surface still needs
// an auth seam, per SPEC_FULL.md's domain-stack wiring table. Grounded
// on the teacher's pkg/auth.JWTValidator, scoped down to the single
// HS256-secret case this deployment needs.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid bearer token")
)

type contextKey string

const subjectKey contextKey = "auth_subject"

// Validator checks HS256 bearer tokens against a single shared secret.
type Validator struct {
	secret []byte
}

// NewValidator returns a Validator over secret. An empty secret disables
// verification entirely — callers should not install the middleware in
// that case.
func NewValidator(secret string) *Validator {
	return &Validator{secret: []byte(secret)}
}

// Verify parses and validates an Authorization header value, returning
// the token's subject claim.
func (v *Validator) Verify(authHeader string) (string, error) {
	tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if tokenString == "" {
		return "", ErrMissingToken
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	sub, err := token.Claims.GetSubject()
	if err != nil {
		return "", ErrInvalidToken
	}
	return sub, nil
}

// Middleware returns a chi-compatible middleware enforcing a valid
// bearer token on every request, storing the claimed subject in context.
func (v *Validator) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sub, err := v.Verify(r.Header.Get("Authorization"))
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"` + err.Error() + `"}`))
				return
			}
			ctx := context.WithValue(r.Context(), subjectKey, sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SubjectFromContext returns the bearer token's subject claim, if any.
func SubjectFromContext(ctx context.Context) (string, bool) {
	sub, ok := ctx.Value(subjectKey).(string)
	return sub, ok
}
