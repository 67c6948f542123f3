package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the caller as asserted by the identity provider's token.
type Identity struct {
	UserID      string
	DisplayName string
	PhotoRef    string
}

type tokenClaims struct {
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

var errMissingSubject = errors.New("token has no subject")

// Verifier checks HS256 identity tokens.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewVerifier(secret, issuer string) *Verifier {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	return &Verifier{secret: []byte(secret), parser: jwt.NewParser(opts...)}
}

func (v *Verifier) Verify(token string) (Identity, error) {
	claims := &tokenClaims{}
	_, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("parse token: %w", err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return Identity{}, errMissingSubject
	}
	return Identity{UserID: claims.Subject, DisplayName: claims.Name, PhotoRef: claims.Picture}, nil
}

type ctxKey string

const userIDKey ctxKey = "user_id"

func withUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserID returns the authenticated caller, or "" outside authenticated routes.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// authenticate verifies the bearer token and bootstraps the caller's profile.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeProblem(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}

		ident, err := h.verifier.Verify(raw)
		if err != nil {
			h.log(r).Debug("token rejected", "error", err)
			writeProblem(w, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}

		if _, _, err := h.users.EnsureUser(r.Context(), ident.UserID, ident.DisplayName, ident.PhotoRef); err != nil {
			h.writeError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(withUserID(r.Context(), ident.UserID)))
	})
}

func (h *Handler) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := UserID(r.Context())
		if key == "" {
			key = r.RemoteAddr
		}
		if !h.limiter.Allow(key) {
			h.log(r).Debug("rate limited", "key", key)
			writeProblem(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}
