package controlplane

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// ErrMissingToken is returned when a request carries no Authorization
// header at all.
var ErrMissingToken = errors.New("missing bearer token")

// claims is the minimal registered-claims set a control-plane token
// needs; there is no per-user role or permission model here, just
// "holds a validly signed token or doesn't."
type claims struct {
	jwt.RegisteredClaims
}

// Authenticator validates HS256 bearer tokens against a shared secret.
// Construct one with NewAuthenticator and pass it to New to require a
// token on every /api/v1 route; pass nil to New to leave the control
// plane open.
type Authenticator struct {
	secret []byte
}

// NewAuthenticator builds an Authenticator keyed on secret, which must
// be non-empty.
func NewAuthenticator(secret string) (*Authenticator, error) {
	if secret == "" {
		return nil, errors.New("control plane auth secret must not be empty")
	}
	return &Authenticator{secret: []byte(secret)}, nil
}

// IssueToken signs a token asserting subject, expiring at expiresAt.
// Intended for operator tooling (e.g. a CLI subcommand) to mint tokens
// out of band; the control plane itself never issues tokens over HTTP.
func (a *Authenticator) IssueToken(subject string, expiresAt time.Time) (string, error) {
	c := claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return token.SignedString(a.secret)
}

// Middleware rejects any request lacking a validly signed, unexpired
// bearer token. On success it is a no-op otherwise: the control plane
// has no per-route permission model to enforce beyond "authenticated."
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, err := a.extractToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		c, err := a.validate(tok)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		ctx := context.WithValue(r.Context(), subjectContextKey{}, c.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type subjectContextKey struct{}

func (a *Authenticator) extractToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingToken
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return "", fmt.Errorf("authorization header must use the Bearer scheme")
	}
	return strings.TrimPrefix(header, "Bearer "), nil
}

func (a *Authenticator) validate(tokenString string) (*claims, error) {
	c := &claims{}
	token, err := jwt.ParseWithClaims(tokenString, c, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return c, nil
}
