/*
Package session bridges real-time connections to the authenticated identity
established over the HTTP channel.

The bridge resolves a handshake to a member identity exactly once per
connection; the routing layer trusts that identity for the connection's
lifetime and never re-derives it from client-supplied payload fields.
*/
package session

import (
	"errors"
	"net/http"
	"strings"

	"kindred/internal/pkg/auth/jwt"
)

// ErrUnauthenticated is returned when a handshake carries no valid identity.
// Callers reject the connection without leaking why.
var ErrUnauthenticated = errors.New("unauthenticated")

// Identity is the authenticated member bound to a live connection.
type Identity struct {
	MemberID string
	Name     string
}

// Bridge resolves handshake requests against the identity tokens issued by the
// HTTP auth layer.
type Bridge struct {
	secretKey string
}

// NewBridge constructs a Bridge validating tokens with the given secret.
func NewBridge(secretKey string) *Bridge {
	return &Bridge{secretKey: secretKey}
}

// Resolve extracts and validates the session token from the handshake request
// and returns the member identity it was issued for. The token is read from
// the Authorization header (Bearer scheme) or, since browser WebSocket clients
// cannot set headers, from the "token" query parameter. Any failure resolves
// to ErrUnauthenticated.
func (b *Bridge) Resolve(r *http.Request) (Identity, error) {
	tokenString := bearerToken(r)
	if tokenString == "" {
		tokenString = r.URL.Query().Get("token")
	}
	if tokenString == "" {
		return Identity{}, ErrUnauthenticated
	}

	payload, err := jwt.ParseToken(tokenString, b.secretKey)
	if err != nil {
		return Identity{}, ErrUnauthenticated
	}

	if payload.ID == "" {
		return Identity{}, ErrUnauthenticated
	}

	return Identity{
		MemberID: payload.ID,
		Name:     payload.Name,
	}, nil
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}
