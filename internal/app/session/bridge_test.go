package session

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kindred/internal/pkg/auth/jwt"
)

const testSecret = "bridge-test-secret"

func issue(t *testing.T, secret, memberID, name string, duration time.Duration) string {
	t.Helper()

	token, err := jwt.GenerateToken(&jwt.Payload{ID: memberID, Name: name}, secret, duration)
	require.NoError(t, err)
	return token
}

func TestResolveFromAuthorizationHeader(t *testing.T) {
	bridge := NewBridge(testSecret)
	token := issue(t, testSecret, "m1", "Maya", time.Hour)

	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	identity, err := bridge.Resolve(r)
	require.NoError(t, err)
	assert.Equal(t, "m1", identity.MemberID)
	assert.Equal(t, "Maya", identity.Name)
}

func TestResolveFromQueryParameter(t *testing.T) {
	bridge := NewBridge(testSecret)
	token := issue(t, testSecret, "m2", "Noor", time.Hour)

	r := httptest.NewRequest("GET", "/ws?token="+token, nil)

	identity, err := bridge.Resolve(r)
	require.NoError(t, err)
	assert.Equal(t, "m2", identity.MemberID)
}

func TestResolveHeaderTakesPrecedenceOverQuery(t *testing.T) {
	bridge := NewBridge(testSecret)
	headerToken := issue(t, testSecret, "m1", "Maya", time.Hour)
	queryToken := issue(t, testSecret, "m2", "Noor", time.Hour)

	r := httptest.NewRequest("GET", "/ws?token="+queryToken, nil)
	r.Header.Set("Authorization", "Bearer "+headerToken)

	identity, err := bridge.Resolve(r)
	require.NoError(t, err)
	assert.Equal(t, "m1", identity.MemberID)
}

func TestResolveMissingToken(t *testing.T) {
	bridge := NewBridge(testSecret)

	r := httptest.NewRequest("GET", "/ws", nil)

	_, err := bridge.Resolve(r)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestResolveMalformedAuthorizationHeader(t *testing.T) {
	bridge := NewBridge(testSecret)

	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")

	_, err := bridge.Resolve(r)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestResolveWrongSigningKey(t *testing.T) {
	bridge := NewBridge(testSecret)
	token := issue(t, "some-other-secret", "m1", "Maya", time.Hour)

	r := httptest.NewRequest("GET", "/ws?token="+token, nil)

	_, err := bridge.Resolve(r)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestResolveExpiredToken(t *testing.T) {
	bridge := NewBridge(testSecret)
	token := issue(t, testSecret, "m1", "Maya", -time.Minute)

	r := httptest.NewRequest("GET", "/ws?token="+token, nil)

	_, err := bridge.Resolve(r)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestResolveTokenWithoutMemberID(t *testing.T) {
	bridge := NewBridge(testSecret)
	token := issue(t, testSecret, "", "Nameless", time.Hour)

	r := httptest.NewRequest("GET", "/ws?token="+token, nil)

	_, err := bridge.Resolve(r)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}
