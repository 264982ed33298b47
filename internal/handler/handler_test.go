package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kindred/internal/app/member"
	"kindred/internal/app/session"
	"kindred/internal/configs"
	"kindred/internal/pkg/auth/jwt"
	"kindred/internal/pkg/errs"
	"kindred/internal/pkg/resp"
)

const testJWTSecret = "handler-test-secret"

func newTestDeps(t *testing.T) (*AppDeps, *member.MemStore) {
	t.Helper()

	store := member.NewMemStore()

	return &AppDeps{
		Graph:   member.NewGraph(store),
		Members: store,
		Bridge:  session.NewBridge(testJWTSecret),
		Config:  &configs.AppConfig{Environment: "test", JWTSecret: testJWTSecret},
	}, store
}

// testRouter mounts the API routes without the outer middleware stack; tests
// inject identity straight into the request context.
func testRouter(deps *AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Post("/auth/signup", HandleSignup(deps))
	r.Post("/auth/login", HandleLogin(deps))
	r.Get("/members", HandleListMembers(deps))
	r.Get("/members/{id}", HandleGetMember(deps))
	r.Post("/requests/send/{id}", HandleSendRequest(deps))
	r.Post("/requests/accept/{id}", HandleAcceptRequest(deps))
	r.Get("/friends", HandleListFriends(deps))
	r.Get("/requests", HandleListRequests(deps))
	r.Post("/profile/avatar/presign", HandlePresignAvatarURL(deps))
	r.Post("/profile/avatar", HandleSetAvatar(deps))
	r.Post("/profile/avatar/upload", HandleUploadAvatar(deps))

	return r
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, identity *jwt.Payload) (*httptest.ResponseRecorder, resp.JSONResponse) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	r := httptest.NewRequest(method, path, reader)
	r.Header.Set("Content-Type", "application/json")

	if identity != nil {
		r = r.WithContext(context.WithValue(r.Context(), jwt.ContextAuthPayloadKey, identity))
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	var envelope resp.JSONResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return w, envelope
}

func signupMember(t *testing.T, h http.Handler, name, email string) (string, map[string]any) {
	t.Helper()

	w, envelope := doJSON(t, h, "POST", "/auth/signup", SignupInput{
		Name:     name,
		Email:    email,
		Age:      30,
		Password: "secret123",
	}, nil)

	require.Equal(t, http.StatusOK, w.Code)
	require.Zero(t, envelope.Code)

	data := envelope.Data.(map[string]any)
	m := data["member"].(map[string]any)
	return m["id"].(string), data
}

func identityFor(id, name string) *jwt.Payload {
	return &jwt.Payload{ID: id, Name: name}
}

func TestSignupIssuesValidToken(t *testing.T) {
	deps, store := newTestDeps(t)
	h := testRouter(deps)

	id, data := signupMember(t, h, "Maya", "maya@example.com")

	payload, err := jwt.ParseToken(data["token"].(string), testJWTSecret)
	require.NoError(t, err)
	assert.Equal(t, id, payload.ID)
	assert.Equal(t, "Maya", payload.Name)

	stored, err := store.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "maya@example.com", stored.Email)
	assert.Empty(t, stored.Friends)
	assert.Empty(t, stored.SentRequests)
	assert.Empty(t, stored.ReceivedRequests)
}

func TestSignupRejectsDuplicateEmail(t *testing.T) {
	deps, _ := newTestDeps(t)
	h := testRouter(deps)

	signupMember(t, h, "Maya", "maya@example.com")

	_, envelope := doJSON(t, h, "POST", "/auth/signup", SignupInput{
		Name:     "Other Maya",
		Email:    "maya@example.com",
		Age:      25,
		Password: "secret123",
	}, nil)

	assert.Equal(t, errs.ErrEmailAlreadyExists, envelope.Code)
}

func TestSignupValidation(t *testing.T) {
	deps, _ := newTestDeps(t)
	h := testRouter(deps)

	cases := []struct {
		name     string
		input    SignupInput
		wantCode int
	}{
		{"empty name", SignupInput{Name: "", Email: "a@b.co", Age: 30, Password: "secret123"}, errs.ErrInvalidName},
		{"bad email", SignupInput{Name: "Maya", Email: "not-an-email", Age: 30, Password: "secret123"}, errs.ErrInvalidEmail},
		{"too young", SignupInput{Name: "Maya", Email: "a@b.co", Age: 12, Password: "secret123"}, errs.ErrInvalidAge},
		{"short password", SignupInput{Name: "Maya", Email: "a@b.co", Age: 30, Password: "abc"}, errs.ErrInvalidPassword},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, envelope := doJSON(t, h, "POST", "/auth/signup", tc.input, nil)
			assert.Equal(t, tc.wantCode, envelope.Code)
		})
	}
}

func TestSignupRejectsAuthenticatedCaller(t *testing.T) {
	deps, _ := newTestDeps(t)
	h := testRouter(deps)

	_, envelope := doJSON(t, h, "POST", "/auth/signup", SignupInput{
		Name: "Maya", Email: "maya@example.com", Age: 30, Password: "secret123",
	}, identityFor("someone", "Someone"))

	assert.Equal(t, errs.ErrAlreadyLoggedIn, envelope.Code)
}

func TestLogin(t *testing.T) {
	deps, _ := newTestDeps(t)
	h := testRouter(deps)

	id, _ := signupMember(t, h, "Maya", "maya@example.com")

	w, envelope := doJSON(t, h, "POST", "/auth/login", LoginInput{
		Email:    "maya@example.com",
		Password: "secret123",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Zero(t, envelope.Code)

	data := envelope.Data.(map[string]any)
	payload, err := jwt.ParseToken(data["token"].(string), testJWTSecret)
	require.NoError(t, err)
	assert.Equal(t, id, payload.ID)

	_, envelope = doJSON(t, h, "POST", "/auth/login", LoginInput{
		Email:    "maya@example.com",
		Password: "wrong-password",
	}, nil)
	assert.Equal(t, errs.ErrInvalidCredentials, envelope.Code)

	_, envelope = doJSON(t, h, "POST", "/auth/login", LoginInput{
		Email:    "nobody@example.com",
		Password: "secret123",
	}, nil)
	assert.Equal(t, errs.ErrInvalidCredentials, envelope.Code)
}

func TestAnonymousCallersAreRejected(t *testing.T) {
	deps, _ := newTestDeps(t)
	h := testRouter(deps)

	paths := []struct {
		method string
		path   string
	}{
		{"GET", "/members"},
		{"GET", "/members/someone"},
		{"POST", "/requests/send/someone"},
		{"POST", "/requests/accept/someone"},
		{"GET", "/friends"},
		{"GET", "/requests"},
	}

	for _, p := range paths {
		w, envelope := doJSON(t, h, p.method, p.path, nil, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, p.path)
		assert.Equal(t, errs.ErrUnauthorized, envelope.Code, p.path)
	}
}

func TestFriendRequestLifecycle(t *testing.T) {
	deps, _ := newTestDeps(t)
	h := testRouter(deps)

	mayaID, _ := signupMember(t, h, "Maya", "maya@example.com")
	noorID, _ := signupMember(t, h, "Noor", "noor@example.com")

	maya := identityFor(mayaID, "Maya")
	noor := identityFor(noorID, "Noor")

	// Maya requests Noor.
	w, envelope := doJSON(t, h, "POST", "/requests/send/"+noorID, nil, maya)
	require.Equal(t, http.StatusOK, w.Code)
	require.Zero(t, envelope.Code)

	// Noor sees the pending request.
	_, envelope = doJSON(t, h, "GET", "/requests", nil, noor)
	require.Zero(t, envelope.Code)
	requests := envelope.Data.(map[string]any)["requests"].([]any)
	require.Len(t, requests, 1)
	assert.Equal(t, mayaID, requests[0].(map[string]any)["id"])

	// Maya's profile as seen by Noor offers an accept.
	_, envelope = doJSON(t, h, "GET", "/members/"+mayaID, nil, noor)
	require.Zero(t, envelope.Code)
	profile := envelope.Data.(map[string]any)["member"].(map[string]any)
	assert.Equal(t, string(member.RelationshipRequestSentToMe), profile["relationship"])

	// Noor accepts.
	_, envelope = doJSON(t, h, "POST", "/requests/accept/"+mayaID, nil, noor)
	require.Zero(t, envelope.Code)

	// Both sides now list each other as friends, and the request is gone.
	for _, view := range []struct {
		caller   *jwt.Payload
		friendID string
	}{
		{maya, noorID},
		{noor, mayaID},
	} {
		_, envelope = doJSON(t, h, "GET", "/friends", nil, view.caller)
		require.Zero(t, envelope.Code)
		friends := envelope.Data.(map[string]any)["friends"].([]any)
		require.Len(t, friends, 1)
		assert.Equal(t, view.friendID, friends[0].(map[string]any)["id"])
	}

	_, envelope = doJSON(t, h, "GET", "/requests", nil, noor)
	require.Zero(t, envelope.Code)
	assert.Empty(t, envelope.Data.(map[string]any)["requests"])
}

func TestSendRequestToSelfThroughAPI(t *testing.T) {
	deps, _ := newTestDeps(t)
	h := testRouter(deps)

	mayaID, _ := signupMember(t, h, "Maya", "maya@example.com")

	_, envelope := doJSON(t, h, "POST", "/requests/send/"+mayaID, nil, identityFor(mayaID, "Maya"))
	assert.Equal(t, errs.ErrSelfRequest, envelope.Code)
}

func TestSendRequestToUnknownMemberThroughAPI(t *testing.T) {
	deps, _ := newTestDeps(t)
	h := testRouter(deps)

	mayaID, _ := signupMember(t, h, "Maya", "maya@example.com")

	w, envelope := doJSON(t, h, "POST", "/requests/send/no-such-member", nil, identityFor(mayaID, "Maya"))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, errs.ErrMemberNotFound, envelope.Code)
}

func TestListMembersExcludesCaller(t *testing.T) {
	deps, _ := newTestDeps(t)
	h := testRouter(deps)

	mayaID, _ := signupMember(t, h, "Maya", "maya@example.com")
	noorID, _ := signupMember(t, h, "Noor", "noor@example.com")

	_, envelope := doJSON(t, h, "GET", "/members", nil, identityFor(mayaID, "Maya"))
	require.Zero(t, envelope.Code)

	members := envelope.Data.(map[string]any)["members"].([]any)
	require.Len(t, members, 1)

	listed := members[0].(map[string]any)
	assert.Equal(t, noorID, listed["id"])

	// No credential material in the listing.
	_, hasPassword := listed["passwordHash"]
	assert.False(t, hasPassword)
}
