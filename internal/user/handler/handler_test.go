package handler_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conduit/internal/events"
	jwttoken "conduit/internal/jwt_token"
	"conduit/internal/storage/memory"
	"conduit/internal/user/handler"
	"conduit/internal/user/service"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	bus := events.NewBus(logger)
	tokens := jwttoken.NewService("test-key", "conduit-test", time.Hour)
	svc := service.New(memory.NewManager(), bus, tokens, logger)

	r := chi.NewRouter()
	handler.New(svc, logger, jwttoken.NewValidatorAdapter(tokens)).Register(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, token, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func registerUser(t *testing.T, srv *httptest.Server, username string) string {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/users", "",
		`{"user":{"username":"`+username+`","email":"`+username+`@example.com","password":"password123"}}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	user := body["user"].(map[string]any)
	return user["token"].(string)
}

func TestRegisterEndpoint(t *testing.T) {
	srv := newServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/users", "",
		`{"user":{"username":"jake","email":"jake@example.com","password":"password123"}}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	user := body["user"].(map[string]any)
	assert.Equal(t, "jake", user["username"])
	assert.Equal(t, "jake@example.com", user["email"])
	assert.NotEmpty(t, user["token"])
	_, hasHash := user["passwordHash"]
	assert.False(t, hasHash)
}

func TestRegisterEndpoint_Conflict(t *testing.T) {
	srv := newServer(t)
	registerUser(t, srv, "jake")

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/users", "",
		`{"user":{"username":"jake","email":"jake@example.com","password":"password123"}}`)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	errBody := body["error"].(map[string]any)
	assert.Equal(t, "EMAIL_TAKEN", errBody["code"])
	assert.NotEmpty(t, errBody["message"])
}

func TestRegisterEndpoint_Validation(t *testing.T) {
	srv := newServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/users", "",
		`{"user":{"username":"jake","email":"not-an-email","password":"password123"}}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_EMAIL", body["error"].(map[string]any)["code"])
}

func TestLoginEndpoint(t *testing.T) {
	srv := newServer(t)
	registerUser(t, srv, "jake")

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/users/login", "",
		`{"user":{"email":"jake@example.com","password":"password123"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["user"].(map[string]any)["token"])

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/users/login", "",
		`{"user":{"email":"jake@example.com","password":"wrong"}}`)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "INVALID_CREDENTIALS", body["error"].(map[string]any)["code"])
}

func TestCurrentUserEndpoint(t *testing.T) {
	srv := newServer(t)
	token := registerUser(t, srv, "jake")

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/user", token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	user := body["user"].(map[string]any)
	assert.Equal(t, "jake", user["username"])
	assert.Equal(t, token, user["token"])

	// Without a token the endpoint is closed.
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/user", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestUpdateUserEndpoint(t *testing.T) {
	srv := newServer(t)
	token := registerUser(t, srv, "jake")

	resp, body := doJSON(t, http.MethodPut, srv.URL+"/user", token,
		`{"user":{"bio":"gopher"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "gopher", body["user"].(map[string]any)["bio"])
}

func TestProfileEndpoints(t *testing.T) {
	srv := newServer(t)
	token := registerUser(t, srv, "jake")
	registerUser(t, srv, "anna")

	// Anonymous view.
	resp, body := doJSON(t, http.MethodGet, srv.URL+"/profiles/anna", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	profile := body["profile"].(map[string]any)
	assert.Equal(t, "anna", profile["username"])
	assert.Equal(t, false, profile["following"])

	// Follow, then the authenticated view reflects it.
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/profiles/anna/follow", token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["profile"].(map[string]any)["following"])

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/profiles/anna", token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["profile"].(map[string]any)["following"])

	resp, body = doJSON(t, http.MethodDelete, srv.URL+"/profiles/anna/follow", token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["profile"].(map[string]any)["following"])
}

func TestProfileEndpoint_NotFound(t *testing.T) {
	srv := newServer(t)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/profiles/nobody", "", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", body["error"].(map[string]any)["code"])
}

func TestFollowSelfEndpoint(t *testing.T) {
	srv := newServer(t)
	token := registerUser(t, srv, "jake")

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/profiles/jake/follow", token, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "CANNOT_FOLLOW_SELF", body["error"].(map[string]any)["code"])
}
