package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LukasGX/Untis-App-API/internal/auth"
	"github.com/LukasGX/Untis-App-API/internal/chat"
	"github.com/LukasGX/Untis-App-API/internal/filter"
	"github.com/LukasGX/Untis-App-API/internal/models"
	"github.com/LukasGX/Untis-App-API/internal/moderation"
	"github.com/LukasGX/Untis-App-API/internal/notify"
	"github.com/LukasGX/Untis-App-API/internal/store/sqlstore"
	"github.com/LukasGX/Untis-App-API/internal/validate"
	"github.com/LukasGX/Untis-App-API/internal/ws"
)

const (
	apiToken   = "api-secret"
	adminToken = "admin-secret"
)

type testEnv struct {
	store    *sqlstore.SQLStore
	registry *ws.Registry
	sessions *auth.AdminSessions
	router   http.Handler
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	s, err := sqlstore.New("sqlite3", ":memory:")
	require.NoError(t, err)

	f, err := filter.New(filter.DefaultPatterns)
	require.NoError(t, err)

	registry := ws.NewRegistry()
	hub := ws.NewHub(registry, 16)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	signer, err := auth.NewSigner([]byte("test-key"))
	require.NoError(t, err)
	sessions, err := auth.NewAdminSessions(adminToken, signer, false)
	require.NoError(t, err)

	t.Cleanup(func() {
		cancel()
		<-hub.Done()
		registry.Close()
		s.Close()
	})

	router := NewRouter(Deps{
		Store:             s,
		Chat:              chat.NewService(s, f, moderation.NewGate(s), hub),
		Registry:          registry,
		Tokens:            auth.Tokens{API: apiToken, Admin: adminToken},
		Sessions:          sessions,
		Validator:         validate.New(),
		Notifier:          notify.NewNotifier(notify.LogMailer{}, ""),
		HistoryLimit:      100,
		AdminHistoryLimit: 500,
	})
	return &testEnv{store: s, registry: registry, sessions: sessions, router: router}
}

func (e *testEnv) do(method, path string, body interface{}, header http.Header) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) form(method, path string, values url.Values, cookie *http.Cookie, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range header {
		req.Header[k] = v
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func apiKey() http.Header   { return http.Header{"X-Api-Key": {apiToken}} }
func adminKey() http.Header { return http.Header{"X-Admin-Key": {adminToken}} }

func errorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	return body.Message
}

func TestNewRequest(t *testing.T) {
	env := setupEnv(t)
	payload := map[string]string{"school": "east", "username": "alice", "status": "approved"}

	rr := env.do("POST", "/new_request", payload, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = env.do("POST", "/new_request", payload, apiKey())
	require.Equal(t, http.StatusCreated, rr.Code)

	// the client supplied status is ignored
	req, err := env.store.GetRequestByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, req.Status)

	// trailing slash, as older clients send it
	rr = env.do("POST", "/new_request/", payload, apiKey())
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "Username already exists", errorMessage(t, rr))

	rr = env.do("POST", "/new_request", map[string]string{"school": "east"}, apiKey())
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "username is required", errorMessage(t, rr))
}

func TestGetRequest(t *testing.T) {
	env := setupEnv(t)

	rr := env.do("GET", "/requests/alice", nil, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	_, err := env.store.CreateRequest(context.Background(), "east", "alice", models.StatusPending)
	require.NoError(t, err)

	rr = env.do("GET", "/requests/alice", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var got models.AccessRequest
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, "east", got.School)
	assert.Equal(t, models.StatusPending, got.Status)
}

func TestUpdateRequest(t *testing.T) {
	env := setupEnv(t)
	req, err := env.store.CreateRequest(context.Background(), "east", "alice", models.StatusPending)
	require.NoError(t, err)
	path := "/update_request/" + strconv.Itoa(req.ID)

	tests := []struct {
		name           string
		path           string
		status         string
		header         http.Header
		expectedStatus int
	}{
		{"api key is not enough", path, "approved", apiKey(), http.StatusUnauthorized},
		{"invalid status", path, "archived", adminKey(), http.StatusBadRequest},
		{"unknown id", "/update_request/999", "approved", adminKey(), http.StatusNotFound},
		{"approve", path, "approved", adminKey(), http.StatusOK},
		{"deny after approve", path, "denied", adminKey(), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do("PATCH", tt.path, map[string]string{"status": tt.status}, tt.header)
			assert.Equal(t, tt.expectedStatus, rr.Code)
		})
	}

	got, err := env.store.GetRequestByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDenied, got.Status)
}

func TestSendAndGetMessages(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	req, err := env.store.CreateRequest(ctx, "east", "alice", models.StatusPending)
	require.NoError(t, err)

	send := func(body string) *httptest.ResponseRecorder {
		return env.do("POST", "/send_message", map[string]string{"school": "east", "username": "alice", "message": body}, apiKey())
	}

	rr := send("hi!")
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "User not approved", errorMessage(t, rr))

	require.NoError(t, env.store.UpdateRequestStatus(ctx, req.ID, models.StatusApproved))

	rr = send("h")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = send("what the SHIT")
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "Message contains disallowed content", errorMessage(t, rr))

	rr = send("hi!")
	assert.Equal(t, http.StatusCreated, rr.Code)

	rr = env.form("POST", "/get_messages/", url.Values{"school": {"east"}}, nil, apiKey())
	require.Equal(t, http.StatusOK, rr.Code)
	var messages []map[string]interface{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&messages))
	require.Len(t, messages, 1)
	assert.Equal(t, "hi!", messages[0]["message"])
	assert.Equal(t, "alice", messages[0]["username"])
	assert.Equal(t, false, messages[0]["deleted"])
	assert.NotContains(t, messages[0], "school")

	rr = env.do("POST", "/get_messages", map[string]string{"school": "west"}, apiKey())
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "[]", rr.Body.String())

	rr = env.form("POST", "/get_messages", url.Values{}, nil, apiKey())
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestBanLookups(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	rr := env.form("POST", "/ban/alice", url.Values{"school": {"east"}}, nil, apiKey())
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"banned": false}`, rr.Body.String())

	ban, err := env.store.CreateBan(ctx, "east", "alice")
	require.NoError(t, err)
	_, err = env.store.ToggleBan(ctx, ban.ID)
	require.NoError(t, err)

	rr = env.form("POST", "/ban/alice/", url.Values{"school": {"east"}}, nil, apiKey())
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"banned": true, "active": false}`, rr.Body.String())

	rr = env.do("POST", "/get_bans", nil, apiKey())
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[{"id": 1, "school": "east", "username": "alice", "active": false}]`, rr.Body.String())
}

func TestContacts(t *testing.T) {
	env := setupEnv(t)
	contact := map[string]string{"school": "east", "username": "alice", "contact_infos": `{"email":"alice@example.com"}`}
	lookup := map[string]string{"school": "east", "username": "alice"}

	rr := env.do("POST", "/get_contact", lookup, apiKey())
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do("POST", "/new_contact", contact, apiKey())
	assert.Equal(t, http.StatusCreated, rr.Code)
	rr = env.do("POST", "/new_contact", contact, apiKey())
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = env.do("POST", "/get_contact", lookup, apiKey())
	require.Equal(t, http.StatusOK, rr.Code)
	var got models.ContactRecord
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, `{"email":"alice@example.com"}`, got.ContactInfos)
}

func TestHealth(t *testing.T) {
	env := setupEnv(t)

	rr := env.do("GET", "/health", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status": "ok", "connections": {}}`, rr.Body.String())
}

func TestUnknownRoute(t *testing.T) {
	env := setupEnv(t)

	rr := env.do("GET", "/", nil, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
