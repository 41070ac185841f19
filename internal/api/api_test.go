package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celerix-dev/celerix-guild/internal/auth"
	"github.com/celerix-dev/celerix-guild/internal/automation"
	"github.com/celerix-dev/celerix-guild/internal/engine"
	"github.com/celerix-dev/celerix-guild/internal/logger/loggertest"
	"github.com/celerix-dev/celerix-guild/internal/platform/platformtest"
	"github.com/celerix-dev/celerix-guild/internal/vault"
	"github.com/celerix-dev/celerix-guild/pkg/schema"
)

const logChannel = "log-1"

type testServer struct {
	router *gin.Engine
	store  *engine.Store
	chat   *platformtest.Fake
	cookie *http.Cookie
}

func setupTestRouter(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := loggertest.New(t)
	store := engine.NewStore(nil, log)
	_, err := store.Initialize()
	require.NoError(t, err)

	chat := platformtest.New()
	chat.TextChannels[logChannel] = true
	auto := automation.New(store, chat, log, automation.Options{LogChannelID: logChannel})

	sealer, err := vault.NewSealer("test-secret")
	require.NoError(t, err)
	sessions := auth.NewSessions(sealer, false)
	value, err := sessions.Encode(auth.User{ID: "99", Username: "mod"})
	require.NoError(t, err)
	cookie := &http.Cookie{Name: auth.SessionCookie, Value: value}

	r := NewRouter(RouterConfig{
		Handler:  &Handler{Store: store, Automation: auto},
		Sessions: sessions,
		Live:     chat.Live,
		Log:      log,
	})
	return &testServer{router: r, store: store, chat: chat, cookie: cookie}
}

func (s *testServer) do(method, path string, body any, authed bool) *httptest.ResponseRecorder {
	var req *http.Request
	switch b := body.(type) {
	case nil:
		req = httptest.NewRequest(method, path, nil)
	case url.Values:
		req = httptest.NewRequest(method, path, strings.NewReader(b.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	default:
		raw, _ := json.Marshal(b)
		req = httptest.NewRequest(method, path, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.AddCookie(s.cookie)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestApply_CreatesPendingApplication(t *testing.T) {
	s := setupTestRouter(t)

	w := s.do(http.MethodPost, "/apply", url.Values{
		"name":       {"Ada"},
		"discordTag": {"ada#0001"},
		"about":      {"hello"},
	}, false)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	app := decode[schema.Application](t, w)
	assert.NotEmpty(t, app.ID)
	assert.Equal(t, schema.StatusPending, app.Status)
	assert.Equal(t, "ada#0001", app.DiscordTag)
	assert.Nil(t, app.DecisionBy)

	assert.Len(t, s.chat.Calls("notice"), 1)
}

func TestApply_RequiresName(t *testing.T) {
	s := setupTestRouter(t)

	w := s.do(http.MethodPost, "/apply", map[string]string{"about": "x"}, false)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	snap, err := s.store.Read()
	require.NoError(t, err)
	assert.Empty(t, snap.Applications)
}

func TestApplicationStatus(t *testing.T) {
	s := setupTestRouter(t)
	app, err := s.store.AddApplication(engine.NewApplication{Name: "Ada"})
	require.NoError(t, err)

	w := s.do(http.MethodGet, "/api/application/"+app.ID, nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, app.ID, body["id"])
	assert.Equal(t, schema.StatusPending, body["status"])
	assert.Nil(t, body["decisionBy"])
	assert.NotContains(t, body, "about")

	w = s.do(http.MethodGet, "/api/application/missing", nil, false)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, decode[map[string]string](t, w)["error"], "not found")
}

func TestAuthenticatedRoutesRequireSession(t *testing.T) {
	s := setupTestRouter(t)

	for _, path := range []string{"/dashboard", "/applications", "/tickets", "/settings", "/welcome"} {
		w := s.do(http.MethodGet, path, nil, false)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
	w := s.do(http.MethodPost, "/tickets", map[string]string{"title": "x"}, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDecide(t *testing.T) {
	s := setupTestRouter(t)
	app, err := s.store.AddApplication(engine.NewApplication{Name: "Ada", About: "hello"})
	require.NoError(t, err)
	path := "/applications/" + app.ID + "/decision"

	w := s.do(http.MethodPost, path, url.Values{"decision": {"Approved"}}, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decided := decode[schema.Application](t, w)
	assert.Equal(t, schema.StatusApproved, decided.Status)
	require.NotNil(t, decided.DecisionBy)
	assert.Equal(t, "mod", *decided.DecisionBy)
	assert.NotNil(t, decided.DecisionAt)

	notices := s.chat.Calls("notice")
	require.Len(t, notices, 1)
	assert.Equal(t, "Application Approved", notices[0].Notice.Title)

	w = s.do(http.MethodPost, path, url.Values{"decision": {"Rejected"}}, true)
	assert.Equal(t, http.StatusConflict, w.Code)

	stored, err := s.store.Application(app.ID)
	require.NoError(t, err)
	assert.Equal(t, schema.StatusApproved, stored.Status)
}

func TestDecide_Errors(t *testing.T) {
	s := setupTestRouter(t)
	app, err := s.store.AddApplication(engine.NewApplication{Name: "Ada"})
	require.NoError(t, err)

	tests := []struct {
		name string
		path string
		body any
		want int
	}{
		{"missing decision", "/applications/" + app.ID + "/decision", url.Values{}, http.StatusBadRequest},
		{"pending is not a decision", "/applications/" + app.ID + "/decision", url.Values{"decision": {"Pending"}}, http.StatusBadRequest},
		{"unknown application", "/applications/nope/decision", url.Values{"decision": {"Approved"}}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(http.MethodPost, tt.path, tt.body, true)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
	assert.Empty(t, s.chat.Calls("notice"))
}

func TestApplications_ListAndGet(t *testing.T) {
	s := setupTestRouter(t)
	a, err := s.store.AddApplication(engine.NewApplication{Name: "Ada"})
	require.NoError(t, err)
	b, err := s.store.AddApplication(engine.NewApplication{Name: "Bob"})
	require.NoError(t, err)
	_, err = s.store.DecideApplication(b.ID, schema.StatusRejected, "mod")
	require.NoError(t, err)

	w := s.do(http.MethodGet, "/applications", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]schema.Application](t, w), 2)

	w = s.do(http.MethodGet, "/applications?status=pending", nil, true)
	pending := decode[[]schema.Application](t, w)
	require.Len(t, pending, 1)
	assert.Equal(t, a.ID, pending[0].ID)

	w = s.do(http.MethodGet, "/applications/"+a.ID, nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ada", decode[schema.Application](t, w).Name)

	w = s.do(http.MethodGet, "/applications/missing", nil, true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTickets_CreateAndClose(t *testing.T) {
	s := setupTestRouter(t)

	w := s.do(http.MethodPost, "/tickets", map[string]string{"title": "Broken role", "description": "details"}, true)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	ticket := decode[schema.Ticket](t, w)
	assert.Len(t, ticket.ID, engine.TicketIDLength)
	assert.Equal(t, schema.TicketOpen, ticket.Status)

	sends := s.chat.Calls("send")
	require.Len(t, sends, 1)
	assert.Contains(t, sends[0].Content, ticket.ID)
	assert.Contains(t, sends[0].Content, "dashboard")
	assert.Empty(t, s.chat.Calls("reply"))

	w = s.do(http.MethodPost, "/tickets/"+ticket.ID+"/close", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, schema.TicketClosed, decode[schema.Ticket](t, w).Status)

	w = s.do(http.MethodPost, "/tickets/"+ticket.ID+"/close", nil, true)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/tickets?status=open", nil, true)
	assert.Empty(t, decode[[]schema.Ticket](t, w))

	w = s.do(http.MethodPost, "/tickets/missing/close", nil, true)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodPost, "/tickets", map[string]string{"description": "no title"}, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSettings(t *testing.T) {
	s := setupTestRouter(t)

	w := s.do(http.MethodPost, "/settings", url.Values{"prefix": {"?"}, "autoRoleName": {"Member"}}, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, schema.Settings{Prefix: "?", AutoRoleName: "Member"}, decode[schema.Settings](t, w))

	w = s.do(http.MethodPost, "/settings", url.Values{"prefix": {""}}, true)
	require.Equal(t, http.StatusOK, w.Code)

	snap, err := s.store.Read()
	require.NoError(t, err)
	assert.Equal(t, schema.DefaultPrefix, snap.Settings.Prefix)
	assert.Empty(t, snap.Settings.AutoRoleName)

	w = s.do(http.MethodGet, "/settings", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"prefix":"!"`)
}

func TestWelcome(t *testing.T) {
	s := setupTestRouter(t)

	w := s.do(http.MethodPost, "/welcome", url.Values{
		"enabled": {"on"},
		"channel": {"c1"},
		"message": {"Hi {user}"},
	}, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, schema.WelcomeConfig{Enabled: true, Channel: "c1", Message: "Hi {user}"}, decode[schema.WelcomeConfig](t, w))

	w = s.do(http.MethodPost, "/welcome", map[string]any{"enabled": false, "message": "bye"}, true)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/welcome", nil, true)
	got := decode[schema.WelcomeConfig](t, w)
	assert.False(t, got.Enabled)
	assert.Empty(t, got.Channel)
	assert.Equal(t, "bye", got.Message)

	// Unchecked checkboxes are not posted at all.
	w = s.do(http.MethodPost, "/welcome", url.Values{"message": {"x"}}, true)
	assert.False(t, decode[schema.WelcomeConfig](t, w).Enabled)
}

func TestOverview(t *testing.T) {
	s := setupTestRouter(t)
	_, err := s.store.AddApplication(engine.NewApplication{Name: "Ada"})
	require.NoError(t, err)

	w := s.do(http.MethodGet, "/dashboard", nil, true)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		User         auth.User            `json:"user"`
		Applications []schema.Application `json:"applications"`
		Tickets      []schema.Ticket      `json:"tickets"`
		Settings     schema.Settings      `json:"settings"`
		Welcome      schema.WelcomeConfig `json:"welcome"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "mod", body.User.Username)
	assert.Len(t, body.Applications, 1)
	assert.Empty(t, body.Tickets)
	assert.Equal(t, schema.DefaultPrefix, body.Settings.Prefix)
	assert.False(t, body.Welcome.Enabled)
}

func TestHealthzAndRequestID(t *testing.T) {
	s := setupTestRouter(t)

	w := s.do(http.MethodGet, "/healthz", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
	assert.Equal(t, true, decode[map[string]any](t, w)["chat"])

	s.chat.Offline = true
	w = s.do(http.MethodGet, "/healthz", nil, false)
	assert.Equal(t, false, decode[map[string]any](t, w)["chat"])

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Header().Get(requestIDHeader))
}

func TestMetricsEndpoint(t *testing.T) {
	s := setupTestRouter(t)
	s.do(http.MethodGet, "/healthz", nil, false)

	w := s.do(http.MethodGet, "/metrics", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "guild_http_requests_total")
}

func TestNoRoute(t *testing.T) {
	s := setupTestRouter(t)
	w := s.do(http.MethodGet, "/nope", nil, false)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLanding(t *testing.T) {
	s := setupTestRouter(t)

	w := s.do(http.MethodGet, "/", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "celerix-guild", body["service"])
	assert.NotContains(t, body, "user")

	w = s.do(http.MethodGet, "/", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"mod"`)
}

func TestLoginRedirectTargetsExist(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := engine.NewStore(nil, nil)
	chat := platformtest.New()
	sealer, err := vault.NewSealer("test-secret")
	require.NoError(t, err)
	sessions := auth.NewSessions(sealer, false)

	r := NewRouter(RouterConfig{
		Handler:  &Handler{Store: store, Automation: automation.New(store, chat, nil, automation.Options{})},
		Sessions: sessions,
		Provider: auth.NewProvider(auth.ProviderConfig{ClientID: "c", ClientSecret: "s"}, sessions, nil),
	})

	for _, path := range []string{"/logout", "/auth/callback?code=x&state=forged"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusFound, w.Code, path)

		next := httptest.NewRecorder()
		r.ServeHTTP(next, httptest.NewRequest(http.MethodGet, w.Header().Get("Location"), nil))
		assert.Equal(t, http.StatusOK, next.Code, path)
		assert.Equal(t, true, decode[map[string]any](t, next)["login"])
	}
}
