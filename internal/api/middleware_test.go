package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewhub/workspace/consts"
	"github.com/crewhub/workspace/internal/schemas"
)

func TestCORSDisabledAllowsAnyOrigin(t *testing.T) {
	s := makeTestServer(t, Config{Headless: true, EnableCORS: false})

	req := httptest.NewRequest("GET", "/api/healthcheck", nil)
	req.Header.Set("Origin", "https://elsewhere.example")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	// preflight succeeds too
	req = httptest.NewRequest("OPTIONS", "/api/chat", nil)
	req.Header.Set("Origin", "https://elsewhere.example")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCORSEnabledRejectsForeignOrigin(t *testing.T) {
	s := makeTestServer(t, Config{Headless: true, EnableCORS: true})

	req := httptest.NewRequest("GET", "/api/healthcheck", nil)
	req.Header.Set("Origin", "https://elsewhere.example")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// same-origin passes
	req = httptest.NewRequest("GET", "/api/healthcheck", nil)
	req.Host = "dashboard.local"
	req.Header.Set("Origin", "http://dashboard.local")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://dashboard.local", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSEnabledAllowList(t *testing.T) {
	s := makeTestServer(t, Config{
		Headless:       true,
		EnableCORS:     true,
		AllowedOrigins: []string{"https://trusted.example"},
	})

	req := httptest.NewRequest("GET", "/api/healthcheck", nil)
	req.Header.Set("Origin", "https://trusted.example")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestXsrfDisabledAllowsPost(t *testing.T) {
	s := makeTestServer(t, Config{Headless: true, EnableXsrfProtection: false})
	rec := postJSON(t, s.Handler(), "/api/memory/clear", schemas.ClearRequest{})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestXsrfEnabledRequiresToken(t *testing.T) {
	s := makeTestServer(t, Config{Headless: true, EnableXsrfProtection: true})

	// without the token
	rec := postJSON(t, s.Handler(), "/api/memory/clear", schemas.ClearRequest{})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// reads still pass and carry the token
	rec = get(s.Handler(), "/api/healthcheck")
	require.Equal(t, http.StatusOK, rec.Code)
	token := rec.Header().Get(consts.XsrfHeader)
	require.NotEmpty(t, token)
	assert.Equal(t, s.XsrfToken(), token)

	// with the token
	req := httptest.NewRequest("POST", "/api/memory/clear", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(consts.XsrfHeader, token)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEventsStream(t *testing.T) {
	s := makeTestServer(t, Config{Headless: true})
	server := httptest.NewServer(s.Handler())
	defer server.Close()

	rec := postJSON(t, s.Handler(), "/api/chat", schemas.ChatRequest{Agent: "spy", Message: "report"})
	require.Equal(t, http.StatusOK, rec.Code)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	// published before the subscription, replayed from history
	var event schemas.Event
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, schemas.EventConversation, event.Type)
	require.NotNil(t, event.Conversation)
	assert.Equal(t, "report", event.Conversation.UserInput)

	// published live
	rec = postJSON(t, s.Handler(), "/api/memory/clear", schemas.ClearRequest{})
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, schemas.EventCleared, event.Type)
}
