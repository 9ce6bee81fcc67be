package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewhub/workspace/internal/inference"
	"github.com/crewhub/workspace/internal/memory"
	"github.com/crewhub/workspace/internal/schemas"
)

// fakeModel echoes the prompt followed by a canned reply, the way causal
// text-generation endpoints do.
func fakeModel(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		prompt := req["inputs"].(string)
		_ = json.NewEncoder(w).Encode([]map[string]string{
			{"generated_text": prompt + " acknowledged, working on it"},
		})
	}))
}

func makeTestServer(t *testing.T, cfg Config) *Server {
	backend := fakeModel(t)
	t.Cleanup(backend.Close)
	client := inference.NewClient("test-token", inference.WithBaseURL(backend.URL))
	return NewServer(cfg, memory.NewInMemory(), client, "test")
}

func postJSON(t *testing.T, handler http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func get(handler http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthcheck(t *testing.T) {
	s := makeTestServer(t, Config{Headless: true})
	rec := get(s.Handler(), "/api/healthcheck")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp schemas.HealthcheckResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "crewhub-workspace", resp.Service)
	assert.Equal(t, "test", resp.Version)
}

func TestAgentList(t *testing.T) {
	s := makeTestServer(t, Config{Headless: true})
	rec := get(s.Handler(), "/api/agents")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp schemas.AgentListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Agents, 5)
	for _, agent := range resp.Agents {
		assert.Equal(t, schemas.AgentStatusIdle, agent.Status)
	}
}

func TestAgentInfoNotFound(t *testing.T) {
	s := makeTestServer(t, Config{Headless: true})
	rec := get(s.Handler(), "/api/agents/plumber")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChatRoundTrip(t *testing.T) {
	s := makeTestServer(t, Config{Headless: true})

	rec := postJSON(t, s.Handler(), "/api/chat", schemas.ChatRequest{
		Agent:   "tinker",
		Message: "fix the build",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp schemas.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "tinker", resp.Conversation.Agent)
	assert.Equal(t, "fix the build", resp.Conversation.UserInput)
	// the prompt echo is stripped, only the completion remains
	assert.Equal(t, "acknowledged, working on it", resp.Conversation.Response)
	assert.NotEmpty(t, resp.Conversation.ID)

	// the agent is active now
	rec = get(s.Handler(), "/api/agents/tinker")
	require.Equal(t, http.StatusOK, rec.Code)
	var info schemas.AgentInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, schemas.AgentStatusActive, info.Status)
}

func TestChatValidation(t *testing.T) {
	s := makeTestServer(t, Config{Headless: true})

	rec := postJSON(t, s.Handler(), "/api/chat", schemas.ChatRequest{Agent: "plumber", Message: "hi"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, s.Handler(), "/api/chat", schemas.ChatRequest{Agent: "tinker", Message: "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatInferenceFailure(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer backend.Close()
	client := inference.NewClient("test-token", inference.WithBaseURL(backend.URL))
	s := NewServer(Config{Headless: true}, memory.NewInMemory(), client, "test")

	rec := postJSON(t, s.Handler(), "/api/chat", schemas.ChatRequest{Agent: "spy", Message: "report"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHistoryAndClear(t *testing.T) {
	s := makeTestServer(t, Config{Headless: true})
	for i := 0; i < 3; i++ {
		rec := postJSON(t, s.Handler(), "/api/chat", schemas.ChatRequest{
			Agent:   "spy",
			Message: fmt.Sprintf("report %d", i),
		})
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := postJSON(t, s.Handler(), "/api/chat", schemas.ChatRequest{Agent: "tailor", Message: "draft"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = get(s.Handler(), "/api/history?agent=spy&limit=2")
	require.Equal(t, http.StatusOK, rec.Code)
	var history schemas.HistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history.Conversations, 2)
	assert.Equal(t, "report 1", history.Conversations[0].UserInput)
	assert.Equal(t, "report 2", history.Conversations[1].UserInput)

	rec = get(s.Handler(), "/api/history?agent=plumber")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, s.Handler(), "/api/memory/clear", schemas.ClearRequest{Agent: "spy"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = get(s.Handler(), "/api/history")
	require.Equal(t, http.StatusOK, rec.Code)
	history = schemas.HistoryResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history.Conversations, 1)
	assert.Equal(t, "tailor", history.Conversations[0].Agent)
}

func TestExport(t *testing.T) {
	s := makeTestServer(t, Config{Headless: true})
	rec := postJSON(t, s.Handler(), "/api/chat", schemas.ChatRequest{Agent: "spy", Message: "report"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = get(s.Handler(), "/api/memory/export")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Disposition"), "attachment; filename="))

	var export memory.Export
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &export))
	assert.False(t, export.CreatedAt.IsZero())
	require.Len(t, export.Conversations, 1)
	assert.Contains(t, export.AgentStates, "spy")
}

func TestStats(t *testing.T) {
	s := makeTestServer(t, Config{Headless: true})
	for _, agent := range []string{"spy", "spy", "tinker"} {
		rec := postJSON(t, s.Handler(), "/api/chat", schemas.ChatRequest{Agent: agent, Message: "go"})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := get(s.Handler(), "/api/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats schemas.StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 3, stats.TotalConversations)
	assert.Equal(t, 2, stats.ActiveAgents)
	assert.Equal(t, 2, stats.ConversationsBy["spy"])
	assert.Equal(t, 1, stats.ConversationsBy["tinker"])
	assert.Equal(t, inference.KnownModels, stats.Models)
	// three chats plus this request
	assert.Equal(t, int64(4), stats.RequestsServed)
}
