package schemas

import (
	"github.com/crewhub/workspace/internal/agents"
	"github.com/crewhub/workspace/internal/memory"
)

type HealthcheckResponse struct {
	Service string `json:"service"`
	Version string `json:"version"`
}

type AgentListResponse struct {
	Agents []AgentInfo `json:"agents"`
}

type AgentInfo struct {
	agents.Agent
	Status string `json:"status"`
}

const (
	AgentStatusActive = "active"
	AgentStatusIdle   = "idle"
)

type ChatRequest struct {
	Agent     string `json:"agent"`
	Message   string `json:"message"`
	Model     string `json:"model"`
	MaxLength int    `json:"max_length"`
}

type ChatResponse struct {
	Conversation memory.Conversation `json:"conversation"`
}

type HistoryResponse struct {
	Conversations []memory.Conversation `json:"conversations"`
}

type ClearRequest struct {
	// Agent limits clearing to one agent; empty clears the whole session.
	Agent string `json:"agent"`
}

type StatsResponse struct {
	TotalConversations int            `json:"total_conversations"`
	ActiveAgents       int            `json:"active_agents"`
	ConversationsBy    map[string]int `json:"conversations_by_agent"`
	SessionCreatedAt   string         `json:"session_created_at"`
	Uptime             string         `json:"uptime"`
	RequestsServed     int64          `json:"requests_served"`
	Models             []string       `json:"models"`
}

// Event is one entry on the websocket activity stream.
type Event struct {
	Type         string               `json:"type"`
	Conversation *memory.Conversation `json:"conversation,omitempty"`
	Timestamp    int64                `json:"timestamp"`
}

const (
	EventConversation = "conversation"
	EventCleared      = "cleared"
)
