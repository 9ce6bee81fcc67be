// Package memory stores per-session workspace state: the conversation log
// and per-agent state blobs.
package memory

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Conversation struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Agent     string    `json:"agent"`
	UserInput string    `json:"user_input"`
	Response  string    `json:"response"`
}

// Export is the full session snapshot offered for download.
type Export struct {
	CreatedAt     time.Time                  `json:"created_at"`
	Conversations []Conversation             `json:"conversations"`
	AgentStates   map[string]json.RawMessage `json:"agent_states"`
}

type Store interface {
	// AddConversation appends one exchange. A missing ID or timestamp is
	// filled in by the store.
	AddConversation(ctx context.Context, conv Conversation) (Conversation, error)
	// History returns conversations in chronological order, optionally
	// filtered by agent. limit <= 0 returns everything; otherwise the most
	// recent limit entries.
	History(ctx context.Context, agent string, limit int) ([]Conversation, error)
	UpdateAgentState(ctx context.Context, agent string, state json.RawMessage) error
	// Clear removes one agent's conversations, or resets the whole session
	// when agent is empty.
	Clear(ctx context.Context, agent string) error
	Export(ctx context.Context) (Export, error)
	Close() error
}

type inMemory struct {
	mu            sync.RWMutex
	createdAt     time.Time
	conversations []Conversation
	agentStates   map[string]json.RawMessage
}

func NewInMemory() Store {
	return &inMemory{
		createdAt:   time.Now(),
		agentStates: make(map[string]json.RawMessage),
	}
}

func (m *inMemory) AddConversation(ctx context.Context, conv Conversation) (Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if conv.ID == "" {
		conv.ID = uuid.New().String()
	}
	if conv.Timestamp.IsZero() {
		conv.Timestamp = time.Now()
	}
	m.conversations = append(m.conversations, conv)
	return conv, nil
}

func (m *inMemory) History(ctx context.Context, agent string, limit int) ([]Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	filtered := make([]Conversation, 0, len(m.conversations))
	for _, conv := range m.conversations {
		if agent == "" || conv.Agent == agent {
			filtered = append(filtered, conv)
		}
	}
	if limit > 0 && len(filtered) > limit {
		filtered = filtered[len(filtered)-limit:]
	}
	return filtered, nil
}

func (m *inMemory) UpdateAgentState(ctx context.Context, agent string, state json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agentStates[agent] = state
	return nil
}

func (m *inMemory) Clear(ctx context.Context, agent string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if agent == "" {
		m.conversations = nil
		m.agentStates = make(map[string]json.RawMessage)
		m.createdAt = time.Now()
		return nil
	}
	kept := m.conversations[:0]
	for _, conv := range m.conversations {
		if conv.Agent != agent {
			kept = append(kept, conv)
		}
	}
	m.conversations = kept
	delete(m.agentStates, agent)
	return nil
}

func (m *inMemory) Export(ctx context.Context) (Export, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	export := Export{
		CreatedAt:     m.createdAt,
		Conversations: make([]Conversation, len(m.conversations)),
		AgentStates:   make(map[string]json.RawMessage, len(m.agentStates)),
	}
	copy(export.Conversations, m.conversations)
	for agent, state := range m.agentStates {
		export.AgentStates[agent] = state
	}
	return export, nil
}

func (m *inMemory) Close() error {
	return nil
}
