package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"

	"github.com/crewhub/workspace/internal/agents"
	"github.com/crewhub/workspace/internal/inference"
	"github.com/crewhub/workspace/internal/log"
	"github.com/crewhub/workspace/internal/memory"
	"github.com/crewhub/workspace/internal/schemas"
)

func (s *Server) healthcheckHandler(w http.ResponseWriter, r *http.Request) (interface{}, error) {
	return &schemas.HealthcheckResponse{
		Service: "crewhub-workspace",
		Version: s.version,
	}, nil
}

func (s *Server) agentListHandler(w http.ResponseWriter, r *http.Request) (interface{}, error) {
	list := s.roster.List()
	infos := make([]schemas.AgentInfo, 0, len(list))
	for _, agent := range list {
		info, err := s.agentInfo(r, agent)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return &schemas.AgentListResponse{Agents: infos}, nil
}

func (s *Server) agentInfoHandler(w http.ResponseWriter, r *http.Request) (interface{}, error) {
	agent, err := s.roster.Get(chi.URLParam(r, "key"))
	if err != nil {
		return nil, &Error{Status: http.StatusNotFound, Err: err}
	}
	info, err := s.agentInfo(r, agent)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (s *Server) agentInfo(r *http.Request, agent agents.Agent) (schemas.AgentInfo, error) {
	history, err := s.store.History(r.Context(), agent.Key, 1)
	if err != nil {
		return schemas.AgentInfo{}, err
	}
	status := schemas.AgentStatusIdle
	if len(history) > 0 {
		status = schemas.AgentStatusActive
	}
	return schemas.AgentInfo{Agent: agent, Status: status}, nil
}

func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) (interface{}, error) {
	var req schemas.ChatRequest
	if err := DecodeJSONBody(w, r, &req, true); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, &Error{Status: http.StatusBadRequest, Msg: "empty message"}
	}
	agent, err := s.roster.Get(req.Agent)
	if err != nil {
		return nil, &Error{Status: http.StatusBadRequest, Msg: fmt.Sprintf("unknown agent %q", req.Agent)}
	}
	maxLength := req.MaxLength
	if maxLength <= 0 {
		maxLength = s.cfg.DefaultMaxLength
	}

	ctx := r.Context()
	history, err := s.store.History(ctx, agent.Key, 3)
	if err != nil {
		return nil, err
	}
	exchanges := make([]agents.Exchange, 0, len(history))
	for _, conv := range history {
		exchanges = append(exchanges, agents.Exchange{UserInput: conv.UserInput, Response: conv.Response})
	}

	prompt := agents.BuildPrompt(agent, exchanges, req.Message)
	completion, err := s.client.Generate(ctx, req.Model, prompt, maxLength)
	if err != nil {
		if errors.Is(err, inference.ErrNoToken) {
			return nil, &Error{Status: http.StatusServiceUnavailable, Err: err}
		}
		return nil, &Error{Status: http.StatusBadGateway, Err: err}
	}
	response := agents.TrimResponse(completion)

	conv, err := s.store.AddConversation(ctx, memory.Conversation{
		Agent:     agent.Key,
		UserInput: req.Message,
		Response:  response,
	})
	if err != nil {
		return nil, err
	}
	state, _ := json.Marshal(map[string]interface{}{
		"status":      schemas.AgentStatusActive,
		"last_active": conv.Timestamp.Format(time.RFC3339Nano),
	})
	if err := s.store.UpdateAgentState(ctx, agent.Key, state); err != nil {
		log.Warning(ctx, "Failed to update agent state", "agent", agent.Key, "err", err)
	}
	s.events.publish(schemas.Event{
		Type:         schemas.EventConversation,
		Conversation: &conv,
		Timestamp:    conv.Timestamp.UnixMilli(),
	})

	return &schemas.ChatResponse{Conversation: conv}, nil
}

func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request) (interface{}, error) {
	agent := r.URL.Query().Get("agent")
	if agent != "" && !s.roster.Has(agent) {
		return nil, &Error{Status: http.StatusBadRequest, Msg: fmt.Sprintf("unknown agent %q", agent)}
	}
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		var err error
		if limit, err = strconv.Atoi(raw); err != nil {
			return nil, &Error{Status: http.StatusBadRequest, Msg: "limit must be an integer"}
		}
	}
	conversations, err := s.store.History(r.Context(), agent, limit)
	if err != nil {
		return nil, err
	}
	return &schemas.HistoryResponse{Conversations: conversations}, nil
}

func (s *Server) clearHandler(w http.ResponseWriter, r *http.Request) (interface{}, error) {
	var req schemas.ClearRequest
	if err := DecodeJSONBody(w, r, &req, true); err != nil {
		return nil, err
	}
	if req.Agent != "" && !s.roster.Has(req.Agent) {
		return nil, &Error{Status: http.StatusBadRequest, Msg: fmt.Sprintf("unknown agent %q", req.Agent)}
	}
	if err := s.store.Clear(r.Context(), req.Agent); err != nil {
		return nil, err
	}
	log.Info(r.Context(), "Memory cleared", "agent", req.Agent)
	s.events.publish(schemas.Event{Type: schemas.EventCleared, Timestamp: time.Now().UnixMilli()})
	return map[string]string{"status": "cleared"}, nil
}

func (s *Server) exportHandler(w http.ResponseWriter, r *http.Request) (interface{}, error) {
	export, err := s.store.Export(r.Context())
	if err != nil {
		return nil, err
	}
	filename := fmt.Sprintf("session_export_%s.json", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	return &export, nil
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) (interface{}, error) {
	export, err := s.store.Export(r.Context())
	if err != nil {
		return nil, err
	}
	byAgent := make(map[string]int)
	for _, conv := range export.Conversations {
		byAgent[conv.Agent]++
	}
	return &schemas.StatsResponse{
		TotalConversations: len(export.Conversations),
		ActiveAgents:       len(byAgent),
		ConversationsBy:    byAgent,
		SessionCreatedAt:   export.CreatedAt.Format(time.RFC3339Nano),
		Uptime:             humanize.RelTime(s.startedAt, time.Now(), "", ""),
		RequestsServed:     s.requests.Load(),
		Models:             inference.KnownModels,
	}, nil
}
