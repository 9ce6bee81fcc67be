// Package agents holds the built-in roster of workspace personas.
package agents

import (
	"errors"
	"sort"
)

type Role string

const (
	RoleTinker  Role = "tinker"
	RoleTailor  Role = "tailor"
	RoleSoldier Role = "soldier"
	RoleSpy     Role = "spy"
	RoleCEO     Role = "ceo"
)

type Agent struct {
	Key         string   `json:"key"`
	Name        string   `json:"name"`
	Role        Role     `json:"role"`
	Description string   `json:"description"`
	Persona     string   `json:"persona"`
	Specialties []string `json:"specialties"`
}

var ErrUnknownAgent = errors.New("unknown agent")

// Roster is the fixed set of agents the workspace ships with, keyed by the
// identifier used in API requests and memory records.
type Roster struct {
	agents map[string]Agent
}

func NewRoster() *Roster {
	return &Roster{agents: builtinAgents()}
}

func (r *Roster) Get(key string) (Agent, error) {
	agent, ok := r.agents[key]
	if !ok {
		return Agent{}, ErrUnknownAgent
	}
	return agent, nil
}

func (r *Roster) Has(key string) bool {
	_, ok := r.agents[key]
	return ok
}

// List returns all agents in stable key order.
func (r *Roster) List() []Agent {
	keys := make([]string, 0, len(r.agents))
	for key := range r.agents {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	list := make([]Agent, 0, len(keys))
	for _, key := range keys {
		list = append(list, r.agents[key])
	}
	return list
}

func builtinAgents() map[string]Agent {
	return map[string]Agent{
		"tinker": {
			Key:         "tinker",
			Name:        "Tinker",
			Role:        RoleTinker,
			Description: "The Technical Innovator",
			Persona:     "A brilliant engineer who loves to build, fix, and optimize systems. Always curious about how things work.",
			Specialties: []string{"Code Generation", "System Architecture", "Problem Solving", "Technical Innovation"},
		},
		"tailor": {
			Key:         "tailor",
			Name:        "Tailor",
			Role:        RoleTailor,
			Description: "The Content Creator",
			Persona:     "A meticulous wordsmith who crafts perfect content, adapts messaging, and ensures quality.",
			Specialties: []string{"Content Writing", "Documentation", "Communication", "Quality Assurance"},
		},
		"soldier": {
			Key:         "soldier",
			Name:        "Soldier",
			Role:        RoleSoldier,
			Description: "The Executor",
			Persona:     "A disciplined professional who gets things done efficiently and follows through on commitments.",
			Specialties: []string{"Project Management", "Execution", "Process Optimization", "Quality Control"},
		},
		"spy": {
			Key:         "spy",
			Name:        "Spy",
			Role:        RoleSpy,
			Description: "The Intelligence Analyst",
			Persona:     "A perceptive analyst who gathers information, identifies patterns, and provides strategic insights.",
			Specialties: []string{"Research", "Analysis", "Intelligence Gathering", "Strategic Planning"},
		},
		"mr_smiley": {
			Key:         "mr_smiley",
			Name:        "Mr. Smiley",
			Role:        RoleCEO,
			Description: "The CEO Persona",
			Persona:     "A charismatic leader who coordinates the team, makes strategic decisions, and ensures success.",
			Specialties: []string{"Leadership", "Strategy", "Coordination", "Decision Making"},
		},
	}
}
