package agents

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRosterList(t *testing.T) {
	roster := NewRoster()
	list := roster.List()
	require.Len(t, list, 5)

	keys := make([]string, 0, len(list))
	for _, agent := range list {
		keys = append(keys, agent.Key)
	}
	assert.Equal(t, []string{"mr_smiley", "soldier", "spy", "tailor", "tinker"}, keys)
}

func TestRosterGet(t *testing.T) {
	roster := NewRoster()

	agent, err := roster.Get("tinker")
	require.NoError(t, err)
	assert.Equal(t, "Tinker", agent.Name)
	assert.Equal(t, RoleTinker, agent.Role)

	_, err = roster.Get("plumber")
	assert.ErrorIs(t, err, ErrUnknownAgent)
}

func TestBuildPrompt(t *testing.T) {
	roster := NewRoster()
	agent, err := roster.Get("spy")
	require.NoError(t, err)

	prompt := BuildPrompt(agent, nil, "what do we know about the rival team?")
	assert.Contains(t, prompt, "You are Spy, The Intelligence Analyst.")
	assert.Contains(t, prompt, "Research, Analysis, Intelligence Gathering, Strategic Planning")
	assert.Contains(t, prompt, "Current user request: what do we know about the rival team?")
	assert.True(t, strings.HasSuffix(prompt, "Response:"))
	assert.NotContains(t, prompt, "Recent conversation context")
}

func TestBuildPromptContextWindow(t *testing.T) {
	roster := NewRoster()
	agent, err := roster.Get("tailor")
	require.NoError(t, err)

	history := []Exchange{
		{UserInput: "first", Response: "one"},
		{UserInput: "second", Response: "two"},
		{UserInput: "third", Response: "three"},
	}
	prompt := BuildPrompt(agent, history, "fourth")

	// only the last two exchanges survive
	assert.NotContains(t, prompt, "User: first")
	assert.Contains(t, prompt, "User: second\nYou: two")
	assert.Contains(t, prompt, "User: third\nYou: three")
}

func TestTrimResponse(t *testing.T) {
	assert.Equal(t, "hello there", TrimResponse("hello there"))
	assert.Equal(t, "hello there", TrimResponse("You are Spy...\n\nResponse: hello there"))
	assert.Equal(t, "final", TrimResponse("Response: draft\nResponse: final"))
	assert.Equal(t, "", TrimResponse("Response:"))
}
