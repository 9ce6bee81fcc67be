package agents

import (
	"fmt"
	"strings"
)

// Exchange is one prior user/agent turn included as prompt context.
type Exchange struct {
	UserInput string
	Response  string
}

// contextExchanges caps how many prior turns are replayed into the prompt.
const contextExchanges = 2

// BuildPrompt renders the instruction prompt sent to the language model for
// one agent turn. Only the most recent exchanges are replayed to keep the
// prompt within small-model input limits.
func BuildPrompt(agent Agent, history []Exchange, userInput string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, %s.\n\n", agent.Name, agent.Description)
	fmt.Fprintf(&b, "Your persona: %s\n\n", agent.Persona)
	fmt.Fprintf(&b, "Your specialties: %s\n\n", strings.Join(agent.Specialties, ", "))
	fmt.Fprintf(&b,
		"Instructions: Respond as %s would, staying in character. Be helpful, professional, and leverage your specialties. Keep responses concise but informative.\n",
		agent.Name)

	if len(history) > 0 {
		if len(history) > contextExchanges {
			history = history[len(history)-contextExchanges:]
		}
		b.WriteString("\nRecent conversation context:\n")
		for _, exchange := range history {
			fmt.Fprintf(&b, "User: %s\nYou: %s\n", exchange.UserInput, exchange.Response)
		}
	}

	fmt.Fprintf(&b, "\nCurrent user request: %s\n\nResponse:", userInput)
	return b.String()
}

// TrimResponse drops an echoed prompt from a completion. Small causal models
// return the prompt followed by the generated text; everything before the
// last "Response:" marker is the echo.
func TrimResponse(completion string) string {
	if idx := strings.LastIndex(completion, "Response:"); idx >= 0 {
		completion = completion[idx+len("Response:"):]
	}
	return strings.TrimSpace(completion)
}
