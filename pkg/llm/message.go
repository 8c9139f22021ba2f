package llm

import "fmt"

// Role identifies who produced a Turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"

	// RoleSystem only ever appears on the wire, never in a conversation log.
	RoleSystem Role = "system"
)

// ParseRole converts s into a conversation Role. Only user and assistant are accepted.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleAssistant:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Label is the display name used when rendering a turn.
func (r Role) Label() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// Turn is a single labeled message in a conversation.
type Turn struct {
	Role Role   `json:"role"` // "user" or "assistant"
	Text string `json:"text"` // The message content
}

// UserTurn returns a Turn spoken by the user.
func UserTurn(text string) Turn {
	return Turn{Role: RoleUser, Text: text}
}

// AssistantTurn returns a Turn spoken by the assistant.
func AssistantTurn(text string) Turn {
	return Turn{Role: RoleAssistant, Text: text}
}
