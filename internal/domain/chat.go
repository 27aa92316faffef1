package domain

import "time"

// ChatMessage is the provider-agnostic chat message shape sent to the
// generative backend.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// ChatTurn is a single persisted conversation turn.
type ChatTurn struct {
	Role      Role      `json:"role"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// UserTurn builds a user turn stamped with the current time.
func UserTurn(text string) ChatTurn {
	return ChatTurn{Role: RoleUser, Message: text, CreatedAt: time.Now().UTC()}
}

// AssistantTurn builds an assistant turn stamped with the current time.
func AssistantTurn(text string) ChatTurn {
	return ChatTurn{Role: RoleAssistant, Message: text, CreatedAt: time.Now().UTC()}
}
