package domain

// Session is the full, ordered turn history of one conversation.
type Session struct {
	ID    string     `json:"session_id"`
	Turns []ChatTurn `json:"messages"`
}
