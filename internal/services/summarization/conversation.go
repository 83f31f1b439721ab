package summarization

// Role of a message in the displayed history
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one displayed entry of the conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// State of a conversation
type State string

const (
	// StateIdle means no conversation identifier has been issued yet.
	StateIdle State = "idle"
	// StateActive means follow-up turns continue a server-side history.
	StateActive State = "active"
)

// Conversation is the session-scoped conversation context. It is a value:
// Submit returns an updated copy and never mutates the one it was given.
// Messages are kept for display only; the remote service keeps its own
// history keyed by ID.
type Conversation struct {
	ID       string    `json:"conversation_id"`
	Messages []Message `json:"messages"`
}

// State derives Idle/Active from the identifier.
func (c Conversation) State() State {
	if c.ID == "" {
		return StateIdle
	}
	return StateActive
}

// Reset returns an empty (Idle) conversation.
func (c Conversation) Reset() Conversation {
	return Conversation{}
}

// withTurn returns a copy carrying the new identifier and the two displayed
// messages of a successful turn.
func (c Conversation) withTurn(id, display, answer string) Conversation {
	msgs := make([]Message, 0, len(c.Messages)+2)
	msgs = append(msgs, c.Messages...)
	msgs = append(msgs,
		Message{Role: RoleUser, Content: display},
		Message{Role: RoleAssistant, Content: answer},
	)
	return Conversation{ID: id, Messages: msgs}
}
