package summarization

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// EventKind tags a StreamEvent.
type EventKind int

const (
	// EventMessage carries an answer fragment.
	EventMessage EventKind = iota
	// EventError carries a remote failure; it ends the stream.
	EventError
	// EventEnd marks the logical end of the answer.
	EventEnd
)

func (k EventKind) String() string {
	switch k {
	case EventMessage:
		return "message"
	case EventError:
		return "error"
	case EventEnd:
		return "end"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// StreamEvent is one decoded record of a streamed answer.
type StreamEvent struct {
	Kind           EventKind
	Answer         string // EventMessage fragment
	ConversationID string // set on any record that carries one
	Message        string // EventError description
	Code           string // EventError code
	Status         int    // EventError HTTP-like status
}

// wire names of the records we act on
const (
	wireMessage      = "message"
	wireAgentMessage = "agent_message"
	wireMessageEnd   = "message_end"
	wireError        = "error"
)

// envelope is the decoded form of one `data:` record.
type envelope struct {
	Event          string `json:"event"`
	Answer         string `json:"answer"`
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
	Code           string `json:"code"`
	Status         int    `json:"status"`
}

var errNoEventField = errors.New("record has no event field")

var dataPrefix = []byte("data:")

// parseLine decodes one line of the stream. ok is false for framing lines
// and for records whose event is not one we act on.
func parseLine(line []byte) (ev StreamEvent, ok bool, err error) {
	line = bytes.TrimRight(line, "\r")
	trimmed := bytes.TrimSpace(line)

	switch {
	case len(trimmed) == 0:
		return ev, false, nil
	case trimmed[0] == ':':
		// SSE comment / keep-alive
		return ev, false, nil
	case bytes.HasPrefix(trimmed, []byte("event:")),
		bytes.HasPrefix(trimmed, []byte("id:")),
		bytes.HasPrefix(trimmed, []byte("retry:")):
		return ev, false, nil
	case !bytes.HasPrefix(trimmed, dataPrefix):
		return ev, false, fmt.Errorf("unexpected line %q", truncate(trimmed, 80))
	}

	payload := bytes.TrimSpace(trimmed[len(dataPrefix):])
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return ev, false, fmt.Errorf("decoding record: %w", err)
	}
	if env.Event == "" {
		return ev, false, errNoEventField
	}

	ev.ConversationID = env.ConversationID
	switch env.Event {
	case wireMessage, wireAgentMessage:
		ev.Kind = EventMessage
		ev.Answer = env.Answer
	case wireMessageEnd:
		ev.Kind = EventEnd
	case wireError:
		ev.Kind = EventError
		ev.Message = env.Message
		ev.Code = env.Code
		ev.Status = env.Status
	default:
		// ping, workflow_started, node_finished, message_file, ...
		return ev, false, nil
	}
	return ev, true, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
