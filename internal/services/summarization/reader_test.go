package summarization

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventReaderYieldsEventsInOrder(t *testing.T) {
	stream := strings.Join([]string{
		`data: {"event":"message","answer":"Hel","conversation_id":"c1"}`,
		``,
		`data: {"event":"message","answer":"lo","conversation_id":"c1"}`,
		`data: {"event":"message_end","conversation_id":"c1"}`,
		``,
	}, "\n")

	r := NewEventReader(strings.NewReader(stream))

	ev, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, EventMessage, ev.Kind)
	assert.Equal(t, "Hel", ev.Answer)
	assert.Equal(t, "c1", ev.ConversationID)

	ev, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, "lo", ev.Answer)

	ev, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, EventEnd, ev.Kind)

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestEventReaderSkipsFramingAndIgnorableEvents(t *testing.T) {
	stream := strings.Join([]string{
		`: keep-alive`,
		`event: ping`,
		`id: 7`,
		`retry: 1000`,
		`data: {"event":"ping"}`,
		`data: {"event":"workflow_started","conversation_id":"c9"}`,
		"data: {\"event\":\"agent_message\",\"answer\":\"ok\"}\r",
	}, "\n")

	r := NewEventReader(strings.NewReader(stream))

	ev, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, EventMessage, ev.Kind)
	assert.Equal(t, "ok", ev.Answer)

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF, "stream close ends the sequence without message_end")
}

func TestEventReaderStopsAtEnd(t *testing.T) {
	stream := `data: {"event":"message_end"}` + "\n" + `data: {"event":"message","answer":"late"}` + "\n"

	r := NewEventReader(strings.NewReader(stream))
	ev, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, EventEnd, ev.Kind)

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF, "reader is not restartable")
}

func TestEventReaderStopsAtError(t *testing.T) {
	stream := strings.Join([]string{
		`data: {"event":"error","message":"quota exceeded","code":"quota","status":429}`,
		`data: {"event":"message","answer":"never"}`,
	}, "\n")

	r := NewEventReader(strings.NewReader(stream))
	ev, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, EventError, ev.Kind)
	assert.Equal(t, "quota exceeded", ev.Message)
	assert.Equal(t, "quota", ev.Code)
	assert.Equal(t, 429, ev.Status)

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestEventReaderMalformedLines(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{name: "bad json", line: `data: {"event":"message",`},
		{name: "no event field", line: `data: {"answer":"x"}`},
		{name: "not a data line", line: `garbage`},
		{name: "json array", line: `data: [1,2]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewEventReader(strings.NewReader(tt.line + "\n"))
			_, err := r.Next()
			require.Error(t, err)

			var malformed *errMalformed
			assert.True(t, errors.As(err, &malformed))

			_, err = r.Next()
			assert.ErrorIs(t, err, io.EOF)
		})
	}
}

func TestEventsSequenceHonorsEarlyBreak(t *testing.T) {
	stream := strings.Join([]string{
		`data: {"event":"message","answer":"a"}`,
		`data: {"event":"message","answer":"b"}`,
		`data: {"event":"message","answer":"c"}`,
	}, "\n")

	r := NewEventReader(strings.NewReader(stream))
	var seen []string
	for ev, err := range r.Events() {
		require.NoError(t, err)
		seen = append(seen, ev.Answer)
		if len(seen) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"a", "b"}, seen)

	ev, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "c", ev.Answer, "consumer drives termination; unread events stay unread")
}

func TestEventKindString(t *testing.T) {
	assert.Equal(t, "message", EventMessage.String())
	assert.Equal(t, "error", EventError.String())
	assert.Equal(t, "end", EventEnd.String())
	assert.Equal(t, "event(9)", EventKind(9).String())
}

func TestConversationState(t *testing.T) {
	var conv Conversation
	assert.Equal(t, StateIdle, conv.State())

	next := conv.withTurn("c1", "question", "answer")
	assert.Equal(t, StateActive, next.State())
	assert.Empty(t, conv.Messages, "withTurn returns a copy")
	assert.Equal(t, []Message{
		{Role: RoleUser, Content: "question"},
		{Role: RoleAssistant, Content: "answer"},
	}, next.Messages)

	reset := next.Reset()
	assert.Equal(t, StateIdle, reset.State())
	assert.Empty(t, reset.Messages)
}

func TestBuildQuery(t *testing.T) {
	assert.Equal(t, "transcript", BuildQuery("", "transcript"))
	assert.Equal(t, "Summarize\n\n---\ntranscript", BuildQuery("Summarize", "transcript"))
}
