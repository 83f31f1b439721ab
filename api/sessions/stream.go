package sessions

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/audio-recap/api/types"
	"github.com/killallgit/audio-recap/internal/services/orchestrator"
)

// Server-sent event names
const (
	EventProgress   = "progress"
	EventFragment   = "fragment"
	EventTranscript = "transcript"
	EventAnswer     = "answer"
	EventError      = "error"
)

// eventStream writes server-sent events. Progress may be reported from the
// transcription workers, so writes are serialized.
type eventStream struct {
	mu sync.Mutex
	c  *gin.Context
}

func openEventStream(c *gin.Context) *eventStream {
	h := c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()
	return &eventStream{c: c}
}

func (s *eventStream) send(event string, data any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c.SSEvent(event, data)
	s.c.Writer.Flush()
}

// progress adapts the stream to an orchestrator.ProgressFunc.
func (s *eventStream) progress(p orchestrator.Progress) {
	if p.Fragment != "" {
		s.send(EventFragment, gin.H{"text": p.Fragment})
		return
	}
	s.send(EventProgress, p)
}

func (s *eventStream) fail(err error) {
	s.send(EventError, types.NewErrorResponse(types.FromPipeline(err)))
}
