// Package summarization drives the streaming conversational service that
// turns a transcript into a summary and answers follow-up questions.
package summarization

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// QuerySeparator joins an instruction and the text it applies to.
	QuerySeparator = "\n\n---\n"
	// DefaultUser is the fixed caller identity sent with every turn.
	DefaultUser = "audio-recap-user"
	// DefaultTimeout bounds one whole turn, including reading the stream.
	DefaultTimeout = 120 * time.Second

	chatPath        = "/chat-messages"
	appIDHeader     = "X-Dify-App-Id"
	responseModeSSE = "streaming"
	maxErrorBody    = 4 << 10
)

// Config describes the remote conversational application.
type Config struct {
	BaseURL string
	APIKey  string
	AppID   string
	User    string
	Timeout time.Duration
}

// Turn is one request to the conversational service.
type Turn struct {
	// Query is the transcript or the follow-up question.
	Query string
	// Instruction is prefixed to Query when non-empty.
	Instruction string
	// Display is what the message history shows for the user side of the
	// turn. Defaults to Query.
	Display string
}

// Answer is the outcome of a successful turn.
type Answer struct {
	Text           string `json:"answer"`
	ConversationID string `json:"conversation_id"`
	Streamed       bool   `json:"streamed"`
}

// FragmentFunc observes answer fragments as they arrive.
type FragmentFunc func(fragment string)

// Client issues turns against the conversational service. It holds no
// conversation state of its own; callers pass a Conversation in and get the
// updated one back.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     logrus.FieldLogger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the transport. Timeouts still come from Config.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the component logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient validates cfg and fills defaults.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("summarization: api key is required")
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("summarization: base url is required")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.User == "" {
		cfg.User = DefaultUser
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		logger:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BuildQuery prefixes text with instruction when one is given.
func BuildQuery(instruction, text string) string {
	if instruction == "" {
		return text
	}
	return instruction + QuerySeparator + text
}

type chatRequest struct {
	Query          string         `json:"query"`
	Inputs         map[string]any `json:"inputs"`
	ResponseMode   string         `json:"response_mode"`
	ConversationID string         `json:"conversation_id"`
	User           string         `json:"user"`
}

type blockingResponse struct {
	Answer         string `json:"answer"`
	ConversationID string `json:"conversation_id"`
}

type remoteError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Submit runs one turn. On success it returns conv advanced to Active with
// the turn appended to its messages. On failure it returns conv unchanged
// together with a *SessionError.
func (c *Client) Submit(ctx context.Context, conv Conversation, turn Turn, onFragment FragmentFunc) (Conversation, *Answer, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	log := c.logger.WithField("conversation_id", conv.ID)

	body, err := json.Marshal(chatRequest{
		Query:          BuildQuery(turn.Instruction, turn.Query),
		Inputs:         map[string]any{},
		ResponseMode:   responseModeSSE,
		ConversationID: conv.ID,
		User:           c.cfg.User,
	})
	if err != nil {
		return conv, nil, protocolError("encoding request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+chatPath, bytes.NewReader(body))
	if err != nil {
		return conv, nil, transportError("building request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream, application/json")
	if c.cfg.AppID != "" {
		req.Header.Set(appIDHeader, c.cfg.AppID)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return conv, nil, transportError("sending request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return conv, nil, rejectedError(describeRejection(resp))
	}

	var answer *Answer
	switch responseShape(resp.Header.Get("Content-Type")) {
	case shapeStream:
		answer, err = readStream(resp.Body, onFragment)
	case shapeJSON:
		answer, err = readBlocking(resp.Body, onFragment)
	default:
		err = protocolError(fmt.Sprintf("unexpected content type %q", resp.Header.Get("Content-Type")), nil)
	}
	if err != nil {
		log.WithError(err).Warn("Summarization turn failed")
		return conv, nil, err
	}
	if answer.ConversationID == "" {
		return conv, nil, protocolError("response carried no conversation_id", nil)
	}

	display := turn.Display
	if display == "" {
		display = turn.Query
	}

	log.WithFields(logrus.Fields{
		"new_conversation_id": answer.ConversationID,
		"streamed":            answer.Streamed,
		"answer_chars":        len(answer.Text),
		"elapsed":             time.Since(start).Round(time.Millisecond),
	}).Debug("Summarization turn completed")

	return conv.withTurn(answer.ConversationID, display, answer.Text), answer, nil
}

type shape int

const (
	shapeUnknown shape = iota
	shapeStream
	shapeJSON
)

func responseShape(contentType string) shape {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return shapeUnknown
	}
	switch mediaType {
	case "text/event-stream":
		return shapeStream
	case "application/json":
		return shapeJSON
	default:
		return shapeUnknown
	}
}

func readStream(body io.Reader, onFragment FragmentFunc) (*Answer, error) {
	var (
		text strings.Builder
		id   string
	)

	for ev, err := range NewEventReader(body).Events() {
		if err != nil {
			var malformed *errMalformed
			if errors.As(err, &malformed) {
				return nil, protocolError("malformed event stream", err)
			}
			return nil, transportError("reading event stream", err)
		}

		if ev.ConversationID != "" {
			id = ev.ConversationID
		}
		switch ev.Kind {
		case EventMessage:
			text.WriteString(ev.Answer)
			if onFragment != nil && ev.Answer != "" {
				onFragment(ev.Answer)
			}
		case EventError:
			detail := ev.Message
			if ev.Code != "" {
				detail = fmt.Sprintf("%s (%s)", detail, ev.Code)
			}
			if ev.Status != 0 {
				detail = fmt.Sprintf("%s [status %d]", detail, ev.Status)
			}
			return nil, rejectedError(detail)
		}
	}

	return &Answer{Text: text.String(), ConversationID: id, Streamed: true}, nil
}

func readBlocking(body io.Reader, onFragment FragmentFunc) (*Answer, error) {
	var resp blockingResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, protocolError("decoding response", err)
		}
		return nil, transportError("reading response", err)
	}
	if onFragment != nil && resp.Answer != "" {
		onFragment(resp.Answer)
	}
	return &Answer{Text: resp.Answer, ConversationID: resp.ConversationID}, nil
}

func describeRejection(resp *http.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var remote remoteError
	if err := json.Unmarshal(raw, &remote); err == nil && remote.Message != "" {
		if remote.Code != "" {
			return fmt.Sprintf("status %d: %s (%s)", resp.StatusCode, remote.Message, remote.Code)
		}
		return fmt.Sprintf("status %d: %s", resp.StatusCode, remote.Message)
	}
	if msg := strings.TrimSpace(string(raw)); msg != "" {
		return fmt.Sprintf("status %d: %s", resp.StatusCode, msg)
	}
	return fmt.Sprintf("status %d", resp.StatusCode)
}
