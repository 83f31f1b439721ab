package summarization

import "fmt"

// ErrorKind classifies a failed turn.
type ErrorKind string

const (
	// KindTransport covers connection failures and timeouts.
	KindTransport ErrorKind = "transport"
	// KindProtocol covers responses that cannot be interpreted.
	KindProtocol ErrorKind = "protocol"
	// KindRemoteRejected covers non-success statuses and error events.
	KindRemoteRejected ErrorKind = "remote_rejected"
)

// SessionError is returned by Submit. The conversation passed in is left
// untouched whenever a SessionError is returned.
type SessionError struct {
	Kind   ErrorKind
	Detail string
	Cause  error
}

func (e *SessionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("summarization %s error: %s: %v", e.Kind, e.Detail, e.Cause)
	}
	return fmt.Sprintf("summarization %s error: %s", e.Kind, e.Detail)
}

func (e *SessionError) Unwrap() error {
	return e.Cause
}

func transportError(detail string, cause error) *SessionError {
	return &SessionError{Kind: KindTransport, Detail: detail, Cause: cause}
}

func protocolError(detail string, cause error) *SessionError {
	return &SessionError{Kind: KindProtocol, Detail: detail, Cause: cause}
}

func rejectedError(detail string) *SessionError {
	return &SessionError{Kind: KindRemoteRejected, Detail: detail}
}
