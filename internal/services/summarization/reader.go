package summarization

import (
	"bufio"
	"errors"
	"io"
	"iter"
)

// maxLineSize bounds a single record; answers arrive in small fragments.
const maxLineSize = 1 << 20

// errMalformed marks a framing failure so the consumer can classify it.
type errMalformed struct{ err error }

func (e *errMalformed) Error() string { return "malformed stream: " + e.err.Error() }
func (e *errMalformed) Unwrap() error { return e.err }

// EventReader decodes StreamEvents from a response body as it is read. It is
// finite and not restartable: after End, Error, a malformed line, or the
// underlying EOF every further call returns io.EOF.
type EventReader struct {
	scanner *bufio.Scanner
	done    bool
}

// NewEventReader wraps r.
func NewEventReader(r io.Reader) *EventReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &EventReader{scanner: scanner}
}

// Next returns the next event, io.EOF at the end of the stream, or a read or
// framing error.
func (r *EventReader) Next() (StreamEvent, error) {
	if r.done {
		return StreamEvent{}, io.EOF
	}

	for r.scanner.Scan() {
		ev, ok, err := parseLine(r.scanner.Bytes())
		if err != nil {
			r.done = true
			return StreamEvent{}, &errMalformed{err: err}
		}
		if !ok {
			continue
		}
		if ev.Kind == EventEnd || ev.Kind == EventError {
			r.done = true
		}
		return ev, nil
	}

	r.done = true
	if err := r.scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return StreamEvent{}, &errMalformed{err: err}
		}
		return StreamEvent{}, err
	}
	return StreamEvent{}, io.EOF
}

// Events exposes the reader as a lazy sequence. A non-nil error is yielded
// at most once and ends the sequence.
func (r *EventReader) Events() iter.Seq2[StreamEvent, error] {
	return func(yield func(StreamEvent, error) bool) {
		for {
			ev, err := r.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(ev, err) || err != nil {
				return
			}
		}
	}
}
