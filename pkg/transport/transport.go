// Package transport delivers protocol messages to the audio renderer.
//
// Delivery is fire-and-forget: a Sender makes one attempt and reports the
// error, if any. Nothing here retries.
package transport

import (
	"errors"
	"fmt"

	"github.com/teslashibe/go-soundfield/pkg/protocol"
)

// Sentinel errors for common error conditions.
var (
	// ErrClosed is returned when sending on a closed sender.
	ErrClosed = errors.New("transport: sender closed")

	// ErrNoEndpoint is returned when no host or port is configured.
	ErrNoEndpoint = errors.New("transport: renderer endpoint required")
)

// Sender delivers a single message.
type Sender interface {
	Send(msg protocol.Message) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(msg protocol.Message) error

// Send calls f(msg).
func (f SenderFunc) Send(msg protocol.Message) error {
	return f(msg)
}

// SendError wraps a failed send with the address it was for.
type SendError struct {
	Address string
	Err     error
}

// Error implements the error interface.
func (e *SendError) Error() string {
	return fmt.Sprintf("transport: send %s: %v", e.Address, e.Err)
}

// Unwrap returns the underlying error.
func (e *SendError) Unwrap() error {
	return e.Err
}

// Multi fans every message out to all senders. A failing sender does not
// stop the others; the errors are joined.
type Multi []Sender

// Send implements Sender.
func (m Multi) Send(msg protocol.Message) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Send(msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
