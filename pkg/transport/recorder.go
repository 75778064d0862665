package transport

import (
	"sync"

	"github.com/teslashibe/go-soundfield/pkg/protocol"
)

// Recorder implements Sender in memory, for tests.
type Recorder struct {
	// SendFunc, if set, is called for every message after it is recorded.
	// Its error is returned from Send.
	SendFunc func(msg protocol.Message) error

	mu       sync.Mutex
	messages []protocol.Message
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Send records msg.
func (r *Recorder) Send(msg protocol.Message) error {
	r.mu.Lock()
	r.messages = append(r.messages, msg)
	fn := r.SendFunc
	r.mu.Unlock()

	if fn != nil {
		return fn(msg)
	}
	return nil
}

// Messages returns a copy of everything recorded so far.
func (r *Recorder) Messages() []protocol.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]protocol.Message(nil), r.messages...)
}

// ByAddress returns the recorded messages sent to addr, in order.
func (r *Recorder) ByAddress(addr string) []protocol.Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []protocol.Message
	for _, m := range r.messages {
		if m.Address == addr {
			out = append(out, m)
		}
	}
	return out
}

// Count returns the number of messages sent to addr.
func (r *Recorder) Count(addr string) int {
	return len(r.ByAddress(addr))
}

// Reset drops all recorded messages.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.messages = nil
	r.mu.Unlock()
}
