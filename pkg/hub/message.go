// Package hub fans monitor payloads out to websocket clients. Each client
// may narrow what it receives with an address prefix filter.
package hub

import "strings"

// Message is an encoded JSON payload. Topic is the OSC address for protocol
// traffic and empty for status snapshots.
type Message struct {
	Topic string
	Data  []byte
}

// NewJSONMessage creates an untopiced message from pre-encoded JSON bytes.
func NewJSONMessage(data []byte) Message {
	return Message{Data: data}
}

// matches reports whether a message passes a client's prefix filter.
// An empty filter passes everything.
func matches(filter, topic string) bool {
	return filter == "" || strings.HasPrefix(topic, filter)
}
