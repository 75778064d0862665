// Package protocol defines the OSC messages sent to the audio renderer.
//
// Every message is an address plus an ordered list of int32/float32 values.
// The address scheme and payload types are fixed by the renderer patch and
// must not change.
package protocol

import (
	"fmt"

	"github.com/hypebeast/go-osc/osc"
)

// Kind identifies what a message carries.
type Kind string

const (
	KindUnknown    Kind = ""
	KindStatus     Kind = "status"     // Playback start/stop
	KindPosition   Kind = "position"   // Listener-relative x/z
	KindDoppler    Kind = "doppler"    // Doppler enable flag
	KindAperture   Kind = "aperture"   // Ambient aperture (degrees)
	KindBackground Kind = "background" // Ambient background level (dB)
	KindDistances  Kind = "distances"  // Distanced gain for every source
	KindTrigger    Kind = "trigger"    // Reserved object-trigger status
)

// Status payload values.
const (
	StatusStop  int32 = 0
	StatusStart int32 = 1
)

// Message is a single outbound message.
type Message struct {
	Kind    Kind   `json:"kind"`
	Address string `json:"address"`
	Args    []any  `json:"args"` // int32 or float32 only
}

// NewStatusMessage builds /status with 1 for start or 0 for stop.
func NewStatusMessage(playing bool) Message {
	v := StatusStop
	if playing {
		v = StatusStart
	}
	return Message{Kind: KindStatus, Address: AddrStatus, Args: []any{v}}
}

// NewPositionMessage builds /source/{k}/xy for the listener-relative x and z.
func NewPositionMessage(k int, x, z float64) Message {
	return Message{
		Kind:    KindPosition,
		Address: PositionAddress(k),
		Args:    []any{float32(x), float32(z)},
	}
}

// NewDopplerMessage builds /source/{k}/doppler 1.
func NewDopplerMessage(k int) Message {
	return Message{Kind: KindDoppler, Address: DopplerAddress(k), Args: []any{int32(1)}}
}

// NewApertureMessage builds /source/{k}/aperture in degrees.
func NewApertureMessage(k int, degrees float64) Message {
	return Message{Kind: KindAperture, Address: ApertureAddress(k), Args: []any{float32(degrees)}}
}

// NewBackgroundMessage builds /src/{k}/gain in dB.
func NewBackgroundMessage(k int, db float64) Message {
	return Message{Kind: KindBackground, Address: BackgroundAddress(k), Args: []any{float32(db)}}
}

// NewDistancesMessage builds /distances with one gain per source, in
// source-index order.
func NewDistancesMessage(gains []float64) Message {
	args := make([]any, len(gains))
	for i, g := range gains {
		args[i] = float32(g)
	}
	return Message{Kind: KindDistances, Address: AddrDistances, Args: args}
}

// OSC converts the message to its go-osc form.
func (m Message) OSC() *osc.Message {
	return osc.NewMessage(m.Address, m.Args...)
}

// Bytes returns the OSC wire encoding.
func (m Message) Bytes() ([]byte, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}
	data, err := m.OSC().MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("protocol: encode %s: %w", m.Address, err)
	}
	return data, nil
}

// String renders the message the way the renderer console prints it.
func (m Message) String() string {
	s := m.Address
	for _, a := range m.Args {
		s += fmt.Sprintf(" %v", a)
	}
	return s
}

// Floats returns the float32 arguments widened to float64.
func (m Message) Floats() []float64 {
	out := make([]float64, 0, len(m.Args))
	for _, a := range m.Args {
		if f, ok := a.(float32); ok {
			out = append(out, float64(f))
		}
	}
	return out
}

// FromOSC converts a received go-osc message back into a Message.
// Arguments other than int32/float32 are rejected.
func FromOSC(om *osc.Message) (Message, error) {
	kind, _, err := ParseAddress(om.Address)
	if err != nil {
		return Message{}, err
	}
	m := Message{Kind: kind, Address: om.Address, Args: append([]any(nil), om.Arguments...)}
	if err := m.validate(); err != nil {
		return Message{}, err
	}
	return m, nil
}

func (m Message) validate() error {
	if m.Address == "" || m.Address[0] != '/' {
		return fmt.Errorf("protocol: invalid address %q", m.Address)
	}
	for i, a := range m.Args {
		switch a.(type) {
		case int32, float32:
		default:
			return fmt.Errorf("protocol: %s arg %d has unsupported type %T", m.Address, i, a)
		}
	}
	return nil
}
