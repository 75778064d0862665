// Package debug provides global debug tracing flags.
package debug

import (
	"github.com/teslashibe/go-soundfield/internal/log"
	"github.com/teslashibe/go-soundfield/pkg/protocol"
)

// Enabled controls whether debug logging is active.
var Enabled bool

// Protocol controls per-message tracing of everything sent to the renderer.
// At frame rate this is very verbose; use --debug-protocol to enable.
var Protocol bool

// Log logs a message only if debug mode is enabled.
func Log(msg string, args ...any) {
	if Enabled {
		log.Info(msg, args...)
	}
}

// TraceMessage logs an outbound message if protocol tracing is enabled.
func TraceMessage(m protocol.Message) {
	if Protocol {
		log.Info("osc out", "address", m.Address, "args", m.Args)
	}
}
