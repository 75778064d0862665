package session

import "errors"

// Sentinel errors for common error conditions.
var (
	// ErrNoPoseSource is returned when starting without a listener pose source.
	ErrNoPoseSource = errors.New("session: listener pose source required")

	// ErrNoSender is returned when starting without a transport.
	ErrNoSender = errors.New("session: sender required")

	// ErrNoSources is returned when the resolved source set is empty.
	ErrNoSources = errors.New("session: no sources")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("session: already started")

	// ErrEnded is returned when starting a session that has already ended.
	ErrEnded = errors.New("session: ended")

	// ErrNotRunning is returned when ticking outside a running session.
	ErrNotRunning = errors.New("session: not running")
)
