package utils

import (
	"errors"
	"fmt"
)

// Error kinds of the coordination subsystem. Callers branch on the kind with
// errors.Is; the wrapped text carries the detail.
var (
	// ErrValidation rejects a mutation before any round is initiated.
	ErrValidation = errors.New("validation error")
	// ErrTransport marks an unreachable or unresponsive peer.
	ErrTransport = errors.New("transport error")
	// ErrProtocol marks a malformed or oversized wire message.
	ErrProtocol = errors.New("protocol error")
	// ErrStore marks a constraint violation at apply time.
	ErrStore = errors.New("store error")
)

func ValidationError(format string, a ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrValidation}, a...)...)
}

func TransportError(format string, a ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrTransport}, a...)...)
}

func ProtocolError(format string, a ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrProtocol}, a...)...)
}

func StoreError(format string, a ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrStore}, a...)...)
}
