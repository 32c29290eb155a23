package device

import (
	"fmt"
	"time"
)

// ArgumentError indicates an option token the device would not understand.
// It is raised before any serial I/O happens.
type ArgumentError struct {
	Field string
	Value string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid %s %q", e.Field, e.Value)
}

// TimeoutError indicates the device produced no bytes within the per-read
// timeout. The session is unusable afterwards and must not be retried.
type TimeoutError struct {
	Timeout  time.Duration
	Received int // bytes accumulated before the read stalled
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("device timeout: no data within %v (%d bytes received)", e.Timeout, e.Received)
}

// EchoMismatchError indicates the device echoed back something other than
// the command that was sent. The device state is undefined afterwards, so
// the session is abandoned and never retried.
type EchoMismatchError struct {
	Sent []byte
	Got  []byte
}

func (e *EchoMismatchError) Error() string {
	return fmt.Sprintf("echo mismatch: sent %q, device echoed %q", e.Sent, e.Got)
}

// UnsupportedError indicates the device declined the request with an
// "Invalid command" reply. This is an expected outcome, not a fault.
type UnsupportedError struct {
	Command []byte
	Reply   string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("device rejected %q: %s", e.Command, e.Reply)
}
