package device

import (
	"bytes"
	"fmt"
	"log"
	"sync"
	"time"
)

// Prompt is the two-byte marker the device prints when it awaits a command.
const Prompt = "> "

// invalidReply is the prefix of the device's soft-failure response.
const invalidReply = "Invalid command"

// DefaultBaudRate is the device console's default speed.
const DefaultBaudRate = 115200

// DefaultReadTimeout bounds each individual blocking read.
const DefaultReadTimeout = 10 * time.Second

type sessionState int

const (
	stateDisconnected sessionState = iota
	stateSyncing
	stateAwaitingEcho
	stateAccumulating
	stateComplete
)

// Session owns the serial channel to the device and runs one command at a
// time over the prompt-driven console protocol. The device is half-duplex
// with no framing beyond the textual prompt, so every exchange follows the
// same strict sequence: resynchronize to a fresh prompt, send the command,
// verify the echo, then accumulate output until the next prompt appears.
type Session struct {
	mu      sync.Mutex
	port    Port
	timeout time.Duration
	state   sessionState

	// pending holds bytes read past the boundary of the previous step.
	pending []byte
}

// Open opens the serial device and returns a connected session. Any bytes
// buffered from before this session are discarded so a previous run's
// output cannot leak into ours.
func Open(path string, baud int, timeout time.Duration) (*Session, error) {
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	if timeout <= 0 {
		timeout = DefaultReadTimeout
	}
	port, err := openPort(path, baud)
	if err != nil {
		return nil, err
	}
	s, err := newSession(port, timeout)
	if err != nil {
		port.Close()
		return nil, err
	}
	log.Printf("[session] opened %s at %d baud", path, baud)
	return s, nil
}

// NewSession wraps an already-open port. Used by tests and by callers that
// manage the port themselves.
func NewSession(port Port, timeout time.Duration) (*Session, error) {
	if timeout <= 0 {
		timeout = DefaultReadTimeout
	}
	return newSession(port, timeout)
}

func newSession(port Port, timeout time.Duration) (*Session, error) {
	if err := port.SetReadTimeout(timeout); err != nil {
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	if err := port.ResetInputBuffer(); err != nil {
		return nil, fmt.Errorf("reset input buffer: %w", err)
	}
	return &Session{port: port, timeout: timeout, state: stateDisconnected}, nil
}

// Execute runs one command and returns its complete output with the
// trailing prompt marker stripped. An "Invalid command" reply is returned
// as *UnsupportedError with no output. Timeout and echo-mismatch failures
// leave the device in an unknown state; the session must be closed.
func (s *Session) Execute(cmd []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return nil, fmt.Errorf("session closed")
	}

	if err := s.sync(); err != nil {
		return nil, err
	}
	if err := s.sendAndVerifyEcho(cmd); err != nil {
		return nil, err
	}
	out, err := s.accumulate()
	if err != nil {
		return nil, err
	}
	s.state = stateComplete

	if bytes.HasPrefix(out, []byte(invalidReply)) {
		reply := string(bytes.TrimRight(out, "\r\n"))
		return nil, &UnsupportedError{Command: bytes.TrimRight(cmd, "\r\n"), Reply: reply}
	}
	return out, nil
}

// Close releases the serial port. Closing unblocks any pending read, which
// is the only cancellation path mid-exchange.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = stateDisconnected
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return err
}

// sync forces the device to a known state: send an empty line, then discard
// everything until the prompt marker appears. Unsolicited bytes (boot
// banners, stale output from an interrupted run) may precede the prompt,
// which is why this step is unconditional.
func (s *Session) sync() error {
	s.state = stateSyncing
	s.pending = s.pending[:0]

	if _, err := s.port.Write([]byte("\r\n")); err != nil {
		return fmt.Errorf("sync write: %w", err)
	}

	var discard []byte
	for !bytes.HasSuffix(discard, []byte(Prompt)) {
		chunk, err := s.readChunk(len(discard))
		if err != nil {
			return err
		}
		discard = append(discard, chunk...)
	}
	return nil
}

// sendAndVerifyEcho writes the command and requires the device to echo it
// back byte for byte up to the line terminator. Any difference means the
// device and host have diverged and nothing downstream can be trusted.
func (s *Session) sendAndVerifyEcho(cmd []byte) error {
	s.state = stateAwaitingEcho

	if _, err := s.port.Write(cmd); err != nil {
		return fmt.Errorf("write command: %w", err)
	}

	for bytes.IndexByte(s.pending, '\n') < 0 {
		chunk, err := s.readChunk(len(s.pending))
		if err != nil {
			return err
		}
		s.pending = append(s.pending, chunk...)
	}

	nl := bytes.IndexByte(s.pending, '\n')
	echo := s.pending[:nl+1]
	if !bytes.Equal(echo, cmd) {
		return &EchoMismatchError{Sent: append([]byte(nil), cmd...), Got: append([]byte(nil), echo...)}
	}
	s.pending = append([]byte(nil), s.pending[nl+1:]...)
	return nil
}

// accumulate reads until the output buffer ends with the prompt marker,
// then returns the output with the marker stripped.
func (s *Session) accumulate() ([]byte, error) {
	s.state = stateAccumulating

	out := s.pending
	s.pending = nil
	for !bytes.HasSuffix(out, []byte(Prompt)) {
		chunk, err := s.readChunk(len(out))
		if err != nil {
			return nil, err
		}
		out = append(out, chunk...)
	}
	return out[:len(out)-len(Prompt)], nil
}

// readChunk performs one blocking read bounded by the session timeout.
// go.bug.st/serial reports a timeout as a zero-byte read with a nil error.
func (s *Session) readChunk(received int) ([]byte, error) {
	buf := make([]byte, 256)
	n, err := s.port.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	if n == 0 {
		return nil, &TimeoutError{Timeout: s.timeout, Received: received}
	}
	return buf[:n], nil
}
