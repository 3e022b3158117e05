package rct

import (
	"errors"
	"fmt"
	"time"

	"github.com/Baumus/rctgolib/protocol"
)

var (
	ErrConnectionClosed = errors.New("rct: connection closed")
	ErrPoolClosed       = errors.New("rct: pool closed")
)

// IsRecoverable reports whether err may be retried under the pipeline's
// backoff policy. See protocol.RecoverableError.
func IsRecoverable(err error) bool {
	return protocol.IsRecoverable(err)
}

// ReceiveTimeoutError reports that no matching response arrived within the
// receive window. The waiter slot is cleared and the next attempt may
// proceed.
type ReceiveTimeoutError struct {
	ID      uint32
	Timeout time.Duration
}

func (e *ReceiveTimeoutError) Error() string {
	return fmt.Sprintf("rct: no response for register 0x%08X within %s", e.ID, e.Timeout)
}

func (e *ReceiveTimeoutError) Recoverable() bool { return true }

// MismatchError reports a response whose register id does not match the
// request in flight. Correlation is positional on this protocol, so a
// mismatch means the stream slipped; retrying resends the request.
type MismatchError struct {
	WantID uint32
	GotID  uint32
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("rct: response for register 0x%08X while 0x%08X was in flight", e.GotID, e.WantID)
}

func (e *MismatchError) Recoverable() bool { return true }

// VerifyError reports that the read-back after a write returned different
// bytes than were written.
type VerifyError struct {
	ID   uint32
	Want []byte
	Got  []byte
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("rct: write verification of register 0x%08X failed: wrote % X, read back % X", e.ID, e.Want, e.Got)
}

func (e *VerifyError) Recoverable() bool { return true }

// TransportError wraps an I/O failure on the wire. Transient failures are
// recoverable: the retry redials the transport. Dial failures are
// terminal.
type TransportError struct {
	Op        string
	Err       error
	Transient bool
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("rct: transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Recoverable() bool { return e.Transient }

// DeviceNotReadyError is returned when the readiness pre-check before a
// write finds the battery outside normal operation. Carries a stable code
// for callers that match on it programmatically.
type DeviceNotReadyError struct {
	Status uint64
}

func (e *DeviceNotReadyError) Error() string {
	return fmt.Sprintf("rct: device not in normal operation (battery status %d)", e.Status)
}

// Code returns the stable error code.
func (e *DeviceNotReadyError) Code() string { return "DEVICE_NOT_READY" }

// NotWritableError is returned when a write targets a read-only register.
type NotWritableError struct {
	Name string
	ID   uint32
}

func (e *NotWritableError) Error() string {
	return fmt.Sprintf("rct: register %s (0x%08X) is not writable", e.Name, e.ID)
}

// RetryBudgetError is surfaced when a job exhausts its retry budget. It
// wraps the last recoverable cause and is itself terminal.
type RetryBudgetError struct {
	Attempts int
	Last     error
}

func (e *RetryBudgetError) Error() string {
	return fmt.Sprintf("rct: giving up after %d attempts: %v", e.Attempts, e.Last)
}

func (e *RetryBudgetError) Unwrap() error { return e.Last }

func (e *RetryBudgetError) Recoverable() bool { return false }
