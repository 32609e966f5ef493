package shell

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a transport failure.
type Kind int

const (
	KindIO Kind = iota
	KindRejected
	KindUnresponsive
	KindInterrupted
)

func (k Kind) String() string {
	switch k {
	case KindRejected:
		return "rejected"
	case KindUnresponsive:
		return "unresponsive"
	case KindInterrupted:
		return "interrupted"
	default:
		return "io"
	}
}

// Sentinels matched by errors.Is against any *TransportError of the same kind.
var (
	ErrIO           = errors.New("shell: channel i/o error")
	ErrRejected     = errors.New("shell: command rejected by device")
	ErrUnresponsive = errors.New("shell: command unresponsive")
	ErrInterrupted  = errors.New("shell: wait interrupted")
)

func (k Kind) sentinel() error {
	switch k {
	case KindRejected:
		return ErrRejected
	case KindUnresponsive:
		return ErrUnresponsive
	case KindInterrupted:
		return ErrInterrupted
	default:
		return ErrIO
	}
}

// TransportError reports a failed shell command invocation.
type TransportError struct {
	Kind    Kind
	Serial  string
	Command string
	Err     error
}

func (e *TransportError) Error() string {
	msg := fmt.Sprintf("shell %s: %q on %s", e.Kind, e.Command, e.Serial)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

func newTransportError(kind Kind, serial, command string, err error) error {
	return &TransportError{Kind: kind, Serial: serial, Command: command, Err: err}
}

// Rejected reports a command the device refused to run (offline, unauthorized, unknown serial).
func Rejected(serial, command string, err error) error {
	return newTransportError(KindRejected, serial, command, err)
}

// Unresponsive reports a command that produced no completion before its timeout.
func Unresponsive(serial, command string, err error) error {
	return newTransportError(KindUnresponsive, serial, command, err)
}

// IOError reports a local channel failure.
func IOError(serial, command string, err error) error {
	return newTransportError(KindIO, serial, command, err)
}

// Interrupted reports a wait abandoned because the caller's context ended.
func Interrupted(serial, command string, err error) error {
	return newTransportError(KindInterrupted, serial, command, err)
}

// KindOf returns the failure kind carried by err.
func KindOf(err error) (Kind, bool) {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Kind, true
	}
	return KindIO, false
}

// IsTransport reports whether err is a transport failure of any kind.
func IsTransport(err error) bool {
	_, ok := KindOf(err)
	return ok
}

// classify maps an error returned by a Device onto the transport taxonomy.
// callerCtx is the context handed to the Client, cmdCtx the derived one
// carrying the command timeout.
func classify(err error, serial, command string, callerCtx, cmdCtx context.Context) error {
	if err == nil {
		return nil
	}
	if IsTransport(err) {
		return err
	}
	switch {
	case callerCtx.Err() != nil:
		return Interrupted(serial, command, err)
	case cmdCtx.Err() != nil, errors.Is(err, context.DeadlineExceeded):
		return Unresponsive(serial, command, err)
	case errors.Is(err, context.Canceled):
		return Interrupted(serial, command, err)
	default:
		return IOError(serial, command, err)
	}
}
