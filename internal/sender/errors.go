package sender

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownKind reports a type identifier with no registered builder.
var ErrUnknownKind = errors.New("unknown sender kind")

// ErrMissingTarget reports an option map without the required target.
var ErrMissingTarget = errors.New("option \"target\" is required")

// ConfigurationError reports a Summon failure: an unresolvable type
// identifier, a missing required option, or an option value that does not
// parse into its expected shape. No instance exists after this error.
type ConfigurationError struct {
	Kind   string // sender type identifier
	Option string // offending option name, empty for unknown kinds
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Option != "" {
		return fmt.Sprintf("sender %q: option %q: %v", e.Kind, e.Option, e.Err)
	}
	return fmt.Sprintf("sender %q: %v", e.Kind, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// InitError reports a resource acquisition failure in Init. The instance is
// unusable; escalation is the caller's decision.
type InitError struct {
	Target string
	Err    error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("sender init %s: %v", e.Target, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// TimeoutError reports that the response deadline elapsed with no correlated
// reply. Non-fatal: the instance remains usable for subsequent sends.
type TimeoutError struct {
	Target string
	Wait   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("no response from %s within %s", e.Target, e.Wait)
}

// TransportError reports a local or remote I/O failure during a send,
// carrying the underlying cause.
type TransportError struct {
	Op     string // "write", "read", "wait", ...
	Target string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s %s: %v", e.Op, e.Target, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StateError reports a lifecycle call made out of order. It indicates a
// caller bug; no I/O was performed.
type StateError struct {
	Op    string
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s a %s sender", e.Op, e.State)
}

// PostSendError wraps a PostSend cleanup failure so callers can tell it
// apart from a send failure: the message was already transmitted.
type PostSendError struct {
	Target string
	Err    error
}

func (e *PostSendError) Error() string {
	return fmt.Sprintf("post-send cleanup %s: %v", e.Target, e.Err)
}

func (e *PostSendError) Unwrap() error { return e.Err }
