package sender

import (
	"strconv"
	"strings"
	"time"
)

// Options is the flat key/value configuration for one Sender instance,
// resolved once at construction and immutable thereafter. Keys are
// adapter-specific except for the generic options below.
type Options map[string]string

// Generic option names recognized by every adapter.
const (
	OptTarget       = "target"
	OptWaitResponse = "waitResponse"
	OptTimeout      = "timeout"
)

const defaultTimeout = 30 * time.Second

const (
	opInit     = "init"
	opPreSend  = "pre-send"
	opDoSend   = "send"
	opPostSend = "post-send"
	opDestroy  = "destroy"
)

// base carries the generic options and the lifecycle state shared by every
// adapter. It is embedded by value; per-instance state is unsynchronized on
// purpose because an instance never escapes its owning goroutine.
type base struct {
	kind         string
	target       string
	waitResponse bool
	timeout      time.Duration

	state   State
	payload []byte // diagnostic copy recorded by PreSend, nil when absent
}

// newBase resolves the generic options. Adapters validate the target's shape
// themselves since it differs per transport.
func newBase(kind string, opts Options) (base, error) {
	b := base{
		kind:         kind,
		target:       strings.TrimSpace(opts[OptTarget]),
		waitResponse: true,
		timeout:      defaultTimeout,
	}

	if b.target == "" {
		return base{}, &ConfigurationError{Kind: kind, Option: OptTarget, Err: ErrMissingTarget}
	}

	if raw, ok := opts[OptWaitResponse]; ok {
		v, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return base{}, &ConfigurationError{Kind: kind, Option: OptWaitResponse, Err: err}
		}
		b.waitResponse = v
	}

	if raw, ok := opts[OptTimeout]; ok {
		d, err := time.ParseDuration(strings.TrimSpace(raw))
		if err != nil || d <= 0 {
			return base{}, &ConfigurationError{Kind: kind, Option: OptTimeout, Err: errInvalidTimeout(raw, err)}
		}
		b.timeout = d
	}

	return b, nil
}

func errInvalidTimeout(raw string, err error) error {
	if err != nil {
		return err
	}
	return &nonPositiveDurationError{raw: raw}
}

type nonPositiveDurationError struct{ raw string }

func (e *nonPositiveDurationError) Error() string {
	return "duration " + e.raw + " must be positive"
}

func (b *base) Target() string { return b.target }

// Payload returns the diagnostic payload recorded by the last PreSend, or
// nil when the last message was absent.
func (b *base) Payload() []byte { return b.payload }

// require fails with *StateError unless the sender is in want.
func (b *base) require(op string, want State) error {
	if b.state != want {
		return &StateError{Op: op, State: b.state}
	}
	return nil
}

func (b *base) beginInit() error {
	return b.require(opInit, StateUninitialized)
}

func (b *base) markReady() { b.state = StateReady }

func (b *base) beginSend() error {
	if err := b.require(opDoSend, StateReady); err != nil {
		return err
	}
	b.state = StateSending
	return nil
}

func (b *base) endSend() { b.state = StateReady }

func (b *base) beginDestroy() error {
	return b.require(opDestroy, StateReady)
}

func (b *base) markClosed() { b.state = StateClosed }

// PreSend records the message payload for diagnostics. Shared by all
// adapters; none of them transforms messages before transmission.
func (b *base) PreSend(msg *Message, _ Properties) error {
	if err := b.require(opPreSend, StateReady); err != nil {
		return err
	}
	if msg == nil {
		b.payload = nil
		return nil
	}
	b.payload = msg.Payload
	return nil
}

// PostSend is a no-op for adapters without per-message cleanup.
func (b *base) PostSend(_ *Message) error {
	return b.require(opPostSend, StateReady)
}

// payloadOf is the nil-safe view of a message's payload.
func payloadOf(msg *Message) []byte {
	if msg == nil {
		return nil
	}
	return msg.Payload
}
