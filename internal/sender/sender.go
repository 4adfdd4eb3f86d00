// Package sender is the message-delivery core of perfdrill. A Sender is a
// stateful endpoint bound to one target that delivers one message at a time,
// optionally capturing a correlated reply. Adapters for concrete wire
// protocols implement the Sender interface and register themselves with the
// factory in this package; workers obtain configured instances via Summon.
//
// Every Sender instance is exclusively owned by a single worker goroutine for
// its whole lifetime. The contract relies on that ownership: per-instance
// state is deliberately unsynchronized, and at most one send is ever
// outstanding per instance.
package sender

import "context"

// Message is the unit of delivery: an opaque payload plus string headers.
// Messages are caller-owned; a Sender must not mutate a Message it did not
// create. A nil *Message is a valid degenerate input at every lifecycle
// phase and is delivered as an empty payload.
type Message struct {
	Payload []byte
	Headers map[string]string
}

// Properties carries optional per-send key/value hints from the caller.
type Properties map[string]string

// Callback receives the outcome of a send when supplied to DoSend. It is
// invoked exactly once, on the calling goroutine, after the send completes.
type Callback func(response []byte, err error)

// State is a Sender's position in its lifecycle.
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateSending
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateSending:
		return "sending"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Sender is the four-phase lifecycle contract every transport adapter
// honors. Lifecycle calls for one instance must occur in strict order:
// Init, then any number of PreSend/DoSend/PostSend rounds, then Destroy.
// Calls out of order fail with *StateError and perform no I/O.
type Sender interface {
	// Init acquires transport resources (sockets, connections, buffers).
	// Called exactly once per instance; not idempotent. Acquisition
	// failures surface as *InitError.
	Init() error

	// PreSend inspects the message and records its payload for
	// diagnostics before transmission. It must not perform I/O and must
	// not block. A nil message leaves the diagnostic payload absent.
	PreSend(msg *Message, props Properties) error

	// DoSend transmits the message. With waitResponse disabled it
	// returns nil as soon as the local write is accepted; with
	// waitResponse enabled it blocks until a correlated reply arrives
	// (returning its payload) or the configured deadline elapses
	// (*TimeoutError). Local or remote I/O failure surfaces as
	// *TransportError. A nil message is sent as an empty payload. If cb
	// is non-nil the same outcome is also delivered to it.
	DoSend(ctx context.Context, msg *Message, props Properties, cb Callback) ([]byte, error)

	// PostSend performs optional post-transmission cleanup. A PostSend
	// failure is distinct from a send failure: the message has already
	// been transmitted.
	PostSend(msg *Message) error

	// Destroy releases transport resources. Single-use; the instance is
	// unusable afterward.
	Destroy() error

	// Target reports the destination this instance was bound to at
	// construction.
	Target() string
}
