package sender

import "strings"

// Builder constructs a configured, UNINITIALIZED Sender from an option map.
// Builders validate all options up front: construction and configuration are
// atomic, so a builder either returns a usable instance or a
// *ConfigurationError and nothing in between.
type Builder func(opts Options) (Sender, error)

// registry maps type identifiers to builders. Populated at package init;
// Register may add more before any Summon call.
var registry = map[string]Builder{}

func init() {
	Register(KindUDP, newUDPSender)
	Register(KindHTTP, newHTTPSender)
	Register(KindWebSocket, newWebSocketSender)

	// Aliases kept for scenario compatibility.
	Register("datagram", newUDPSender)
	Register("ws", newWebSocketSender)
}

// Registered type identifiers for the built-in adapters.
const (
	KindUDP       = "udp"
	KindHTTP      = "http"
	KindWebSocket = "websocket"
)

// Register binds a type identifier to a builder. Later registrations of the
// same identifier win, which lets tests install fakes.
func Register(kind string, b Builder) {
	registry[strings.ToLower(kind)] = b
}

// Summon resolves the sender implementation behind kind, applies opts to it
// and returns an instance in state UNINITIALIZED. It fails with
// *ConfigurationError when the identifier is unresolvable, the required
// target option is missing, or any option fails to parse.
func Summon(kind string, opts Options) (Sender, error) {
	b, ok := registry[strings.ToLower(strings.TrimSpace(kind))]
	if !ok {
		return nil, &ConfigurationError{Kind: kind, Err: ErrUnknownKind}
	}
	return b(opts)
}
