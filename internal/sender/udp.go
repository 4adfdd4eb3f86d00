package sender

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"
)

// maxDatagram bounds a single inbound reply. Larger packets are truncated by
// the kernel, which matches the echo round-trip use this adapter serves.
const maxDatagram = 64 * 1024

// udpSender is the reference connectionless adapter. It writes the message
// payload verbatim to the target with no framing and, when waitResponse is
// enabled, treats any datagram arriving from the target as the reply to the
// one outstanding send.
//
// Reply correlation is address-based only: the socket is connected, so the
// kernel already discards packets from other peers, and there is no
// application-level message identifier. "At most one outstanding send per
// instance" is therefore a load-bearing precondition; if two sends were ever
// in flight on one instance, a reply could be attributed to the wrong one.
// The single-owner-goroutine discipline is the sole defense.
type udpSender struct {
	base

	conn *net.UDPConn

	// Receive path, provisioned at Init when waitResponse is enabled.
	// The receive loop delivers into the one-slot replies channel; DoSend
	// blocks on the first of reply, fault or deadline.
	replies chan []byte
	faults  chan error
	closed  chan struct{}
}

func newUDPSender(opts Options) (Sender, error) {
	b, err := newBase(KindUDP, opts)
	if err != nil {
		return nil, err
	}

	// Shape check only; resolution happens in Init so construction does
	// no network I/O.
	_, port, err := net.SplitHostPort(b.target)
	if err != nil {
		return nil, &ConfigurationError{Kind: KindUDP, Option: OptTarget, Err: err}
	}
	if _, err := strconv.ParseUint(port, 10, 16); err != nil {
		return nil, &ConfigurationError{Kind: KindUDP, Option: OptTarget, Err: err}
	}

	return &udpSender{base: b}, nil
}

func (s *udpSender) Init() error {
	if err := s.beginInit(); err != nil {
		return err
	}

	raddr, err := net.ResolveUDPAddr("udp", s.target)
	if err != nil {
		return &InitError{Target: s.target, Err: err}
	}

	// Dialing binds an ephemeral local port; replies from the target land
	// on it. A connected socket only accepts packets from raddr, which is
	// the whole correlation story.
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return &InitError{Target: s.target, Err: err}
	}
	s.conn = conn

	if s.waitResponse {
		s.replies = make(chan []byte, 1)
		s.faults = make(chan error, 1)
		s.closed = make(chan struct{})
		go s.receiveLoop()
	}

	s.markReady()
	return nil
}

// receiveLoop is the asynchronous receive path. It pushes each inbound
// datagram into the one-slot replies channel; at most one packet is held
// between sends, and send() discards it before writing, so a stale echo can
// never resolve a later send. The loop runs until Destroy closes the socket:
// read errors on a connected UDP socket are per-packet events (an ICMP
// unreachable surfaces here), not a dead transport.
func (s *udpSender) receiveLoop() {
	buf := make([]byte, maxDatagram)
	for {
		n, err := s.conn.Read(buf)
		if err != nil {
			select {
			case <-s.closed:
				// Destroy closed the socket.
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			select {
			case s.faults <- err:
			default:
			}
			continue
		}
		pkt := make([]byte, n)
		copy(pkt, buf[:n])
		select {
		case s.replies <- pkt:
		default:
		}
	}
}

func (s *udpSender) DoSend(ctx context.Context, msg *Message, _ Properties, cb Callback) ([]byte, error) {
	if err := s.beginSend(); err != nil {
		return nil, err
	}
	defer s.endSend()

	if ctx == nil {
		ctx = context.Background()
	}

	resp, err := s.send(ctx, msg)
	if cb != nil {
		cb(resp, err)
	}
	return resp, err
}

func (s *udpSender) send(ctx context.Context, msg *Message) ([]byte, error) {
	if s.waitResponse {
		// Discard leftovers from an earlier send that already resolved:
		// an echo or fault that arrived after its deadline must not be
		// attributed to this send.
		select {
		case <-s.replies:
		default:
		}
		select {
		case <-s.faults:
		default:
		}
	}

	if _, err := s.conn.Write(payloadOf(msg)); err != nil {
		return nil, &TransportError{Op: "write", Target: s.target, Err: err}
	}

	if !s.waitResponse {
		return nil, nil
	}

	// One-shot completion: whichever of reply, fault or deadline comes
	// first resolves the outstanding send.
	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case pkt := <-s.replies:
		if len(pkt) == 0 {
			return nil, nil
		}
		return pkt, nil
	case err := <-s.faults:
		return nil, &TransportError{Op: "read", Target: s.target, Err: err}
	case <-timer.C:
		return nil, &TimeoutError{Target: s.target, Wait: s.timeout}
	case <-ctx.Done():
		return nil, &TransportError{Op: "wait", Target: s.target, Err: ctx.Err()}
	}
}

func (s *udpSender) Destroy() error {
	if err := s.beginDestroy(); err != nil {
		return err
	}
	s.markClosed()

	if s.closed != nil {
		close(s.closed)
	}
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			return &TransportError{Op: "close", Target: s.target, Err: err}
		}
	}
	return nil
}
