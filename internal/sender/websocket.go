package sender

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const wsWriteTimeout = 5 * time.Second

// websocketSender holds one WebSocket connection for the instance's lifetime
// and delivers each message as a single frame. With waitResponse enabled it
// reads exactly one frame back under the configured deadline.
type websocketSender struct {
	base
	binary bool
	dialer *websocket.Dialer
	conn   *websocket.Conn
}

func newWebSocketSender(opts Options) (Sender, error) {
	b, err := newBase(KindWebSocket, opts)
	if err != nil {
		return nil, err
	}

	u, err := url.Parse(b.target)
	if err != nil {
		return nil, &ConfigurationError{Kind: KindWebSocket, Option: OptTarget, Err: err}
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, &ConfigurationError{
			Kind:   KindWebSocket,
			Option: OptTarget,
			Err:    fmt.Errorf("unsupported scheme %q", u.Scheme),
		}
	}

	binary := false
	if raw, ok := opts["binary"]; ok {
		binary, err = strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, &ConfigurationError{Kind: KindWebSocket, Option: "binary", Err: err}
		}
	}

	return &websocketSender{
		base:   b,
		binary: binary,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 30 * time.Second,
			Proxy:            http.ProxyFromEnvironment,
		},
	}, nil
}

func (s *websocketSender) Init() error {
	if err := s.beginInit(); err != nil {
		return err
	}

	conn, resp, err := s.dialer.Dial(s.target, nil)
	if err != nil {
		if resp != nil {
			return &InitError{Target: s.target, Err: fmt.Errorf("handshake status %d: %w", resp.StatusCode, err)}
		}
		return &InitError{Target: s.target, Err: err}
	}
	s.conn = conn
	s.markReady()
	return nil
}

func (s *websocketSender) DoSend(ctx context.Context, msg *Message, _ Properties, cb Callback) ([]byte, error) {
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

func (s *websocketSender) send(ctx context.Context, msg *Message) ([]byte, error) {
	frameType := websocket.TextMessage
	if s.binary {
		frameType = websocket.BinaryMessage
	}

	_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := s.conn.WriteMessage(frameType, payloadOf(msg)); err != nil {
		return nil, &TransportError{Op: "write", Target: s.target, Err: err}
	}

	if !s.waitResponse {
		return nil, nil
	}

	deadline := time.Now().Add(s.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = s.conn.SetReadDeadline(deadline)

	_, data, err := s.conn.ReadMessage()
	if err != nil {
		// A failed read poisons the gorilla connection for good, so
		// re-dial to keep the instance usable for subsequent sends.
		s.redial()
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return nil, &TimeoutError{Target: s.target, Wait: s.timeout}
		}
		return nil, &TransportError{Op: "read", Target: s.target, Err: err}
	}
	if len(data) == 0 {
		return nil, nil
	}
	return data, nil
}

// redial replaces a broken connection in place. A failure here is deferred:
// the next write reports it as a TransportError.
func (s *websocketSender) redial() {
	_ = s.conn.Close()
	conn, _, err := s.dialer.Dial(s.target, nil)
	if err != nil {
		return
	}
	s.conn = conn
}

func (s *websocketSender) Destroy() error {
	if err := s.beginDestroy(); err != nil {
		return err
	}
	s.markClosed()

	if s.conn == nil {
		return nil
	}

	// Best-effort close frame; the peer may already be gone.
	_ = s.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(wsWriteTimeout),
	)
	if err := s.conn.Close(); err != nil {
		return &TransportError{Op: "close", Target: s.target, Err: err}
	}
	return nil
}
