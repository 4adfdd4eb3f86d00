package sender

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// httpSender delivers each message as one HTTP request to the target URL.
// Message headers become request headers. The response body is the reply
// payload; with waitResponse disabled the body is discarded without reading.
//
// Response status is delivery metadata, not a verdict: a 500 still means the
// message reached the target, and response validation belongs to the caller.
type httpSender struct {
	base
	method string
	client *http.Client
}

func newHTTPSender(opts Options) (Sender, error) {
	b, err := newBase(KindHTTP, opts)
	if err != nil {
		return nil, err
	}

	u, err := url.Parse(b.target)
	if err != nil {
		return nil, &ConfigurationError{Kind: KindHTTP, Option: OptTarget, Err: err}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &ConfigurationError{
			Kind:   KindHTTP,
			Option: OptTarget,
			Err:    fmt.Errorf("unsupported scheme %q", u.Scheme),
		}
	}

	method := http.MethodPost
	if raw, ok := opts["method"]; ok {
		method = strings.ToUpper(strings.TrimSpace(raw))
		switch method {
		case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
			http.MethodDelete, http.MethodHead, http.MethodOptions:
		default:
			return nil, &ConfigurationError{
				Kind:   KindHTTP,
				Option: "method",
				Err:    fmt.Errorf("unsupported method %q", raw),
			}
		}
	}

	return &httpSender{base: b, method: method}, nil
}

func (s *httpSender) Init() error {
	if err := s.beginInit(); err != nil {
		return err
	}
	s.client = newHTTPClient(s.timeout)
	s.markReady()
	return nil
}

// newHTTPClient builds the per-instance client. Connection reuse happens
// inside the transport, so sequential sends from one worker keep one
// connection warm.
func newHTTPClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        8,
		MaxIdleConnsPerHost: 8,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

func (s *httpSender) DoSend(ctx context.Context, msg *Message, _ Properties, cb Callback) ([]byte, error) {
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

func (s *httpSender) send(ctx context.Context, msg *Message) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, s.method, s.target, bytes.NewReader(payloadOf(msg)))
	if err != nil {
		return nil, &TransportError{Op: "request", Target: s.target, Err: err}
	}
	if msg != nil {
		for k, v := range msg.Headers {
			req.Header.Set(k, v)
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, &TimeoutError{Target: s.target, Wait: s.timeout}
		}
		return nil, &TransportError{Op: "roundtrip", Target: s.target, Err: err}
	}
	defer resp.Body.Close()

	if !s.waitResponse {
		// Drain so the connection can be reused, but report nothing.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return nil, &TimeoutError{Target: s.target, Wait: s.timeout}
		}
		return nil, &TransportError{Op: "read", Target: s.target, Err: err}
	}
	if len(body) == 0 {
		return nil, nil
	}
	return body, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func (s *httpSender) Destroy() error {
	if err := s.beginDestroy(); err != nil {
		return err
	}
	s.markClosed()
	if s.client != nil {
		s.client.CloseIdleConnections()
	}
	return nil
}
