package sender

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
)

// startWSEcho runs a WebSocket server that echoes every frame except those
// whose payload is "stall", which it swallows.
func startWSEcho(t *testing.T) string {
	t.Helper()

	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if string(data) == "stall" {
				continue
			}
			if err := conn.WriteMessage(msgType, data); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func summonWS(t *testing.T, opts Options) Sender {
	t.Helper()
	s, err := Summon(KindWebSocket, opts)
	if err != nil {
		t.Fatalf("summon: %v", err)
	}
	if err := s.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() { _ = s.Destroy() })
	return s
}

func TestWebSocketEchoRoundTrip(t *testing.T) {
	url := startWSEcho(t)
	s := summonWS(t, Options{OptTarget: url})

	msg := &Message{Payload: []byte("fish")}
	resp, err := s.DoSend(context.Background(), msg, nil, nil)
	if err != nil {
		t.Fatalf("DoSend: %v", err)
	}
	if !bytes.Equal(resp, []byte("fish")) {
		t.Fatalf("response = %q", resp)
	}

	// The connection is held for the instance's lifetime; a second round
	// trip reuses it.
	resp, err = s.DoSend(context.Background(), &Message{Payload: []byte("chips")}, nil, nil)
	if err != nil {
		t.Fatalf("second DoSend: %v", err)
	}
	if !bytes.Equal(resp, []byte("chips")) {
		t.Fatalf("response = %q", resp)
	}
}

func TestWebSocketFireAndForget(t *testing.T) {
	url := startWSEcho(t)
	s := summonWS(t, Options{OptTarget: url, OptWaitResponse: "false"})

	resp, err := s.DoSend(context.Background(), &Message{Payload: []byte("fish")}, nil, nil)
	if err != nil {
		t.Fatalf("DoSend: %v", err)
	}
	if resp != nil {
		t.Fatalf("fire-and-forget returned %q", resp)
	}
}

func TestWebSocketTimeoutThenRecovery(t *testing.T) {
	url := startWSEcho(t)
	s := summonWS(t, Options{OptTarget: url, OptTimeout: "200ms"})

	_, err := s.DoSend(context.Background(), &Message{Payload: []byte("stall")}, nil, nil)
	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}

	resp, err := s.DoSend(context.Background(), &Message{Payload: []byte("fish")}, nil, nil)
	if err != nil {
		t.Fatalf("DoSend after timeout: %v", err)
	}
	if !bytes.Equal(resp, []byte("fish")) {
		t.Fatalf("response = %q", resp)
	}
}

func TestWebSocketInitFailure(t *testing.T) {
	// Plain HTTP endpoint refuses the upgrade.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no", http.StatusBadRequest)
	}))
	defer srv.Close()

	s, err := Summon(KindWebSocket, Options{OptTarget: "ws" + strings.TrimPrefix(srv.URL, "http")})
	if err != nil {
		t.Fatalf("summon: %v", err)
	}

	err = s.Init()
	var initErr *InitError
	if !errors.As(err, &initErr) {
		t.Fatalf("expected InitError, got %v", err)
	}
}

func TestWebSocketNilMessage(t *testing.T) {
	url := startWSEcho(t)
	s := summonWS(t, Options{OptTarget: url})

	// Empty frame out, empty frame back: reply carries no payload.
	resp, err := s.DoSend(context.Background(), nil, nil, nil)
	if err != nil {
		t.Fatalf("DoSend(nil): %v", err)
	}
	if resp != nil {
		t.Fatalf("response = %q", resp)
	}
}
