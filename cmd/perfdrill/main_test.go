package main

import (
	"bytes"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/perfdrill/perfdrill/internal/config"
)

func TestRunUnknownSenderFailsBeforeWorkersStart(t *testing.T) {
	err := run([]string{
		"--target", "127.0.0.1:4444",
		"--sender", "does.not.Exist",
		"--total", "1",
	})
	if err == nil {
		t.Fatal("expected configuration error")
	}
	if !strings.Contains(err.Error(), "does.not.Exist") {
		t.Fatalf("error = %v", err)
	}
}

func TestRunHelp(t *testing.T) {
	if err := run([]string{"--help"}); err != nil {
		t.Fatalf("help should not error: %v", err)
	}
}

func TestRunInvalidConfig(t *testing.T) {
	// No total and no duration: nothing bounds the run.
	err := run([]string{"--target", "127.0.0.1:4444"})
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestRunAgainstUDPEcho(t *testing.T) {
	pc, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer pc.Close()
	go func() {
		buf := make([]byte, 2048)
		for {
			n, raddr, err := pc.ReadFromUDP(buf)
			if err != nil {
				return
			}
			_, _ = pc.WriteToUDP(buf[:n], raddr)
		}
	}()

	err = run([]string{
		"--target", pc.LocalAddr().String(),
		"--sender", "udp",
		"--payload", "fish",
		"--total", "5",
		"--timeout", "2s",
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestNewMessageSourceRoundRobin(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "messages.yaml")
	contents := "- payload: one\n- payload: two\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg := &config.Config{
		MessagesFile: path,
		Headers:      map[string]string{"X-Run": "r1"},
	}
	source, err := newMessageSource(cfg)
	if err != nil {
		t.Fatalf("source: %v", err)
	}

	first := source()
	second := source()
	third := source()

	if !bytes.Equal(first.Payload, []byte("one")) || !bytes.Equal(second.Payload, []byte("two")) {
		t.Fatalf("payloads = %q, %q", first.Payload, second.Payload)
	}
	if !bytes.Equal(third.Payload, []byte("one")) {
		t.Fatalf("expected wrap-around, got %q", third.Payload)
	}
	if first.Headers["X-Run"] != "r1" {
		t.Fatalf("base headers not merged: %v", first.Headers)
	}
}

func TestNewMessageSourceAbsentMessage(t *testing.T) {
	source, err := newMessageSource(&config.Config{})
	if err != nil {
		t.Fatalf("source: %v", err)
	}
	if msg := source(); msg != nil {
		t.Fatalf("expected nil message, got %+v", msg)
	}
}

func TestNewMessageSourcePayloadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.bin")
	if err := os.WriteFile(path, []byte("fish"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	source, err := newMessageSource(&config.Config{PayloadFile: path})
	if err != nil {
		t.Fatalf("source: %v", err)
	}
	msg := source()
	if msg == nil || !bytes.Equal(msg.Payload, []byte("fish")) {
		t.Fatalf("message = %+v", msg)
	}
	// Subsequent calls return the same shared message.
	if source() != msg {
		t.Fatal("expected shared message instance")
	}
}
