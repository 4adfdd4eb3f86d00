package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Target:       "127.0.0.1:4444",
		Sender:       "udp",
		WaitResponse: true,
		Timeout:      30 * time.Second,
		Concurrency:  4,
		Total:        100,
	}
}

func TestValidateAcceptsMinimalConfig(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing target", func(c *Config) { c.Target = "" }, "target"},
		{"missing sender", func(c *Config) { c.Sender = "" }, "sender"},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }, "concurrency"},
		{"negative rate", func(c *Config) { c.Rate = -1 }, "rate"},
		{"negative total", func(c *Config) { c.Total = -1 }, "total"},
		{"unbounded run", func(c *Config) { c.Total = 0; c.Duration = 0 }, "total or duration"},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, "timeout"},
		{"payload conflict", func(c *Config) { c.Payload = "a"; c.PayloadFile = "b" }, "mutually exclusive"},
		{"messages conflict", func(c *Config) { c.MessagesFile = "m.yaml"; c.Payload = "a" }, "messages-file"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestSenderOptionsFlattening(t *testing.T) {
	cfg := validConfig()
	cfg.WaitResponse = false
	cfg.Timeout = 5 * time.Second
	cfg.Options = map[string]string{
		"method": "PUT",
		"target": "should-not-win",
	}

	opts := cfg.SenderOptions()
	if opts["target"] != "127.0.0.1:4444" {
		t.Fatalf("adapter options must not override target, got %q", opts["target"])
	}
	if opts["waitResponse"] != "false" {
		t.Fatalf("waitResponse = %q", opts["waitResponse"])
	}
	if opts["timeout"] != "5s" {
		t.Fatalf("timeout = %q", opts["timeout"])
	}
	if opts["method"] != "PUT" {
		t.Fatalf("method = %q", opts["method"])
	}
}
