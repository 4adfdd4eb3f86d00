package config

import (
	"errors"
	"fmt"
	"time"
)

// Config is the fully resolved scenario for one run.
type Config struct {
	// Delivery.
	Target       string            `mapstructure:"target"`
	Sender       string            `mapstructure:"sender"`
	Options      map[string]string `mapstructure:"options"`
	WaitResponse bool              `mapstructure:"wait_response"`
	Timeout      time.Duration     `mapstructure:"timeout"`

	// Message content.
	Payload      string            `mapstructure:"payload"`
	PayloadFile  string            `mapstructure:"payload_file"`
	Headers      map[string]string `mapstructure:"headers"`
	MessagesFile string            `mapstructure:"messages_file"`

	// Load shape.
	Concurrency int           `mapstructure:"concurrency"`
	Rate        int           `mapstructure:"rate"`
	Duration    time.Duration `mapstructure:"duration"`
	Total       int           `mapstructure:"total"`

	// Output.
	JSONOutput bool `mapstructure:"json_output"`
	LogErrors  bool `mapstructure:"log_errors"`

	Tracing TracingConfig `mapstructure:"tracing"`

	ConfigFile string `mapstructure:"-"`
}

// TracingConfig controls the OTLP trace export.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" or "http"
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
}

// Validate checks cross-field consistency after loading.
func (c *Config) Validate() error {
	if c.Target == "" {
		return errors.New("target is required")
	}
	if c.Sender == "" {
		return errors.New("sender kind is required")
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}
	if c.Rate < 0 {
		return fmt.Errorf("rate must not be negative, got %d", c.Rate)
	}
	if c.Total < 0 {
		return fmt.Errorf("total must not be negative, got %d", c.Total)
	}
	if c.Total == 0 && c.Duration == 0 {
		return errors.New("either total or duration must bound the run")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.Payload != "" && c.PayloadFile != "" {
		return errors.New("payload and payload-file are mutually exclusive")
	}
	if c.MessagesFile != "" && (c.Payload != "" || c.PayloadFile != "") {
		return errors.New("messages-file replaces payload/payload-file, not both")
	}
	return nil
}

// SenderOptions flattens the generic and adapter-specific settings into the
// option map consumed by the sender factory. Adapter options never override
// the generic ones.
func (c *Config) SenderOptions() map[string]string {
	opts := make(map[string]string, len(c.Options)+3)
	for k, v := range c.Options {
		opts[k] = v
	}
	opts["target"] = c.Target
	opts["waitResponse"] = fmt.Sprintf("%t", c.WaitResponse)
	opts["timeout"] = c.Timeout.String()
	return opts
}
