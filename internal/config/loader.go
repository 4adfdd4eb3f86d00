package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and the optional scenario file into a
// Config. Flags that were set explicitly override scenario-file settings.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	configPath := flagSet.Lookup("config").Value.String()
	if len(args) == 0 && configPath == "" {
		displayHelp(cmd)
		return nil, ErrHelpRequested
	}

	cfgViper := viper.New()
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	settings := cfgViper.AllSettings()

	cfg := &Config{
		Sender:       "udp",
		Options:      map[string]string{},
		Headers:      map[string]string{},
		WaitResponse: true,
		Timeout:      30 * time.Second,
		Concurrency:  1,
		ConfigFile:   configPath,
		Tracing:      TracingConfig{Protocol: "grpc", SampleRate: 1.0},
	}

	if err := applyScenarioSettings(cfg, settings); err != nil {
		return nil, err
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	cfg.Target = strings.TrimSpace(cfg.Target)
	cfg.Sender = strings.ToLower(strings.TrimSpace(cfg.Sender))
	cfg.PayloadFile = strings.TrimSpace(cfg.PayloadFile)
	cfg.MessagesFile = strings.TrimSpace(cfg.MessagesFile)

	return cfg, nil
}

// applyScenarioSettings applies settings from a scenario file.
func applyScenarioSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	if raw, ok := lookupSetting(settings, "target"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("target: %w", err)
		}
		cfg.Target = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "sender"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("sender: %w", err)
		}
		if val != "" {
			cfg.Sender = val
		}
	}

	if raw, ok := lookupSetting(settings, "options"); ok {
		opts, err := asStringMap(raw)
		if err != nil {
			return fmt.Errorf("options: %w", err)
		}
		for k, v := range opts {
			cfg.Options[k] = v
		}
	}

	if raw, ok := lookupSetting(settings, "waitresponse", "wait_response", "wait-response"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("waitResponse: %w", err)
		}
		cfg.WaitResponse = val
	}

	if raw, ok := lookupSetting(settings, "timeout"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		cfg.Timeout = dur
	}

	if raw, ok := lookupSetting(settings, "payload"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("payload: %w", err)
		}
		cfg.Payload = val
	}

	if raw, ok := lookupSetting(settings, "payloadfile", "payload_file", "payload-file"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("payloadFile: %w", err)
		}
		cfg.PayloadFile = val
	}

	if raw, ok := lookupSetting(settings, "headers"); ok {
		hdrs, err := asStringMap(raw)
		if err != nil {
			return fmt.Errorf("headers: %w", err)
		}
		for k, v := range hdrs {
			cfg.Headers[k] = v
		}
	}

	if raw, ok := lookupSetting(settings, "messagesfile", "messages_file", "messages-file"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("messagesFile: %w", err)
		}
		cfg.MessagesFile = val
	}

	if raw, ok := lookupSetting(settings, "concurrency"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("concurrency: %w", err)
		}
		cfg.Concurrency = val
	}

	if raw, ok := lookupSetting(settings, "rate"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("rate: %w", err)
		}
		cfg.Rate = val
	}

	if raw, ok := lookupSetting(settings, "duration"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("duration: %w", err)
		}
		cfg.Duration = dur
	}

	if raw, ok := lookupSetting(settings, "total"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("total: %w", err)
		}
		cfg.Total = val
	}

	if raw, ok := lookupSetting(settings, "jsonoutput", "json_output", "json-output"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("jsonOutput: %w", err)
		}
		cfg.JSONOutput = val
	}

	if raw, ok := lookupSetting(settings, "logerrors", "log_errors", "log-errors"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("logErrors: %w", err)
		}
		cfg.LogErrors = val
	}

	if raw, ok := lookupSetting(settings, "tracing"); ok {
		if err := applyTracingSettings(&cfg.Tracing, raw); err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
	}

	return nil
}

func applyTracingSettings(cfg *TracingConfig, raw interface{}) error {
	section, ok := raw.(map[string]interface{})
	if !ok {
		return fmt.Errorf("expected a mapping, got %T", raw)
	}

	if raw, ok := lookupSetting(section, "enabled"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("enabled: %w", err)
		}
		cfg.Enabled = val
	}
	if raw, ok := lookupSetting(section, "endpoint"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("endpoint: %w", err)
		}
		cfg.Endpoint = val
	}
	if raw, ok := lookupSetting(section, "protocol"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("protocol: %w", err)
		}
		if val != "" {
			cfg.Protocol = val
		}
	}
	if raw, ok := lookupSetting(section, "servicename", "service_name", "service-name"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("serviceName: %w", err)
		}
		cfg.ServiceName = val
	}
	if raw, ok := lookupSetting(section, "samplerate", "sample_rate", "sample-rate"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return fmt.Errorf("sampleRate: %w", err)
		}
		cfg.SampleRate = val
	}
	if raw, ok := lookupSetting(section, "insecure"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("insecure: %w", err)
		}
		cfg.Insecure = val
	}
	return nil
}

// applyFlagOverrides lets explicitly set flags win over the scenario file.
func applyFlagOverrides(cfg *Config, flags *pflag.FlagSet) error {
	var err error

	override := func(name string, apply func() error) {
		if err != nil || !flags.Changed(name) {
			return
		}
		err = apply()
	}

	override("target", func() error {
		val, e := flags.GetString("target")
		cfg.Target = val
		return e
	})
	override("sender", func() error {
		val, e := flags.GetString("sender")
		cfg.Sender = val
		return e
	})
	override("option", func() error {
		vals, e := flags.GetStringToString("option")
		for k, v := range vals {
			cfg.Options[k] = v
		}
		return e
	})
	override("wait-response", func() error {
		val, e := flags.GetBool("wait-response")
		cfg.WaitResponse = val
		return e
	})
	override("timeout", func() error {
		val, e := flags.GetDuration("timeout")
		cfg.Timeout = val
		return e
	})
	override("payload", func() error {
		val, e := flags.GetString("payload")
		cfg.Payload = val
		return e
	})
	override("payload-file", func() error {
		val, e := flags.GetString("payload-file")
		cfg.PayloadFile = val
		return e
	})
	override("header", func() error {
		vals, e := flags.GetStringToString("header")
		for k, v := range vals {
			cfg.Headers[k] = v
		}
		return e
	})
	override("messages-file", func() error {
		val, e := flags.GetString("messages-file")
		cfg.MessagesFile = val
		return e
	})
	override("concurrency", func() error {
		val, e := flags.GetInt("concurrency")
		cfg.Concurrency = val
		return e
	})
	override("rate", func() error {
		val, e := flags.GetInt("rate")
		cfg.Rate = val
		return e
	})
	override("duration", func() error {
		val, e := flags.GetDuration("duration")
		cfg.Duration = val
		return e
	})
	override("total", func() error {
		val, e := flags.GetInt("total")
		cfg.Total = val
		return e
	})
	override("json-output", func() error {
		val, e := flags.GetBool("json-output")
		cfg.JSONOutput = val
		return e
	})
	override("log-errors", func() error {
		val, e := flags.GetBool("log-errors")
		cfg.LogErrors = val
		return e
	})
	override("trace", func() error {
		val, e := flags.GetBool("trace")
		cfg.Tracing.Enabled = val
		return e
	})
	override("trace-endpoint", func() error {
		val, e := flags.GetString("trace-endpoint")
		cfg.Tracing.Endpoint = val
		return e
	})
	override("trace-protocol", func() error {
		val, e := flags.GetString("trace-protocol")
		cfg.Tracing.Protocol = val
		return e
	})
	override("trace-service-name", func() error {
		val, e := flags.GetString("trace-service-name")
		cfg.Tracing.ServiceName = val
		return e
	})
	override("trace-sample-rate", func() error {
		val, e := flags.GetFloat64("trace-sample-rate")
		cfg.Tracing.SampleRate = val
		return e
	})
	override("trace-insecure", func() error {
		val, e := flags.GetBool("trace-insecure")
		cfg.Tracing.Insecure = val
		return e
	})

	return err
}
