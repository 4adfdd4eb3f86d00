package config

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "perfdrill",
		Short:         "perfdrill drives message load through pluggable senders",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Delivery flags
	flags.String("target", "", "Delivery target (host:port or URL, depending on sender)")
	flags.StringP("sender", "s", "udp", "Sender kind: udp, http, websocket")
	flags.StringToString("option", nil, "Adapter-specific option in key=value form (repeatable)")
	flags.Bool("wait-response", true, "Wait for a correlated response to each send")
	flags.Duration("timeout", 30*time.Second, "Per-send response deadline")

	// Message flags
	flags.String("payload", "", "Inline message payload")
	flags.String("payload-file", "", "Path to file containing the message payload")
	flags.StringToString("header", nil, "Message header in key=value form (repeatable)")
	flags.String("messages-file", "", "Path to YAML file with message templates")

	// Load control flags
	flags.IntP("concurrency", "c", 1, "Number of concurrent workers, one sender each")
	flags.IntP("rate", "r", 0, "Sends per second limit (0 means unlimited)")
	flags.DurationP("duration", "d", 0, "How long to run (e.g. 30s, 1m)")
	flags.IntP("total", "t", 0, "Total number of messages to send (0 means unlimited)")

	// Output flags
	flags.Bool("json-output", false, "Emit JSON formatted output")
	flags.Bool("log-errors", false, "Log each failed send to stderr")
	flags.String("config", "", "Path to scenario file (JSON or YAML)")

	// Tracing flags
	flags.Bool("trace", false, "Enable OpenTelemetry tracing")
	flags.String("trace-endpoint", "", "OTLP endpoint (falls back to OTEL_EXPORTER_OTLP_ENDPOINT)")
	flags.String("trace-protocol", "grpc", "OTLP protocol: grpc or http")
	flags.String("trace-service-name", "", "Service name for exported spans")
	flags.Float64("trace-sample-rate", 1.0, "Trace sampling rate between 0.0 and 1.0")
	flags.Bool("trace-insecure", false, "Disable TLS for the OTLP exporter")
}

func displayHelp(cmd *cobra.Command) {
	_ = cmd.Help()
}
