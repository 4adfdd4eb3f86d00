package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/perfdrill/perfdrill/internal/config"
	"github.com/perfdrill/perfdrill/internal/metrics"
	"github.com/perfdrill/perfdrill/internal/output"
	"github.com/perfdrill/perfdrill/internal/runner"
	"github.com/perfdrill/perfdrill/internal/sender"
	"github.com/perfdrill/perfdrill/internal/tracing"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.NewLoader().Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	messages, err := newMessageSource(cfg)
	if err != nil {
		return err
	}

	// Summon once up front so configuration mistakes surface before any
	// worker starts.
	if _, err := sender.Summon(cfg.Sender, cfg.SenderOptions()); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tp, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	collector := metrics.NewCollector()

	opts := runner.Options{
		Concurrency:   cfg.Concurrency,
		TotalSends:    cfg.Total,
		Duration:      cfg.Duration,
		RatePerSecond: cfg.Rate,
		Senders: func() (sender.Sender, error) {
			return sender.Summon(cfg.Sender, cfg.SenderOptions())
		},
		Messages:  messages,
		Kind:      cfg.Sender,
		Collector: collector,
	}
	if cfg.LogErrors {
		opts.FailureLog = os.Stderr
	}

	r := runner.New(opts).WithTracer(tp.Tracer())

	// Mark the actual start right before workers begin so rate figures
	// exclude setup time.
	collector.Start()
	result := r.Run(ctx)
	stats := collector.Stats(result.Duration)

	if cfg.JSONOutput {
		if err := output.PrintJSONReport(os.Stdout, stats); err != nil {
			return err
		}
	} else {
		output.PrintReport(os.Stdout, stats)
	}

	if result.Errors > 0 {
		return fmt.Errorf("%d sends failed", result.Errors)
	}
	return nil
}

// newMessageSource resolves the scenario's message content into the source
// workers draw from. Messages are shared read-only across workers; senders
// never mutate caller-owned messages.
func newMessageSource(cfg *config.Config) (runner.MessageSource, error) {
	if cfg.MessagesFile != "" {
		templates, err := config.LoadMessages(cfg.MessagesFile)
		if err != nil {
			return nil, err
		}
		pool := make([]*sender.Message, len(templates))
		for i, tmpl := range templates {
			pool[i] = &sender.Message{
				Payload: []byte(tmpl.Payload),
				Headers: mergeHeaders(cfg.Headers, tmpl.Headers),
			}
		}
		var next atomic.Uint64
		return func() *sender.Message {
			n := next.Add(1) - 1
			return pool[n%uint64(len(pool))]
		}, nil
	}

	payload := []byte(cfg.Payload)
	if cfg.PayloadFile != "" {
		body, err := os.ReadFile(cfg.PayloadFile)
		if err != nil {
			return nil, fmt.Errorf("payload file: %w", err)
		}
		payload = body
	}

	if len(payload) == 0 && len(cfg.Headers) == 0 {
		// Nothing configured: deliver absent messages.
		return func() *sender.Message { return nil }, nil
	}

	msg := &sender.Message{Payload: payload, Headers: cfg.Headers}
	return func() *sender.Message { return msg }, nil
}

func mergeHeaders(base, extra map[string]string) map[string]string {
	if len(base) == 0 && len(extra) == 0 {
		return nil
	}
	merged := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}
