package runner

import (
	"io"
	"time"

	"golang.org/x/time/rate"

	"github.com/perfdrill/perfdrill/internal/metrics"
	"github.com/perfdrill/perfdrill/internal/sender"
)

// SenderFactory summons one fresh Sender. It is called once per worker, so
// every worker exclusively owns its own instance; instances never migrate
// between workers.
type SenderFactory func() (sender.Sender, error)

// MessageSource yields the message for the next send. It is called from
// worker goroutines and must be safe for concurrent use. Returning nil is
// valid and delivers an absent payload.
type MessageSource func() *sender.Message

// Options configure the Runner.
type Options struct {
	Concurrency   int           // number of workers, each owning one Sender
	TotalSends    int           // total messages to deliver (0 means unlimited until duration/end)
	Duration      time.Duration // overall time limit (0 means no duration cap)
	RatePerSecond int           // sends per second pacing (0 means unlimited)

	Senders  SenderFactory // required
	Messages MessageSource // optional; nil sends absent payloads
	Kind     string        // sender type identifier, used to label measurements

	Collector  *metrics.Collector // optional
	FailureLog io.Writer          // optional; one line per failed send

	LimiterFactory func(rps int) *rate.Limiter // optional injection for tests
}

func (o *Options) normalize() {
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	if o.TotalSends < 0 {
		o.TotalSends = 0
	}
	if o.RatePerSecond < 0 {
		o.RatePerSecond = 0
	}
	if o.Messages == nil {
		o.Messages = func() *sender.Message { return nil }
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(rps int) *rate.Limiter {
			if rps <= 0 {
				return rate.NewLimiter(rate.Inf, 0)
			}
			// Burst equal to rps to smooth pacing under concurrency.
			return rate.NewLimiter(rate.Limit(rps), rps)
		}
	}
}
