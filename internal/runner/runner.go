// Package runner coordinates the worker side of a run: N workers, each
// exclusively owning one Sender, drive the init → (preSend → doSend →
// postSend)* → destroy lifecycle while a scheduler paces permits. The
// threading discipline the sender contract demands lives here: a Sender
// never leaves the worker that summoned it.
package runner

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/time/rate"

	"github.com/perfdrill/perfdrill/internal/metrics"
	"github.com/perfdrill/perfdrill/internal/sender"
	"github.com/perfdrill/perfdrill/internal/tracing"
)

// Result captures execution summary.
type Result struct {
	Total    int64
	Errors   int64
	Duration time.Duration
}

// Runner executes a run against the configured sender factory.
type Runner struct {
	opt     Options
	limiter *rate.Limiter
	tracer  trace.Tracer
}

func New(opt Options) *Runner {
	opt.normalize()
	return &Runner{
		opt:     opt,
		limiter: opt.LimiterFactory(opt.RatePerSecond),
		tracer:  noop.NewTracerProvider().Tracer("perfdrill"),
	}
}

// WithTracer installs a tracer for per-send client spans.
func (r *Runner) WithTracer(tracer trace.Tracer) *Runner {
	if tracer != nil {
		r.tracer = tracer
	}
	return r
}

func (r *Runner) Run(ctx context.Context) Result {
	start := time.Now()
	var total int64
	var errs int64

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if r.opt.Duration > 0 {
		deadlineCtx, deadlineCancel := context.WithTimeout(ctx, r.opt.Duration)
		ctx = deadlineCtx
		defer deadlineCancel()
	}

	permits := make(chan struct{}, r.opt.Concurrency)

	// Scheduler: serializes pacing to avoid burst overshoot across workers.
	go func() {
		defer close(permits)
		for {
			if ctx.Err() != nil {
				return
			}
			current := atomic.LoadInt64(&total)
			if r.opt.TotalSends > 0 && current >= int64(r.opt.TotalSends) {
				return
			}
			if err := r.limiter.Wait(ctx); err != nil {
				return
			}
			// Increment total before releasing the permit so workers only
			// execute allocated slots.
			atomic.AddInt64(&total, 1)
			select {
			case permits <- struct{}{}:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	wg.Add(r.opt.Concurrency)
	for i := 0; i < r.opt.Concurrency; i++ {
		go func() {
			defer wg.Done()
			r.worker(ctx, permits, &total, &errs)
		}()
	}
	wg.Wait()

	return Result{
		Total:    atomic.LoadInt64(&total),
		Errors:   atomic.LoadInt64(&errs),
		Duration: time.Since(start),
	}
}

// worker owns one Sender for its whole lifetime and drives the four-phase
// lifecycle once per permit.
func (r *Runner) worker(ctx context.Context, permits <-chan struct{}, total, errs *int64) {
	s, err := r.opt.Senders()
	if err != nil {
		r.logFailure(err)
		atomic.AddInt64(errs, 1)
		return
	}

	if err := s.Init(); err != nil {
		// Fatal for this instance; give back the unconsumed permits by
		// counting nothing and let the remaining workers carry the load.
		r.logFailure(err)
		atomic.AddInt64(errs, 1)
		return
	}
	defer func() {
		if err := s.Destroy(); err != nil {
			r.logFailure(err)
		}
	}()

	for range permits {
		if err := r.deliver(ctx, s); err != nil {
			atomic.AddInt64(errs, 1)
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// deliver performs one preSend → doSend → postSend round and wraps the
// outcome into a Measurement.
func (r *Runner) deliver(ctx context.Context, s sender.Sender) error {
	msg := r.opt.Messages()

	ctx, span := tracing.StartSendSpan(ctx, r.tracer, r.opt.Kind, s.Target())
	start := time.Now()

	err := s.PreSend(msg, nil)
	var resp []byte
	if err == nil {
		resp, err = s.DoSend(ctx, msg, nil, nil)
	}
	if err == nil {
		if cleanupErr := s.PostSend(msg); cleanupErr != nil {
			// The send itself succeeded; keep the failure distinct.
			err = &sender.PostSendError{Target: s.Target(), Err: cleanupErr}
		}
	}

	latency := time.Since(start)
	tracing.EndSendSpan(span, err, len(resp))

	if r.opt.Collector != nil {
		r.opt.Collector.Record(metrics.Measurement{
			ID:            ulid.Make().String(),
			Sender:        r.opt.Kind,
			Latency:       latency,
			ResponseBytes: len(resp),
			Err:           err,
		})
	}
	if err != nil {
		r.logFailure(err)
	}
	return err
}

func (r *Runner) logFailure(err error) {
	if r.opt.FailureLog == nil {
		return
	}
	fmt.Fprintf(r.opt.FailureLog, "send failed: %v\n", err)
}
