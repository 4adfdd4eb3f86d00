package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/perfdrill/perfdrill/internal/metrics"
	"github.com/perfdrill/perfdrill/internal/sender"
)

// fakeSender records lifecycle calls so tests can assert the worker drives
// the contract in order, one instance per worker.
type fakeSender struct {
	mu        sync.Mutex
	calls     []string
	initErr   error
	doSendErr error
	postErr   error
}

func (f *fakeSender) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeSender) Init() error {
	f.record("init")
	return f.initErr
}

func (f *fakeSender) PreSend(*sender.Message, sender.Properties) error {
	f.record("preSend")
	return nil
}

func (f *fakeSender) DoSend(ctx context.Context, msg *sender.Message, _ sender.Properties, cb sender.Callback) ([]byte, error) {
	f.record("doSend")
	if f.doSendErr != nil {
		if cb != nil {
			cb(nil, f.doSendErr)
		}
		return nil, f.doSendErr
	}
	resp := []byte("ok")
	if cb != nil {
		cb(resp, nil)
	}
	return resp, nil
}

func (f *fakeSender) PostSend(*sender.Message) error {
	f.record("postSend")
	return f.postErr
}

func (f *fakeSender) Destroy() error {
	f.record("destroy")
	return nil
}

func (f *fakeSender) Target() string { return "fake:0" }

func (f *fakeSender) callSequence() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func unlimited(int) *rate.Limiter { return rate.NewLimiter(rate.Inf, 0) }

func TestRunnerDrivesLifecycleInOrder(t *testing.T) {
	f := &fakeSender{}
	r := New(Options{
		Concurrency:    1,
		TotalSends:     3,
		Senders:        func() (sender.Sender, error) { return f, nil },
		Kind:           "fake",
		LimiterFactory: unlimited,
	})

	res := r.Run(context.Background())
	if res.Total != 3 || res.Errors != 0 {
		t.Fatalf("result = %+v", res)
	}

	want := []string{
		"init",
		"preSend", "doSend", "postSend",
		"preSend", "doSend", "postSend",
		"preSend", "doSend", "postSend",
		"destroy",
	}
	got := f.callSequence()
	if len(got) != len(want) {
		t.Fatalf("calls = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("call %d = %q, want %q (full: %v)", i, got[i], want[i], got)
		}
	}
}

func TestRunnerOneSenderPerWorker(t *testing.T) {
	var summoned int64
	factory := func() (sender.Sender, error) {
		atomic.AddInt64(&summoned, 1)
		return &fakeSender{}, nil
	}

	r := New(Options{
		Concurrency:    4,
		TotalSends:     40,
		Senders:        factory,
		LimiterFactory: unlimited,
	})
	res := r.Run(context.Background())

	if res.Total != 40 {
		t.Fatalf("total = %d", res.Total)
	}
	if got := atomic.LoadInt64(&summoned); got != 4 {
		t.Fatalf("summoned %d senders for 4 workers", got)
	}
}

func TestRunnerCountsFailures(t *testing.T) {
	f := &fakeSender{doSendErr: &sender.TimeoutError{Target: "fake:0", Wait: time.Second}}
	collector := metrics.NewCollector()

	r := New(Options{
		Concurrency:    1,
		TotalSends:     5,
		Senders:        func() (sender.Sender, error) { return f, nil },
		Kind:           "fake",
		Collector:      collector,
		LimiterFactory: unlimited,
	})
	res := r.Run(context.Background())

	if res.Errors != 5 {
		t.Fatalf("errors = %d", res.Errors)
	}
	stats := collector.Stats(res.Duration)
	if stats.Failures != 5 {
		t.Fatalf("collector failures = %d", stats.Failures)
	}
	if stats.Errors["Send timeout"] != 5 {
		t.Fatalf("error breakdown = %v", stats.Errors)
	}
}

func TestRunnerInitFailureIsFatalForWorker(t *testing.T) {
	bad := errors.New("socket exhausted")
	r := New(Options{
		Concurrency: 1,
		TotalSends:  3,
		Duration:    time.Second,
		Senders: func() (sender.Sender, error) {
			return &fakeSender{initErr: &sender.InitError{Target: "fake:0", Err: bad}}, nil
		},
		LimiterFactory: unlimited,
	})
	res := r.Run(context.Background())

	if res.Errors == 0 {
		t.Fatal("init failure not counted")
	}
}

func TestRunnerPostSendFailureIsDistinct(t *testing.T) {
	f := &fakeSender{postErr: errors.New("cleanup broke")}
	collector := metrics.NewCollector()

	r := New(Options{
		Concurrency:    1,
		TotalSends:     1,
		Senders:        func() (sender.Sender, error) { return f, nil },
		Kind:           "fake",
		Collector:      collector,
		LimiterFactory: unlimited,
	})
	res := r.Run(context.Background())

	if res.Errors != 1 {
		t.Fatalf("errors = %d", res.Errors)
	}
	stats := collector.Stats(res.Duration)
	if stats.Errors["Post-send cleanup failure"] != 1 {
		t.Fatalf("post-send failure not surfaced distinctly: %v", stats.Errors)
	}
}

func TestRunnerDurationBound(t *testing.T) {
	f := &fakeSender{}
	r := New(Options{
		Concurrency:    1,
		Duration:       150 * time.Millisecond,
		Senders:        func() (sender.Sender, error) { return f, nil },
		LimiterFactory: unlimited,
	})

	start := time.Now()
	_ = r.Run(context.Background())
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("run did not stop with duration: %s", elapsed)
	}
}

func TestRunnerMessageSource(t *testing.T) {
	var seen atomic.Int64
	f := &fakeSender{}
	r := New(Options{
		Concurrency: 1,
		TotalSends:  3,
		Senders:     func() (sender.Sender, error) { return f, nil },
		Messages: func() *sender.Message {
			seen.Add(1)
			return &sender.Message{Payload: []byte("fish")}
		},
		LimiterFactory: unlimited,
	})
	_ = r.Run(context.Background())

	if got := seen.Load(); got != 3 {
		t.Fatalf("message source called %d times", got)
	}
}
