package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Measurement is one send's outcome as observed by its worker: identity,
// timing, response size and the error, if any. The response payload itself
// is not retained.
type Measurement struct {
	ID            string // ULID assigned by the worker
	Sender        string // sender type identifier
	Latency       time.Duration
	ResponseBytes int
	Err           error
}

// Collector records measurements in a thread-safe manner. One collector is
// shared by all workers of a run.
type Collector struct {
	mu            sync.Mutex
	hist          *hdrhistogram.Histogram
	successes     int64
	failures      int64
	minLatency    time.Duration
	maxLatency    time.Duration
	sumLatency    time.Duration
	responseBytes int64
	errorsByType  map[string]int64
	start         time.Time
}

// Stats represents aggregated run statistics.
type Stats struct {
	Total       int64         `json:"total"`
	Successes   int64         `json:"successes"`
	Failures    int64         `json:"failures"`
	MinLatency  time.Duration `json:"-"`
	MaxLatency  time.Duration `json:"-"`
	MeanLatency time.Duration `json:"-"`
	P50Latency  time.Duration `json:"-"`
	P90Latency  time.Duration `json:"-"`
	P99Latency  time.Duration `json:"-"`
	Duration    time.Duration `json:"-"`
	SendsPerSec float64       `json:"sends_per_sec"`

	// JSON-friendly millisecond fields.
	MinLatencyMs  float64 `json:"min_latency_ms"`
	MaxLatencyMs  float64 `json:"max_latency_ms"`
	MeanLatencyMs float64 `json:"mean_latency_ms"`
	P50LatencyMs  float64 `json:"p50_latency_ms"`
	P90LatencyMs  float64 `json:"p90_latency_ms"`
	P99LatencyMs  float64 `json:"p99_latency_ms"`
	DurationMs    float64 `json:"duration_ms"`

	ResponseBytes int64          `json:"response_bytes"`
	Errors        map[string]int `json:"errors,omitempty"`
}

func NewCollector() *Collector {
	// Track latencies from 1µs up to 60s with 3 significant figures.
	h := hdrhistogram.New(1, 60_000_000, 3)
	return &Collector{
		hist:         h,
		errorsByType: make(map[string]int64),
		start:        time.Now(),
	}
}

// Start marks the beginning of the measured run. Call it right before the
// first worker begins so rate figures are not skewed by setup time.
func (c *Collector) Start() {
	c.mu.Lock()
	c.start = time.Now()
	c.mu.Unlock()
}

// Record folds one measurement into the aggregate.
func (c *Collector) Record(m Measurement) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if m.Latency > 0 {
		us := m.Latency.Microseconds()
		if us < c.hist.LowestTrackableValue() {
			us = c.hist.LowestTrackableValue()
		}
		if us > c.hist.HighestTrackableValue() {
			us = c.hist.HighestTrackableValue()
		}
		_ = c.hist.RecordValue(us)
	}
	c.sumLatency += m.Latency

	if c.minLatency == 0 || m.Latency < c.minLatency {
		c.minLatency = m.Latency
	}
	if m.Latency > c.maxLatency {
		c.maxLatency = m.Latency
	}

	c.responseBytes += int64(m.ResponseBytes)

	if m.Err == nil {
		c.successes++
	} else {
		c.failures++
		c.errorsByType[fmt.Sprintf("%T", m.Err)]++
	}
}

// Stats computes and returns the current aggregated statistics.
func (c *Collector) Stats(elapsed time.Duration) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.successes + c.failures
	stats := Stats{
		Total:         total,
		Successes:     c.successes,
		Failures:      c.failures,
		MinLatency:    c.minLatency,
		MaxLatency:    c.maxLatency,
		Duration:      elapsed,
		ResponseBytes: c.responseBytes,
	}

	if total > 0 {
		stats.MeanLatency = time.Duration(int64(c.sumLatency) / total)
	}

	if c.hist.TotalCount() > 0 {
		stats.P50Latency = time.Duration(c.hist.ValueAtQuantile(50)) * time.Microsecond
		stats.P90Latency = time.Duration(c.hist.ValueAtQuantile(90)) * time.Microsecond
		stats.P99Latency = time.Duration(c.hist.ValueAtQuantile(99)) * time.Microsecond
	}

	if elapsed <= 0 {
		elapsed = time.Since(c.start)
		stats.Duration = elapsed
	}
	if elapsed > 0 {
		stats.SendsPerSec = float64(total) / elapsed.Seconds()
	}

	stats.MinLatencyMs = float64(stats.MinLatency) / float64(time.Millisecond)
	stats.MaxLatencyMs = float64(stats.MaxLatency) / float64(time.Millisecond)
	stats.MeanLatencyMs = float64(stats.MeanLatency) / float64(time.Millisecond)
	stats.P50LatencyMs = float64(stats.P50Latency) / float64(time.Millisecond)
	stats.P90LatencyMs = float64(stats.P90Latency) / float64(time.Millisecond)
	stats.P99LatencyMs = float64(stats.P99Latency) / float64(time.Millisecond)
	stats.DurationMs = float64(stats.Duration) / float64(time.Millisecond)

	if len(c.errorsByType) > 0 {
		stats.Errors = make(map[string]int, len(c.errorsByType))
		for typeName, count := range c.errorsByType {
			stats.Errors[FriendlyErrorName(typeName)] += int(count)
		}
	}

	return stats
}
