package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/perfdrill/perfdrill/internal/metrics"
)

func sampleStats() metrics.Stats {
	return metrics.Stats{
		Total:       100,
		Successes:   97,
		Failures:    3,
		MinLatency:  time.Millisecond,
		MaxLatency:  80 * time.Millisecond,
		MeanLatency: 12 * time.Millisecond,
		P50Latency:  10 * time.Millisecond,
		P90Latency:  40 * time.Millisecond,
		P99Latency:  75 * time.Millisecond,
		Duration:    2 * time.Second,
		SendsPerSec: 50,
		Errors:      map[string]int{"Send timeout": 3},
	}
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	PrintReport(&buf, sampleStats())

	out := buf.String()
	for _, want := range []string{
		"Total Sends:       100",
		"Failed:            3",
		"Sends/sec:         50.00",
		"P99:             75ms",
		"Send timeout: 3",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestPrintJSONReport(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintJSONReport(&buf, sampleStats()); err != nil {
		t.Fatalf("print: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded["total"].(float64) != 100 {
		t.Fatalf("total = %v", decoded["total"])
	}
	if _, ok := decoded["errors"]; !ok {
		t.Fatal("errors missing from JSON report")
	}
}
