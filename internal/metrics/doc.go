// Package metrics turns per-send outcomes into aggregated run statistics.
// Workers wrap each DoSend outcome into a Measurement; the Collector folds
// measurements into an HDR histogram and error breakdown. The sender core
// itself has no dependency on this package.
package metrics
