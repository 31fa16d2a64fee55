// Package jobs runs periodic background tasks.
package jobs

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/ocean-authoring/ocean-backend/internal/llm"
)

type Scheduler struct {
	c *cron.Cron
}

func NewScheduler() *Scheduler {
	return &Scheduler{c: cron.New()}
}

// AddMetricsReport logs generator call counts on schedule. An empty schedule
// adds nothing.
func (s *Scheduler) AddMetricsReport(schedule string) error {
	if schedule == "" {
		return nil
	}
	r := &MetricsReporter{}
	if _, err := s.c.AddFunc(schedule, r.Report); err != nil {
		return fmt.Errorf("schedule metrics report %q: %w", schedule, err)
	}
	slog.Info("metrics report scheduled", "schedule", schedule)
	return nil
}

// Start runs the scheduler in its own goroutine
func (s *Scheduler) Start() {
	s.c.Start()
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.c.Stop().Done()
}

// MetricsReporter logs generator metrics and the change since its last run.
type MetricsReporter struct {
	mu   sync.Mutex
	last llm.Metrics
}

// Report is the cron entry point.
func (r *MetricsReporter) Report() {
	r.Snapshot()
}

// Snapshot logs and returns the current totals plus the delta since the
// previous snapshot.
func (r *MetricsReporter) Snapshot() (total, delta llm.Metrics) {
	r.mu.Lock()
	defer r.mu.Unlock()

	total = llm.GetMetrics()
	delta = llm.Metrics{
		Calls:     total.Calls - r.last.Calls,
		Errors:    total.Errors - r.last.Errors,
		LatencyNs: total.LatencyNs - r.last.LatencyNs,
	}
	r.last = total

	slog.Info("generator metrics",
		"calls_total", total.Calls,
		"errors_total", total.Errors,
		"calls", delta.Calls,
		"errors", delta.Errors,
		"avg_latency_ms", delta.AverageLatency(),
		"error_rate_pct", delta.ErrorRate(),
	)
	return total, delta
}
