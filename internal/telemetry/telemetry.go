// Package telemetry keeps process-lifetime counters for upstream generation calls.
package telemetry

import (
	"sync"
	"time"
)

// HourLabelLayout formats the local hour bucket used by PeakHourUsage.
const HourLabelLayout = "15:00"

// Snapshot is a read view of the running counters.
type Snapshot struct {
	TotalRequests      int64            `json:"total_requests"`
	ErrorCount         int64            `json:"error_count"`
	AvgResponseTimeMs  float64          `json:"avg_response_time_ms"`
	SuccessRatePercent float64          `json:"success_rate_percent"`
	PeakHourUsage      map[string]int64 `json:"peak_hour_usage"`
	LastUpdated        time.Time        `json:"last_updated"`
}

// Accumulator is safe for concurrent use. Counters are never reset or windowed.
type Accumulator struct {
	mu   sync.Mutex
	now  func() time.Time
	snap Snapshot
}

func NewAccumulator(now func() time.Time) *Accumulator {
	if now == nil {
		now = time.Now
	}
	return &Accumulator{
		now: now,
		snap: Snapshot{
			SuccessRatePercent: 100,
			PeakHourUsage:      make(map[string]int64),
			LastUpdated:        now(),
		},
	}
}

// Record folds one call attempt into the counters. Failed calls do not contribute
// their duration to the average.
func (a *Accumulator) Record(duration time.Duration, success bool) {
	now := a.now()

	a.mu.Lock()
	defer a.mu.Unlock()

	s := &a.snap
	s.TotalRequests++
	if success {
		ms := float64(duration) / float64(time.Millisecond)
		s.AvgResponseTimeMs = (s.AvgResponseTimeMs*float64(s.TotalRequests-1) + ms) / float64(s.TotalRequests)
	} else {
		s.ErrorCount++
	}
	s.SuccessRatePercent = successRate(s.TotalRequests, s.ErrorCount)
	s.PeakHourUsage[now.Local().Format(HourLabelLayout)]++
	s.LastUpdated = now
}

func (a *Accumulator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := a.snap
	out.PeakHourUsage = make(map[string]int64, len(a.snap.PeakHourUsage))
	for k, v := range a.snap.PeakHourUsage {
		out.PeakHourUsage[k] = v
	}
	return out
}

func successRate(total, errs int64) float64 {
	if total == 0 {
		return 100
	}
	return float64(total-errs) / float64(total) * 100
}
