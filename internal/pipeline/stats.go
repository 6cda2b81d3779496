package pipeline

import (
	"slices"
	"sort"
	"sync"
	"time"
)

// maxSamples bounds memory when a burst of jobs lands inside one window.
const maxSamples = 4096

// StatsSnapshot summarizes the samples inside the window.
type StatsSnapshot struct {
	Count int     `json:"count"`
	MinMs int64   `json:"min_ms"`
	MaxMs int64   `json:"max_ms"`
	AvgMs float64 `json:"avg_ms"`
	P50Ms float64 `json:"p50_ms"`
	P95Ms float64 `json:"p95_ms"`
	P99Ms float64 `json:"p99_ms"`
}

// LatencyStats keeps the durations of recent operations, oldest first. The
// worker keeps one for conversion and one for publishing.
type LatencyStats struct {
	mu     sync.Mutex
	at     []time.Time
	ms     []int64
	window time.Duration
}

// NewLatencyStats returns stats covering the last window (one hour when
// window is not positive).
func NewLatencyStats(window time.Duration) *LatencyStats {
	if window <= 0 {
		window = time.Hour
	}
	return &LatencyStats{window: window}
}

// Observe records the time elapsed since start.
func (s *LatencyStats) Observe(start time.Time) {
	s.Record(time.Since(start).Milliseconds())
}

// Record adds one duration in milliseconds. Negative values count as zero.
func (s *LatencyStats) Record(ms int64) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expire(now)
	if len(s.ms) == maxSamples {
		s.at, s.ms = s.at[1:], s.ms[1:]
	}
	s.at = append(s.at, now)
	s.ms = append(s.ms, max(ms, 0))
}

func (s *LatencyStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	s.expire(time.Now())
	values := slices.Clone(s.ms)
	s.mu.Unlock()

	if len(values) == 0 {
		return StatsSnapshot{}
	}
	slices.Sort(values)
	var sum int64
	for _, v := range values {
		sum += v
	}
	return StatsSnapshot{
		Count: len(values),
		MinMs: values[0],
		MaxMs: values[len(values)-1],
		AvgMs: float64(sum) / float64(len(values)),
		P50Ms: percentile(values, 50),
		P95Ms: percentile(values, 95),
		P99Ms: percentile(values, 99),
	}
}

// expire drops samples older than the window. Samples are appended in time
// order, so the expired ones form a prefix.
func (s *LatencyStats) expire(now time.Time) {
	cutoff := now.Add(-s.window)
	n := sort.Search(len(s.at), func(i int) bool { return !s.at[i].Before(cutoff) })
	if n > 0 {
		s.at = slices.Delete(s.at, 0, n)
		s.ms = slices.Delete(s.ms, 0, n)
	}
}

// percentile interpolates between the two closest ranks of sorted.
func percentile(sorted []int64, p float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case p <= 0:
		return float64(sorted[0])
	case p >= 100:
		return float64(sorted[len(sorted)-1])
	}
	rank := float64(len(sorted)-1) * p / 100
	i := int(rank)
	if i+1 >= len(sorted) {
		return float64(sorted[i])
	}
	lo, hi := float64(sorted[i]), float64(sorted[i+1])
	return lo + (hi-lo)*(rank-float64(i))
}
