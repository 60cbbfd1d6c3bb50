package models

import "time"

// BatchResult holds the outcome of one users/contests/problems batch.
type BatchResult struct {
	Kind       Kind
	OutputFile string
	StartTime  time.Time
	EndTime    time.Time

	ListedCount  int
	WrittenCount int
	Duplicates   int

	// Per-record failures that degraded a row to defaults instead of aborting it.
	APIErrorCount   int
	FetchErrorCount int
	FetchErrors     map[string]int
	Misses          map[string]int
}

// Duration reports how long the batch ran.
func (r *BatchResult) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}
