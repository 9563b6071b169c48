package models

import "time"

// RunOptions contains the knobs for a single crawl run.
type RunOptions struct {
	ResultsWanted  int
	MaxPages       int
	CollectDetails bool
	Dedupe         bool
	Workers        int
	Timeout        time.Duration
}

// RunStats are the per-run counters reported in the end-of-run summary.
type RunStats struct {
	Saved          int
	PagesFetched   int
	DetailsFetched int
	Duplicates     int
	Failures       int
	Blocked        int
}
