package models

import "time"

// RunEntry records one completed execution. Immutable once written.
type RunEntry struct {
	StartedAt  time.Time `json:"startedAt"`
	ExitCode   int       `json:"exitCode"`
	DurationMs int64     `json:"durationMs"`
}

// RunState is the aggregated per-workflow run history. The top-level fields
// mirror the newest history entry.
type RunState struct {
	LastRun             time.Time  `json:"lastRun"`
	LastExitCode        int        `json:"lastExitCode"`
	LastDurationMs      int64      `json:"lastDurationMs"`
	ConsecutiveFailures int        `json:"consecutiveFailures"`
	History             []RunEntry `json:"history"`
}
