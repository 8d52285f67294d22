package core

import (
	"time"

	"github.com/google/uuid"
)

// RunInfo is the part every run result shares. A run is successful when
// it recorded no error; records skipped by design are not errors.
type RunInfo struct {
	RunID           uuid.UUID `json:"run_id"`
	StartedAt       time.Time `json:"started_at"`
	DurationSeconds float64   `json:"duration_seconds"`
	Success         bool      `json:"success"`
	ErrorList
}

// NewRunInfo stamps a new run.
func NewRunInfo() RunInfo {
	return RunInfo{RunID: uuid.New(), StartedAt: time.Now().UTC()}
}

// AddAll records every error in errs.
func (r *RunInfo) AddAll(errs []*RunError) {
	for _, e := range errs {
		r.Add(e)
	}
}

// Finish fixes the duration and success flag.
func (r *RunInfo) Finish() {
	r.DurationSeconds = time.Since(r.StartedAt).Seconds()
	r.Success = r.Empty()
}

// Duration returns the recorded run duration.
func (r *RunInfo) Duration() time.Duration {
	return time.Duration(r.DurationSeconds * float64(time.Second))
}
