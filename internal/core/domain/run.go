package domain

import "time"

// RunStatus is the lifecycle state of a recorded run.
type RunStatus string

// Run states.
const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// RunRecord is one entry of the run history.
type RunRecord struct {
	ID         string
	StartedAt  time.Time
	FinishedAt *time.Time
	Status     RunStatus

	InputPath  string
	OutputPath string

	Documents       int
	NFine           int
	NMid            int
	DensityClusters int
	NoisePoints     int
	Failures        int
	Silhouettes     Silhouettes

	// Settings is a JSON snapshot of the pipeline settings.
	Settings string

	// Error is the fatal error of a failed run.
	Error string
}

// Duration returns the elapsed time of a finished run, or zero.
func (r *RunRecord) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
