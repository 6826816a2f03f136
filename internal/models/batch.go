package models

// BatchFailure records one file that failed during a batch run.
type BatchFailure struct {
	Path string `json:"path"`
	Err  string `json:"error"`
}

// BatchStats summarizes one batch run. Outputs holds the successful output
// paths in completion order, not submission order.
type BatchStats struct {
	RunID     string         `json:"run_id"`
	InputDir  string         `json:"input_dir"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Skipped   int            `json:"skipped"`
	Elapsed   float64        `json:"elapsed_seconds"`
	Outputs   []string       `json:"outputs"`
	Failures  []BatchFailure `json:"failures,omitempty"`
}
