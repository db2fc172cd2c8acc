package store

import (
	"fmt"
	"time"
)

// RunConfig holds the configuration of an experiment run (persisted copy).
// Kept free of server imports so both the CLI and the job server can reuse
// it without cycles.
type RunConfig struct {
	Mode       string  `json:"mode"` // grid, spsa, mayfly
	Qubits     int     `json:"qubits"`
	Steps      int     `json:"steps,omitempty"`
	Shots      int     `json:"shots"`
	Noise      float64 `json:"noise"`
	Seed       int64   `json:"seed"`
	A          float64 `json:"a,omitempty"`
	C          float64 `json:"c,omitempty"`
	GridPoints int     `json:"gridPoints,omitempty"`
	PopSize    int     `json:"popSize,omitempty"`
}

// Result is the durable outcome of a completed run: the best trial ever
// observed plus enough configuration to reproduce it. The full trial
// history lives next to it in trace.jsonl.
type Result struct {
	// RunID uniquely identifies the run (CLI timestamp ID or server job UUID).
	RunID string `json:"runId"`

	// BestThetas are the angles of the lowest-energy trial.
	BestThetas []float64 `json:"bestThetas"`

	// BestEnergy is the measured energy achieved by BestThetas.
	BestEnergy float64 `json:"bestEnergy"`

	// BestStep is the iteration the best trial was logged on.
	BestStep int `json:"bestStep"`

	// Trials is the total number of logged trials.
	Trials int `json:"trials"`

	// Timestamp records when this result was written.
	Timestamp time.Time `json:"timestamp"`

	// Config holds the run configuration for reproduction: running the
	// same mode with the same seed regenerates the identical trajectory.
	Config RunConfig `json:"config"`
}

// ResultInfo is result metadata without the parameter payload, used for
// listing runs cheaply.
type ResultInfo struct {
	RunID      string    `json:"runId"`
	BestEnergy float64   `json:"bestEnergy"`
	Trials     int       `json:"trials"`
	Timestamp  time.Time `json:"timestamp"`
	Mode       string    `json:"mode"`
	Qubits     int       `json:"qubits"`
	Seed       int64     `json:"seed"`
}

// NewResult builds a Result from run state.
func NewResult(runID string, bestThetas []float64, bestEnergy float64, bestStep, trials int, config RunConfig) *Result {
	return &Result{
		RunID:      runID,
		BestThetas: bestThetas,
		BestEnergy: bestEnergy,
		BestStep:   bestStep,
		Trials:     trials,
		Timestamp:  time.Now(),
		Config:     config,
	}
}

// ToInfo converts a full Result to its listing metadata.
func (r *Result) ToInfo() ResultInfo {
	return ResultInfo{
		RunID:      r.RunID,
		BestEnergy: r.BestEnergy,
		Trials:     r.Trials,
		Timestamp:  r.Timestamp,
		Mode:       r.Config.Mode,
		Qubits:     r.Config.Qubits,
		Seed:       r.Config.Seed,
	}
}

// Validate checks that a result is complete enough to persist.
func (r *Result) Validate() error {
	if r.RunID == "" {
		return &ValidationError{Field: "RunID", Reason: "cannot be empty"}
	}
	if len(r.BestThetas) == 0 {
		return &ValidationError{Field: "BestThetas", Reason: "cannot be empty"}
	}
	if r.Trials <= 0 {
		return &ValidationError{Field: "Trials", Reason: "must be positive"}
	}
	if r.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	if r.Config.Mode == "" {
		return &ValidationError{Field: "Config.Mode", Reason: "cannot be empty"}
	}
	if r.Config.Qubits <= 0 {
		return &ValidationError{Field: "Config.Qubits", Reason: "must be positive"}
	}
	if len(r.BestThetas) != r.Config.Qubits {
		return &ValidationError{
			Field:  "BestThetas",
			Reason: fmt.Sprintf("length mismatch: %d angles for %d qubits", len(r.BestThetas), r.Config.Qubits),
		}
	}
	if r.Config.Shots <= 0 {
		return &ValidationError{Field: "Config.Shots", Reason: "must be positive"}
	}
	if r.Config.Noise < 0 || r.Config.Noise > 1 {
		return &ValidationError{Field: "Config.Noise", Reason: "must be in [0,1]"}
	}
	return nil
}

// ValidationError represents a result validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}
