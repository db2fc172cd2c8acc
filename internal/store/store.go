package store

// Store defines the interface for run persistence.
// Implementations must be safe for concurrent use.
//
// Error handling conventions:
//   - Return nil error on success
//   - Return a NotFoundError if the run doesn't exist (for Load/Delete)
//   - Wrap underlying errors with context using fmt.Errorf("context: %w", err)
type Store interface {
	// SaveResult atomically saves the result for the given run,
	// overwriting any existing one. Implementations should use atomic
	// write strategies (temp file + rename) to prevent corruption.
	SaveResult(runID string, result *Result) error

	// LoadResult retrieves the result for the given run.
	// Returns a NotFoundError if no result exists for runID.
	LoadResult(runID string) (*Result, error)

	// ListResults returns metadata for all persisted runs. The returned
	// slice may be empty.
	ListResults() ([]ResultInfo, error)

	// DeleteResult removes the result and all associated artifacts for
	// the given run, including its trial trace.
	// Returns a NotFoundError if no result exists for runID.
	DeleteResult(runID string) error
}

// ErrNotFound is returned when a requested run does not exist.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &NotFoundError{}

// NotFoundError represents a missing run error.
type NotFoundError struct {
	RunID string
}

func (e *NotFoundError) Error() string {
	if e.RunID != "" {
		return "run not found: " + e.RunID
	}
	return "run not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
