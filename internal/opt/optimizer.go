package opt

import (
	"fmt"

	"github.com/cwbudde/quantumlab/internal/lab"
	"github.com/cwbudde/quantumlab/internal/sim"
)

// Optimizer tunes preparation angles to minimize the measured energy of a
// lab run. Implementations log their reportable iterations to the lab's
// ledger and return the best trial ever observed, never the final iterate:
// under shot noise the last point may look worse than an earlier one.
type Optimizer interface {
	Run(l *lab.Lab, qubits, shots int, noise float64) (lab.Trial, error)
}

// validateSampling checks the shared evaluation arguments up front so a
// rejected run never consumes the lab's random stream.
func validateSampling(qubits, shots int, noise float64) error {
	if qubits < 1 {
		return fmt.Errorf("qubits must be >= 1, got %d: %w", qubits, sim.ErrInvalidArgument)
	}
	if shots <= 0 {
		return fmt.Errorf("shots must be positive, got %d: %w", shots, sim.ErrInvalidArgument)
	}
	if noise < 0 || noise > 1 {
		return fmt.Errorf("noise must be in [0,1], got %g: %w", noise, sim.ErrInvalidArgument)
	}
	return nil
}
