package opt

import (
	"fmt"
	"math"

	"github.com/cwbudde/mayfly"

	"github.com/cwbudde/quantumlab/internal/lab"
	"github.com/cwbudde/quantumlab/internal/sim"
)

// MayflyAdapter wraps the external Mayfly population optimizer as an
// alternative driver over the same measured-energy objective. Unlike
// SPSA, intermediate population evaluations are not logged; only the
// winning angles are re-measured and recorded as a trial.
type MayflyAdapter struct {
	maxIters int
	popSize  int
}

// NewMayfly creates a Mayfly optimizer adapter.
func NewMayfly(maxIters, popSize int) *MayflyAdapter {
	return &MayflyAdapter{
		maxIters: maxIters,
		popSize:  popSize,
	}
}

// Run executes the Mayfly optimization over angles bounded to [0, 2*pi).
// Determinism comes from feeding the lab's random stream to the library.
func (m *MayflyAdapter) Run(l *lab.Lab, qubits, shots int, noise float64) (lab.Trial, error) {
	if m.maxIters <= 0 {
		return lab.Trial{}, fmt.Errorf("iterations must be positive, got %d: %w", m.maxIters, sim.ErrInvalidArgument)
	}
	if m.popSize <= 0 {
		return lab.Trial{}, fmt.Errorf("population size must be positive, got %d: %w", m.popSize, sim.ErrInvalidArgument)
	}
	if err := validateSampling(qubits, shots, noise); err != nil {
		return lab.Trial{}, err
	}

	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = func(thetas []float64) float64 {
		energy, err := l.Evaluate(thetas, shots, noise)
		if err != nil {
			// Arguments are validated above; treat any residual failure
			// as an unattractive point rather than aborting the swarm.
			return math.Inf(1)
		}
		return energy
	}
	config.ProblemSize = qubits
	config.MaxIterations = m.maxIters
	config.NPop = m.popSize
	config.LowerBound = 0
	config.UpperBound = 2 * math.Pi
	config.Rand = l.Rand()

	result, err := mayfly.Optimize(config)
	if err != nil {
		return lab.Trial{}, fmt.Errorf("mayfly optimization failed: %w", err)
	}

	// Log the winner so the run's ledger carries the canonical answer.
	step := l.Ledger().Len()
	if _, err := l.RunExperiment(step, result.GlobalBest.Position, shots, noise, "mayfly best"); err != nil {
		return lab.Trial{}, fmt.Errorf("logging mayfly best: %w", err)
	}

	best, ok := l.Ledger().Best()
	if !ok {
		return lab.Trial{}, fmt.Errorf("optimization recorded no trials")
	}
	return best, nil
}
