package lab

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/cwbudde/quantumlab/internal/sim"
)

// Lab binds the statevector engine, the measurement sampler and a ledger
// behind a uniform experiment call. It owns the single random stream for
// the whole run: initial parameters, SPSA perturbations, shot sampling
// and bit flips all draw from it, which is what makes two runs with the
// same seed bit-for-bit identical.
//
// A Lab is single-threaded. Hosts that parallelize independent runs must
// give each run its own Lab; nothing here is safe to share.
type Lab struct {
	ledger *Ledger
	rng    *rand.Rand

	// OnTrial, when set, is called synchronously after every append. The
	// server worker uses it for progress reporting and the CLI for trace
	// persistence; it must not touch the ledger itself.
	OnTrial func(Trial)
}

// New creates a lab with a fresh ledger and a random stream seeded with
// the given seed.
func New(seed int64) *Lab {
	return &Lab{
		ledger: NewLedger(),
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Ledger exposes the run's notebook.
func (l *Lab) Ledger() *Ledger {
	return l.ledger
}

// Rand exposes the run's random stream. Optimizers draw their
// perturbations from it so the whole run shares one stream.
func (l *Lab) Rand() *rand.Rand {
	return l.rng
}

// Evaluate runs one experiment without logging it: wraps the angles,
// prepares the statevector and samples the energy. SPSA uses this for
// its two symmetric gradient evaluations, which deliberately stay out of
// the ledger.
func (l *Lab) Evaluate(thetas []float64, shots int, noise float64) (float64, error) {
	wrapped := sim.WrapAngles(thetas)

	state, err := sim.Prepare(wrapped)
	if err != nil {
		return 0, err
	}
	return sim.Measure(sim.Probabilities(state), shots, noise, l.rng)
}

// RunExperiment runs one experiment and records it as a trial. The
// returned energy is the same value stored in the ledger. On evaluation
// failure nothing is appended.
func (l *Lab) RunExperiment(step int, thetas []float64, shots int, noise float64, note string) (float64, error) {
	wrapped := sim.WrapAngles(thetas)

	energy, err := l.Evaluate(wrapped, shots, noise)
	if err != nil {
		return 0, err
	}

	trial := Trial{
		Step:   step,
		Thetas: wrapped,
		Shots:  shots,
		Noise:  noise,
		Energy: energy,
		Note:   note,
		Time:   time.Now(),
	}
	l.ledger.Append(trial)
	if l.OnTrial != nil {
		l.OnTrial(trial)
	}

	return energy, nil
}

// GridSearch evaluates the single-parameter ansatz at gridPoints evenly
// spaced angles in [0, 2*pi) and returns the best trial observed. Every
// grid point is logged.
func (l *Lab) GridSearch(shots int, noise float64, gridPoints int) (Trial, error) {
	if gridPoints <= 1 {
		return Trial{}, fmt.Errorf("grid points must be > 1, got %d: %w", gridPoints, sim.ErrInvalidArgument)
	}

	slog.Info("Starting grid search", "grid_points", gridPoints, "shots", shots, "noise", noise)

	for i := 0; i < gridPoints; i++ {
		theta := 2 * math.Pi * float64(i) / float64(gridPoints)
		if _, err := l.RunExperiment(i, []float64{theta}, shots, noise, "grid_search"); err != nil {
			return Trial{}, fmt.Errorf("grid point %d failed: %w", i, err)
		}
	}

	best, ok := l.ledger.Best()
	if !ok {
		return Trial{}, fmt.Errorf("grid search recorded no trials")
	}

	slog.Info("Grid search complete", "best_theta", best.Thetas[0], "best_energy", best.Energy)
	return best, nil
}
