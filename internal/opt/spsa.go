package opt

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/cwbudde/quantumlab/internal/lab"
	"github.com/cwbudde/quantumlab/internal/sim"
)

// Standard SPSA gain decay exponents (Spall's recommended values).
const (
	spsaAlpha = 0.602
	spsaGamma = 0.101
)

// SPSA implements Simultaneous Perturbation Stochastic Approximation: a
// zeroth-order optimizer that estimates the gradient from two symmetric
// noisy evaluations per iteration, regardless of dimensionality. It is
// well suited to shot-noisy objectives where exact gradients are
// unavailable.
type SPSA struct {
	// Steps is the fixed iteration budget. There is no early stopping:
	// the optimizer always runs exactly Steps iterations.
	Steps int

	// A and C scale the decaying gain schedules a_k = A/k^0.602 and
	// c_k = C/k^0.101 controlling step size and perturbation magnitude.
	A float64
	C float64

	// InitialThetas optionally fixes the starting point. When nil the
	// start is drawn uniformly from [0, 2*pi) per dimension from the
	// lab's random stream.
	InitialThetas []float64
}

// NewSPSA creates an SPSA optimizer with the given budget and gains.
func NewSPSA(steps int, a, c float64) *SPSA {
	return &SPSA{Steps: steps, A: a, C: c}
}

// Run executes the optimization. Each iteration evaluates the objective
// twice for the gradient estimate (unlogged), updates the angles, and
// runs one logged experiment at the new point. The result is the ledger's
// best trial.
func (s *SPSA) Run(l *lab.Lab, qubits, shots int, noise float64) (lab.Trial, error) {
	if s.Steps <= 0 {
		return lab.Trial{}, fmt.Errorf("steps must be positive, got %d: %w", s.Steps, sim.ErrInvalidArgument)
	}
	if s.A <= 0 || s.C <= 0 {
		return lab.Trial{}, fmt.Errorf("gain constants must be positive, got a=%g c=%g: %w", s.A, s.C, sim.ErrInvalidArgument)
	}
	if err := validateSampling(qubits, shots, noise); err != nil {
		return lab.Trial{}, err
	}
	if s.InitialThetas != nil && len(s.InitialThetas) != qubits {
		return lab.Trial{}, fmt.Errorf("initial thetas have %d entries for %d qubits: %w", len(s.InitialThetas), qubits, sim.ErrInvalidArgument)
	}

	rng := l.Rand()

	thetas := make([]float64, qubits)
	if s.InitialThetas != nil {
		copy(thetas, s.InitialThetas)
		thetas = sim.WrapAngles(thetas)
	} else {
		for i := range thetas {
			thetas[i] = rng.Float64() * 2 * math.Pi
		}
	}

	slog.Info("Starting SPSA", "qubits", qubits, "steps", s.Steps, "shots", shots, "noise", noise, "a", s.A, "c", s.C)

	delta := make([]float64, qubits)
	grad := make([]float64, qubits)
	shifted := make([]float64, qubits)

	for k := 1; k <= s.Steps; k++ {
		ak := s.A / math.Pow(float64(k), spsaAlpha)
		ck := s.C / math.Pow(float64(k), spsaGamma)

		for d := range delta {
			if rng.Float64() < 0.5 {
				delta[d] = 1
			} else {
				delta[d] = -1
			}
		}

		floats.AddScaledTo(shifted, thetas, ck, delta)
		ePlus, err := l.Evaluate(shifted, shots, noise)
		if err != nil {
			return lab.Trial{}, fmt.Errorf("iteration %d forward evaluation: %w", k, err)
		}

		floats.AddScaledTo(shifted, thetas, -ck, delta)
		eMinus, err := l.Evaluate(shifted, shots, noise)
		if err != nil {
			return lab.Trial{}, fmt.Errorf("iteration %d backward evaluation: %w", k, err)
		}

		// delta_d is +/-1, so dividing by it applies the correct sign.
		for d := range grad {
			grad[d] = (ePlus - eMinus) / (2 * ck * delta[d])
		}

		floats.AddScaled(thetas, -ak, grad)
		copy(thetas, sim.WrapAngles(thetas))

		note := "SPSA update; init"
		if k > 1 {
			note = "SPSA update; " + l.Ledger().DiffLastTwo()
		}

		if _, err := l.RunExperiment(k, thetas, shots, noise, note); err != nil {
			return lab.Trial{}, fmt.Errorf("iteration %d logging evaluation: %w", k, err)
		}
	}

	best, ok := l.Ledger().Best()
	if !ok {
		return lab.Trial{}, fmt.Errorf("optimization recorded no trials")
	}

	slog.Info("SPSA complete", "best_energy", best.Energy, "best_step", best.Step, "trials", l.Ledger().Len())
	return best, nil
}
