package sim

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepare_ProbabilitiesSumToOne(t *testing.T) {
	rng := rand.New(rand.NewSource(11))

	for n := 1; n <= 4; n++ {
		for trial := 0; trial < 25; trial++ {
			thetas := make([]float64, n)
			for i := range thetas {
				thetas[i] = rng.Float64() * 2 * math.Pi
			}

			state, err := Prepare(thetas)
			require.NoError(t, err)
			require.Len(t, state, 1<<n)

			probs := Probabilities(state)
			sum := 0.0
			for _, p := range probs {
				assert.GreaterOrEqual(t, p, 0.0)
				sum += p
			}
			assert.InDelta(t, 1.0, sum, 1e-9, "qubits=%d thetas=%v", n, thetas)
		}
	}
}

func TestPrepare_RejectsEmptyRegister(t *testing.T) {
	_, err := Prepare(nil)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestPrepare_MatchesClosedFormSingleQubit(t *testing.T) {
	for _, theta := range []float64{0, 0.3, math.Pi / 2, math.Pi, 4.2, 2 * math.Pi} {
		state, err := Prepare([]float64{theta})
		require.NoError(t, err)

		probs := Probabilities(state)
		assert.InDelta(t, ProbZero(theta), probs[0], 1e-12, "theta=%g", theta)
		assert.InDelta(t, 1-ProbZero(theta), probs[1], 1e-12, "theta=%g", theta)
	}
}

func TestPrepare_BellLikeEntanglement(t *testing.T) {
	// RY(pi/2) puts qubit 0 in an equal superposition, the CNOT copies it
	// onto qubit 1: only |00> and |11> survive.
	state, err := Prepare([]float64{math.Pi / 2, 0})
	require.NoError(t, err)

	probs := Probabilities(state)
	assert.InDelta(t, 0.5, probs[0b00], 1e-12)
	assert.InDelta(t, 0.5, probs[0b11], 1e-12)
	assert.InDelta(t, 0.0, probs[0b01], 1e-12)
	assert.InDelta(t, 0.0, probs[0b10], 1e-12)
}

func TestWrapAngle(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{0, 0},
		{math.Pi, math.Pi},
		{2 * math.Pi, 0},
		{-math.Pi / 2, 3 * math.Pi / 2},
		{5 * math.Pi, math.Pi},
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.want, WrapAngle(tc.in), 1e-12, "in=%g", tc.in)
	}

	wrapped := WrapAngles([]float64{-1, 7})
	assert.InDelta(t, 2*math.Pi-1, wrapped[0], 1e-12)
	assert.InDelta(t, 7-2*math.Pi, wrapped[1], 1e-12)
}
