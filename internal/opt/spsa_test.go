package opt

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/quantumlab/internal/lab"
	"github.com/cwbudde/quantumlab/internal/sim"
)

func TestSPSA_FindsLowEnergySingleQubit(t *testing.T) {
	l := lab.New(7)
	s := NewSPSA(35, 0.6, 0.2)

	best, err := s.Run(l, 1, 400, 0.05)
	require.NoError(t, err)

	assert.Less(t, best.Energy, -0.6, "SPSA should steer theta towards pi")
	assert.Equal(t, 35, l.Ledger().Len(), "one logged trial per iteration")
}

func TestSPSA_MultiQubit(t *testing.T) {
	l := lab.New(7)
	s := NewSPSA(25, 0.6, 0.2)

	best, err := s.Run(l, 3, 300, 0.02)
	require.NoError(t, err)

	require.Len(t, best.Thetas, 3)
	for _, theta := range best.Thetas {
		assert.GreaterOrEqual(t, theta, 0.0)
		assert.Less(t, theta, 2*math.Pi)
	}

	// Energy cannot leave the spectrum of the 3-qubit Ising functional.
	assert.GreaterOrEqual(t, best.Energy, -1.5)
	assert.LessOrEqual(t, best.Energy, 4.5)
	assert.Equal(t, 25, l.Ledger().Len())
}

func TestSPSA_Deterministic(t *testing.T) {
	run := func() []lab.Trial {
		l := lab.New(999)
		s := NewSPSA(20, 0.6, 0.2)
		_, err := s.Run(l, 2, 300, 0.02)
		require.NoError(t, err)
		return l.Ledger().Trials()
	}

	a := run()
	b := run()

	require.Equal(t, len(a), len(b))
	for i := range a {
		// Exact equality, not tolerance: same seed means the same stream.
		assert.Equal(t, a[i].Thetas, b[i].Thetas, "step %d", i)
		assert.Equal(t, a[i].Energy, b[i].Energy, "step %d", i)
	}
}

func TestSPSA_Validation(t *testing.T) {
	cases := []struct {
		name   string
		spsa   *SPSA
		qubits int
		shots  int
		noise  float64
	}{
		{"zero steps", NewSPSA(0, 0.6, 0.2), 1, 100, 0},
		{"negative steps", NewSPSA(-1, 0.6, 0.2), 1, 100, 0},
		{"zero a", NewSPSA(10, 0, 0.2), 1, 100, 0},
		{"zero c", NewSPSA(10, 0.6, 0), 1, 100, 0},
		{"zero shots", NewSPSA(10, 0.6, 0.2), 1, 0, 0},
		{"noise out of range", NewSPSA(10, 0.6, 0.2), 1, 100, 1.5},
		{"zero qubits", NewSPSA(10, 0.6, 0.2), 0, 100, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := lab.New(1)
			_, err := tc.spsa.Run(l, tc.qubits, tc.shots, tc.noise)
			require.ErrorIs(t, err, sim.ErrInvalidArgument)
			assert.Equal(t, 0, l.Ledger().Len(), "rejected run must not log trials")
		})
	}
}

func TestSPSA_SeededStart(t *testing.T) {
	l := lab.New(1)
	s := NewSPSA(5, 0.6, 0.2)
	s.InitialThetas = []float64{math.Pi, math.Pi}

	_, err := s.Run(l, 2, 200, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, l.Ledger().Len())

	s.InitialThetas = []float64{math.Pi}
	_, err = s.Run(lab.New(1), 2, 200, 0)
	require.ErrorIs(t, err, sim.ErrInvalidArgument, "dimension mismatch")
}
