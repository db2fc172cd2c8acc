package lab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trial(step int, theta, energy float64) Trial {
	return Trial{Step: step, Thetas: []float64{theta}, Shots: 100, Energy: energy}
}

func TestLedger_EmptyQueries(t *testing.T) {
	l := NewLedger()

	_, ok := l.Best()
	assert.False(t, ok)
	_, ok = l.Last()
	assert.False(t, ok)
	assert.Equal(t, 0, l.Len())
	assert.Equal(t, "No previous diff (need at least 2 trials).", l.DiffLastTwo())
	assert.Equal(t, Summary{}, l.Summarize())
}

func TestLedger_BestAndLast(t *testing.T) {
	l := NewLedger()
	l.Append(trial(0, 0.1, 0.5))
	l.Append(trial(1, 0.2, -0.8))
	l.Append(trial(2, 0.3, -0.2))

	best, ok := l.Best()
	require.True(t, ok)
	assert.Equal(t, 1, best.Step)
	assert.Equal(t, -0.8, best.Energy)

	last, ok := l.Last()
	require.True(t, ok)
	assert.Equal(t, 2, last.Step)
}

func TestLedger_BestTieKeepsFirst(t *testing.T) {
	l := NewLedger()
	l.Append(trial(0, 0.1, -0.8))
	l.Append(trial(1, 0.2, -0.8))

	best, ok := l.Best()
	require.True(t, ok)
	assert.Equal(t, 0, best.Step, "ties resolve to the earliest trial")
}

func TestLedger_DiffLastTwo(t *testing.T) {
	l := NewLedger()
	l.Append(trial(0, 1.0, 0.5))

	assert.Equal(t, "No previous diff (need at least 2 trials).", l.DiffLastTwo())

	l.Append(trial(1, 1.25, 0.25))
	assert.Equal(t, "Δtheta=+0.2500, ΔE=-0.2500", l.DiffLastTwo())
}

func TestLedger_TailAndTrialsCopy(t *testing.T) {
	l := NewLedger()
	for i := 0; i < 5; i++ {
		l.Append(trial(i, float64(i), float64(i)))
	}

	tail := l.Tail(2)
	require.Len(t, tail, 2)
	assert.Equal(t, 3, tail[0].Step)
	assert.Equal(t, 4, tail[1].Step)

	assert.Len(t, l.Tail(100), 5)
	assert.Nil(t, l.Tail(0))

	// Mutating the returned slice must not affect the ledger.
	all := l.Trials()
	all[0] = trial(99, 0, 0)
	first := l.Trials()[0]
	assert.Equal(t, 0, first.Step)
}

func TestLedger_Summarize(t *testing.T) {
	l := NewLedger()
	l.Append(trial(0, 0, 1.0))
	l.Append(trial(1, 0, -1.0))
	l.Append(trial(2, 0, 0.0))

	s := l.Summarize()
	assert.Equal(t, 3, s.Count)
	assert.InDelta(t, 0.0, s.MeanEnergy, 1e-12)
	assert.InDelta(t, 1.0, s.StdDev, 1e-12)
	assert.Equal(t, -1.0, s.BestEnergy)
	assert.Equal(t, 0.0, s.LastEnergy)
}
