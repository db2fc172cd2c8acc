package lab

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Trial is one logged experiment: the parameters that were evaluated, the
// sampling budget, and the measured energy. Trials are immutable once
// appended and owned exclusively by the ledger they were appended to.
type Trial struct {
	Step   int       `json:"step"`
	Thetas []float64 `json:"thetas"`
	Shots  int       `json:"shots"`
	Noise  float64   `json:"noise"`
	Energy float64   `json:"energy"`
	Note   string    `json:"note,omitempty"`
	Time   time.Time `json:"time"`
}

// Ledger is an append-only, time-ordered record of trials: the lab
// notebook for one run. It never evicts; retention is process-lifetime
// (or the trace file, see internal/store). A ledger belongs to a single
// run and must not be shared across concurrent runs.
type Ledger struct {
	trials []Trial
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Append records a trial. It never rejects; validating the evaluation is
// the evaluator's job, and failed evaluations are never appended at all.
func (l *Ledger) Append(t Trial) {
	l.trials = append(l.trials, t)
}

// Len returns the number of recorded trials.
func (l *Ledger) Len() int {
	return len(l.trials)
}

// Best returns the trial with the lowest measured energy, ties resolved
// by first occurrence. Under shot noise a later iterate can look worse
// than an earlier lucky one, so Best, not Last, is the canonical result
// of a run. The second return is false when the ledger is empty.
func (l *Ledger) Best() (Trial, bool) {
	if len(l.trials) == 0 {
		return Trial{}, false
	}
	best := l.trials[0]
	for _, t := range l.trials[1:] {
		if t.Energy < best.Energy {
			best = t
		}
	}
	return best, true
}

// Last returns the most recently appended trial.
func (l *Ledger) Last() (Trial, bool) {
	if len(l.trials) == 0 {
		return Trial{}, false
	}
	return l.trials[len(l.trials)-1], true
}

// DiffLastTwo describes the change between the two most recent trials:
// the signed delta in the first parameter and in measured energy.
func (l *Ledger) DiffLastTwo() string {
	if len(l.trials) < 2 {
		return "No previous diff (need at least 2 trials)."
	}
	a := l.trials[len(l.trials)-2]
	b := l.trials[len(l.trials)-1]
	return fmt.Sprintf("Δtheta=%+.4f, ΔE=%+.4f", b.Thetas[0]-a.Thetas[0], b.Energy-a.Energy)
}

// Trials returns a copy of the full history in insertion order.
func (l *Ledger) Trials() []Trial {
	out := make([]Trial, len(l.trials))
	copy(out, l.trials)
	return out
}

// Tail returns up to n most recent trials in insertion order.
func (l *Ledger) Tail(n int) []Trial {
	if n <= 0 || len(l.trials) == 0 {
		return nil
	}
	if n > len(l.trials) {
		n = len(l.trials)
	}
	out := make([]Trial, n)
	copy(out, l.trials[len(l.trials)-n:])
	return out
}

// Summary aggregates the energy history of a ledger.
type Summary struct {
	Count      int     `json:"count"`
	MeanEnergy float64 `json:"meanEnergy"`
	StdDev     float64 `json:"stdDev"`
	BestEnergy float64 `json:"bestEnergy"`
	LastEnergy float64 `json:"lastEnergy"`
}

// Summarize computes energy statistics over the full history.
func (l *Ledger) Summarize() Summary {
	if len(l.trials) == 0 {
		return Summary{}
	}

	energies := make([]float64, len(l.trials))
	for i, t := range l.trials {
		energies[i] = t.Energy
	}

	best, _ := l.Best()
	last, _ := l.Last()

	s := Summary{
		Count:      len(l.trials),
		MeanEnergy: stat.Mean(energies, nil),
		BestEnergy: best.Energy,
		LastEnergy: last.Energy,
	}
	if len(energies) > 1 {
		s.StdDev = stat.StdDev(energies, nil)
	}
	return s
}
