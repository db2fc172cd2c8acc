package sim

import (
	"fmt"
	"math"
	"math/cmplx"
)

// MaxQubits is the largest register size the CLI and server accept.
// Prepare itself works for any N, but memory grows as 2^N, so user-facing
// surfaces cap it.
const MaxQubits = 4

// Prepare builds the statevector for the ansatz RY(theta_i) on every qubit
// followed by a chain of CNOTs (qubit i controls qubit i+1).
//
// The returned amplitude vector has length 2^N for N = len(thetas), with
// basis index bit i corresponding to qubit i. The state is rebuilt from
// scratch on every call; nothing is carried between evaluations.
func Prepare(thetas []float64) ([]complex128, error) {
	n := len(thetas)
	if n < 1 {
		return nil, fmt.Errorf("at least one qubit required: %w", ErrInvalidArgument)
	}

	state := make([]complex128, 1<<n)
	state[0] = 1

	for q, theta := range thetas {
		applyRY(state, theta, q)
	}
	for q := 0; q < n-1; q++ {
		applyCNOT(state, q, q+1)
	}

	return state, nil
}

// applyRY applies the real rotation
//
//	[[cos(t/2), -sin(t/2)],
//	 [sin(t/2),  cos(t/2)]]
//
// to the two-dimensional subspace of the given qubit. Every basis index
// with the qubit's bit clear is paired with the index that has it set.
func applyRY(state []complex128, theta float64, qubit int) {
	c := complex(math.Cos(theta/2), 0)
	s := complex(math.Sin(theta/2), 0)
	bit := 1 << qubit

	for i := range state {
		if i&bit != 0 {
			continue
		}
		j := i | bit
		a0, a1 := state[i], state[j]
		state[i] = c*a0 - s*a1
		state[j] = s*a0 + c*a1
	}
}

// applyCNOT swaps the amplitude pairs where the control bit is set,
// flipping the target bit.
func applyCNOT(state []complex128, control, target int) {
	cbit := 1 << control
	tbit := 1 << target

	for i := range state {
		if i&cbit == 0 || i&tbit != 0 {
			continue
		}
		j := i | tbit
		state[i], state[j] = state[j], state[i]
	}
}

// Probabilities returns the squared magnitude of every amplitude. For any
// normalized state the result is non-negative and sums to 1 up to floating
// tolerance.
func Probabilities(state []complex128) []float64 {
	probs := make([]float64, len(state))
	for i, a := range state {
		m := cmplx.Abs(a)
		probs[i] = m * m
	}
	return probs
}

// ProbZero is the closed form for the single-qubit case: for RY(theta)|0>
// the probability of measuring |0> is cos^2(theta/2). It agrees with
// Probabilities(Prepare([theta]))[0] to floating precision and exists so
// callers and tests can cross-check the statevector path.
func ProbZero(theta float64) float64 {
	c := math.Cos(theta / 2)
	return c * c
}

// WrapAngle maps theta into [0, 2*pi).
func WrapAngle(theta float64) float64 {
	t := math.Mod(theta, 2*math.Pi)
	if t < 0 {
		t += 2 * math.Pi
	}
	return t
}

// WrapAngles returns a new slice with every angle wrapped into [0, 2*pi).
func WrapAngles(thetas []float64) []float64 {
	wrapped := make([]float64, len(thetas))
	for i, t := range thetas {
		wrapped[i] = WrapAngle(t)
	}
	return wrapped
}
