package coupling

import (
	"fmt"
)

/*
IterationState is the working set of one fixed point loop: the iterate that was
handed to the solvers, what they computed from it, and the residual between
the two, with the previous iteration's values kept for the accelerators.
It is created at the start of a loop and written only by that loop.
*/
type IterationState struct {
	Applied      []float64 // x_k
	Computed     []float64 // G(x_k)
	Residual     []float64 // G(x_k) - x_k
	PrevApplied  []float64
	PrevComputed []float64
	PrevResidual []float64
	Omega        float64 // relaxation factor used for the last update
	Iteration    int     // number of evaluations of G so far
	ResidualNorm float64
}

func NewIterationState(x0 []float64, omega float64) *IterationState {
	return &IterationState{
		Applied: append([]float64(nil), x0...),
		Omega:   omega,
	}
}

func (s *IterationState) Len() int { return len(s.Applied) }

// SetComputed records G(x_k) and forms the residual
func (s *IterationState) SetComputed(xt []float64) {
	if len(xt) != len(s.Applied) {
		panic(fmt.Errorf("computed iterate has %d values, applied has %d", len(xt), len(s.Applied)))
	}
	s.PrevComputed, s.PrevResidual = s.Computed, s.Residual
	s.Computed = append([]float64(nil), xt...)
	s.Residual = make([]float64, len(xt))
	for i := range xt {
		s.Residual[i] = xt[i] - s.Applied[i]
	}
	s.Iteration++
}

// SetApplied installs the next iterate
func (s *IterationState) SetApplied(x []float64) {
	s.PrevApplied = s.Applied
	s.Applied = append([]float64(nil), x...)
}

// HasPrevious is true once two residuals are available
func (s *IterationState) HasPrevious() bool { return s.PrevResidual != nil }

// Stage of the partitioned coupling cycle within one time step
type Stage uint8

const (
	Init Stage = iota
	FluidSolve
	ExtractTraction
	SolidSolve
	ExtractDisplacement
	Accelerate
	CheckConvergence
	MeshUpdate
	Converged
	Diverged
)

var stageNames = []string{"Init", "FluidSolve", "ExtractTraction", "SolidSolve",
	"ExtractDisplacement", "Accelerate", "CheckConvergence", "MeshUpdate", "Converged", "Diverged"}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}
