package coupling

import (
	"fmt"
	"io"
	"strings"

	"github.com/denMaier/solids4foam-sub000/utils"
)

type ResidualType uint8

const (
	// RelativeResidual is |G(x) - x| / |G(x)|, or the absolute norm when G(x) vanishes
	RelativeResidual ResidualType = iota
	AbsoluteResidual
)

var ResidualNames = map[string]ResidualType{
	"relative": RelativeResidual,
	"absolute": AbsoluteResidual,
}

func (rt ResidualType) String() string { return []string{"relative", "absolute"}[rt] }

func NewResidualType(label string) (rt ResidualType, err error) {
	var ok bool
	if rt, ok = ResidualNames[strings.ToLower(strings.TrimSpace(label))]; !ok {
		err = fmt.Errorf("unable to use residual type named %s", label)
	}
	return
}

// DivergencePolicy says what to do when a loop reaches its iteration cap
type DivergencePolicy uint8

const (
	// Abort returns a ConvergenceError
	Abort DivergencePolicy = iota
	// Accept continues with the last computed iterate
	Accept
)

var DivergenceNames = map[string]DivergencePolicy{
	"abort":  Abort,
	"accept": Accept,
}

func (dp DivergencePolicy) String() string { return []string{"abort", "accept"}[dp] }

func NewDivergencePolicy(label string) (dp DivergencePolicy, err error) {
	var ok bool
	if dp, ok = DivergenceNames[strings.ToLower(strings.TrimSpace(label))]; !ok {
		err = fmt.Errorf("unable to use divergence policy named %s", label)
	}
	return
}

type Criteria struct {
	Tolerance     float64
	MinIterations int
	MaxIterations int
	Residual      ResidualType
	OnDivergence  DivergencePolicy
}

func DefaultCriteria() Criteria {
	return Criteria{
		Tolerance:     1.e-6,
		MinIterations: 1,
		MaxIterations: 50,
	}
}

func (c Criteria) validate() error {
	if !utils.IsFinitePositive(c.Tolerance) {
		return fmt.Errorf("convergence tolerance must be positive, have %g", c.Tolerance)
	}
	if c.MaxIterations < 1 || c.MinIterations > c.MaxIterations {
		return fmt.Errorf("iteration bounds [%d, %d] are not valid", c.MinIterations, c.MaxIterations)
	}
	return nil
}

// Norm evaluates the residual of a state as configured
func (c Criteria) Norm(s *IterationState) float64 {
	rn := utils.Norm2(s.Residual)
	if c.Residual == AbsoluteResidual {
		return rn
	}
	if xn := utils.Norm2(s.Computed); xn > utils.SMALL {
		return rn / xn
	}
	return rn
}

// ConvergenceError reports a loop that hit its iteration cap
type ConvergenceError struct {
	Loop       string
	Iterations int
	Residual   float64
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("%s did not converge in %d iterations, last residual %10.4e",
		e.Loop, e.Iterations, e.Residual)
}

// SolveError wraps the failure of one of the coupled solvers
type SolveError struct {
	Stage Stage
	Err   error
}

func (e *SolveError) Error() string { return fmt.Sprintf("%s failed: %v", e.Stage, e.Err) }
func (e *SolveError) Unwrap() error { return e.Err }

type IterationRecord struct {
	Iteration int
	Residual  float64
	Omega     float64
}

type LoopResult struct {
	Loop       string
	Iterations int
	Residual   float64
	Converged  bool
	History    []IterationRecord
}

/*
Iterate drives x = G(x) to a fixed point. Each pass evaluates G on the current
iterate and checks the residual; the loop stops once at least MinIterations
evaluations are done and the residual is below tolerance, in which case the
last computed value G(x) is returned. Reaching MaxIterations ends the loop
as Diverged: under Abort a ConvergenceError is returned, under Accept the last
computed value is returned with Converged false. Errors from G end the loop
immediately.
*/
func Iterate(loop string, x0 []float64, G func(x []float64) ([]float64, error), acc Accelerator,
	crit Criteria, out io.Writer) (x []float64, res LoopResult, err error) {
	if err = crit.validate(); err != nil {
		return
	}
	var (
		s  = NewIterationState(x0, acc.Factor())
		xt []float64
	)
	defer acc.NewTimeStep()
	res.Loop = loop
	for {
		if xt, err = G(s.Applied); err != nil {
			return
		}
		s.SetComputed(xt)
		s.ResidualNorm = crit.Norm(s)
		res.Iterations, res.Residual = s.Iteration, s.ResidualNorm
		if s.Iteration >= crit.MinIterations && s.ResidualNorm < crit.Tolerance {
			res.Converged = true
			res.History = append(res.History, IterationRecord{s.Iteration, s.ResidualNorm, s.Omega})
			printIteration(out, loop, s, acc)
			x = s.Computed
			return
		}
		if s.Iteration >= crit.MaxIterations {
			res.History = append(res.History, IterationRecord{s.Iteration, s.ResidualNorm, s.Omega})
			printIteration(out, loop, s, acc)
			cerr := &ConvergenceError{Loop: loop, Iterations: s.Iteration, Residual: s.ResidualNorm}
			if out != nil {
				fmt.Fprintln(out, cerr.Error())
			}
			if crit.OnDivergence == Abort {
				err = cerr
				return
			}
			x = s.Computed
			return
		}
		s.SetApplied(acc.Update(s))
		res.History = append(res.History, IterationRecord{s.Iteration, s.ResidualNorm, s.Omega})
		printIteration(out, loop, s, acc)
	}
}

func printIteration(out io.Writer, loop string, s *IterationState, acc Accelerator) {
	if out == nil {
		return
	}
	fmt.Fprintf(out, "%s: iteration %4d, residual = %10.4e, %s factor = %8.5f\n",
		loop, s.Iteration, s.ResidualNorm, acc.Name(), s.Omega)
}
