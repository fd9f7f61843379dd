package coupling

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/denMaier/solids4foam-sub000/utils"
)

/*
IQNILS is the interface quasi-Newton method with a least squares model of the
inverse Jacobian. Columns of V hold residual differences and columns of W the
matching differences of the computed iterates, newest first. The next iterate is

	x_{k+1} = G(x_k) + W c,   c = argmin |V c + r_k|

solved through a QR factorisation of V. Columns that are nearly dependent on
newer ones are filtered out before solving. The columns of up to ReuseSteps
previous loops are appended after the current ones. Without usable columns the
update falls back to Aitken relaxation.
*/
type IQNILS struct {
	ReuseSteps      int
	FilterTolerance float64
	fallback        *Aitken

	// current loop
	v, w [][]float64
	// previous loops, most recent first
	reused [][2][][]float64

	omega    float64
	lastCols int
}

func NewIQNILS(opts AccelerationOptions) *IQNILS {
	return &IQNILS{
		ReuseSteps:      opts.ReuseSteps,
		FilterTolerance: opts.FilterTolerance,
		fallback:        NewAitken(opts.InitialRelaxation, opts.MinRelaxation, opts.MaxRelaxation),
		omega:           opts.InitialRelaxation,
	}
}

func (iq *IQNILS) Name() string    { return IQNILSType.String() }
func (iq *IQNILS) Factor() float64 { return iq.omega }

// Columns is the number of history columns used by the last update
func (iq *IQNILS) Columns() int { return iq.lastCols }

func (iq *IQNILS) NewTimeStep() {
	iq.fallback.NewTimeStep()
	if iq.ReuseSteps > 0 && len(iq.v) > 0 {
		iq.reused = append([][2][][]float64{{iq.v, iq.w}}, iq.reused...)
		if len(iq.reused) > iq.ReuseSteps {
			iq.reused = iq.reused[:iq.ReuseSteps]
		}
	}
	iq.v, iq.w = nil, nil
}

func (iq *IQNILS) Update(s *IterationState) []float64 {
	n := s.Len()
	if s.HasPrevious() {
		dv, dw := make([]float64, n), make([]float64, n)
		floats.SubTo(dv, s.Residual, s.PrevResidual)
		floats.SubTo(dw, s.Computed, s.PrevComputed)
		iq.v = append([][]float64{dv}, iq.v...)
		iq.w = append([][]float64{dw}, iq.w...)
	}
	V, W := iq.columns(n)
	if len(V) > 0 {
		if c, ok := iq.solve(V, s.Residual); ok {
			xn := append([]float64(nil), s.Computed...)
			for j := range c {
				floats.AddScaled(xn, c[j], W[j])
			}
			iq.lastCols = len(c)
			iq.omega = 1
			s.Omega = 1
			return xn
		}
	}
	iq.lastCols = 0
	xn := iq.fallback.Update(s)
	iq.omega = iq.fallback.Factor()
	return xn
}

// columns gathers current and reused history with matching length, newest
// first, and never more columns than unknowns
func (iq *IQNILS) columns(n int) (V, W [][]float64) {
	add := func(v, w [][]float64) {
		for j := range v {
			if len(v[j]) == n && len(V) < n {
				V = append(V, v[j])
				W = append(W, w[j])
			}
		}
	}
	add(iq.v, iq.w)
	for _, h := range iq.reused {
		add(h[0], h[1])
	}
	return
}

// solve filters V until its QR factor is well conditioned and returns the
// least squares coefficients
func (iq *IQNILS) solve(V [][]float64, r []float64) (c []float64, ok bool) {
	n := len(r)
	keep := make([]int, len(V))
	for j := range keep {
		keep[j] = j
	}
	for len(keep) > 0 {
		var (
			m  = len(keep)
			A  = mat.NewDense(n, m, nil)
			qr mat.QR
			R  mat.Dense
		)
		for jj, j := range keep {
			A.SetCol(jj, V[j])
		}
		qr.Factorize(A)
		qr.RTo(&R)
		drop := -1
		for jj, j := range keep {
			norm := floats.Norm(V[j], 2)
			if norm < utils.VSMALL || math.Abs(R.At(jj, jj)) < iq.FilterTolerance*norm {
				drop = jj
				break
			}
		}
		if drop >= 0 {
			keep = append(keep[:drop], keep[drop+1:]...)
			continue
		}
		var (
			cv  = mat.NewVecDense(m, nil)
			rhs = mat.NewVecDense(n, nil)
		)
		for i := range r {
			rhs.SetVec(i, -r[i])
		}
		if err := qr.SolveVecTo(cv, false, rhs); err != nil {
			return nil, false
		}
		c = make([]float64, len(V))
		for jj, j := range keep {
			c[j] = cv.AtVec(jj)
		}
		if utils.IsNan(c) {
			return nil, false
		}
		return c, true
	}
	return nil, false
}

// History returns the reused columns for checkpointing
func (iq *IQNILS) History() (h []HistoryStep) {
	for _, step := range iq.reused {
		h = append(h, HistoryStep{V: step[0], W: step[1]})
	}
	return
}

func (iq *IQNILS) SetHistory(h []HistoryStep) {
	iq.reused = nil
	for _, step := range h {
		iq.reused = append(iq.reused, [2][][]float64{step.V, step.W})
	}
}

// HistoryStep is the quasi-Newton history of one completed loop
type HistoryStep struct {
	V [][]float64 `json:"v"`
	W [][]float64 `json:"w"`
}
