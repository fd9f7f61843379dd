package Channel2D

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/denMaier/solids4foam-sub000/geometry"
	"github.com/denMaier/solids4foam-sub000/types"
)

/*
Membrane is the upper channel wall: a tensioned membrane on an elastic
foundation, pinned at both ends, loaded by the pressure on its lower side

	-T w'' + k w = q,  w(0) = w(L) = 0

discretised with central differences at the face centres of its interface
patch. The system is symmetric positive definite and is factored once.
*/
type Membrane struct {
	Tension, Foundation float64
	Length              float64

	n          int
	patch      *geometry.Patch
	chol       mat.Cholesky
	deflection *mat.VecDense
	Solves     int
}

func NewMembrane(p Parameters) (m *Membrane, err error) {
	if err = p.validate(); err != nil {
		return
	}
	m = &Membrane{
		Tension:    p.Tension,
		Foundation: p.Foundation,
		Length:     p.Length,
		n:          p.SolidCells,
		deflection: mat.NewVecDense(p.SolidCells, nil),
	}
	if m.patch, err = geometry.NewPlanarGridPatch("membraneBottom",
		types.Vec3{0, p.Height, 0}, types.Vec3{p.Length, 0, 0}, types.Vec3{0, 0, p.Depth},
		m.n, 1); err != nil {
		return nil, err
	}
	var (
		h    = m.Length / float64(m.n)
		tOh2 = m.Tension / (h * h)
		A    = mat.NewSymDense(m.n, nil)
	)
	for i := 0; i < m.n; i++ {
		diag := 2*tOh2 + m.Foundation
		// The pinned ends sit half a cell from the end centres
		if i == 0 || i == m.n-1 {
			diag += tOh2
		}
		A.SetSym(i, i, diag)
		if i > 0 {
			A.SetSym(i, i-1, -tOh2)
		}
	}
	if ok := m.chol.Factorize(A); !ok {
		return nil, fmt.Errorf("membrane stiffness is not positive definite, tension %g foundation %g",
			m.Tension, m.Foundation)
	}
	return
}

func (m *Membrane) InterfacePatch() *geometry.Patch { return m.patch }

// Deflection is the wall displacement in y from the last solve, per face
func (m *Membrane) Deflection() (w []float64) {
	w = make([]float64, m.n)
	for i := range w {
		w[i] = m.deflection.AtVec(i)
	}
	return
}

func (m *Membrane) Solve(traction []types.Vec3) (displacement []types.Vec3, converged bool, err error) {
	if len(traction) != m.n {
		err = fmt.Errorf("membrane has %d faces, given %d tractions", m.n, len(traction))
		return
	}
	m.Solves++
	q := mat.NewVecDense(m.n, nil)
	for i, t := range traction {
		q.SetVec(i, t[1])
	}
	if err = m.chol.SolveVecTo(m.deflection, q); err != nil {
		return
	}
	displacement = make([]types.Vec3, m.n)
	for i := range displacement {
		displacement[i] = types.Vec3{0, m.deflection.AtVec(i), 0}
	}
	converged = true
	return
}
