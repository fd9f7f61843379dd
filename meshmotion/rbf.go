package meshmotion

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/denMaier/solids4foam-sub000/geometry"
	"github.com/denMaier/solids4foam-sub000/types"
	"github.com/denMaier/solids4foam-sub000/utils"
)

// MeshMover is implemented by a solver whose mesh can be deformed
type MeshMover interface {
	CurrentPoints() []types.Vec3
	MovePoints(points []types.Vec3) error
}

type Options struct {
	Kernel Kernel
	// Radius scales the kernel; zero uses the diagonal of the mesh bounding box
	Radius float64
	// Polynomial adds a linear polynomial so rigid translations are exact
	Polynomial bool
	// ParallelDegree is the number of goroutines evaluating the interpolant, 0 for NumCPU
	ParallelDegree int
}

func DefaultOptions() Options {
	return Options{
		Kernel:     Wendland,
		Polynomial: true,
	}
}

/*
RBFMotion moves every point of a mesh by interpolating the displacement of a
set of control points with radial basis functions. Moving control points take
a prescribed displacement, static control points stay where they are. The
interpolation is always built on the reference configuration captured at
construction or by Reset, so displacements are total, not incremental.
*/
type RBFMotion struct {
	Mesh   MeshMover
	opts   Options
	moving []int
	static []int

	reference []types.Vec3
	controls  []types.Vec3
	radius    float64
	polyAxes  []int // coordinate axes spanned by the control points

	generation   uint64
	luGeneration uint64
	lu           *mat.LU
	displacement []types.Vec3
}

func NewRBFMotion(mesh MeshMover, moving, static []int, opts Options) (m *RBFMotion, err error) {
	if mesh == nil {
		err = fmt.Errorf("mesh motion needs a mesh")
		return
	}
	if len(moving) == 0 {
		err = fmt.Errorf("mesh motion needs at least one moving control point")
		return
	}
	if opts.Kernel == ThinPlateSpline && !opts.Polynomial {
		err = fmt.Errorf("thin plate spline motion needs the linear polynomial")
		return
	}
	if opts.Radius < 0 || math.IsNaN(opts.Radius) {
		err = fmt.Errorf("mesh motion radius must not be negative, have %g", opts.Radius)
		return
	}
	var (
		nPoints = len(mesh.CurrentPoints())
		seen    = make(map[int]bool)
	)
	for _, list := range [][]int{moving, static} {
		for _, p := range list {
			if p < 0 || p >= nPoints {
				err = fmt.Errorf("control point %d is outside the mesh of %d points", p, nPoints)
				return
			}
			if seen[p] {
				err = fmt.Errorf("control point %d is listed twice", p)
				return
			}
			seen[p] = true
		}
	}
	m = &RBFMotion{
		Mesh:   mesh,
		opts:   opts,
		moving: append([]int(nil), moving...),
		static: append([]int(nil), static...),
	}
	m.Reset()
	return
}

// Reset captures the current mesh as the reference configuration
func (m *RBFMotion) Reset() {
	m.reference = m.Mesh.CurrentPoints()
	m.controls = m.controls[:0]
	for _, p := range m.moving {
		m.controls = append(m.controls, m.reference[p])
	}
	for _, p := range m.static {
		m.controls = append(m.controls, m.reference[p])
	}
	m.radius = m.opts.Radius
	if m.radius == 0 {
		bb := geometry.NewBoundingBox(m.reference)
		m.radius = bb.Span()
	}
	m.polyAxes = m.polyAxes[:0]
	if m.opts.Polynomial {
		bb := geometry.NewBoundingBox(m.controls)
		for ax := 0; ax < 3; ax++ {
			if bb.XMax[ax]-bb.XMin[ax] > utils.NODETOL*math.Max(1, m.radius) {
				m.polyAxes = append(m.polyAxes, ax)
			}
		}
	}
	m.displacement = make([]types.Vec3, len(m.reference))
	m.generation++
}

func (m *RBFMotion) NMoving() int { return len(m.moving) }

func (m *RBFMotion) Options() Options { return m.opts }

// Displacement is the point displacement from the reference of the last Update
func (m *RBFMotion) Displacement() []types.Vec3 { return types.CopyVec3(m.displacement) }

func (m *RBFMotion) nPoly() int {
	if !m.opts.Polynomial {
		return 0
	}
	return 1 + len(m.polyAxes)
}

func (m *RBFMotion) polyRow(x types.Vec3) (row []float64) {
	row = make([]float64, m.nPoly())
	if len(row) == 0 {
		return
	}
	row[0] = 1
	for i, ax := range m.polyAxes {
		row[i+1] = x[ax]
	}
	return
}

func (m *RBFMotion) factorize() (err error) {
	if m.lu != nil && m.luGeneration == m.generation {
		return
	}
	var (
		nc = len(m.controls)
		np = m.nPoly()
		N  = nc + np
		A  = mat.NewDense(N, N, nil)
	)
	for i := 0; i < nc; i++ {
		for j := 0; j < nc; j++ {
			A.Set(i, j, m.opts.Kernel.Eval(m.controls[i].Sub(m.controls[j]).Mag(), m.radius))
		}
		for k, v := range m.polyRow(m.controls[i]) {
			A.Set(i, nc+k, v)
			A.Set(nc+k, i, v)
		}
	}
	lu := &mat.LU{}
	lu.Factorize(A)
	if cond := lu.Cond(); math.IsInf(cond, 1) || cond > 1.e15 {
		return fmt.Errorf("radial basis system is singular (condition %g), control points may coincide", cond)
	}
	m.lu, m.luGeneration = lu, m.generation
	return
}

// Update moves the mesh so the moving control points are displaced by disp
// from the reference configuration
func (m *RBFMotion) Update(disp []types.Vec3) (err error) {
	if len(disp) != len(m.moving) {
		return fmt.Errorf("mesh motion has %d moving control points, given %d displacements",
			len(m.moving), len(disp))
	}
	if err = m.factorize(); err != nil {
		return
	}
	var (
		nc   = len(m.controls)
		N    = nc + m.nPoly()
		rhs  = mat.NewDense(N, 3, nil)
		coef mat.Dense
	)
	for i, d := range disp {
		rhs.SetRow(i, d[:])
	}
	if err = m.lu.SolveTo(&coef, false, rhs); err != nil {
		return fmt.Errorf("radial basis solve failed: %w", err)
	}
	utils.IsNanPanic(coef.RawMatrix().Data)
	pm := utils.NewDefaultPartitionMap(m.opts.ParallelDegree, len(m.reference))
	pm.ParallelFor(func(_, kMin, kMax int) {
		for p := kMin; p < kMax; p++ {
			var (
				x = m.reference[p]
				d types.Vec3
			)
			for j, c := range m.controls {
				phi := m.opts.Kernel.Eval(x.Sub(c).Mag(), m.radius)
				if phi == 0 {
					continue
				}
				for ax := 0; ax < 3; ax++ {
					d[ax] += coef.At(j, ax) * phi
				}
			}
			for k, v := range m.polyRow(x) {
				for ax := 0; ax < 3; ax++ {
					d[ax] += coef.At(nc+k, ax) * v
				}
			}
			m.displacement[p] = d
		}
	})
	// Control points take their values exactly
	for i, p := range m.moving {
		m.displacement[p] = disp[i]
	}
	for _, p := range m.static {
		m.displacement[p] = types.Vec3{}
	}
	points := make([]types.Vec3, len(m.reference))
	for p := range points {
		points[p] = m.reference[p].Add(m.displacement[p])
	}
	return m.Mesh.MovePoints(points)
}
