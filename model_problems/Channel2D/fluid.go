package Channel2D

import (
	"fmt"

	"github.com/denMaier/solids4foam-sub000/geometry"
	"github.com/denMaier/solids4foam-sub000/meshmotion"
	"github.com/denMaier/solids4foam-sub000/types"
)

/*
Fluid is viscous flow through a thin channel in the lubrication limit. The
channel spans 0 <= x <= Length, its lower wall is rigid at y = 0 and its upper
wall at y = Height is the coupling interface. The flow is two dimensional; the
mesh is one cell deep in z, from z = 0 to z = Depth.

With flow rate q per unit depth the pressure gradient is dp/dx = -12 mu q / H^3,
integrated from zero gauge pressure at the outlet. The flow rate ramps up
linearly over RampTime.
*/
type Fluid struct {
	Viscosity             float64
	Length, Height, Depth float64
	FlowRate, RampTime    float64

	nx, ny      int
	time        float64
	patch       *geometry.Patch
	mesh        *FluidMesh
	motion      *meshmotion.RBFMotion
	patchToMesh []int
	// PressureField is the interface gauge pressure, old levels at converged steps
	PressureField *types.ScalarField
	Solves        int
}

// FluidMesh holds the mesh points, two layers of (nx+1) x (ny+1) points
type FluidMesh struct {
	nx, ny int
	points []types.Vec3
}

func (fm *FluidMesh) index(i, j, layer int) int {
	return i + j*(fm.nx+1) + layer*(fm.nx+1)*(fm.ny+1)
}

func (fm *FluidMesh) CurrentPoints() []types.Vec3 { return types.CopyVec3(fm.points) }

func (fm *FluidMesh) MovePoints(points []types.Vec3) error {
	if len(points) != len(fm.points) {
		return fmt.Errorf("fluid mesh has %d points, given %d", len(fm.points), len(points))
	}
	copy(fm.points, points)
	return nil
}

// Point returns mesh point (i, j) on the z = 0 layer
func (fm *FluidMesh) Point(i, j int) types.Vec3 { return fm.points[fm.index(i, j, 0)] }

// CellAreas returns the signed xy area of every cell, x index fastest
func (fm *FluidMesh) CellAreas() (areas []float64) {
	areas = make([]float64, 0, fm.nx*fm.ny)
	for j := 0; j < fm.ny; j++ {
		for i := 0; i < fm.nx; i++ {
			var (
				quad = []types.Vec3{fm.Point(i, j), fm.Point(i+1, j), fm.Point(i+1, j+1), fm.Point(i, j+1)}
				P    = make([]geometry.Point2, len(quad))
			)
			for k, x := range quad {
				P[k] = geometry.Point2{x[0], x[1]}
			}
			areas = append(areas, geometry.SignedArea(P))
		}
	}
	return
}

func NewFluid(p Parameters) (f *Fluid, err error) {
	if err = p.validate(); err != nil {
		return
	}
	f = &Fluid{
		Viscosity:     p.Viscosity,
		Length:        p.Length,
		Height:        p.Height,
		Depth:         p.Depth,
		FlowRate:      p.FlowRate,
		RampTime:      p.RampTime,
		nx:            p.FluidCells,
		ny:            p.FluidLayers,
		PressureField: types.NewScalarField(p.FluidCells),
	}
	if f.patch, err = geometry.NewPlanarGridPatch("channelTop",
		types.Vec3{0, p.Height, p.Depth}, types.Vec3{p.Length, 0, 0}, types.Vec3{0, 0, -p.Depth},
		f.nx, 1); err != nil {
		return nil, err
	}
	f.mesh = &FluidMesh{nx: f.nx, ny: f.ny}
	for layer := 0; layer < 2; layer++ {
		for j := 0; j <= f.ny; j++ {
			for i := 0; i <= f.nx; i++ {
				f.mesh.points = append(f.mesh.points, types.Vec3{
					p.Length * float64(i) / float64(f.nx),
					p.Height * float64(j) / float64(f.ny),
					p.Depth * float64(layer),
				})
			}
		}
	}
	// Patch point rows run from z = Depth (b = 0) to z = 0 (b = 1)
	for b := 0; b < 2; b++ {
		for a := 0; a <= f.nx; a++ {
			f.patchToMesh = append(f.patchToMesh, f.mesh.index(a, f.ny, 1-b))
		}
	}
	var static []int
	for layer := 0; layer < 2; layer++ {
		for i := 0; i <= f.nx; i++ {
			static = append(static, f.mesh.index(i, 0, layer))
		}
		for j := 1; j < f.ny; j++ {
			static = append(static, f.mesh.index(0, j, layer), f.mesh.index(f.nx, j, layer))
		}
	}
	opts := meshmotion.DefaultOptions()
	opts.Kernel = p.Kernel
	opts.ParallelDegree = p.ParallelDegree
	if f.motion, err = meshmotion.NewRBFMotion(f.mesh, f.patchToMesh, static, opts); err != nil {
		return nil, err
	}
	return
}

func (f *Fluid) InterfacePatch() *geometry.Patch { return f.patch }
func (f *Fluid) Mesh() *FluidMesh                { return f.mesh }
func (f *Fluid) Motion() *meshmotion.RBFMotion   { return f.motion }
func (f *Fluid) SetTime(t float64)               { f.time = t }

// Pressure returns the gauge pressure on the interface faces from the last solve
func (f *Fluid) Pressure() []float64 { return append([]float64(nil), f.PressureField.Values...) }

func (f *Fluid) CurrentFlowRate() float64 {
	if f.RampTime <= 0 || f.time >= f.RampTime {
		return f.FlowRate
	}
	return f.FlowRate * f.time / f.RampTime
}

// Solve returns the traction of the fluid on the upper wall, given the wall
// displacement on each interface face
func (f *Fluid) Solve(displacement []types.Vec3) (traction []types.Vec3, converged bool, err error) {
	if len(displacement) != f.nx {
		err = fmt.Errorf("channel has %d interface faces, given %d displacements", f.nx, len(displacement))
		return
	}
	f.Solves++
	var (
		h    = f.Length / float64(f.nx)
		q    = f.CurrentFlowRate()
		dpdx = make([]float64, f.nx)
	)
	for i, d := range displacement {
		H := f.Height + d[1]
		if H <= 0 {
			err = fmt.Errorf("channel closed at face %d, gap = %g", i, H)
			return
		}
		dpdx[i] = 12 * f.Viscosity * q / (H * H * H)
	}
	var (
		downstream float64
		pressure   = f.PressureField.Values
	)
	for i := f.nx - 1; i >= 0; i-- {
		pressure[i] = downstream + 0.5*h*dpdx[i]
		downstream += h * dpdx[i]
	}
	traction = make([]types.Vec3, f.nx)
	for i, p := range pressure {
		traction[i] = types.Vec3{0, p, 0}
	}
	converged = true
	return
}

// Update moves the fluid mesh to follow the interface point displacement and
// rejects a mesh with inverted cells
func (f *Fluid) Update(interfacePointDisplacement []types.Vec3) (err error) {
	if err = f.motion.Update(interfacePointDisplacement); err != nil {
		return
	}
	for c, a := range f.mesh.CellAreas() {
		if a <= 0 {
			return fmt.Errorf("fluid mesh cell %d (%d, %d) is inverted, area = %g",
				c, c%f.nx, c/f.nx, a)
		}
	}
	return
}
