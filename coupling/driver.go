package coupling

import (
	"fmt"
	"io"

	"github.com/denMaier/solids4foam-sub000/exchange"
	"github.com/denMaier/solids4foam-sub000/geometry"
	"github.com/denMaier/solids4foam-sub000/types"
)

// FluidSolver applies an interface displacement and returns the traction the
// fluid exerts on the interface, per face of its interface patch
type FluidSolver interface {
	InterfacePatch() *geometry.Patch
	Solve(displacement []types.Vec3) (traction []types.Vec3, converged bool, err error)
}

// SolidSolver applies an interface traction and returns the interface
// displacement from the reference configuration, per face of its interface patch
type SolidSolver interface {
	InterfacePatch() *geometry.Patch
	Solve(traction []types.Vec3) (displacement []types.Vec3, converged bool, err error)
}

// MotionSolver deforms the fluid mesh to follow interface point displacements
type MotionSolver interface {
	Update(interfacePointDisplacement []types.Vec3) error
}

const FSILoop = "FSI outer loop"

type Options struct {
	Acceleration AccelerationOptions
	Criteria     Criteria
	Predictor    Predictor
	Exchange     exchange.Options
	// MoveInterface moves the fluid interface patch with the displacement, so
	// the exchange works on the deformed fluid geometry
	MoveInterface bool
	// Out receives per iteration diagnostics, nil for silence
	Out io.Writer
}

func DefaultOptions() Options {
	return Options{
		Acceleration:  DefaultAccelerationOptions(),
		Criteria:      DefaultCriteria(),
		Exchange:      exchange.DefaultOptions(),
		MoveInterface: true,
	}
}

/*
Driver couples a fluid and a solid solver through their interface patches by
Gauss-Seidel iteration on the interface displacement, one time step per call
to Step. The fluid patch is the master side of the exchange.
*/
type Driver struct {
	Fluid        FluidSolver
	Solid        SolidSolver
	Motion       MotionSolver
	Exchange     *exchange.Exchange
	Accelerator  Accelerator
	Displacement *types.VectorField // fluid interface faces

	opts      Options
	reference []types.Vec3
	timeStep  int
	stage     Stage
	stages    []Stage
	warnings  int
}

type StepResult struct {
	LoopResult
	TimeStep       int
	Stage          Stage
	Stages         []Stage
	SolverWarnings int
}

func NewDriver(fluid FluidSolver, solid SolidSolver, motion MotionSolver, opts Options) (d *Driver, err error) {
	if fluid == nil || solid == nil {
		err = fmt.Errorf("coupling needs both a fluid and a solid solver")
		return
	}
	if err = opts.Criteria.validate(); err != nil {
		return
	}
	d = &Driver{
		Fluid:  fluid,
		Solid:  solid,
		Motion: motion,
		opts:   opts,
	}
	if d.Accelerator, err = NewAccelerator(opts.Acceleration); err != nil {
		return nil, err
	}
	fp, sp := fluid.InterfacePatch(), solid.InterfacePatch()
	if d.Exchange, err = exchange.New(fp, sp, opts.Exchange); err != nil {
		return nil, err
	}
	d.reference = fp.Points()
	d.Displacement = types.NewVectorField(fp.NFaces())
	return
}

func (d *Driver) Stage() Stage     { return d.stage }
func (d *Driver) TimeStep() int    { return d.timeStep }
func (d *Driver) Options() Options { return d.opts }

func (d *Driver) setStage(s Stage) {
	d.stage = s
	d.stages = append(d.stages, s)
}

// Step advances the coupled solution by one time step. A solver failure is
// returned as a SolveError; running out of iterations is a ConvergenceError
// unless the divergence policy accepts the last iterate.
func (d *Driver) Step() (res *StepResult, err error) {
	d.timeStep++
	d.stages, d.warnings = nil, 0
	d.setStage(Init)
	if out := d.opts.Out; out != nil {
		fmt.Fprintf(out, "Time step %d\n", d.timeStep)
	}
	x0 := types.Flatten(d.opts.Predictor.Predict(d.Displacement))
	x, loop, err := Iterate(FSILoop, x0, d.evaluate, &stageAccelerator{d.Accelerator, d}, d.opts.Criteria, d.opts.Out)
	res = &StepResult{LoopResult: loop, TimeStep: d.timeStep}
	defer func() {
		res.Stage, res.Stages, res.SolverWarnings = d.stage, append([]Stage(nil), d.stages...), d.warnings
	}()
	if err != nil {
		if _, failed := err.(*SolveError); !failed {
			d.setStage(Diverged)
		}
		return
	}
	accepted := types.Unflatten(x)
	d.setStage(MeshUpdate)
	if err = d.moveInterface(accepted); err != nil {
		err = &SolveError{Stage: MeshUpdate, Err: err}
		return
	}
	d.Displacement.Set(accepted)
	d.Displacement.StoreOldTime()
	if loop.Converged {
		d.setStage(Converged)
	} else {
		d.setStage(Diverged)
	}
	return
}

// evaluate is one pass through the solvers for an interface displacement
func (d *Driver) evaluate(x []float64) (xt []float64, err error) {
	var (
		disp = types.Unflatten(x)
		ok   bool
	)
	d.setStage(FluidSolve)
	if err = d.moveInterface(disp); err != nil {
		return nil, &SolveError{Stage: FluidSolve, Err: err}
	}
	traction, ok, err := d.Fluid.Solve(types.CopyVec3(disp))
	if err != nil {
		return nil, &SolveError{Stage: FluidSolve, Err: err}
	}
	if i := firstNaN(traction); i >= 0 {
		return nil, &SolveError{Stage: FluidSolve, Err: fmt.Errorf("fluid traction on face %d is not a number", i)}
	}
	d.checkSolver(ok, "fluid")
	d.setStage(ExtractTraction)
	solidTraction, err := d.Exchange.MasterToSlave(traction, exchange.Conservative)
	if err != nil {
		return nil, &SolveError{Stage: ExtractTraction, Err: err}
	}
	d.setStage(SolidSolve)
	solidDisp, ok, err := d.Solid.Solve(solidTraction)
	if err != nil {
		return nil, &SolveError{Stage: SolidSolve, Err: err}
	}
	if i := firstNaN(solidDisp); i >= 0 {
		return nil, &SolveError{Stage: SolidSolve, Err: fmt.Errorf("solid displacement on face %d is not a number", i)}
	}
	d.checkSolver(ok, "solid")
	d.setStage(ExtractDisplacement)
	fluidDisp, err := d.Exchange.SlaveToMaster(solidDisp, exchange.Consistent)
	if err != nil {
		return nil, &SolveError{Stage: ExtractDisplacement, Err: err}
	}
	d.setStage(CheckConvergence)
	return types.Flatten(fluidDisp), nil
}

func firstNaN(v []types.Vec3) int {
	for i, x := range v {
		if x.IsNan() {
			return i
		}
	}
	return -1
}

func (d *Driver) checkSolver(converged bool, which string) {
	if converged {
		return
	}
	d.warnings++
	if d.opts.Out != nil {
		fmt.Fprintf(d.opts.Out, "warning: %s solver did not converge in time step %d\n", which, d.timeStep)
	}
}

func (d *Driver) moveInterface(faceDisp []types.Vec3) (err error) {
	if !d.opts.MoveInterface && d.Motion == nil {
		return
	}
	fp := d.Fluid.InterfacePatch()
	pointDisp, err := fp.FaceToPoint(faceDisp)
	if err != nil {
		return
	}
	if d.opts.MoveInterface {
		pts := make([]types.Vec3, len(pointDisp))
		for i := range pts {
			pts[i] = d.reference[i].Add(pointDisp[i])
		}
		if err = fp.MovePoints(pts); err != nil {
			return
		}
	}
	if d.Motion != nil {
		err = d.Motion.Update(pointDisp)
	}
	return
}

// stageAccelerator marks the Accelerate stage before each update
type stageAccelerator struct {
	Accelerator
	d *Driver
}

func (sa *stageAccelerator) Update(s *IterationState) []float64 {
	sa.d.setStage(Accelerate)
	return sa.Accelerator.Update(s)
}

func (r *StepResult) Print(w io.Writer) {
	fmt.Fprintf(w, "Time step %d: %s after %d iterations, residual = %10.4e\n",
		r.TimeStep, r.Stage, r.Iterations, r.Residual)
}
