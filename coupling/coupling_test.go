package coupling

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denMaier/solids4foam-sub000/geometry"
	"github.com/denMaier/solids4foam-sub000/types"
)

// The fluid returns the applied displacement as traction and the solid
// answers A t + b, so one pass through both is the affine map x -> A x + b
type linearFluid struct {
	patch *geometry.Patch
	calls int
}

func (f *linearFluid) InterfacePatch() *geometry.Patch { return f.patch }
func (f *linearFluid) Solve(disp []types.Vec3) ([]types.Vec3, bool, error) {
	f.calls++
	return types.CopyVec3(disp), true, nil
}

type linearSolid struct {
	patch       *geometry.Patch
	A           [3][3]float64
	b           types.Vec3
	calls       int
	failAt      int
	unconverged bool
}

func (s *linearSolid) InterfacePatch() *geometry.Patch { return s.patch }
func (s *linearSolid) Solve(t []types.Vec3) (u []types.Vec3, converged bool, err error) {
	s.calls++
	if s.calls == s.failAt {
		err = errSingular
		return
	}
	u = make([]types.Vec3, len(t))
	for i, ti := range t {
		for r := 0; r < 3; r++ {
			u[i][r] = s.b[r]
			for c := 0; c < 3; c++ {
				u[i][r] += s.A[r][c] * ti[c]
			}
		}
	}
	return u, !s.unconverged, nil
}

var errSingular = errors.New("singular stiffness matrix")

func scalarA(k float64) [3][3]float64 {
	return [3][3]float64{{k, 0, 0}, {0, k, 0}, {0, 0, k}}
}

func newCoupled(t *testing.T, n int, A [3][3]float64, b types.Vec3, opts Options) (*Driver, *linearFluid, *linearSolid) {
	fp, err := geometry.NewPlanarGridPatch("fluid", types.Vec3{0, 0, 1}, types.Vec3{1, 0, 0}, types.Vec3{0, 0, -1}, n, n)
	require.NoError(t, err)
	sp, err := geometry.NewPlanarGridPatch("solid", types.Vec3{}, types.Vec3{1, 0, 0}, types.Vec3{0, 0, 1}, n, n)
	require.NoError(t, err)
	fluid := &linearFluid{patch: fp}
	solid := &linearSolid{patch: sp, A: A, b: b}
	d, err := NewDriver(fluid, solid, nil, opts)
	require.NoError(t, err)
	return d, fluid, solid
}

func testOptions(at AccelerationType, omega float64) Options {
	opts := DefaultOptions()
	opts.MoveInterface = false
	opts.Acceleration.Type = at
	opts.Acceleration.InitialRelaxation = omega
	opts.Criteria.Tolerance = 1.e-8
	opts.Criteria.MaxIterations = 100
	return opts
}

func TestAitkenBeatsFixedRelaxation(t *testing.T) {
	var (
		b    = types.Vec3{1, 0.5, -0.25}
		iter = make(map[AccelerationType]int)
	)
	for _, at := range []AccelerationType{FixedRelaxationType, AitkenType} {
		d, _, _ := newCoupled(t, 2, scalarA(-2), b, testOptions(at, 0.2))
		res, err := d.Step()
		require.NoError(t, err, at.String())
		assert.True(t, res.Converged)
		assert.Equal(t, Converged, res.Stage)
		iter[at] = res.Iterations
		// The fixed point is b / (1 - k)
		fixed := b.Scale(1. / 3.)
		for _, u := range d.Displacement.Values {
			assert.InDeltaSlice(t, fixed[:], u[:], 1.e-7)
		}
		if at == AitkenType {
			// Once the factor has settled the residual only falls
			for i := 2; i < len(res.History); i++ {
				assert.LessOrEqual(t, res.History[i].Residual, res.History[i-1].Residual)
			}
			assert.InDelta(t, 1./3., res.History[len(res.History)-1].Omega, 1.e-8)
		}
	}
	assert.LessOrEqual(t, iter[AitkenType], iter[FixedRelaxationType])
	assert.Less(t, iter[AitkenType], 5)
}

func TestIterationBounds(t *testing.T) {
	{ // The minimum is honoured even when the first residual is zero
		opts := testOptions(AitkenType, 0.5)
		opts.Criteria.MinIterations = 4
		d, fluid, solid := newCoupled(t, 1, scalarA(0.5), types.Vec3{}, opts)
		res, err := d.Step()
		require.NoError(t, err)
		assert.Equal(t, 4, fluid.calls)
		assert.Equal(t, 4, solid.calls)
		assert.Equal(t, 4, res.Iterations)
		assert.Equal(t, Converged, res.Stage)
	}
	{ // A diverging map stops exactly at the maximum
		opts := testOptions(FixedRelaxationType, 1)
		opts.Criteria.MaxIterations = 7
		d, fluid, _ := newCoupled(t, 1, scalarA(2), types.Vec3{1, 1, 1}, opts)
		res, err := d.Step()
		var cerr *ConvergenceError
		require.True(t, errors.As(err, &cerr))
		assert.Equal(t, FSILoop, cerr.Loop)
		assert.Equal(t, 7, cerr.Iterations)
		assert.Equal(t, res.Residual, cerr.Residual)
		assert.Equal(t, 7, fluid.calls)
		assert.Equal(t, Diverged, res.Stage)
		assert.False(t, res.Converged)
		assert.Contains(t, err.Error(), "FSI outer loop")
	}
	{ // Accepting divergence keeps the last iterate and moves on
		opts := testOptions(FixedRelaxationType, 1)
		opts.Criteria.MaxIterations = 3
		opts.Criteria.OnDivergence = Accept
		d, _, _ := newCoupled(t, 1, scalarA(2), types.Vec3{1, 1, 1}, opts)
		res, err := d.Step()
		require.NoError(t, err)
		assert.Equal(t, Diverged, res.Stage)
		assert.Equal(t, 3, res.Iterations)
		// x1 = 1, x2 = 3, G(x2) = 7
		assert.InDeltaSlice(t, []float64{7, 7, 7}, d.Displacement.Values[0][:], 1.e-12)
		assert.Equal(t, 1, d.Displacement.NOldTimes())
	}
}

func TestStageSequence(t *testing.T) {
	opts := testOptions(FixedRelaxationType, 1)
	d, _, _ := newCoupled(t, 1, scalarA(0), types.Vec3{1, 2, 3}, opts)
	res, err := d.Step()
	require.NoError(t, err)
	pass := []Stage{FluidSolve, ExtractTraction, SolidSolve, ExtractDisplacement, CheckConvergence}
	var expected []Stage
	expected = append(expected, Init)
	expected = append(expected, pass...)
	expected = append(expected, Accelerate)
	expected = append(expected, pass...)
	expected = append(expected, MeshUpdate, Converged)
	assert.Equal(t, expected, res.Stages)
	assert.Equal(t, 2, res.Iterations)
	assert.Equal(t, Converged, d.Stage())
}

func TestSolverFailure(t *testing.T) {
	d, _, solid := newCoupled(t, 1, scalarA(-1), types.Vec3{1, 0, 0}, testOptions(AitkenType, 0.5))
	solid.failAt = 2
	res, err := d.Step()
	var serr *SolveError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, SolidSolve, serr.Stage)
	assert.True(t, errors.Is(err, errSingular))
	assert.Equal(t, SolidSolve, res.Stage)
	assert.Equal(t, 1, res.Iterations)
	{ // A solver returning NaN fails the step
		d, _, _ := newCoupled(t, 1, scalarA(0), types.Vec3{math.NaN(), 0, 0}, testOptions(AitkenType, 0.5))
		_, err = d.Step()
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, SolidSolve, serr.Stage)
		assert.Contains(t, err.Error(), "not a number")
	}
}

func TestSolverWarnings(t *testing.T) {
	d, _, solid := newCoupled(t, 1, scalarA(0), types.Vec3{1, 0, 0}, testOptions(FixedRelaxationType, 1))
	solid.unconverged = true
	var out bytes.Buffer
	d.opts.Out = &out
	res, err := d.Step()
	require.NoError(t, err)
	assert.Equal(t, 2, res.SolverWarnings)
	assert.Contains(t, out.String(), "solid solver did not converge")
	assert.Contains(t, out.String(), "Time step 1")
}

func TestIQNILS(t *testing.T) {
	var (
		A = [3][3]float64{{-2, 0.5, 0.1}, {0.3, -1, 0.2}, {0, 0.4, 0.6}}
		b = types.Vec3{1, -0.7, 0.4}
	)
	{ // A linear map is solved once the history spans the unknowns
		d, _, _ := newCoupled(t, 1, A, b, testOptions(IQNILSType, 0.3))
		d.opts.Criteria.Tolerance = 1.e-10
		res, err := d.Step()
		require.NoError(t, err)
		assert.True(t, res.Converged)
		assert.LessOrEqual(t, res.Iterations, 6)
		iq := d.Accelerator.(*IQNILS)
		assert.LessOrEqual(t, iq.Columns(), 3)
		// Residual of the accepted value
		u := d.Displacement.Values[0]
		for r := 0; r < 3; r++ {
			g := b[r]
			for c := 0; c < 3; c++ {
				g += A[r][c] * u[c]
			}
			assert.InDelta(t, u[r], g, 1.e-8)
		}
	}
	{ // History reused from the previous step solves the next one at once
		opts := testOptions(IQNILSType, 0.3)
		opts.Criteria.Tolerance = 1.e-10
		opts.Acceleration.ReuseSteps = 1
		d, _, solid := newCoupled(t, 1, A, b, opts)
		first, err := d.Step()
		require.NoError(t, err)
		solid.b = types.Vec3{-0.5, 2, 1}
		second, err := d.Step()
		require.NoError(t, err)
		assert.True(t, second.Converged)
		assert.LessOrEqual(t, second.Iterations, 2)
		assert.Less(t, second.Iterations, first.Iterations)
		assert.Len(t, d.Accelerator.(*IQNILS).History(), 1)
	}
}

func TestAcceleratorFallbacks(t *testing.T) {
	{ // Aitken keeps its factor when consecutive residuals coincide
		ai := NewAitken(0.4, 0.01, 1)
		s := NewIterationState([]float64{0, 0}, 0.4)
		s.SetComputed([]float64{1, 1})
		ai.Update(s)
		s.SetApplied([]float64{0.4, 0.4})
		s.SetComputed([]float64{1.4, 1.4})
		ai.Update(s)
		assert.Equal(t, 0.4, ai.Factor())
	}
	{ // Aitken clips to its bounds
		ai := NewAitken(0.5, 0.1, 0.8)
		s := NewIterationState([]float64{0}, 0.5)
		s.SetComputed([]float64{1})
		ai.Update(s)
		// r goes 1 -> 0.99: the secant asks for a factor of 50
		s.SetApplied([]float64{0.5})
		s.SetComputed([]float64{1.49})
		ai.Update(s)
		assert.Equal(t, 0.8, ai.Factor())
	}
	{ // IQN-ILS without history relaxes like Aitken
		iq := NewIQNILS(DefaultAccelerationOptions())
		s := NewIterationState([]float64{0, 0}, 0.1)
		s.SetComputed([]float64{1, 2})
		x := iq.Update(s)
		assert.InDeltaSlice(t, []float64{0.1, 0.2}, x, 1.e-12)
		assert.Equal(t, 0, iq.Columns())
	}
	{ // Dependent history columns are filtered
		iq := NewIQNILS(DefaultAccelerationOptions())
		V := [][]float64{{1, 0, 0}, {2, 0, 0}, {0, 1, 0}}
		c, ok := iq.solve(V, []float64{-1, -1, 0})
		require.True(t, ok)
		assert.InDeltaSlice(t, []float64{1, 0, 1}, c, 1.e-12)
	}
}

func TestSelection(t *testing.T) {
	for label, at := range AccelerationNames {
		got, err := NewAccelerationType(label)
		require.NoError(t, err)
		assert.Equal(t, at, got)
	}
	_, err := NewAccelerationType("newton")
	assert.Error(t, err)
	opts := DefaultAccelerationOptions()
	opts.InitialRelaxation = 0
	_, err = NewAccelerator(opts)
	assert.Error(t, err)
	opts = DefaultAccelerationOptions()
	opts.Type = IQNILSType
	acc, err := NewAccelerator(opts)
	require.NoError(t, err)
	assert.Equal(t, "IQN-ILS", acc.Name())
	p, err := NewPredictor("extrapolate")
	require.NoError(t, err)
	assert.Equal(t, Extrapolate, p)
	dp, err := NewDivergencePolicy("accept")
	require.NoError(t, err)
	assert.Equal(t, Accept, dp)
	rt, err := NewResidualType("absolute")
	require.NoError(t, err)
	assert.Equal(t, AbsoluteResidual, rt)
	_, err = NewDriver(nil, nil, nil, DefaultOptions())
	assert.Error(t, err)
}

func TestPredictor(t *testing.T) {
	f := types.NewVectorField(1)
	assert.Equal(t, types.Vec3{}, Extrapolate.Predict(f)[0])
	f.Set([]types.Vec3{{1, 0, 0}})
	f.StoreOldTime()
	assert.Equal(t, types.Vec3{1, 0, 0}, Extrapolate.Predict(f)[0])
	f.Set([]types.Vec3{{3, 1, 0}})
	f.StoreOldTime()
	assert.Equal(t, types.Vec3{5, 2, 0}, Extrapolate.Predict(f)[0])
	assert.Equal(t, types.Vec3{3, 1, 0}, PreviousStep.Predict(f)[0])
}

func TestCheckpoint(t *testing.T) {
	opts := testOptions(IQNILSType, 0.3)
	opts.Acceleration.ReuseSteps = 2
	A := [3][3]float64{{-2, 0.5, 0.1}, {0.3, -1, 0.2}, {0, 0.4, 0.6}}
	d, _, _ := newCoupled(t, 1, A, types.Vec3{1, 1, 1}, opts)
	_, err := d.Step()
	require.NoError(t, err)
	_, err = d.Step()
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, d.Checkpoint().Write(&buf))
	cp, err := ReadCheckpoint(&buf)
	require.NoError(t, err)
	assert.Equal(t, 2, cp.TimeStep)
	assert.Equal(t, 2, cp.NOldTimes)
	// The second step converged at once and added no history
	assert.Len(t, cp.History, 1)
	{ // A fresh driver picks up where the first one stopped
		fresh, _, _ := newCoupled(t, 1, A, types.Vec3{1, 1, 1}, opts)
		require.NoError(t, fresh.Restore(cp))
		assert.Equal(t, 2, fresh.TimeStep())
		assert.InDeltaSlice(t, d.Displacement.Old[0][:], fresh.Displacement.Old[0][:], 1.e-12)
		res, err := fresh.Step()
		require.NoError(t, err)
		assert.Equal(t, 3, res.TimeStep)
		// The map did not change, so the restored prediction is already converged
		assert.Equal(t, 1, res.Iterations)
	}
	{ // Mismatched runs are refused
		other, _, _ := newCoupled(t, 1, A, types.Vec3{1, 1, 1}, testOptions(AitkenType, 0.3))
		assert.Error(t, other.Restore(cp))
		big, _, _ := newCoupled(t, 2, A, types.Vec3{1, 1, 1}, opts)
		assert.Error(t, big.Restore(cp))
	}
}
