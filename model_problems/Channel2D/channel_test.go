package Channel2D

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denMaier/solids4foam-sub000/coupling"
	"github.com/denMaier/solids4foam-sub000/types"
	"github.com/denMaier/solids4foam-sub000/utils"
)

func uniform(n int, v types.Vec3) (f []types.Vec3) {
	f = make([]types.Vec3, n)
	for i := range f {
		f[i] = v
	}
	return
}

func TestMembrane(t *testing.T) {
	{ // Foundation only: w = q / k
		p := DefaultParameters()
		p.Tension = 0
		m, err := NewMembrane(p)
		require.NoError(t, err)
		disp, ok, err := m.Solve(uniform(p.SolidCells, types.Vec3{0, 50, 0}))
		require.NoError(t, err)
		assert.True(t, ok)
		for _, d := range disp {
			assert.InDelta(t, 0.005, d[1], 1.e-12)
			assert.Equal(t, 0., d[0])
		}
	}
	{ // Tension only: w = q x (L - x) / 2T
		p := DefaultParameters()
		p.Tension, p.Foundation, p.SolidCells = 100, 0, 40
		m, err := NewMembrane(p)
		require.NoError(t, err)
		_, _, err = m.Solve(uniform(p.SolidCells, types.Vec3{0, 50, 0}))
		require.NoError(t, err)
		h := p.Length / float64(p.SolidCells)
		for i, w := range m.Deflection() {
			x := (float64(i) + 0.5) * h
			assert.InDelta(t, 50*x*(p.Length-x)/(2*p.Tension), w, 1.e-3)
		}
	}
	{
		p := DefaultParameters()
		p.Tension, p.Foundation = 0, 0
		_, err := NewMembrane(p)
		assert.Error(t, err)
		m, err := NewMembrane(DefaultParameters())
		require.NoError(t, err)
		_, _, err = m.Solve(make([]types.Vec3, 3))
		assert.Error(t, err)
	}
}

func TestFluidPressure(t *testing.T) {
	p := DefaultParameters()
	f, err := NewFluid(p)
	require.NoError(t, err)
	{ // Parallel walls: linear pressure drop to the outlet
		f.SetTime(p.RampTime)
		tr, ok, err := f.Solve(make([]types.Vec3, p.FluidCells))
		require.NoError(t, err)
		assert.True(t, ok)
		h := p.Length / float64(p.FluidCells)
		G := 12 * p.Viscosity * p.FlowRate / math.Pow(p.Height, 3)
		for i, v := range tr {
			x := (float64(i) + 0.5) * h
			assert.InDelta(t, G*(p.Length-x), v[1], 1.e-9)
		}
	}
	{ // Half way up the ramp the pressure halves
		f.SetTime(0.5 * p.RampTime)
		assert.InDelta(t, 0.5*p.FlowRate, f.CurrentFlowRate(), 1.e-15)
		full := append([]float64(nil), f.Pressure()...)
		_, _, err = f.Solve(make([]types.Vec3, p.FluidCells))
		require.NoError(t, err)
		for i, v := range f.Pressure() {
			assert.InDelta(t, 0.5*full[i], v, 1.e-9)
		}
	}
	{ // An opened gap lowers the pressure
		before := f.Pressure()
		_, _, err = f.Solve(uniform(p.FluidCells, types.Vec3{0, 0.01, 0}))
		require.NoError(t, err)
		assert.Less(t, f.Pressure()[0], before[0])
	}
	{
		_, _, err = f.Solve(uniform(p.FluidCells, types.Vec3{0, -p.Height, 0}))
		assert.Error(t, err)
		_, _, err = f.Solve(make([]types.Vec3, 2))
		assert.Error(t, err)
	}
}

func TestFluidMeshMotion(t *testing.T) {
	p := DefaultParameters()
	f, err := NewFluid(p)
	require.NoError(t, err)
	nPatch := f.InterfacePatch().NPoints()
	assert.Equal(t, 2*(p.FluidCells+1), nPatch)
	{
		require.NoError(t, f.Update(uniform(nPatch, types.Vec3{0, 0.02, 0})))
		m := f.Mesh()
		for i := 0; i <= p.FluidCells; i++ {
			assert.InDelta(t, p.Height+0.02, m.Point(i, p.FluidLayers)[1], 1.e-12)
			assert.Equal(t, 0., m.Point(i, 0)[1])
		}
		for _, a := range m.CellAreas() {
			assert.Greater(t, a, 0.)
		}
	}
	{ // Pushing the wall through the floor inverts cells
		err = f.Update(uniform(nPatch, types.Vec3{0, -3 * p.Height, 0}))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "inverted")
	}
}

func TestCoupledChannel(t *testing.T) {
	var final [][]float64
	for _, at := range []coupling.AccelerationType{coupling.AitkenType, coupling.IQNILSType} {
		opts := coupling.DefaultOptions()
		opts.Acceleration.Type = at
		opts.Criteria.Tolerance = 1.e-8
		c, err := NewChannel(DefaultParameters(), opts)
		require.NoError(t, err)
		results, err := c.Run(nil, false)
		require.NoError(t, err, at.String())
		require.Len(t, results, c.Params.Steps)
		for _, res := range results {
			assert.True(t, res.Converged, at.String())
			assert.Equal(t, coupling.Converged, res.Stage)
			assert.Zero(t, res.SolverWarnings)
		}
		w := c.Solid.Deflection()
		for _, v := range w {
			assert.Greater(t, v, 0.)
		}
		// The wall bulges most near the inlet where the pressure is highest
		assert.Greater(t, w[1], w[len(w)-2])
		for _, a := range c.Fluid.Mesh().CellAreas() {
			assert.Greater(t, a, 0.)
		}
		assert.Equal(t, c.Fluid.Pressure(), c.Fluid.PressureField.Old)
		{ // Plotted series are normalised profiles along the channel
			series := c.plotSeries()
			require.Len(t, series, 2)
			assert.Len(t, series[0].X, c.Params.SolidCells)
			assert.Len(t, series[1].X, c.Params.FluidCells)
			for _, s := range series {
				require.Len(t, s.F, len(s.X))
				assert.InDelta(t, 1., utils.MaxAbs(s.F), 1.e-12)
				for _, x := range s.X {
					assert.True(t, x > 0 && x < c.Params.Length)
				}
			}
			assert.Greater(t, series[1].F[0], series[1].F[len(series[1].F)-1])
		}
		final = append(final, w)
	}
	assert.InDeltaSlice(t, final[0], final[1], 1.e-6)
}
