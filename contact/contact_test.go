package contact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denMaier/solids4foam-sub000/geometry"
	"github.com/denMaier/solids4foam-sub000/types"
)

// flatAndBlock builds a rigid flat in the plane y = 0 facing +y and the bottom
// of a block at height gap facing -y, both covering [0,1] x [0,1] in x and z
func flatAndBlock(t *testing.T, nm, ns int, gap float64) (master, slave *geometry.Patch) {
	var err error
	master, err = geometry.NewPlanarGridPatch("flat", types.Vec3{0, 0, 1},
		types.Vec3{1, 0, 0}, types.Vec3{0, 0, -1}, nm, nm)
	require.NoError(t, err)
	slave, err = geometry.NewPlanarGridPatch("block", types.Vec3{0, gap, 0},
		types.Vec3{1, 0, 0}, types.Vec3{0, 0, 1}, ns, ns)
	require.NoError(t, err)
	return
}

func TestProbe(t *testing.T) {
	pr, err := NewProbe(DefaultProbeOptions())
	require.NoError(t, err)
	{ // Overlap is negative and measured along the master normal
		master, slave := flatAndBlock(t, 3, 2, -0.01)
		pen := pr.Compute(master, slave)
		require.Equal(t, slave.NFaces(), pen.Len())
		for i := 0; i < pen.Len(); i++ {
			assert.InDelta(t, -0.01, pen.Distance[i], 1.e-12)
			assert.InDeltaSlice(t, []float64{0, 1, 0}, pen.Normal[i][:], 1.e-12)
			assert.True(t, pen.HasPartner(i))
		}
	}
	{ // A gap is positive
		master, slave := flatAndBlock(t, 3, 2, 0.02)
		pen := pr.Compute(master, slave)
		for i := 0; i < pen.Len(); i++ {
			assert.InDelta(t, 0.02, pen.Distance[i], 1.e-12)
		}
	}
	{ // Out of range faces get the sentinel, never zero or negative
		master, slave := flatAndBlock(t, 3, 2, 5)
		pen := pr.Compute(master, slave)
		for i := 0; i < pen.Len(); i++ {
			assert.Equal(t, NoContactDistance, pen.Distance[i])
			assert.Equal(t, -1, pen.MasterFace[i])
			assert.Equal(t, types.Vec3{}, pen.Normal[i])
		}
	}
	{ // Surfaces facing the same way are not partners
		master, _ := flatAndBlock(t, 3, 2, 0)
		same, err := geometry.NewPlanarGridPatch("same", types.Vec3{0, -0.01, 1},
			types.Vec3{1, 0, 0}, types.Vec3{0, 0, -1}, 2, 2)
		require.NoError(t, err)
		pen := pr.Compute(master, same)
		for i := 0; i < pen.Len(); i++ {
			assert.False(t, pen.HasPartner(i))
		}
	}
	{ // A face beside the master edge has no partner even when slightly below its plane
		master, _ := flatAndBlock(t, 3, 2, 0)
		beside, err := geometry.NewPlanarGridPatch("beside", types.Vec3{1.02, -0.005, 0.45},
			types.Vec3{0.1, 0, 0}, types.Vec3{0, 0, 0.1}, 1, 1)
		require.NoError(t, err)
		pen := pr.Compute(master, beside)
		assert.False(t, pen.HasPartner(0))
		assert.Equal(t, NoContactDistance, pen.Distance[0])
		cal, err := NewPenaltyCalibration(1000, 1, 1)
		require.NoError(t, err)
		np, err := NewNormalPenalty(beside.NFaces(), cal, DefaultNormalOptions())
		require.NoError(t, err)
		tr, err := np.Correct(pen)
		require.NoError(t, err)
		assert.False(t, np.State[0].InContact)
		assert.Equal(t, types.Vec3{}, tr[0])
	}
	{ // A face whose centre lies over the master edge keeps its partner
		master, _ := flatAndBlock(t, 3, 2, 0)
		straddle, err := geometry.NewPlanarGridPatch("straddle", types.Vec3{0.94, -0.005, 0.45},
			types.Vec3{0.1, 0, 0}, types.Vec3{0, 0, 0.1}, 1, 1)
		require.NoError(t, err)
		pen := pr.Compute(master, straddle)
		assert.True(t, pen.HasPartner(0))
		assert.InDelta(t, -0.005, pen.Distance[0], 1.e-12)
	}
	{ // Bad options
		_, err := NewProbe(ProbeOptions{SearchDistance: 0, MaxAngle: 45})
		assert.Error(t, err)
		_, err = NewProbe(ProbeOptions{SearchDistance: 1, MaxAngle: 120})
		assert.Error(t, err)
	}
}

func TestPenaltyCalibration(t *testing.T) {
	{ // Moduli combine like springs in series, a rigid master leaves the slave
		steel := Material{ShearModulus: 3, BulkModulus: 2}
		E, err := PairStiffness(steel, Material{})
		require.NoError(t, err)
		assert.InDelta(t, 6., E, 1.e-12)
		E, err = PairStiffness(steel, steel)
		require.NoError(t, err)
		assert.InDelta(t, 3., E, 1.e-12)
		_, err = PairStiffness(Material{ShearModulus: -1, BulkModulus: 1}, Material{})
		assert.Error(t, err)
	}
	{ // Factor is base times scale and the scale moves geometrically within bounds
		pc, err := NewPenaltyCalibration(200, 2, 1)
		require.NoError(t, err)
		assert.Equal(t, 100., pc.Base())
		assert.Equal(t, 100., pc.Factor())
		require.NoError(t, pc.SetBounds(0.5, 1.5, 1.2))
		assert.True(t, pc.Stiffen())
		assert.InDelta(t, 1.2, pc.Scale, 1.e-12)
		assert.True(t, pc.Stiffen())
		assert.InDelta(t, 1.44, pc.Scale, 1.e-12)
		assert.True(t, pc.Stiffen())
		assert.Equal(t, 1.5, pc.Scale)
		assert.False(t, pc.Stiffen())
		for pc.Soften() {
		}
		assert.Equal(t, 0.5, pc.Scale)
		assert.Error(t, pc.SetBounds(2, 1, 1.1))
	}
	{ // Invalid inputs are rejected up front
		_, err := NewPenaltyCalibration(0, 1, 1)
		assert.Error(t, err)
		_, err = NewPenaltyCalibration(1, 1, -1)
		assert.Error(t, err)
	}
}

func TestNormalPenalty(t *testing.T) {
	master, slave := flatAndBlock(t, 3, 2, -0.01)
	pr, err := NewProbe(DefaultProbeOptions())
	require.NoError(t, err)
	cal, err := NewPenaltyCalibration(1000, 1, 1)
	require.NoError(t, err)
	{ // Pressure is the penalty factor times the penetration depth
		np, err := NewNormalPenalty(slave.NFaces(), cal, DefaultNormalOptions())
		require.NoError(t, err)
		tr, err := np.Correct(pr.Compute(master, slave))
		require.NoError(t, err)
		for i := range tr {
			assert.InDeltaSlice(t, []float64{0, 10, 0}, tr[i][:], 1.e-9)
			assert.True(t, np.State[i].InContact)
		}
		s := np.Stats()
		assert.Equal(t, 4, s.NActive)
		assert.InDelta(t, -0.01, s.Average, 1.e-12)
		assert.InDelta(t, -0.01, s.Minimum, 1.e-12)
		_, err = np.Correct(&Penetration{})
		assert.Error(t, err)
	}
	{ // Relaxation blends with the previous pressure
		opts := DefaultNormalOptions()
		opts.Relaxation = 0.5
		np, err := NewNormalPenalty(slave.NFaces(), cal, opts)
		require.NoError(t, err)
		pen := pr.Compute(master, slave)
		_, err = np.Correct(pen)
		require.NoError(t, err)
		assert.InDelta(t, 5., np.Pressure()[0], 1.e-9)
		_, err = np.Correct(pen)
		require.NoError(t, err)
		assert.InDelta(t, 7.5, np.Pressure()[0], 1.e-9)
	}
	{ // Separated faces carry nothing
		_, apart := flatAndBlock(t, 3, 2, 0.01)
		np, err := NewNormalPenalty(apart.NFaces(), cal, DefaultNormalOptions())
		require.NoError(t, err)
		tr, err := np.Correct(pr.Compute(master, apart))
		require.NoError(t, err)
		for i := range tr {
			assert.Equal(t, types.Vec3{}, tr[i])
		}
		assert.Equal(t, Stats{}, np.Stats())
	}
	{ // Scale stiffens while penetration deepens and softens while it recedes
		pc, err := NewPenaltyCalibration(1000, 1, 1)
		require.NoError(t, err)
		np, err := NewNormalPenalty(1, pc, DefaultNormalOptions())
		require.NoError(t, err)
		correct := func(d float64) {
			_, err := np.Correct(&Penetration{
				Distance:     []float64{d},
				Normal:       []types.Vec3{{0, 1, 0}},
				MasterFace:   []int{0},
				ContactPoint: []types.Vec3{{}},
			})
			require.NoError(t, err)
		}
		correct(-0.01)
		assert.False(t, np.UpdatePenaltyScale())
		correct(-0.02)
		assert.True(t, np.UpdatePenaltyScale())
		assert.InDelta(t, 1.1, pc.Scale, 1.e-12)
		correct(-0.005)
		assert.True(t, np.UpdatePenaltyScale())
		assert.InDelta(t, 1., pc.Scale, 1.e-12)
		assert.Len(t, np.ScaleHistory, 3)
	}
}

func TestCoulombFriction(t *testing.T) {
	var (
		mu     = 0.3
		P      = 1.
		normal = []types.Vec3{{0, 1, 0}}
		active = []bool{true}
	)
	newFriction := func() *CoulombFriction {
		cal, err := NewPenaltyCalibration(100, 1, 1)
		require.NoError(t, err)
		cf, err := NewCoulombFriction(1, mu, cal)
		require.NoError(t, err)
		return cf
	}
	{ // Sweep the tangential load across the friction bound
		for _, F := range []float64{0.05, 0.1, 0.2, 0.29, 0.31, 0.4, 0.6, 1.2} {
			cf := newFriction()
			// The displacement whose trial traction balances F
			disp := []types.Vec3{{F / 100, 0, 0}}
			tr, err := cf.Correct(normal, []float64{P}, active, disp)
			require.NoError(t, err)
			if F < mu*P {
				assert.Equal(t, types.Sticking, cf.Status()[0], "F = %g", F)
				assert.InDelta(t, F, tr[0].Mag(), 1.e-12)
			} else {
				assert.Equal(t, types.Slipping, cf.Status()[0], "F = %g", F)
				assert.InDelta(t, mu*P, tr[0].Mag(), 1.e-12)
			}
			// Friction opposes the motion
			assert.True(t, tr[0][0] < 0)
		}
	}
	{ // Slip is only committed at a new time step
		cf := newFriction()
		disp := []types.Vec3{{0.006, 0, 0}}
		_, err := cf.Correct(normal, []float64{P}, active, disp)
		require.NoError(t, err)
		assert.InDelta(t, 0.003, cf.Slip()[0][0], 1.e-12)
		// Repeating the iteration gives the same answer
		tr, err := cf.Correct(normal, []float64{P}, active, disp)
		require.NoError(t, err)
		assert.InDelta(t, -0.3, tr[0][0], 1.e-12)
		cf.NewTimeStep()
		tr, err = cf.Correct(normal, []float64{P}, active, []types.Vec3{{0.005, 0, 0}})
		require.NoError(t, err)
		assert.Equal(t, types.Sticking, cf.Status()[0])
		assert.InDelta(t, -0.2, tr[0][0], 1.e-9)
	}
	{ // Normal motion does not load friction and separation clears the state
		cf := newFriction()
		tr, err := cf.Correct(normal, []float64{P}, active, []types.Vec3{{0, -0.5, 0}})
		require.NoError(t, err)
		assert.Equal(t, types.Vec3{}, tr[0])
		tr, err = cf.Correct(normal, []float64{0}, []bool{false}, []types.Vec3{{0.1, 0, 0}})
		require.NoError(t, err)
		assert.Equal(t, types.Vec3{}, tr[0])
		assert.Equal(t, types.NotInContact, cf.Status()[0])
		nSlip, nStick := cf.Counts()
		assert.Equal(t, 0, nSlip+nStick)
		_, err = cf.Correct(normal, nil, active, nil)
		assert.Error(t, err)
	}
}

func TestPair(t *testing.T) {
	master, slave := flatAndBlock(t, 3, 2, -0.01)
	opts := DefaultPairOptions()
	opts.FrictionCoefficient = 0.2
	steel := Material{ShearModulus: 600, BulkModulus: 200}
	pair, err := NewPair("blockOnFlat", master, slave, steel, Material{}, opts)
	require.NoError(t, err)
	disp := make([]types.Vec3, slave.NFaces())
	for i := range disp {
		disp[i] = types.Vec3{0.1, 0, 0}
	}
	tr, err := pair.Correct(disp)
	require.NoError(t, err)
	{ // Everything touches and slides
		k := pair.Normal.Calibration.Factor()
		assert.InDelta(t, 1000./0.5, k, 1.e-9)
		for i := range tr {
			assert.InDelta(t, 0.01*k, tr[i][1], 1.e-9)
			assert.InDelta(t, -0.2*0.01*k, tr[i][0], 1.e-9)
		}
		for _, s := range pair.StatusField() {
			assert.Equal(t, 1., s)
		}
		d := pair.Diagnostics()
		assert.Equal(t, 4, d.NActive)
		assert.Equal(t, 4, d.NSlip)
	}
	{ // Master traction is equal and opposite in the integral
		mt, err := pair.MasterTraction()
		require.NoError(t, err)
		Fs, Fm := slave.Integrate(tr), master.Integrate(mt)
		reaction := Fs.Scale(-1)
		assert.InDeltaSlice(t, reaction[:], Fm[:], 1.e-9)
	}
	{ // Checkpoint and restore carry the scales and committed slip
		pair.UpdatePenaltyScale()
		pair.NewTimeStep()
		cp := pair.Checkpoint()
		assert.Equal(t, "blockOnFlat", cp.Name)
		require.Len(t, cp.Slip, slave.NFaces())
		fresh, err := NewPair("blockOnFlat", master, slave, steel, Material{}, opts)
		require.NoError(t, err)
		require.NoError(t, fresh.Restore(cp))
		assert.Equal(t, cp, fresh.Checkpoint())
		other, err := NewPair("other", master, slave, steel, Material{}, opts)
		require.NoError(t, err)
		assert.Error(t, other.Restore(cp))
	}
	{ // Frictionless contact reports sliding faces
		fl, err := NewPair("frictionless", master, slave, steel, Material{}, DefaultPairOptions())
		require.NoError(t, err)
		tr, err := fl.Correct(disp)
		require.NoError(t, err)
		assert.InDelta(t, 0., tr[0][0], 1.e-12)
		assert.Equal(t, []float64{1, 1, 1, 1}, fl.StatusField())
	}
}
