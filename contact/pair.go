package contact

import (
	"fmt"
	"io"

	"github.com/denMaier/solids4foam-sub000/exchange"
	"github.com/denMaier/solids4foam-sub000/geometry"
	"github.com/denMaier/solids4foam-sub000/types"
	"github.com/denMaier/solids4foam-sub000/utils"
)

// InnerLoop names the fixed point loop between a solid solve and its contact tractions
const InnerLoop = "contact inner loop"

type PairOptions struct {
	Probe    ProbeOptions
	Normal   NormalOptions
	Exchange exchange.Options
	// PenaltyScale and FrictionPenaltyScale multiply the calibrated stiffness
	PenaltyScale         float64
	FrictionPenaltyScale float64
	// FrictionCoefficient of zero gives frictionless contact
	FrictionCoefficient float64
}

func DefaultPairOptions() PairOptions {
	return PairOptions{
		Probe:                DefaultProbeOptions(),
		Normal:               DefaultNormalOptions(),
		Exchange:             exchange.DefaultOptions(),
		PenaltyScale:         1,
		FrictionPenaltyScale: 1,
	}
}

/*
Pair enforces contact between a master and a slave surface. The slave faces
carry the penalty state; master traction is the slave traction mapped across
with the force conserving exchange and reversed.
*/
type Pair struct {
	Name          string
	Master, Slave *geometry.Patch
	Probe         *Probe
	Normal        *NormalPenalty
	Friction      *CoulombFriction
	Exchange      *exchange.Exchange

	penetration   *Penetration
	slaveTraction []types.Vec3
}

func NewPair(name string, master, slave *geometry.Patch, slaveMat, masterMat Material,
	opts PairOptions) (p *Pair, err error) {
	var (
		modulus float64
		length  = slave.CharacteristicLength()
	)
	if modulus, err = PairStiffness(slaveMat, masterMat); err != nil {
		return
	}
	p = &Pair{
		Name:          name,
		Master:        master,
		Slave:         slave,
		slaveTraction: make([]types.Vec3, slave.NFaces()),
	}
	if p.Probe, err = NewProbe(opts.Probe); err != nil {
		return nil, err
	}
	normalCal, err := NewPenaltyCalibration(modulus, length, opts.PenaltyScale)
	if err != nil {
		return nil, fmt.Errorf("contact %s: %w", name, err)
	}
	if p.Normal, err = NewNormalPenalty(slave.NFaces(), normalCal, opts.Normal); err != nil {
		return nil, err
	}
	if opts.FrictionCoefficient > 0 {
		frictionCal, err := NewPenaltyCalibration(modulus, length, opts.FrictionPenaltyScale)
		if err != nil {
			return nil, fmt.Errorf("contact %s friction: %w", name, err)
		}
		if p.Friction, err = NewCoulombFriction(slave.NFaces(), opts.FrictionCoefficient, frictionCal); err != nil {
			return nil, err
		}
	}
	if p.Exchange, err = exchange.New(master, slave, opts.Exchange); err != nil {
		return nil, err
	}
	return
}

// Correct probes the current geometry and returns the total contact traction on
// the slave faces. disp is the slave displacement relative to the master since
// the reference configuration; it only matters with friction.
func (p *Pair) Correct(disp []types.Vec3) (traction []types.Vec3, err error) {
	if len(disp) != p.Slave.NFaces() {
		err = fmt.Errorf("contact %s: %d displacements for %d slave faces", p.Name, len(disp), p.Slave.NFaces())
		return
	}
	p.penetration = p.Probe.Compute(p.Master, p.Slave)
	if traction, err = p.Normal.Correct(p.penetration); err != nil {
		return
	}
	if p.Friction != nil {
		var ft []types.Vec3
		ft, err = p.Friction.Correct(p.Normal.Normals(), p.Normal.Pressure(), p.Normal.Active(), disp)
		if err != nil {
			return
		}
		for i := range traction {
			traction[i] = traction[i].Add(ft[i])
		}
	}
	copy(p.slaveTraction, traction)
	return
}

// Penetration is the geometry found by the last Correct
func (p *Pair) Penetration() *Penetration { return p.penetration }

func (p *Pair) SlaveTraction() []types.Vec3 { return types.CopyVec3(p.slaveTraction) }

// MasterTraction is equal and opposite to the slave traction in the integral sense
func (p *Pair) MasterTraction() (t []types.Vec3, err error) {
	if t, err = p.Exchange.SlaveToMaster(p.slaveTraction, exchange.Conservative); err != nil {
		return
	}
	for i := range t {
		t[i] = t[i].Scale(-1)
	}
	return
}

// StatusField is 0 off contact, 1 slipping and 2 sticking; frictionless faces
// in contact always slip
func (p *Pair) StatusField() (f []float64) {
	f = make([]float64, p.Slave.NFaces())
	if p.Friction != nil {
		for i, s := range p.Friction.status {
			f[i] = float64(s)
		}
		return
	}
	for i, st := range p.Normal.State {
		if st.InContact {
			f[i] = float64(types.Slipping)
		}
	}
	return
}

// UpdatePenaltyScale adapts the normal and friction scales together
func (p *Pair) UpdatePenaltyScale() (changed bool) {
	before := p.Normal.Calibration.Scale
	changed = p.Normal.UpdatePenaltyScale()
	if changed && p.Friction != nil {
		if p.Normal.Calibration.Scale > before {
			p.Friction.Calibration.Stiffen()
		} else {
			p.Friction.Calibration.Soften()
		}
	}
	return
}

func (p *Pair) NewTimeStep() {
	if p.Friction != nil {
		p.Friction.NewTimeStep()
	}
}

type Diagnostics struct {
	Stats
	PenaltyScale  float64
	FrictionScale float64
	NSlip, NStick int
}

func (p *Pair) Diagnostics() (d Diagnostics) {
	d.Stats = p.Normal.Stats()
	d.PenaltyScale = p.Normal.Calibration.Scale
	if p.Friction != nil {
		d.FrictionScale = p.Friction.Calibration.Scale
		d.NSlip, d.NStick = p.Friction.Counts()
	}
	return
}

func (d Diagnostics) Print(w io.Writer, name string) {
	fmt.Fprintf(w, "contact %s: active = %d, penetration avg = %10.4e min = %10.4e, penalty scale = %8.4g",
		name, d.NActive, d.Average, d.Minimum, d.PenaltyScale)
	if d.FrictionScale > 0 {
		fmt.Fprintf(w, ", slip/stick = %d/%d", d.NSlip, d.NStick)
	}
	fmt.Fprintln(w)
}

// PairCheckpoint is the state a pair carries between time steps
type PairCheckpoint struct {
	Name          string       `json:"name"`
	PenaltyScale  float64      `json:"penaltyScale"`
	FrictionScale float64      `json:"frictionScale,omitempty"`
	Slip          []types.Vec3 `json:"slip,omitempty"`
}

func (p *Pair) Checkpoint() (cp PairCheckpoint) {
	cp.Name = p.Name
	cp.PenaltyScale = p.Normal.Calibration.Scale
	if p.Friction != nil {
		cp.FrictionScale = p.Friction.Calibration.Scale
		cp.Slip = types.CopyVec3(p.Friction.slipOld)
	}
	return
}

func (p *Pair) Restore(cp PairCheckpoint) error {
	if cp.Name != p.Name {
		return fmt.Errorf("checkpoint for contact %s restored into contact %s", cp.Name, p.Name)
	}
	if !utils.IsFinitePositive(cp.PenaltyScale) {
		return fmt.Errorf("contact %s: checkpoint penalty scale %g is not positive", p.Name, cp.PenaltyScale)
	}
	p.Normal.Calibration.Scale = utils.Clamp(cp.PenaltyScale,
		p.Normal.Calibration.MinScale, p.Normal.Calibration.MaxScale)
	if p.Friction == nil {
		return nil
	}
	if len(cp.Slip) != len(p.Friction.slipOld) {
		return fmt.Errorf("contact %s: checkpoint has slip for %d faces, have %d",
			p.Name, len(cp.Slip), len(p.Friction.slipOld))
	}
	if !utils.IsFinitePositive(cp.FrictionScale) {
		return fmt.Errorf("contact %s: checkpoint friction scale %g is not positive", p.Name, cp.FrictionScale)
	}
	p.Friction.Calibration.Scale = utils.Clamp(cp.FrictionScale,
		p.Friction.Calibration.MinScale, p.Friction.Calibration.MaxScale)
	copy(p.Friction.slipOld, cp.Slip)
	copy(p.Friction.slip, cp.Slip)
	return nil
}
