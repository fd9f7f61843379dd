package contact

import (
	"fmt"

	"github.com/denMaier/solids4foam-sub000/utils"
)

// Material carries the elastic moduli the penalty stiffness is calibrated from
type Material struct {
	ShearModulus float64
	BulkModulus  float64
}

// ImplicitStiffness is the constrained (P-wave) modulus K + 4/3 G
func (m Material) ImplicitStiffness() float64 {
	return m.BulkModulus + 4.*m.ShearModulus/3.
}

func (m Material) Validate() error {
	if !utils.IsFinitePositive(m.ShearModulus) || !utils.IsFinitePositive(m.BulkModulus) {
		return fmt.Errorf("contact material moduli must be positive, have shear %g and bulk %g",
			m.ShearModulus, m.BulkModulus)
	}
	return nil
}

// PairStiffness combines the stiffness of the two contacting bodies like springs in
// series. A zero modulus marks a rigid body, which leaves the other body's stiffness.
func PairStiffness(slave, master Material) (E float64, err error) {
	if err = slave.Validate(); err != nil {
		return
	}
	if master == (Material{}) {
		E = slave.ImplicitStiffness()
		return
	}
	if err = master.Validate(); err != nil {
		return
	}
	es, em := slave.ImplicitStiffness(), master.ImplicitStiffness()
	E = es * em / (es + em)
	return
}

/*
PenaltyCalibration holds a penalty stiffness as a fixed base value, the
modulus over a characteristic mesh length computed once, times a
dimensionless scale. Only the scale changes during a run, and only by
multiplying or dividing by ScaleFactor within [MinScale, MaxScale].
*/
type PenaltyCalibration struct {
	Scale       float64
	MinScale    float64
	MaxScale    float64
	ScaleFactor float64
	base        float64
}

func NewPenaltyCalibration(modulus, length, scale float64) (pc *PenaltyCalibration, err error) {
	if !utils.IsFinitePositive(modulus) || !utils.IsFinitePositive(length) {
		err = fmt.Errorf("penalty calibration needs a positive modulus and length, have %g and %g",
			modulus, length)
		return
	}
	if !utils.IsFinitePositive(scale) {
		err = fmt.Errorf("penalty scale must be positive, have %g", scale)
		return
	}
	pc = &PenaltyCalibration{
		Scale:       scale,
		MinScale:    scale * 1.e-3,
		MaxScale:    scale * 1.e3,
		ScaleFactor: 1.1,
		base:        modulus / length,
	}
	return
}

// SetBounds replaces the scale limits and the adaptation factor
func (pc *PenaltyCalibration) SetBounds(minScale, maxScale, factor float64) error {
	if !utils.IsFinitePositive(minScale) || maxScale < minScale || factor <= 1 {
		return fmt.Errorf("invalid penalty scale bounds [%g, %g] with factor %g", minScale, maxScale, factor)
	}
	pc.MinScale, pc.MaxScale, pc.ScaleFactor = minScale, maxScale, factor
	pc.Scale = utils.Clamp(pc.Scale, minScale, maxScale)
	return nil
}

// Base is the unscaled stiffness, modulus over length
func (pc *PenaltyCalibration) Base() float64 { return pc.base }

func (pc *PenaltyCalibration) Factor() (k float64) {
	k = pc.base * pc.Scale
	if !utils.IsFinitePositive(k) {
		panic(fmt.Errorf("penalty factor is not positive and finite: base %g, scale %g", pc.base, pc.Scale))
	}
	return
}

// Stiffen multiplies the scale by ScaleFactor, reporting false at the upper bound
func (pc *PenaltyCalibration) Stiffen() bool {
	old := pc.Scale
	pc.Scale = utils.Clamp(pc.Scale*pc.ScaleFactor, pc.MinScale, pc.MaxScale)
	return pc.Scale != old
}

// Soften divides the scale by ScaleFactor, reporting false at the lower bound
func (pc *PenaltyCalibration) Soften() bool {
	old := pc.Scale
	pc.Scale = utils.Clamp(pc.Scale/pc.ScaleFactor, pc.MinScale, pc.MaxScale)
	return pc.Scale != old
}
