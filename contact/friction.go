package contact

import (
	"fmt"
	"math"

	"github.com/denMaier/solids4foam-sub000/types"
)

/*
CoulombFriction is a penalty regularised Coulomb law solved by return mapping.
The trial traction is the tangential penalty stiffness times the elastic part
of the relative tangential displacement. When it exceeds the friction bound
mu*p it is scaled back onto the bound and the excess becomes slip.

Slip is tracked at two levels: the trial value updated by every Correct, and
the committed value from the end of the last time step, so the contact
iterations of a step always start from the same reference.
*/
type CoulombFriction struct {
	Mu          float64
	Calibration *PenaltyCalibration

	slip, slipOld []types.Vec3
	traction      []types.Vec3
	status        []types.ContactStatus
}

func NewCoulombFriction(nFaces int, mu float64, cal *PenaltyCalibration) (cf *CoulombFriction, err error) {
	if mu < 0 || math.IsNaN(mu) || math.IsInf(mu, 0) {
		err = fmt.Errorf("friction coefficient must be non-negative, have %g", mu)
		return
	}
	if cal == nil {
		err = fmt.Errorf("friction needs a penalty calibration")
		return
	}
	cf = &CoulombFriction{
		Mu:          mu,
		Calibration: cal,
		slip:        make([]types.Vec3, nFaces),
		slipOld:     make([]types.Vec3, nFaces),
		traction:    make([]types.Vec3, nFaces),
		status:      make([]types.ContactStatus, nFaces),
	}
	return
}

// Correct returns the friction traction on the slave faces. disp is the
// tangential displacement of the slave relative to the master since the
// reference configuration.
func (cf *CoulombFriction) Correct(normals []types.Vec3, pressure []float64, active []bool,
	disp []types.Vec3) (traction []types.Vec3, err error) {
	N := len(cf.status)
	if len(normals) != N || len(pressure) != N || len(active) != N || len(disp) != N {
		err = fmt.Errorf("friction on %d faces called with %d normals, %d pressures, %d flags, %d displacements",
			N, len(normals), len(pressure), len(active), len(disp))
		return
	}
	kt := cf.Calibration.Factor()
	for i := 0; i < N; i++ {
		if !active[i] {
			// Separated faces carry no traction and restick where they touch down
			cf.traction[i] = types.Vec3{}
			cf.status[i] = types.NotInContact
			cf.slip[i] = disp[i].Tangential(normals[i])
			continue
		}
		var (
			n     = normals[i]
			ut    = disp[i].Tangential(n)
			trial = ut.Sub(cf.slipOld[i].Tangential(n)).Scale(-kt)
			bound = cf.Mu * pressure[i]
			mag   = trial.Mag()
		)
		if mag <= bound {
			cf.traction[i] = trial
			cf.slip[i] = cf.slipOld[i]
			cf.status[i] = types.Sticking
			continue
		}
		cf.traction[i] = trial.Scale(bound / mag)
		cf.slip[i] = ut.Add(cf.traction[i].Scale(1. / kt))
		cf.status[i] = types.Slipping
	}
	traction = types.CopyVec3(cf.traction)
	return
}

func (cf *CoulombFriction) Status() []types.ContactStatus {
	return append([]types.ContactStatus(nil), cf.status...)
}

// Slip is the trial slip of the current iteration
func (cf *CoulombFriction) Slip() []types.Vec3 { return types.CopyVec3(cf.slip) }

// NewTimeStep commits the slip of the converged iteration
func (cf *CoulombFriction) NewTimeStep() {
	copy(cf.slipOld, cf.slip)
}

// Counts returns the number of slipping and sticking faces
func (cf *CoulombFriction) Counts() (nSlip, nStick int) {
	for _, s := range cf.status {
		switch s {
		case types.Slipping:
			nSlip++
		case types.Sticking:
			nStick++
		}
	}
	return
}
