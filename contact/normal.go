package contact

import (
	"fmt"
	"math"

	"github.com/denMaier/solids4foam-sub000/types"
	"github.com/denMaier/solids4foam-sub000/utils"
)

// PointState is the normal contact state of one slave face
type PointState struct {
	Penetration   float64
	Normal        types.Vec3
	Pressure      float64
	PenaltyFactor float64
	InContact     bool
}

type NormalOptions struct {
	// Tolerance is the penetration below which a face is in contact
	Tolerance float64
	// Relaxation blends the new pressure with the previous one, 1 for none
	Relaxation float64
	// ParallelDegree is the number of goroutines reducing the statistics of
	// large surfaces, 0 for NumCPU
	ParallelDegree int
}

func DefaultNormalOptions() NormalOptions {
	return NormalOptions{Relaxation: 1}
}

// Stats summarises penetration over the faces in contact
type Stats struct {
	Average float64
	Minimum float64
	NActive int
}

/*
NormalPenalty pushes penetrating slave faces out along the master normal with
a pressure proportional to the penetration depth.
*/
type NormalPenalty struct {
	Calibration *PenaltyCalibration
	opts        NormalOptions
	State       []PointState

	lastMinimum  float64
	haveMinimum  bool
	ScaleHistory []float64
}

func NewNormalPenalty(nFaces int, cal *PenaltyCalibration, opts NormalOptions) (np *NormalPenalty, err error) {
	if cal == nil {
		err = fmt.Errorf("normal penalty needs a calibration")
		return
	}
	if opts.Relaxation <= 0 || opts.Relaxation > 1 {
		err = fmt.Errorf("normal penalty relaxation must be in (0, 1], have %g", opts.Relaxation)
		return
	}
	np = &NormalPenalty{
		Calibration: cal,
		opts:        opts,
		State:       make([]PointState, nFaces),
	}
	return
}

// Correct updates the per face state from a new penetration and returns the
// normal contact traction on the slave faces
func (np *NormalPenalty) Correct(pen *Penetration) (traction []types.Vec3, err error) {
	if pen.Len() != len(np.State) {
		err = fmt.Errorf("penetration has %d values, contact has %d faces", pen.Len(), len(np.State))
		return
	}
	var (
		k     = np.Calibration.Factor()
		alpha = np.opts.Relaxation
	)
	traction = make([]types.Vec3, len(np.State))
	for i := range np.State {
		st := &np.State[i]
		st.Penetration = pen.Distance[i]
		st.Normal = pen.Normal[i]
		st.PenaltyFactor = k
		st.InContact = pen.HasPartner(i) && pen.Distance[i] < np.opts.Tolerance
		if !st.InContact {
			st.Pressure = 0
			continue
		}
		p := k * math.Max(0, -pen.Distance[i])
		st.Pressure = alpha*p + (1-alpha)*st.Pressure
		traction[i] = st.Normal.Scale(st.Pressure)
	}
	return
}

func (np *NormalPenalty) Options() NormalOptions { return np.opts }

func (np *NormalPenalty) Pressure() (p []float64) {
	p = make([]float64, len(np.State))
	for i, st := range np.State {
		p[i] = st.Pressure
	}
	return
}

func (np *NormalPenalty) Active() (a []bool) {
	a = make([]bool, len(np.State))
	for i, st := range np.State {
		a[i] = st.InContact
	}
	return
}

func (np *NormalPenalty) Normals() (n []types.Vec3) {
	n = make([]types.Vec3, len(np.State))
	for i, st := range np.State {
		n[i] = st.Normal
	}
	return
}

func (np *NormalPenalty) Stats() (s Stats) {
	pm := utils.NewPartitionMap(1, len(np.State))
	if len(np.State) >= utils.ParallelThreshold {
		pm = utils.NewDefaultPartitionMap(np.opts.ParallelDegree, len(np.State))
	}
	active := func(i int) bool { return np.State[i].InContact }
	n := pm.Reduce(utils.ReduceSum, func(i int) float64 {
		if active(i) {
			return 1
		}
		return 0
	})
	s.NActive = int(n)
	if s.NActive == 0 {
		return
	}
	sum := pm.Reduce(utils.ReduceSum, func(i int) float64 {
		if active(i) {
			return np.State[i].Penetration
		}
		return 0
	})
	s.Average = sum / n
	s.Minimum = pm.Reduce(utils.ReduceMin, func(i int) float64 {
		if active(i) {
			return np.State[i].Penetration
		}
		return math.Inf(1)
	})
	return
}

// UpdatePenaltyScale stiffens the penalty while the deepest penetration grows
// between calls and softens it while the penetration recedes. The first call
// only records the penetration.
func (np *NormalPenalty) UpdatePenaltyScale() (changed bool) {
	s := np.Stats()
	if s.NActive == 0 {
		np.haveMinimum = false
		return
	}
	if np.haveMinimum {
		switch {
		case s.Minimum < np.lastMinimum:
			changed = np.Calibration.Stiffen()
		case s.Minimum > np.lastMinimum:
			changed = np.Calibration.Soften()
		}
	}
	np.lastMinimum, np.haveMinimum = s.Minimum, true
	np.ScaleHistory = append(np.ScaleHistory, np.Calibration.Scale)
	return
}
