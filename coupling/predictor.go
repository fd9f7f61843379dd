package coupling

import (
	"fmt"
	"strings"

	"github.com/denMaier/solids4foam-sub000/types"
)

// Predictor seeds the interface displacement at the start of a time step
type Predictor uint8

const (
	// PreviousStep starts from the last converged displacement
	PreviousStep Predictor = iota
	// Extrapolate continues the last two converged displacements linearly
	Extrapolate
)

var PredictorNames = map[string]Predictor{
	"previous":    PreviousStep,
	"extrapolate": Extrapolate,
	"linear":      Extrapolate,
}

func (p Predictor) String() string { return []string{"previous", "extrapolate"}[p] }

func NewPredictor(label string) (p Predictor, err error) {
	var ok bool
	if p, ok = PredictorNames[strings.ToLower(strings.TrimSpace(label))]; !ok {
		err = fmt.Errorf("unable to use predictor named %s", label)
	}
	return
}

// Predict reads the old time levels of f, which hold the converged values of the
// last two steps; zero before the first step has completed
func (p Predictor) Predict(f *types.VectorField) (x []types.Vec3) {
	x = make([]types.Vec3, f.Len())
	switch {
	case f.NOldTimes() == 0:
	case p == Extrapolate && f.NOldTimes() >= 2:
		for i := range x {
			x[i] = f.Old[i].Scale(2).Sub(f.OldOld[i])
		}
	default:
		copy(x, f.Old)
	}
	return
}
