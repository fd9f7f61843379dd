package meshmotion

import (
	"fmt"
	"math"
	"strings"

	"github.com/denMaier/solids4foam-sub000/utils"
)

// Kernel is the radial basis function
type Kernel uint8

const (
	// Wendland is the compactly supported C2 function (1-r/R)^4 (4r/R+1)
	Wendland Kernel = iota
	Gaussian
	// ThinPlateSpline is r^2 log r and requires the linear polynomial
	ThinPlateSpline
)

var (
	KernelNames = map[string]Kernel{
		"wendland":        Wendland,
		"wendlandc2":      Wendland,
		"gaussian":        Gaussian,
		"tps":             ThinPlateSpline,
		"thinplatespline": ThinPlateSpline,
	}
	KernelPrintNames = []string{"WendlandC2", "Gaussian", "ThinPlateSpline"}
)

func (k Kernel) String() string { return KernelPrintNames[k] }

func NewKernel(label string) (k Kernel, err error) {
	var ok bool
	if k, ok = KernelNames[strings.ToLower(strings.TrimSpace(label))]; !ok {
		err = fmt.Errorf("unable to use radial basis function named %s", label)
	}
	return
}

func (k Kernel) Eval(r, radius float64) float64 {
	switch k {
	case Wendland:
		xi := r / radius
		if xi >= 1 {
			return 0
		}
		return utils.POW(1-xi, 4) * (4*xi + 1)
	case Gaussian:
		xi := r / radius
		return math.Exp(-xi * xi)
	case ThinPlateSpline:
		if r < utils.VSMALL {
			return 0
		}
		return r * r * math.Log(r)
	}
	panic(fmt.Errorf("unknown kernel %d", k))
}
