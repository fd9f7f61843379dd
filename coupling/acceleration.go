package coupling

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/denMaier/solids4foam-sub000/utils"
)

// Accelerator turns the latest state of a fixed point loop into the next iterate
type Accelerator interface {
	Name() string
	Update(s *IterationState) []float64
	// Factor is the relaxation factor of the last update, for reporting
	Factor() float64
	// NewTimeStep is called once a loop has finished, before the next one starts
	NewTimeStep()
}

type AccelerationType uint8

const (
	FixedRelaxationType AccelerationType = iota
	AitkenType
	IQNILSType
)

var (
	AccelerationNames = map[string]AccelerationType{
		"fixed":            FixedRelaxationType,
		"fixedrelax":       FixedRelaxationType,
		"fixed relaxation": FixedRelaxationType,
		"aitken":           AitkenType,
		"iqn-ils":          IQNILSType,
		"iqnils":           IQNILSType,
		"quasi-newton":     IQNILSType,
	}
	AccelerationPrintNames = []string{"Fixed relaxation", "Aitken", "IQN-ILS"}
)

func (at AccelerationType) String() string { return AccelerationPrintNames[at] }

func NewAccelerationType(label string) (at AccelerationType, err error) {
	var ok bool
	if at, ok = AccelerationNames[strings.ToLower(strings.TrimSpace(label))]; !ok {
		err = fmt.Errorf("unable to use acceleration method named %s", label)
	}
	return
}

type AccelerationOptions struct {
	Type              AccelerationType
	InitialRelaxation float64
	MinRelaxation     float64
	MaxRelaxation     float64
	// ReuseSteps is the number of previous time steps whose quasi-Newton
	// history is kept
	ReuseSteps int
	// FilterTolerance drops history columns whose QR diagonal falls below this
	// fraction of the column norm
	FilterTolerance float64
}

func DefaultAccelerationOptions() AccelerationOptions {
	return AccelerationOptions{
		Type:              AitkenType,
		InitialRelaxation: 0.1,
		MinRelaxation:     0.01,
		MaxRelaxation:     1,
		FilterTolerance:   1.e-6,
	}
}

func (o AccelerationOptions) validate() error {
	if !utils.IsFinitePositive(o.InitialRelaxation) || o.InitialRelaxation > 1 {
		return fmt.Errorf("initial relaxation factor must be in (0, 1], have %g", o.InitialRelaxation)
	}
	if o.Type == FixedRelaxationType {
		return nil
	}
	if !utils.IsFinitePositive(o.MinRelaxation) || o.MaxRelaxation < o.MinRelaxation {
		return fmt.Errorf("relaxation bounds [%g, %g] are not a valid positive range",
			o.MinRelaxation, o.MaxRelaxation)
	}
	if o.ReuseSteps < 0 {
		return fmt.Errorf("reuse steps must not be negative, have %d", o.ReuseSteps)
	}
	if o.Type == IQNILSType && !utils.IsFinitePositive(o.FilterTolerance) {
		return fmt.Errorf("IQN-ILS filter tolerance must be positive, have %g", o.FilterTolerance)
	}
	return nil
}

// NewAccelerator builds the strategy selected in the options
func NewAccelerator(opts AccelerationOptions) (acc Accelerator, err error) {
	if err = opts.validate(); err != nil {
		return
	}
	switch opts.Type {
	case FixedRelaxationType:
		acc = NewFixedRelaxation(opts.InitialRelaxation)
	case AitkenType:
		acc = NewAitken(opts.InitialRelaxation, opts.MinRelaxation, opts.MaxRelaxation)
	case IQNILSType:
		acc = NewIQNILS(opts)
	default:
		err = fmt.Errorf("unknown acceleration type %d", opts.Type)
	}
	return
}

// FixedRelaxation updates x + omega * r with a constant omega
type FixedRelaxation struct {
	Omega float64
}

func NewFixedRelaxation(omega float64) *FixedRelaxation { return &FixedRelaxation{Omega: omega} }

func (fr *FixedRelaxation) Name() string    { return FixedRelaxationType.String() }
func (fr *FixedRelaxation) Factor() float64 { return fr.Omega }
func (fr *FixedRelaxation) NewTimeStep()    {}

func (fr *FixedRelaxation) Update(s *IterationState) []float64 {
	s.Omega = fr.Omega
	return relax(s.Applied, s.Residual, fr.Omega)
}

func relax(x, r []float64, omega float64) (xn []float64) {
	xn = make([]float64, len(x))
	floats.AddScaledTo(xn, x, omega, r)
	return
}

/*
Aitken recomputes the relaxation factor each iteration from consecutive residuals,

	omega_k = -omega_{k-1} * r_{k-1}.(r_k - r_{k-1}) / |r_k - r_{k-1}|^2

clipped to [Min, Max]. The first update of each loop uses the initial factor.
A vanishing residual difference keeps the last factor.
*/
type Aitken struct {
	Initial, Min, Max float64
	omega             float64
}

func NewAitken(initial, min, max float64) *Aitken {
	return &Aitken{
		Initial: initial,
		Min:     min,
		Max:     max,
		omega:   utils.Clamp(initial, min, max),
	}
}

func (ai *Aitken) Name() string    { return AitkenType.String() }
func (ai *Aitken) Factor() float64 { return ai.omega }
func (ai *Aitken) NewTimeStep()    { ai.omega = utils.Clamp(ai.Initial, ai.Min, ai.Max) }

func (ai *Aitken) Update(s *IterationState) []float64 {
	ai.omega = ai.factor(s)
	s.Omega = ai.omega
	return relax(s.Applied, s.Residual, ai.omega)
}

func (ai *Aitken) factor(s *IterationState) float64 {
	if !s.HasPrevious() {
		return utils.Clamp(ai.Initial, ai.Min, ai.Max)
	}
	dr := make([]float64, len(s.Residual))
	floats.SubTo(dr, s.Residual, s.PrevResidual)
	denom := utils.Dot(dr, dr)
	scale := utils.Dot(s.Residual, s.Residual) + utils.Dot(s.PrevResidual, s.PrevResidual)
	if denom <= utils.SMALL*scale || denom < utils.VSMALL {
		return ai.omega
	}
	omega := -ai.omega * utils.Dot(s.PrevResidual, dr) / denom
	if utils.IsNan(omega) {
		return ai.omega
	}
	return utils.Clamp(omega, ai.Min, ai.Max)
}
