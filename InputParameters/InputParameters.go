package InputParameters

import (
	"fmt"
	"io"

	"github.com/ghodss/yaml"

	"github.com/denMaier/solids4foam-sub000/contact"
	"github.com/denMaier/solids4foam-sub000/coupling"
	"github.com/denMaier/solids4foam-sub000/meshmotion"
	"github.com/denMaier/solids4foam-sub000/model_problems/BlockContact"
	"github.com/denMaier/solids4foam-sub000/model_problems/Channel2D"
)

// Parameters of the fixed point loop, shared by the FSI outer loop and the
// contact inner loop
type CouplingParameters struct {
	Acceleration      string  `json:"Acceleration"`
	InitialRelaxation float64 `json:"InitialRelaxation"`
	MinRelaxation     float64 `json:"MinRelaxation"`
	MaxRelaxation     float64 `json:"MaxRelaxation"`
	ReuseSteps        int     `json:"ReuseSteps"`
	FilterTolerance   float64 `json:"FilterTolerance"`
	Tolerance         float64 `json:"Tolerance"`
	MinIterations     int     `json:"MinIterations"`
	MaxIterations     int     `json:"MaxIterations"`
	Residual          string  `json:"Residual"`     // relative or absolute
	OnDivergence      string  `json:"OnDivergence"` // abort or accept
}

func defaultCoupling() CouplingParameters {
	acc, crit := coupling.DefaultAccelerationOptions(), coupling.DefaultCriteria()
	return CouplingParameters{
		Acceleration:      acc.Type.String(),
		InitialRelaxation: acc.InitialRelaxation,
		MinRelaxation:     acc.MinRelaxation,
		MaxRelaxation:     acc.MaxRelaxation,
		ReuseSteps:        acc.ReuseSteps,
		FilterTolerance:   acc.FilterTolerance,
		Tolerance:         crit.Tolerance,
		MinIterations:     crit.MinIterations,
		MaxIterations:     crit.MaxIterations,
		Residual:          crit.Residual.String(),
		OnDivergence:      crit.OnDivergence.String(),
	}
}

func (cp CouplingParameters) AccelerationOptions() (acc coupling.AccelerationOptions, err error) {
	if acc.Type, err = coupling.NewAccelerationType(cp.Acceleration); err != nil {
		return
	}
	acc.InitialRelaxation = cp.InitialRelaxation
	acc.MinRelaxation, acc.MaxRelaxation = cp.MinRelaxation, cp.MaxRelaxation
	acc.ReuseSteps, acc.FilterTolerance = cp.ReuseSteps, cp.FilterTolerance
	return
}

func (cp CouplingParameters) Criteria() (crit coupling.Criteria, err error) {
	crit.Tolerance = cp.Tolerance
	crit.MinIterations, crit.MaxIterations = cp.MinIterations, cp.MaxIterations
	if crit.Residual, err = coupling.NewResidualType(cp.Residual); err != nil {
		return
	}
	crit.OnDivergence, err = coupling.NewDivergencePolicy(cp.OnDivergence)
	return
}

func (cp CouplingParameters) print(w io.Writer) {
	fmt.Fprintf(w, "[%s]\t\t\t= Acceleration\n", cp.Acceleration)
	fmt.Fprintf(w, "%8.5f\t\t= Initial Relaxation\n", cp.InitialRelaxation)
	fmt.Fprintf(w, "[%8.5f, %8.5f]\t= Relaxation Bounds\n", cp.MinRelaxation, cp.MaxRelaxation)
	if at, _ := coupling.NewAccelerationType(cp.Acceleration); at == coupling.IQNILSType {
		fmt.Fprintf(w, "[%d]\t\t\t\t= Reuse Steps\n", cp.ReuseSteps)
	}
	fmt.Fprintf(w, "%8.2e\t\t= Tolerance (%s)\n", cp.Tolerance, cp.Residual)
	fmt.Fprintf(w, "[%d, %d]\t\t\t= Iteration Bounds\n", cp.MinIterations, cp.MaxIterations)
	fmt.Fprintf(w, "[%s]\t\t\t= On Divergence\n", cp.OnDivergence)
}

// FSIParameters describe a channel flow with a flexible wall
type FSIParameters struct {
	Title         string             `json:"Title"`
	Length        float64            `json:"Length"`
	Height        float64            `json:"Height"`
	Depth         float64            `json:"Depth"`
	Viscosity     float64            `json:"Viscosity"`
	FlowRate      float64            `json:"FlowRate"`
	RampTime      float64            `json:"RampTime"`
	Tension       float64            `json:"Tension"`
	Foundation    float64            `json:"Foundation"`
	FluidCells    int                `json:"FluidCells"`
	FluidLayers   int                `json:"FluidLayers"`
	SolidCells    int                `json:"SolidCells"`
	MeshMotion    string             `json:"MeshMotion"`
	TimeStep      float64            `json:"TimeStep"`
	Steps         int                `json:"Steps"`
	Predictor     string             `json:"Predictor"`
	MoveInterface bool               `json:"MoveInterface"`
	Coupling      CouplingParameters `json:"Coupling"`
}

func NewFSIParameters() *FSIParameters {
	p := Channel2D.DefaultParameters()
	return &FSIParameters{
		Title:         "Flexible channel",
		Length:        p.Length,
		Height:        p.Height,
		Depth:         p.Depth,
		Viscosity:     p.Viscosity,
		FlowRate:      p.FlowRate,
		RampTime:      p.RampTime,
		Tension:       p.Tension,
		Foundation:    p.Foundation,
		FluidCells:    p.FluidCells,
		FluidLayers:   p.FluidLayers,
		SolidCells:    p.SolidCells,
		MeshMotion:    p.Kernel.String(),
		TimeStep:      p.TimeStep,
		Steps:         p.Steps,
		Predictor:     coupling.PreviousStep.String(),
		MoveInterface: true,
		Coupling:      defaultCoupling(),
	}
}

// Parse overlays the YAML input on the current values
func (ip *FSIParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, ip)
}

func (ip *FSIParameters) Print(w io.Writer) {
	fmt.Fprintf(w, "\"%s\"\t\t= Title\n", ip.Title)
	fmt.Fprintf(w, "[%8.4f, %8.4f, %8.4f]\t= Length, Height, Depth\n", ip.Length, ip.Height, ip.Depth)
	fmt.Fprintf(w, "%8.5f\t\t= Viscosity\n", ip.Viscosity)
	fmt.Fprintf(w, "%8.5f\t\t= Flow Rate (ramp %8.4f)\n", ip.FlowRate, ip.RampTime)
	fmt.Fprintf(w, "[%8.4g, %8.4g]\t= Tension, Foundation\n", ip.Tension, ip.Foundation)
	fmt.Fprintf(w, "[%d x %d / %d]\t\t= Fluid / Solid Cells\n", ip.FluidCells, ip.FluidLayers, ip.SolidCells)
	fmt.Fprintf(w, "[%s]\t\t= Mesh Motion\n", ip.MeshMotion)
	fmt.Fprintf(w, "%8.5f\t\t= Time Step (%d steps)\n", ip.TimeStep, ip.Steps)
	fmt.Fprintf(w, "[%s]\t\t\t= Predictor\n", ip.Predictor)
	ip.Coupling.print(w)
}

func (ip *FSIParameters) ChannelParameters() (p Channel2D.Parameters, err error) {
	p = Channel2D.Parameters{
		Length:      ip.Length,
		Height:      ip.Height,
		Depth:       ip.Depth,
		Viscosity:   ip.Viscosity,
		FlowRate:    ip.FlowRate,
		RampTime:    ip.RampTime,
		Tension:     ip.Tension,
		Foundation:  ip.Foundation,
		FluidCells:  ip.FluidCells,
		FluidLayers: ip.FluidLayers,
		SolidCells:  ip.SolidCells,
		TimeStep:    ip.TimeStep,
		Steps:       ip.Steps,
	}
	p.Kernel, err = meshmotion.NewKernel(ip.MeshMotion)
	return
}

func (ip *FSIParameters) CouplingOptions() (opts coupling.Options, err error) {
	opts = coupling.DefaultOptions()
	if opts.Acceleration, err = ip.Coupling.AccelerationOptions(); err != nil {
		return
	}
	if opts.Criteria, err = ip.Coupling.Criteria(); err != nil {
		return
	}
	if opts.Predictor, err = coupling.NewPredictor(ip.Predictor); err != nil {
		return
	}
	opts.MoveInterface = ip.MoveInterface
	return
}

// ContactParameters describe a block pressed and slid on a rigid flat
type ContactParameters struct {
	Title                string             `json:"Title"`
	Width                float64            `json:"Width"`
	Depth                float64            `json:"Depth"`
	Height               float64            `json:"Height"`
	Cells                int                `json:"Cells"`
	Gap                  float64            `json:"Gap"`
	Load                 float64            `json:"Load"`
	Slide                float64            `json:"Slide"`
	ShearModulus         float64            `json:"ShearModulus"`
	BulkModulus          float64            `json:"BulkModulus"`
	FrictionCoefficient  float64            `json:"FrictionCoefficient"`
	PenaltyScale         float64            `json:"PenaltyScale"`
	FrictionPenaltyScale float64            `json:"FrictionPenaltyScale"`
	AdaptPenalty         bool               `json:"AdaptPenalty"`
	SearchDistance       float64            `json:"SearchDistance"`
	Steps                int                `json:"Steps"`
	Coupling             CouplingParameters `json:"Coupling"`
}

func NewContactParameters() *ContactParameters {
	p := BlockContact.DefaultParameters()
	return &ContactParameters{
		Title:                "Block on a flat",
		Width:                p.Width,
		Depth:                p.Depth,
		Height:               p.Height,
		Cells:                p.Cells,
		Gap:                  p.Gap,
		Load:                 p.Load,
		Slide:                p.Slide,
		ShearModulus:         p.Material.ShearModulus,
		BulkModulus:          p.Material.BulkModulus,
		FrictionCoefficient:  p.Contact.FrictionCoefficient,
		PenaltyScale:         p.Contact.PenaltyScale,
		FrictionPenaltyScale: p.Contact.FrictionPenaltyScale,
		AdaptPenalty:         p.AdaptPenalty,
		SearchDistance:       p.Contact.Probe.SearchDistance,
		Steps:                p.Steps,
		Coupling:             defaultCoupling(),
	}
}

func (ip *ContactParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, ip)
}

func (ip *ContactParameters) Print(w io.Writer) {
	fmt.Fprintf(w, "\"%s\"\t\t= Title\n", ip.Title)
	fmt.Fprintf(w, "[%8.4f, %8.4f, %8.4f]\t= Width, Depth, Height\n", ip.Width, ip.Depth, ip.Height)
	fmt.Fprintf(w, "[%d]\t\t\t\t= Cells\n", ip.Cells)
	fmt.Fprintf(w, "[%8.4g, %8.4g]\t= Shear, Bulk Modulus\n", ip.ShearModulus, ip.BulkModulus)
	fmt.Fprintf(w, "%8.5f\t\t= Load\n", ip.Load)
	fmt.Fprintf(w, "%8.5f\t\t= Slide\n", ip.Slide)
	fmt.Fprintf(w, "%8.5f\t\t= Friction Coefficient\n", ip.FrictionCoefficient)
	fmt.Fprintf(w, "[%8.4g, %8.4g]\t= Penalty Scales (adaptive %v)\n",
		ip.PenaltyScale, ip.FrictionPenaltyScale, ip.AdaptPenalty)
	fmt.Fprintf(w, "[%d]\t\t\t\t= Steps\n", ip.Steps)
	ip.Coupling.print(w)
}

func (ip *ContactParameters) BlockParameters() (p BlockContact.Parameters) {
	p = BlockContact.DefaultParameters()
	p.Width, p.Depth, p.Height = ip.Width, ip.Depth, ip.Height
	p.Cells, p.Gap, p.Load, p.Slide = ip.Cells, ip.Gap, ip.Load, ip.Slide
	p.Material = contact.Material{ShearModulus: ip.ShearModulus, BulkModulus: ip.BulkModulus}
	p.Contact.FrictionCoefficient = ip.FrictionCoefficient
	p.Contact.PenaltyScale = ip.PenaltyScale
	p.Contact.FrictionPenaltyScale = ip.FrictionPenaltyScale
	p.Contact.Probe.SearchDistance = ip.SearchDistance
	p.AdaptPenalty = ip.AdaptPenalty
	p.Steps = ip.Steps
	return
}
