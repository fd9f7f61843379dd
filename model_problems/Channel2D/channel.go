package Channel2D

import (
	"fmt"
	"io"
	"time"

	"github.com/denMaier/solids4foam-sub000/coupling"
	"github.com/denMaier/solids4foam-sub000/meshmotion"
	"github.com/denMaier/solids4foam-sub000/utils"
)

type Parameters struct {
	Length, Height, Depth float64
	Viscosity             float64
	FlowRate              float64 // per unit depth
	RampTime              float64
	Tension, Foundation   float64
	FluidCells            int // along the channel
	FluidLayers           int // across the gap
	SolidCells            int
	Kernel                meshmotion.Kernel
	TimeStep              float64
	Steps                 int
	ParallelDegree        int // goroutines moving the fluid mesh, 0 for NumCPU
}

func DefaultParameters() Parameters {
	return Parameters{
		Length:      1,
		Height:      0.1,
		Depth:       0.1,
		Viscosity:   1,
		FlowRate:    0.01,
		RampTime:    0.5,
		Tension:     100,
		Foundation:  1.e4,
		FluidCells:  20,
		FluidLayers: 4,
		SolidCells:  15,
		Kernel:      meshmotion.Wendland,
		TimeStep:    0.25,
		Steps:       4,
	}
}

func (p Parameters) validate() error {
	for _, v := range []struct {
		name  string
		value float64
	}{
		{"length", p.Length}, {"height", p.Height}, {"depth", p.Depth}, {"viscosity", p.Viscosity},
	} {
		if !utils.IsFinitePositive(v.value) {
			return fmt.Errorf("channel %s must be positive, have %g", v.name, v.value)
		}
	}
	if p.Tension < 0 || p.Foundation < 0 || p.Tension+p.Foundation == 0 {
		return fmt.Errorf("membrane needs tension or foundation stiffness, have %g and %g", p.Tension, p.Foundation)
	}
	if p.ParallelDegree < 0 {
		return fmt.Errorf("channel ParallelDegree must not be negative, have %d", p.ParallelDegree)
	}
	if p.FluidCells < 1 || p.FluidLayers < 1 || p.SolidCells < 1 {
		return fmt.Errorf("channel needs at least one cell in each direction, have %d, %d, %d",
			p.FluidCells, p.FluidLayers, p.SolidCells)
	}
	return nil
}

// Channel is a channel flow with a flexible upper wall, coupled through the
// partitioned driver. The fluid and membrane interface meshes do not match.
type Channel struct {
	Params Parameters
	Fluid  *Fluid
	Solid  *Membrane
	Driver *coupling.Driver
	Time   float64

	LastResult *coupling.StepResult
}

func NewChannel(p Parameters, opts coupling.Options) (c *Channel, err error) {
	c = &Channel{Params: p}
	if c.Fluid, err = NewFluid(p); err != nil {
		return nil, err
	}
	if c.Solid, err = NewMembrane(p); err != nil {
		return nil, err
	}
	if c.Driver, err = coupling.NewDriver(c.Fluid, c.Solid, c.Fluid, opts); err != nil {
		return nil, err
	}
	return
}

func (c *Channel) PrintInitialization(w io.Writer) {
	p := c.Params
	fmt.Fprintf(w, "Channel flow with a flexible wall\n")
	fmt.Fprintf(w, "L = %8.4f, H = %8.4f, D = %8.4f, mu = %8.4f, q = %8.4f\n",
		p.Length, p.Height, p.Depth, p.Viscosity, p.FlowRate)
	fmt.Fprintf(w, "Membrane tension = %8.4g, foundation = %8.4g\n", p.Tension, p.Foundation)
	fmt.Fprintf(w, "Fluid cells = %d x %d, membrane cells = %d, mesh motion = %s\n",
		p.FluidCells, p.FluidLayers, p.SolidCells, p.Kernel)
	fmt.Fprintf(w, "Acceleration = %s\n\n", c.Driver.Accelerator.Name())
}

// Run advances Steps time steps, stopping at the first failed step. With
// showGraph the deflection and pressure are plotted after every step.
func (c *Channel) Run(w io.Writer, showGraph bool, graphDelay ...time.Duration) (results []*coupling.StepResult, err error) {
	var (
		chart *channelChart
	)
	if showGraph {
		chart = newChannelChart(c.Params.Length, graphDelay...)
	}
	for n := 0; n < c.Params.Steps; n++ {
		if err = c.Advance(); err != nil {
			return
		}
		res := c.LastResult
		results = append(results, res)
		if w != nil {
			res.Print(w)
			c.PrintUpdate(w)
		}
		if showGraph {
			chart.plot(c.plotSeries())
		}
	}
	return
}

func (c *Channel) Advance() (err error) {
	c.Time += c.Params.TimeStep
	c.Fluid.SetTime(c.Time)
	if c.LastResult, err = c.Driver.Step(); err != nil {
		return
	}
	c.Fluid.PressureField.StoreOldTime()
	return
}

func (c *Channel) PrintUpdate(w io.Writer) {
	var (
		pf     = c.Fluid.PressureField
		change = make([]float64, len(pf.Old))
	)
	for i := range change {
		change[i] = pf.Old[i] - pf.OldOld[i]
	}
	fmt.Fprintf(w, "Time = %8.4f, max pressure = %10.4e (change %10.4e), max deflection = %10.4e\n",
		c.Time, utils.MaxAbs(pf.Old), utils.MaxAbs(change), utils.MaxAbs(c.Solid.Deflection()))
}
