package Channel2D

import (
	"time"

	"github.com/notargets/avs/chart2d"
	utils2 "github.com/notargets/avs/utils"

	"github.com/denMaier/solids4foam-sub000/types"
	"github.com/denMaier/solids4foam-sub000/utils"
)

type graphSeries struct {
	Name string
	X, F []float64
}

// plotSeries returns the membrane deflection and the interface pressure
// along the channel, each scaled by its largest magnitude
func (c *Channel) plotSeries() (series []graphSeries) {
	var (
		deflection = c.Solid.Deflection()
		pressure   = c.Fluid.Pressure()
	)
	series = []graphSeries{
		{Name: "Deflection (scaled)", X: faceX(c.Solid.InterfacePatch().FaceCentres()),
			F: scaled(deflection)},
		{Name: "Pressure (scaled)", X: faceX(c.Fluid.InterfacePatch().FaceCentres()),
			F: scaled(pressure)},
	}
	return
}

func faceX(centres []types.Vec3) (x []float64) {
	x = make([]float64, len(centres))
	for i, c := range centres {
		x[i] = c[0]
	}
	return
}

func scaled(f []float64) (s []float64) {
	s = make([]float64, len(f))
	fmax := utils.MaxAbs(f)
	if fmax < utils.VSMALL {
		return
	}
	for i, v := range f {
		s[i] = v / fmax
	}
	return
}

type channelChart struct {
	chart    *chart2d.Chart2D
	colorMap *utils2.ColorMap
	delay    time.Duration
}

func newChannelChart(length float64, graphDelay ...time.Duration) (cc *channelChart) {
	cc = &channelChart{
		chart:    chart2d.NewChart2D(1920, 1280, 0, float32(length), -1, 1),
		colorMap: utils2.NewColorMap(-1, 1, 1),
	}
	if len(graphDelay) != 0 {
		cc.delay = graphDelay[0]
	}
	go cc.chart.Plot()
	return
}

func (cc *channelChart) plot(series []graphSeries) {
	for i, s := range series {
		color := cc.colorMap.GetRGB(0)
		if i > 0 {
			color = cc.colorMap.GetRGB(0.7)
		}
		if err := cc.chart.AddSeries(s.Name, s.X, s.F,
			chart2d.CrossGlyph, chart2d.Dashed, color); err != nil {
			panic("unable to add graph series")
		}
	}
	if cc.delay != 0 {
		time.Sleep(cc.delay)
	}
}
