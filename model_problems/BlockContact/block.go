package BlockContact

import (
	"fmt"
	"io"

	"github.com/denMaier/solids4foam-sub000/contact"
	"github.com/denMaier/solids4foam-sub000/coupling"
	"github.com/denMaier/solids4foam-sub000/geometry"
	"github.com/denMaier/solids4foam-sub000/types"
	"github.com/denMaier/solids4foam-sub000/utils"
)

type Parameters struct {
	Width, Depth, Height float64
	Cells                int     // along the width and the depth of the contact face
	Gap                  float64 // initial distance between the block and the flat
	Load                 float64 // platen pressure
	Slide                float64 // platen tangential displacement reached at the last step
	Material             contact.Material
	Contact              contact.PairOptions
	AdaptPenalty         bool
	Steps                int
}

func DefaultParameters() Parameters {
	opts := contact.DefaultPairOptions()
	opts.FrictionCoefficient = 0.3
	return Parameters{
		Width:    1,
		Depth:    1,
		Height:   1,
		Cells:    4,
		Load:     10,
		Material: contact.Material{ShearModulus: 600, BulkModulus: 200},
		Contact:  opts,
		Steps:    1,
	}
}

func (p Parameters) validate() error {
	for _, v := range []struct {
		name  string
		value float64
	}{
		{"width", p.Width}, {"depth", p.Depth}, {"height", p.Height},
	} {
		if !utils.IsFinitePositive(v.value) {
			return fmt.Errorf("block %s must be positive, have %g", v.name, v.value)
		}
	}
	if p.Cells < 1 || p.Steps < 1 {
		return fmt.Errorf("block needs at least one cell and one step, have %d and %d", p.Cells, p.Steps)
	}
	return nil
}

/*
BlockContact is an elastic block pressed onto a rigid flat by a platen. Each
face of the block's contact surface is a column of material with compliance
Height / modulus, so for contact traction t the face displacement is

	u_y = Cn (t_y - Load),  u_x = slide + Ct t_x

The contact traction depends on u through the penetration and the friction
slip, and the pair is solved by the contact inner loop with the shared
acceleration methods.
*/
type BlockContact struct {
	Params     Parameters
	Flat       *geometry.Patch
	Block      *geometry.Patch
	Pair       *contact.Pair
	Accelerate coupling.Accelerator
	Criteria   coupling.Criteria
	// Out receives the inner loop iterations, nil for silence
	Out io.Writer

	reference    []types.Vec3
	Cn, Ct       float64
	Displacement []types.Vec3
	step         int
}

func NewBlockContact(p Parameters, acc coupling.AccelerationOptions, crit coupling.Criteria) (b *BlockContact, err error) {
	if err = p.validate(); err != nil {
		return
	}
	if err = p.Material.Validate(); err != nil {
		return
	}
	b = &BlockContact{
		Params:       p,
		Criteria:     crit,
		Cn:           p.Height / p.Material.ImplicitStiffness(),
		Ct:           p.Height / p.Material.ShearModulus,
		Displacement: make([]types.Vec3, p.Cells*p.Cells),
	}
	// The flat overhangs the block by half a width on each side, normal +y
	if b.Flat, err = geometry.NewPlanarGridPatch("flat",
		types.Vec3{-0.5 * p.Width, 0, 1.5 * p.Depth}, types.Vec3{2 * p.Width, 0, 0}, types.Vec3{0, 0, -2 * p.Depth},
		p.Cells, p.Cells); err != nil {
		return nil, err
	}
	// Block contact face, normal -y
	if b.Block, err = geometry.NewPlanarGridPatch("blockBottom",
		types.Vec3{0, p.Gap, 0}, types.Vec3{p.Width, 0, 0}, types.Vec3{0, 0, p.Depth},
		p.Cells, p.Cells); err != nil {
		return nil, err
	}
	b.reference = b.Block.Points()
	if b.Pair, err = contact.NewPair("blockOnFlat", b.Flat, b.Block, p.Material, contact.Material{}, p.Contact); err != nil {
		return nil, err
	}
	if b.Accelerate, err = coupling.NewAccelerator(acc); err != nil {
		return nil, err
	}
	return
}

// PlatenSlide is the tangential platen displacement of the current step
func (b *BlockContact) PlatenSlide() float64 {
	return b.Params.Slide * float64(b.step) / float64(b.Params.Steps)
}

func (b *BlockContact) moveBlock(disp []types.Vec3) (err error) {
	var pointDisp []types.Vec3
	if pointDisp, err = b.Block.FaceToPoint(disp); err != nil {
		return
	}
	pts := make([]types.Vec3, len(pointDisp))
	for i := range pts {
		pts[i] = b.reference[i].Add(pointDisp[i])
	}
	return b.Block.MovePoints(pts)
}

// respond is the block displacement for the contact traction of displacement x
func (b *BlockContact) respond(x []float64) (xt []float64, err error) {
	disp := types.Unflatten(x)
	if err = b.moveBlock(disp); err != nil {
		return
	}
	var traction []types.Vec3
	if traction, err = b.Pair.Correct(disp); err != nil {
		return
	}
	var (
		slide = b.PlatenSlide()
		resp  = make([]types.Vec3, len(traction))
	)
	for i, t := range traction {
		resp[i] = types.Vec3{slide + b.Ct*t[0], b.Cn * (t[1] - b.Params.Load), 0}
	}
	return types.Flatten(resp), nil
}

// Step solves one load step and commits the friction slip
func (b *BlockContact) Step() (res coupling.LoopResult, err error) {
	b.step++
	var x []float64
	if x, res, err = coupling.Iterate(contact.InnerLoop, types.Flatten(b.Displacement),
		b.respond, b.Accelerate, b.Criteria, b.Out); err != nil {
		return
	}
	b.Displacement = types.Unflatten(x)
	// Leave the probe, pressure and slip consistent with the accepted state
	if _, err = b.respond(x); err != nil {
		return
	}
	if b.Params.AdaptPenalty {
		b.Pair.UpdatePenaltyScale()
	}
	b.Pair.NewTimeStep()
	return
}

func (b *BlockContact) Run(w io.Writer) (results []coupling.LoopResult, err error) {
	for n := 0; n < b.Params.Steps; n++ {
		var res coupling.LoopResult
		if res, err = b.Step(); err != nil {
			return
		}
		results = append(results, res)
		if w != nil {
			fmt.Fprintf(w, "Step %d: slide = %10.4e, %d iterations, residual = %10.4e\n",
				b.step, b.PlatenSlide(), res.Iterations, res.Residual)
			b.Pair.Diagnostics().Print(w, b.Pair.Name)
		}
	}
	return
}

// AnalyticPenetration is the frictionless equilibrium penetration from zero
// gap for penalty stiffness k
func (b *BlockContact) AnalyticPenetration(k float64) float64 {
	return -b.Cn * b.Params.Load / (1 + b.Cn*k)
}
