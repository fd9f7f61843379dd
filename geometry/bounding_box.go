package geometry

import (
	"math"

	"github.com/denMaier/solids4foam-sub000/types"
)

type BoundingBox struct {
	XMin types.Vec3
	XMax types.Vec3
}

func NewBoundingBox(Geometry []types.Vec3) (Box BoundingBox) {
	if len(Geometry) == 0 {
		return
	}
	Box.XMin, Box.XMax = Geometry[0], Geometry[0]
	for _, point := range Geometry {
		for i := 0; i < 3; i++ {
			if point[i] < Box.XMin[i] {
				Box.XMin[i] = point[i]
			}
			if point[i] > Box.XMax[i] {
				Box.XMax[i] = point[i]
			}
		}
	}
	return
}

func (bb BoundingBox) Centroid() types.Vec3 {
	return bb.XMin.Add(bb.XMax).Scale(0.5)
}

// Span is the diagonal length of the box
func (bb BoundingBox) Span() float64 {
	return bb.XMax.Sub(bb.XMin).Mag()
}

// Inflate grows the box by d in every direction
func (bb BoundingBox) Inflate(d float64) BoundingBox {
	delta := types.Vec3{d, d, d}
	return BoundingBox{
		XMin: bb.XMin.Sub(delta),
		XMax: bb.XMax.Add(delta),
	}
}

func (bb BoundingBox) Overlaps(o BoundingBox) bool {
	for i := 0; i < 3; i++ {
		if bb.XMax[i] < o.XMin[i] || o.XMax[i] < bb.XMin[i] {
			return false
		}
	}
	return true
}

func (bb BoundingBox) Contains(p types.Vec3) bool {
	for i := 0; i < 3; i++ {
		if p[i] < bb.XMin[i] || p[i] > bb.XMax[i] {
			return false
		}
	}
	return true
}

// Distance from p to the box, zero inside
func (bb BoundingBox) Distance(p types.Vec3) float64 {
	var d2 float64
	for i := 0; i < 3; i++ {
		var d float64
		if p[i] < bb.XMin[i] {
			d = bb.XMin[i] - p[i]
		} else if p[i] > bb.XMax[i] {
			d = p[i] - bb.XMax[i]
		}
		d2 += d * d
	}
	return math.Sqrt(d2)
}
