package geometry

import (
	"github.com/denMaier/solids4foam-sub000/types"
)

// ClosestPointOnTriangle follows Ericson, Real-Time Collision Detection, 5.1.5
func ClosestPointOnTriangle(p, a, b, c types.Vec3) types.Vec3 {
	var (
		ab, ac = b.Sub(a), c.Sub(a)
		ap     = p.Sub(a)
		d1, d2 = ab.Dot(ap), ac.Dot(ap)
	)
	if d1 <= 0 && d2 <= 0 {
		return a
	}
	bp := p.Sub(b)
	d3, d4 := ab.Dot(bp), ac.Dot(bp)
	if d3 >= 0 && d4 <= d3 {
		return b
	}
	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		return a.Add(ab.Scale(d1 / (d1 - d3)))
	}
	cp := p.Sub(c)
	d5, d6 := ab.Dot(cp), ac.Dot(cp)
	if d6 >= 0 && d5 <= d6 {
		return c
	}
	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		return a.Add(ac.Scale(d2 / (d2 - d6)))
	}
	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		return b.Add(c.Sub(b).Scale((d4 - d3) / ((d4 - d3) + (d5 - d6))))
	}
	denom := 1. / (va + vb + vc)
	v, w := vb*denom, vc*denom
	return a.Add(ab.Scale(v)).Add(ac.Scale(w))
}

// ClosestPointOnFace decomposes the polygon into a fan about its centre
func ClosestPointOnFace(p types.Vec3, pts []types.Vec3, centre types.Vec3) (cp types.Vec3) {
	var (
		best = -1.
		n    = len(pts)
	)
	for i := 0; i < n; i++ {
		q := ClosestPointOnTriangle(p, centre, pts[i], pts[(i+1)%n])
		if d := q.Sub(p).MagSqr(); best < 0 || d < best {
			best, cp = d, q
		}
	}
	return
}
