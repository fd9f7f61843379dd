package geometry

import (
	"math"

	"github.com/denMaier/solids4foam-sub000/types"
)

// Point2 is a position in the local coordinates of a face plane
type Point2 [2]float64

// PlaneBasis returns two unit vectors spanning the plane with unit normal n
func PlaneBasis(n types.Vec3) (e1, e2 types.Vec3) {
	// Pick the axis least aligned with n to seed the basis
	seed := types.Vec3{1, 0, 0}
	if math.Abs(n[1]) < math.Abs(n[0]) && math.Abs(n[1]) <= math.Abs(n[2]) {
		seed = types.Vec3{0, 1, 0}
	} else if math.Abs(n[2]) < math.Abs(n[0]) && math.Abs(n[2]) < math.Abs(n[1]) {
		seed = types.Vec3{0, 0, 1}
	}
	e1 = seed.Tangential(n).Normalized()
	e2 = n.Cross(e1)
	return
}

// Project maps points into the plane (origin, e1, e2)
func Project(pts []types.Vec3, origin, e1, e2 types.Vec3) (P []Point2) {
	P = make([]Point2, len(pts))
	for i, p := range pts {
		d := p.Sub(origin)
		P[i] = Point2{d.Dot(e1), d.Dot(e2)}
	}
	return
}

// SignedArea is the shoelace area, positive for counter clockwise ordering
func SignedArea(P []Point2) (a float64) {
	n := len(P)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		a += P[i][0]*P[j][1] - P[j][0]*P[i][1]
	}
	return 0.5 * a
}

// CounterClockwise returns P reordered counter clockwise if needed
func CounterClockwise(P []Point2) []Point2 {
	if SignedArea(P) >= 0 {
		return P
	}
	R := make([]Point2, len(P))
	for i := range P {
		R[i] = P[len(P)-1-i]
	}
	return R
}

// ClipConvex clips subject against the convex clip polygon (Sutherland-Hodgman).
// Both polygons must be ordered counter clockwise.
func ClipConvex(subject, clip []Point2) (out []Point2) {
	const tol = 1.e-14
	out = subject
	nc := len(clip)
	for i := 0; i < nc && len(out) > 0; i++ {
		var (
			a, b  = clip[i], clip[(i+1)%nc]
			edge  = Point2{b[0] - a[0], b[1] - a[1]}
			scale = math.Hypot(edge[0], edge[1])
			in    = out
		)
		side := func(p Point2) float64 {
			return (edge[0]*(p[1]-a[1]) - edge[1]*(p[0]-a[0])) / scale
		}
		out = nil
		for j := range in {
			var (
				cur, prev = in[j], in[(j+len(in)-1)%len(in)]
				sc, sp    = side(cur), side(prev)
			)
			switch {
			case sc >= -tol && sp >= -tol:
				out = append(out, cur)
			case sc >= -tol:
				out = append(out, intersect(prev, cur, sp, sc), cur)
			case sp >= -tol:
				out = append(out, intersect(prev, cur, sp, sc))
			}
		}
	}
	return
}

func intersect(p, q Point2, sp, sq float64) Point2 {
	t := sp / (sp - sq)
	return Point2{p[0] + t*(q[0]-p[0]), p[1] + t*(q[1]-p[1])}
}

// IntersectionArea is the area of overlap of two faces after projecting both
// onto the plane of the target face
func IntersectionArea(source, target []types.Vec3, targetCentre, targetNormal types.Vec3) float64 {
	var (
		e1, e2 = PlaneBasis(targetNormal)
		S      = CounterClockwise(Project(source, targetCentre, e1, e2))
		T      = CounterClockwise(Project(target, targetCentre, e1, e2))
	)
	clipped := ClipConvex(S, T)
	if len(clipped) < 3 {
		return 0
	}
	return math.Abs(SignedArea(clipped))
}
