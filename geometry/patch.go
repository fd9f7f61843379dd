package geometry

import (
	"fmt"
	"math"
	"sync"

	"github.com/denMaier/solids4foam-sub000/types"
)

/*
Patch is one side of a fluid-solid or contact interface: a set of points and
polygonal faces referencing them. Derived face geometry is cached and tagged
with the generation it was computed for; every call to MovePoints bumps the
generation, so consumers that hold their own caches (interpolation weights,
RBF systems) compare generations instead of being told to clear.
*/
type Patch struct {
	Name   string
	points []types.Vec3
	faces  [][]int

	generation uint64
	mu         sync.Mutex
	geom       *faceGeometry
	pointFaces [][]int // topology, fixed for the lifetime of the patch
}

type faceGeometry struct {
	generation uint64
	centres    []types.Vec3
	areas      []types.Vec3 // area vectors, oriented by the face point ordering
	magAreas   []float64
	normals    []types.Vec3
	boxes      []BoundingBox
}

func NewPatch(name string, points []types.Vec3, faces [][]int) (p *Patch, err error) {
	for f, face := range faces {
		if len(face) < 3 {
			err = fmt.Errorf("patch %s: face %d has %d points, need at least 3", name, f, len(face))
			return
		}
		for _, pt := range face {
			if pt < 0 || pt >= len(points) {
				err = fmt.Errorf("patch %s: face %d references point %d, have %d points",
					name, f, pt, len(points))
				return
			}
		}
	}
	p = &Patch{
		Name:   name,
		points: types.CopyVec3(points),
		faces:  make([][]int, len(faces)),
	}
	for f, face := range faces {
		p.faces[f] = append([]int(nil), face...)
	}
	p.pointFaces = make([][]int, len(points))
	for f, face := range p.faces {
		for _, pt := range face {
			p.pointFaces[pt] = append(p.pointFaces[pt], f)
		}
	}
	return
}

func (p *Patch) NFaces() int  { return len(p.faces) }
func (p *Patch) NPoints() int { return len(p.points) }

// Generation changes whenever point positions change
func (p *Patch) Generation() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generation
}

// Points returns a copy of the current point positions
func (p *Patch) Points() []types.Vec3 { return types.CopyVec3(p.points) }

func (p *Patch) Face(f int) []int { return p.faces[f] }

// PointFaces lists the faces that share point i
func (p *Patch) PointFaces(i int) []int { return p.pointFaces[i] }

func (p *Patch) FacePoints(f int) (pts []types.Vec3) {
	pts = make([]types.Vec3, len(p.faces[f]))
	for i, pt := range p.faces[f] {
		pts[i] = p.points[pt]
	}
	return
}

func (p *Patch) MovePoints(newPoints []types.Vec3) error {
	if len(newPoints) != len(p.points) {
		return fmt.Errorf("patch %s: moving %d points with %d new positions",
			p.Name, len(p.points), len(newPoints))
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	copy(p.points, newPoints)
	p.generation++
	return nil
}

// DisplacePoints adds a displacement to every point
func (p *Patch) DisplacePoints(disp []types.Vec3) error {
	if len(disp) != len(p.points) {
		return fmt.Errorf("patch %s: displacing %d points with %d displacements",
			p.Name, len(p.points), len(disp))
	}
	newPoints := make([]types.Vec3, len(p.points))
	for i := range newPoints {
		newPoints[i] = p.points[i].Add(disp[i])
	}
	return p.MovePoints(newPoints)
}

func (p *Patch) geometry() *faceGeometry {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.geom != nil && p.geom.generation == p.generation {
		return p.geom
	}
	var (
		N = len(p.faces)
		g = &faceGeometry{
			generation: p.generation,
			centres:    make([]types.Vec3, N),
			areas:      make([]types.Vec3, N),
			magAreas:   make([]float64, N),
			normals:    make([]types.Vec3, N),
			boxes:      make([]BoundingBox, N),
		}
	)
	for f, face := range p.faces {
		pts := make([]types.Vec3, len(face))
		for i, pt := range face {
			pts[i] = p.points[pt]
		}
		g.centres[f], g.areas[f] = faceCentreAndArea(pts)
		g.magAreas[f] = g.areas[f].Mag()
		g.normals[f] = g.areas[f].Normalized()
		g.boxes[f] = NewBoundingBox(pts)
	}
	p.geom = g
	return g
}

// faceCentreAndArea decomposes the polygon into triangles about the point
// average and area-weights the triangle centroids
func faceCentreAndArea(pts []types.Vec3) (centre, area types.Vec3) {
	var (
		n    = len(pts)
		pAvg types.Vec3
	)
	if n == 3 {
		area = pts[1].Sub(pts[0]).Cross(pts[2].Sub(pts[0])).Scale(0.5)
		centre = pts[0].Add(pts[1]).Add(pts[2]).Scale(1. / 3.)
		return
	}
	for _, pt := range pts {
		pAvg = pAvg.Add(pt)
	}
	pAvg = pAvg.Scale(1. / float64(n))
	var (
		sumA  float64
		sumAc types.Vec3
	)
	for i := 0; i < n; i++ {
		a, b := pts[i], pts[(i+1)%n]
		triArea := b.Sub(a).Cross(pAvg.Sub(a)).Scale(0.5)
		triCentre := a.Add(b).Add(pAvg).Scale(1. / 3.)
		area = area.Add(triArea)
		magA := triArea.Mag()
		sumA += magA
		sumAc = sumAc.Add(triCentre.Scale(magA))
	}
	if sumA < types.SMALL {
		centre = pAvg
		return
	}
	centre = sumAc.Scale(1. / sumA)
	return
}

func (p *Patch) FaceCentres() []types.Vec3 { return types.CopyVec3(p.geometry().centres) }
func (p *Patch) FaceAreas() []types.Vec3   { return types.CopyVec3(p.geometry().areas) }
func (p *Patch) FaceNormals() []types.Vec3 { return types.CopyVec3(p.geometry().normals) }
func (p *Patch) MagFaceAreas() []float64 {
	return append([]float64(nil), p.geometry().magAreas...)
}
func (p *Patch) FaceCentre(f int) types.Vec3       { return p.geometry().centres[f] }
func (p *Patch) FaceNormal(f int) types.Vec3       { return p.geometry().normals[f] }
func (p *Patch) MagFaceArea(f int) float64         { return p.geometry().magAreas[f] }
func (p *Patch) FaceBoundingBox(f int) BoundingBox { return p.geometry().boxes[f] }
func (p *Patch) BoundingBox() BoundingBox          { return NewBoundingBox(p.points) }
func (p *Patch) TotalArea() (a float64) {
	for _, m := range p.geometry().magAreas {
		a += m
	}
	return
}

// CharacteristicLength is the mean square root of the face areas
func (p *Patch) CharacteristicLength() float64 {
	g := p.geometry()
	if len(g.magAreas) == 0 {
		return 0
	}
	var sum float64
	for _, m := range g.magAreas {
		sum += math.Sqrt(m)
	}
	return sum / float64(len(g.magAreas))
}

// Integrate returns the area integral of a per-face field, e.g. the net
// force of a traction field
func (p *Patch) Integrate(field []types.Vec3) (sum types.Vec3) {
	g := p.geometry()
	if len(field) != len(g.magAreas) {
		panic(fmt.Errorf("patch %s: integrating %d values over %d faces", p.Name, len(field), len(g.magAreas)))
	}
	for f, val := range field {
		sum = sum.Add(val.Scale(g.magAreas[f]))
	}
	return
}

// FaceToPoint interpolates face values to points with inverse distance weights
func (p *Patch) FaceToPoint(field []types.Vec3) (pf []types.Vec3, err error) {
	if len(field) != len(p.faces) {
		err = fmt.Errorf("patch %s: face field has %d values, have %d faces", p.Name, len(field), len(p.faces))
		return
	}
	var (
		g = p.geometry()
	)
	pf = make([]types.Vec3, len(p.points))
	for i, faces := range p.pointFaces {
		var (
			sumW float64
			sum  types.Vec3
		)
		for _, f := range faces {
			w := 1. / math.Max(g.centres[f].Sub(p.points[i]).Mag(), types.SMALL)
			sumW += w
			sum = sum.Add(field[f].Scale(w))
		}
		if sumW > 0 {
			pf[i] = sum.Scale(1. / sumW)
		}
	}
	return
}

// PointToFace averages point values onto faces
func (p *Patch) PointToFace(field []types.Vec3) (ff []types.Vec3, err error) {
	if len(field) != len(p.points) {
		err = fmt.Errorf("patch %s: point field has %d values, have %d points", p.Name, len(field), len(p.points))
		return
	}
	ff = make([]types.Vec3, len(p.faces))
	for f, face := range p.faces {
		for _, pt := range face {
			ff[f] = ff[f].Add(field[pt])
		}
		ff[f] = ff[f].Scale(1. / float64(len(face)))
	}
	return
}

/*
NewPlanarGridPatch builds an nu x nv grid of quadrilaterals on the
parallelogram origin + a*u + b*v, a,b in [0,1]. Face normals point along u x v.
Point (a,b) has index a + b*(nu+1), face (a,b) has index a + b*nu.
*/
func NewPlanarGridPatch(name string, origin, u, v types.Vec3, nu, nv int) (p *Patch, err error) {
	if nu < 1 || nv < 1 {
		err = fmt.Errorf("patch %s: grid needs at least one face in each direction, have %d x %d", name, nu, nv)
		return
	}
	var (
		points = make([]types.Vec3, 0, (nu+1)*(nv+1))
		faces  = make([][]int, 0, nu*nv)
	)
	for b := 0; b <= nv; b++ {
		for a := 0; a <= nu; a++ {
			points = append(points, origin.
				Add(u.Scale(float64(a)/float64(nu))).
				Add(v.Scale(float64(b)/float64(nv))))
		}
	}
	idx := func(a, b int) int { return a + b*(nu+1) }
	for b := 0; b < nv; b++ {
		for a := 0; a < nu; a++ {
			faces = append(faces, []int{idx(a, b), idx(a+1, b), idx(a+1, b+1), idx(a, b+1)})
		}
	}
	return NewPatch(name, points, faces)
}
