package types

import (
	"fmt"
	"math"
)

const (
	SMALL = 1.e-15
)

// Vec3 is a point, displacement, traction or normal in three dimensions
type Vec3 [3]float64

func (a Vec3) Add(b Vec3) Vec3 { return Vec3{a[0] + b[0], a[1] + b[1], a[2] + b[2]} }
func (a Vec3) Sub(b Vec3) Vec3 { return Vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }
func (a Vec3) Scale(s float64) Vec3 {
	return Vec3{s * a[0], s * a[1], s * a[2]}
}
func (a Vec3) Dot(b Vec3) float64 { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }
func (a Vec3) Cross(b Vec3) Vec3 {
	return Vec3{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}
func (a Vec3) MagSqr() float64 { return a.Dot(a) }
func (a Vec3) Mag() float64    { return math.Sqrt(a.Dot(a)) }

// Normalized returns the unit vector, or the zero vector if a has no length
func (a Vec3) Normalized() Vec3 {
	m := a.Mag()
	if m < SMALL {
		return Vec3{}
	}
	return a.Scale(1. / m)
}

// Tangential removes the component of a along the unit normal n
func (a Vec3) Tangential(n Vec3) Vec3 {
	return a.Sub(n.Scale(a.Dot(n)))
}

func (a Vec3) IsNan() bool {
	return math.IsNaN(a[0]) || math.IsNaN(a[1]) || math.IsNaN(a[2])
}

func (a Vec3) String() string {
	return fmt.Sprintf("(%g %g %g)", a[0], a[1], a[2])
}

// Flatten packs a vector field as [x0,y0,z0,x1,...] for the linear algebra
func Flatten(v []Vec3) (d []float64) {
	d = make([]float64, 3*len(v))
	for i, val := range v {
		d[3*i], d[3*i+1], d[3*i+2] = val[0], val[1], val[2]
	}
	return
}

func Unflatten(d []float64) (v []Vec3) {
	if len(d)%3 != 0 {
		panic(fmt.Errorf("flattened vector field length %d is not a multiple of 3", len(d)))
	}
	v = make([]Vec3, len(d)/3)
	for i := range v {
		v[i] = Vec3{d[3*i], d[3*i+1], d[3*i+2]}
	}
	return
}

func CopyVec3(v []Vec3) (c []Vec3) {
	if v == nil {
		return nil
	}
	c = make([]Vec3, len(v))
	copy(c, v)
	return
}
