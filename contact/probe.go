package contact

import (
	"fmt"
	"math"

	"github.com/denMaier/solids4foam-sub000/geometry"
	"github.com/denMaier/solids4foam-sub000/types"
	"github.com/denMaier/solids4foam-sub000/utils"
)

// NoContactDistance is reported for slave faces without a plausible master partner
const NoContactDistance = utils.GREAT

// EdgeFraction bounds the in-plane offset between a slave face centre and its
// closest master point, as a fraction of the master face length. Slave faces
// beyond the edge of the master surface have no partner.
const EdgeFraction = 1.e-3

type ProbeOptions struct {
	// SearchDistance is the largest distance from a slave face centre to a master
	// face for the pair to be considered
	SearchDistance float64
	// MaxAngle is the largest angle in degrees between the slave normal and the
	// reversed master normal
	MaxAngle float64
	// ParallelDegree is the number of goroutines used, 0 for NumCPU
	ParallelDegree int
}

func DefaultProbeOptions() ProbeOptions {
	return ProbeOptions{
		SearchDistance: 0.1,
		MaxAngle:       60,
	}
}

func (o ProbeOptions) validate() error {
	if !utils.IsFinitePositive(o.SearchDistance) {
		return fmt.Errorf("contact SearchDistance must be positive, have %g", o.SearchDistance)
	}
	if o.MaxAngle <= 0 || o.MaxAngle > 90 {
		return fmt.Errorf("contact MaxAngle must be in (0, 90] degrees, have %g", o.MaxAngle)
	}
	return nil
}

/*
Penetration is the contact geometry seen from the slave faces. Distance is
measured from the closest point on the master surface to the slave face centre
along the master outward normal: negative values mean the slave face is inside
the master body.
*/
type Penetration struct {
	Distance     []float64
	Normal       []types.Vec3 // master outward normal, zero when not in contact
	MasterFace   []int        // -1 when no partner was found
	ContactPoint []types.Vec3
}

func (p *Penetration) Len() int { return len(p.Distance) }

// HasPartner reports whether slave face i found a master face within range
func (p *Penetration) HasPartner(i int) bool { return p.MasterFace[i] >= 0 }

type Probe struct {
	opts ProbeOptions
}

func NewProbe(opts ProbeOptions) (*Probe, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Probe{opts: opts}, nil
}

func (pr *Probe) Options() ProbeOptions { return pr.opts }

// Compute measures the current penetration of every slave face; it holds no
// state and is called again whenever either surface moves
func (pr *Probe) Compute(master, slave *geometry.Patch) (pen *Penetration) {
	var (
		ns       = slave.NFaces()
		nm       = master.NFaces()
		cosMax   = math.Cos(pr.opts.MaxAngle * math.Pi / 180)
		sCentres = slave.FaceCentres()
		sNormals = slave.FaceNormals()
		mCentres = master.FaceCentres()
		mNormals = master.FaceNormals()
		mBoxes   = make([]geometry.BoundingBox, nm)
	)
	for m := range mBoxes {
		mBoxes[m] = master.FaceBoundingBox(m)
	}
	pen = &Penetration{
		Distance:     make([]float64, ns),
		Normal:       make([]types.Vec3, ns),
		MasterFace:   make([]int, ns),
		ContactPoint: make([]types.Vec3, ns),
	}
	pm := utils.NewDefaultPartitionMap(pr.opts.ParallelDegree, ns)
	pm.ParallelFor(func(_, kMin, kMax int) {
		for s := kMin; s < kMax; s++ {
			var (
				xs    = sCentres[s]
				best  = math.Inf(1)
				bestM = -1
				bestP types.Vec3
			)
			for m := 0; m < nm; m++ {
				if mBoxes[m].Distance(xs) > pr.opts.SearchDistance {
					continue
				}
				// Surfaces in contact face each other
				if sNormals[s].Dot(mNormals[m]) > -cosMax {
					continue
				}
				cp := geometry.ClosestPointOnFace(xs, master.FacePoints(m), mCentres[m])
				if offPlane(xs.Sub(cp), mNormals[m]) > EdgeFraction*math.Sqrt(master.MagFaceArea(m)) {
					continue
				}
				if d := cp.Sub(xs).Mag(); d < best {
					best, bestM, bestP = d, m, cp
				}
			}
			if bestM < 0 || best > pr.opts.SearchDistance {
				pen.Distance[s] = NoContactDistance
				pen.MasterFace[s] = -1
				pen.ContactPoint[s] = xs
				continue
			}
			n := mNormals[bestM]
			pen.Distance[s] = xs.Sub(bestP).Dot(n)
			pen.Normal[s] = n
			pen.MasterFace[s] = bestM
			pen.ContactPoint[s] = bestP
		}
	})
	return
}

// offPlane is the length of the part of d lying in the plane with normal n
func offPlane(d, n types.Vec3) float64 {
	return d.Tangential(n).Mag()
}
