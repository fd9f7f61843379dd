package exchange

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/denMaier/solids4foam-sub000/geometry"
	"github.com/denMaier/solids4foam-sub000/types"
	"github.com/denMaier/solids4foam-sub000/utils"
)

/*
Exchange transfers fields between the two sides of an interface whose face
discretisations need not match. Weights are the areas of overlap between
master and slave faces, projected onto the master face plane. The weight
matrices are rebuilt on the first transfer after either patch has moved.
*/
type Exchange struct {
	Master, Slave *geometry.Patch
	opts          Options

	mu     sync.Mutex
	w      *weights
	points *pointMap
}

type weights struct {
	masterGen, slaveGen uint64
	// sToM has a row per master face and a column per slave face, mToS is its transpose
	sToM, mToS                      utils.CSR
	masterCovered, slaveCovered     []float64
	masterAreas, slaveAreas         []float64
	uncoveredMaster, uncoveredSlave []int
}

type pointMap struct {
	masterGen, slaveGen uint64
	// nearest source point for every target point
	slaveFromMaster, masterFromSlave []int
}

func New(master, slave *geometry.Patch, opts Options) (e *Exchange, err error) {
	if master == nil || slave == nil {
		err = fmt.Errorf("exchange needs both a master and a slave patch")
		return
	}
	if master.NFaces() == 0 || slave.NFaces() == 0 {
		err = fmt.Errorf("exchange between %s (%d faces) and %s (%d faces): empty patch",
			master.Name, master.NFaces(), slave.Name, slave.NFaces())
		return
	}
	if err = opts.validate(); err != nil {
		return
	}
	e = &Exchange{
		Master: master,
		Slave:  slave,
		opts:   opts,
	}
	return
}

func (e *Exchange) Options() Options { return e.opts }

func (e *Exchange) weights() *weights {
	e.mu.Lock()
	defer e.mu.Unlock()
	mg, sg := e.Master.Generation(), e.Slave.Generation()
	if e.w == nil || e.w.masterGen != mg || e.w.slaveGen != sg {
		e.w = e.buildWeights(mg, sg)
	}
	return e.w
}

type triplet struct {
	m, s int
	w    float64
}

func (e *Exchange) buildWeights(mg, sg uint64) (w *weights) {
	var (
		master, slave = e.Master, e.Slave
		nm, ns        = master.NFaces(), slave.NFaces()
		cosMax        = math.Cos(e.opts.MaxAngle * math.Pi / 180)
		mCentres      = master.FaceCentres()
		mNormals      = master.FaceNormals()
		mAreas        = master.MagFaceAreas()
		sCentres      = slave.FaceCentres()
		sNormals      = slave.FaceNormals()
		sAreas        = slave.MagFaceAreas()
		sBoxes        = make([]geometry.BoundingBox, ns)
		np            = e.opts.ParallelDegree
	)
	for s := range sBoxes {
		sBoxes[s] = slave.FaceBoundingBox(s)
	}
	if np == 0 {
		np = runtime.NumCPU()
	}
	parts, err := geometry.PartitionFaces(master, np)
	if err != nil {
		// Only a non-positive part count fails, which np rules out
		panic(err)
	}
	var (
		found = make([][]triplet, len(parts))
		wg    sync.WaitGroup
	)
	for ip, faces := range parts {
		wg.Add(1)
		go func(ip int, faces []int) {
			defer wg.Done()
			for _, m := range faces {
				var (
					lm    = math.Sqrt(mAreas[m])
					box   = master.FaceBoundingBox(m).Inflate(e.opts.ProjectionTolerance * lm)
					mPts  = master.FacePoints(m)
					areaT = 1.e-10 * mAreas[m]
				)
				for s := 0; s < ns; s++ {
					if !box.Overlaps(sBoxes[s]) {
						continue
					}
					if math.Abs(sNormals[s].Dot(mNormals[m])) < cosMax {
						continue
					}
					if math.Abs(sCentres[s].Sub(mCentres[m]).Dot(mNormals[m])) > e.opts.ProjectionTolerance*lm {
						continue
					}
					a := geometry.IntersectionArea(slave.FacePoints(s), mPts, mCentres[m], mNormals[m])
					if a > areaT {
						found[ip] = append(found[ip], triplet{m: m, s: s, w: a})
					}
				}
			}
		}(ip, faces)
	}
	wg.Wait()

	var (
		sToM = utils.NewDOK(nm, ns, "slave to master")
		mToS = utils.NewDOK(ns, nm, "master to slave")
	)
	for _, tl := range found {
		for _, t := range tl {
			sToM.Add(t.m, t.s, t.w)
			mToS.Add(t.s, t.m, t.w)
		}
	}
	w = &weights{
		masterGen:   mg,
		slaveGen:    sg,
		sToM:        sToM.ToCSR(),
		mToS:        mToS.ToCSR(),
		masterAreas: mAreas,
		slaveAreas:  sAreas,
	}
	w.masterCovered = w.sToM.RowSums()
	w.slaveCovered = w.mToS.RowSums()
	w.uncoveredMaster = utils.Find(w.masterCovered, utils.Equal, 0, false)
	w.uncoveredSlave = utils.Find(w.slaveCovered, utils.Equal, 0, false)
	return
}

// UncoveredMaster lists master faces that no slave face overlaps
func (e *Exchange) UncoveredMaster() []int {
	return append([]int(nil), e.weights().uncoveredMaster...)
}

// UncoveredSlave lists slave faces that no master face overlaps
func (e *Exchange) UncoveredSlave() []int {
	return append([]int(nil), e.weights().uncoveredSlave...)
}

// MasterCoverage is the fraction of each master face area overlapped by slave faces
func (e *Exchange) MasterCoverage() (c []float64) {
	w := e.weights()
	c = make([]float64, len(w.masterCovered))
	for i := range c {
		c[i] = w.masterCovered[i] / w.masterAreas[i]
	}
	return
}

func (e *Exchange) MasterToSlave(f []types.Vec3, scheme Scheme) ([]types.Vec3, error) {
	out, err := e.transfer(types.Flatten(f), 3, false, scheme)
	if err != nil {
		return nil, err
	}
	return types.Unflatten(out), nil
}

func (e *Exchange) SlaveToMaster(f []types.Vec3, scheme Scheme) ([]types.Vec3, error) {
	out, err := e.transfer(types.Flatten(f), 3, true, scheme)
	if err != nil {
		return nil, err
	}
	return types.Unflatten(out), nil
}

func (e *Exchange) MasterToSlaveScalar(f []float64, scheme Scheme) ([]float64, error) {
	return e.transfer(f, 1, false, scheme)
}

func (e *Exchange) SlaveToMasterScalar(f []float64, scheme Scheme) ([]float64, error) {
	return e.transfer(f, 1, true, scheme)
}

func (e *Exchange) transfer(f []float64, ncomp int, toMaster bool, scheme Scheme) (dst []float64, err error) {
	var (
		w                    = e.weights()
		M                    utils.CSR
		srcCovered, srcAreas []float64
		tgtCovered, tgtAreas []float64
		srcPatch, tgtPatch   *geometry.Patch
		uncovered            []int
	)
	if toMaster {
		M, srcPatch, tgtPatch = w.sToM, e.Slave, e.Master
		srcCovered, srcAreas = w.slaveCovered, w.slaveAreas
		tgtCovered, tgtAreas = w.masterCovered, w.masterAreas
		uncovered = w.uncoveredMaster
	} else {
		M, srcPatch, tgtPatch = w.mToS, e.Master, e.Slave
		srcCovered, srcAreas = w.masterCovered, w.masterAreas
		tgtCovered, tgtAreas = w.slaveCovered, w.slaveAreas
		uncovered = w.uncoveredSlave
	}
	if len(f) != ncomp*srcPatch.NFaces() {
		err = fmt.Errorf("field on patch %s has %d values, need %d for %d faces",
			srcPatch.Name, len(f), ncomp*srcPatch.NFaces(), srcPatch.NFaces())
		return
	}
	if e.opts.RequireMatch && len(uncovered) > 0 {
		err = &UncoveredError{Patch: tgtPatch.Name, Faces: append([]int(nil), uncovered...)}
		return
	}
	var (
		src = f
	)
	if scheme == Conservative {
		// Distribute each source face's integral by the fraction of it each target face overlaps
		src = make([]float64, len(f))
		for j := range srcCovered {
			if srcCovered[j] == 0 {
				continue
			}
			scale := srcAreas[j] / srcCovered[j]
			for c := 0; c < ncomp; c++ {
				src[j*ncomp+c] = f[j*ncomp+c] * scale
			}
		}
	}
	dst = make([]float64, ncomp*tgtPatch.NFaces())
	M.MulVecTo(dst, src, ncomp)
	for i := range tgtCovered {
		var denom float64
		switch scheme {
		case Consistent:
			denom = tgtCovered[i]
		case Conservative:
			denom = tgtAreas[i]
		}
		if denom == 0 {
			continue
		}
		for c := 0; c < ncomp; c++ {
			dst[i*ncomp+c] /= denom
		}
	}
	return
}
