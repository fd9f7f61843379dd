package exchange

import (
	"fmt"

	"github.com/denMaier/solids4foam-sub000/types"
	"github.com/denMaier/solids4foam-sub000/utils"
)

func (e *Exchange) pointMap() *pointMap {
	e.mu.Lock()
	defer e.mu.Unlock()
	mg, sg := e.Master.Generation(), e.Slave.Generation()
	if e.points == nil || e.points.masterGen != mg || e.points.slaveGen != sg {
		mp, sp := e.Master.Points(), e.Slave.Points()
		e.points = &pointMap{
			masterGen:       mg,
			slaveGen:        sg,
			slaveFromMaster: nearest(sp, mp, e.opts.ParallelDegree),
			masterFromSlave: nearest(mp, sp, e.opts.ParallelDegree),
		}
	}
	return e.points
}

// nearest finds the closest source point for every target point
func nearest(targets, sources []types.Vec3, procLimit int) (idx []int) {
	idx = make([]int, len(targets))
	pm := utils.NewDefaultPartitionMap(procLimit, len(targets))
	pm.ParallelFor(func(_, kMin, kMax int) {
		for i := kMin; i < kMax; i++ {
			var (
				best  = -1.
				bestJ = -1
			)
			for j, p := range sources {
				if d := p.Sub(targets[i]).MagSqr(); bestJ < 0 || d < best {
					best, bestJ = d, j
				}
			}
			idx[i] = bestJ
		}
	})
	return
}

// MasterPointsToSlave copies point values from the nearest master point
func (e *Exchange) MasterPointsToSlave(f []types.Vec3) ([]types.Vec3, error) {
	if len(f) != e.Master.NPoints() {
		return nil, fmt.Errorf("point field on patch %s has %d values, have %d points",
			e.Master.Name, len(f), e.Master.NPoints())
	}
	return gather(f, e.pointMap().slaveFromMaster), nil
}

// SlavePointsToMaster copies point values from the nearest slave point
func (e *Exchange) SlavePointsToMaster(f []types.Vec3) ([]types.Vec3, error) {
	if len(f) != e.Slave.NPoints() {
		return nil, fmt.Errorf("point field on patch %s has %d values, have %d points",
			e.Slave.Name, len(f), e.Slave.NPoints())
	}
	return gather(f, e.pointMap().masterFromSlave), nil
}

func gather(f []types.Vec3, idx []int) (out []types.Vec3) {
	out = make([]types.Vec3, len(idx))
	for i, j := range idx {
		out[i] = f[j]
	}
	return
}
