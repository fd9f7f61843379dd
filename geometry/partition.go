package geometry

import (
	"fmt"
	"sort"

	"github.com/denMaier/solids4foam-sub000/utils"
)

// PartitionFaces splits the faces of a patch into nParts groups for parallel
// work. With the metis build tag the groups come from a graph partition of
// the face adjacency, otherwise from contiguous index ranges.
func PartitionFaces(p *Patch, nParts int) (parts [][]int, err error) {
	if nParts < 1 {
		err = fmt.Errorf("patch %s: need at least one partition, have %d", p.Name, nParts)
		return
	}
	if nParts > p.NFaces() {
		nParts = p.NFaces()
	}
	if nParts <= 1 {
		parts = [][]int{rangeFaces(0, p.NFaces())}
		return
	}
	return partitionFaces(p, nParts)
}

func rangeFaces(kMin, kMax int) (faces []int) {
	faces = make([]int, kMax-kMin)
	for i := range faces {
		faces[i] = kMin + i
	}
	return
}

func blockPartition(N, nParts int) (parts [][]int) {
	pm := utils.NewPartitionMap(nParts, N)
	parts = make([][]int, pm.ParallelDegree)
	for np := range parts {
		kMin, _ := pm.GetBucketRange(np)
		parts[np] = rangeFaces(kMin, kMin+pm.GetBucketDimension(np))
	}
	return
}

// FaceAdjacency lists, for every face, the faces sharing at least one point
func FaceAdjacency(p *Patch) (adj [][]int) {
	adj = make([][]int, p.NFaces())
	for f := range adj {
		seen := map[int]bool{f: true}
		for _, pt := range p.Face(f) {
			for _, nb := range p.PointFaces(pt) {
				if !seen[nb] {
					seen[nb] = true
					adj[f] = append(adj[f], nb)
				}
			}
		}
		sort.Ints(adj[f])
	}
	return
}
