//go:build metis

package geometry

import (
	"fmt"

	"github.com/notargets/go-metis"
)

func partitionFaces(p *Patch, nParts int) (parts [][]int, err error) {
	var (
		adj    = FaceAdjacency(p)
		xadj   = make([]int32, 0, len(adj)+1)
		adjncy []int32
	)
	xadj = append(xadj, 0)
	for _, nbs := range adj {
		for _, nb := range nbs {
			adjncy = append(adjncy, int32(nb))
		}
		xadj = append(xadj, int32(len(adjncy)))
	}
	if len(adjncy) == 0 {
		return blockPartition(p.NFaces(), nParts), nil
	}
	opts := make([]int32, metis.NoOptions)
	if err = metis.SetDefaultOptions(opts); err != nil {
		err = fmt.Errorf("failed to set METIS options: %w", err)
		return
	}
	opts[metis.OptionObjType] = metis.ObjTypeCut
	ubvec := []float32{1.05}
	part, _, err := metis.PartGraphKwayWeighted(
		xadj, adjncy, nil, nil, int32(nParts), nil, ubvec, opts)
	if err != nil {
		err = fmt.Errorf("METIS partitioning of patch %s failed: %w", p.Name, err)
		return
	}
	parts = make([][]int, nParts)
	for f, np := range part {
		parts[np] = append(parts[np], f)
	}
	// METIS may leave a part empty on tiny graphs
	var nonEmpty [][]int
	for _, faces := range parts {
		if len(faces) > 0 {
			nonEmpty = append(nonEmpty, faces)
		}
	}
	parts = nonEmpty
	return
}
