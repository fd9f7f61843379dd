//go:build !metis

package geometry

func partitionFaces(p *Patch, nParts int) ([][]int, error) {
	return blockPartition(p.NFaces(), nParts), nil
}
