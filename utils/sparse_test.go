package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSparse(t *testing.T) {
	d := NewDOK(3, 2, "W")
	d.Add(0, 0, 1)
	d.Add(0, 0, 1)
	d.Add(1, 1, 3)
	d.Add(2, 0, 0.5)
	d.Add(2, 1, 0.5)
	m := d.ToCSR()
	nr, nc := m.Dims()
	assert.Equal(t, 3, nr)
	assert.Equal(t, 2, nc)
	assert.Equal(t, 2., m.At(0, 0))
	assert.Equal(t, 4, m.NNZ())
	assert.Equal(t, []float64{2, 3, 1}, m.RowSums())

	// Scalar field
	dst := make([]float64, 3)
	m.MulVecTo(dst, []float64{1, 2}, 1)
	assert.Equal(t, []float64{2, 6, 1.5}, dst)

	// Two component field, components mapped independently
	dst = make([]float64, 6)
	m.MulVecTo(dst, []float64{1, 10, 2, 20}, 2)
	assert.Equal(t, []float64{2, 20, 6, 60, 1.5, 15}, dst)

	assert.Panics(t, func() { m.MulVecTo(dst, []float64{1}, 1) })
}
