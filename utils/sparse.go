package utils

import (
	"fmt"

	"github.com/james-bowman/sparse"
	"github.com/james-bowman/sparse/blas"
	"gonum.org/v1/gonum/mat"
)

// DOK is the assembly form of a sparse operator; entries are accumulated and
// then frozen into a CSR for repeated application
type DOK struct {
	M    *sparse.DOK
	name string
}

func NewDOK(nr, nc int, name string) (R DOK) {
	R = DOK{
		M:    sparse.NewDOK(nr, nc),
		name: name,
	}
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m DOK) Dims() (r, c int)    { return m.M.Dims() }
func (m DOK) At(i, j int) float64 { return m.M.At(i, j) }
func (m DOK) T() mat.Matrix       { return m.M.T() }

// Add accumulates val into entry (i,j)
func (m DOK) Add(i, j int, val float64) {
	m.M.Set(i, j, m.M.At(i, j)+val)
}

func (m DOK) ToCSR() CSR {
	return CSR{
		M:    m.M.ToCSR(),
		name: m.name,
	}
}

type CSR struct {
	M    *sparse.CSR
	name string
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m CSR) Dims() (r, c int)              { return m.M.Dims() }
func (m CSR) At(i, j int) float64           { return m.M.At(i, j) }
func (m CSR) T() mat.Matrix                 { return m.M.T() }
func (m CSR) RawMatrix() *blas.SparseMatrix { return m.M.RawMatrix() }
func (m CSR) Name() string                  { return m.name }
func (m CSR) NNZ() int                      { return len(m.RawMatrix().Data) }

// DoRowNonZero calls fn for every stored entry of row i
func (m CSR) DoRowNonZero(i int, fn func(j int, v float64)) {
	var (
		raw = m.RawMatrix()
	)
	for k := raw.Indptr[i]; k < raw.Indptr[i+1]; k++ {
		fn(raw.Ind[k], raw.Data[k])
	}
}

// RowSums returns the sum of each row
func (m CSR) RowSums() (s []float64) {
	var (
		nr, _ = m.Dims()
	)
	s = make([]float64, nr)
	for i := 0; i < nr; i++ {
		m.DoRowNonZero(i, func(j int, v float64) {
			s[i] += v
		})
	}
	return
}

// MulVecTo computes dst = M * x for a strided field of ncomp components per
// entry, so that a vector field stored as [x0,y0,z0,x1,...] maps in one pass
func (m CSR) MulVecTo(dst, x []float64, ncomp int) {
	var (
		nr, nc = m.Dims()
	)
	if len(x) != nc*ncomp || len(dst) != nr*ncomp {
		panic(fmt.Errorf("dimension mismatch applying %s: [%d x %d] with %d components, len(x) = %d, len(dst) = %d",
			m.name, nr, nc, ncomp, len(x), len(dst)))
	}
	for i := 0; i < nr; i++ {
		for c := 0; c < ncomp; c++ {
			dst[i*ncomp+c] = 0
		}
		m.DoRowNonZero(i, func(j int, v float64) {
			for c := 0; c < ncomp; c++ {
				dst[i*ncomp+c] += v * x[j*ncomp+c]
			}
		})
	}
}
