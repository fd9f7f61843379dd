package utils

import (
	"math"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/floats"
)

// Vectors shorter than this are reduced on the calling goroutine
const ParallelThreshold = 4096

type PartitionMap struct {
	MaxIndex       int // MaxIndex is partitioned into ParallelDegree partitions
	ParallelDegree int
	Partitions     [][2]int // Beginning and end index of partitions
}

func NewPartitionMap(ParallelDegree, maxIndex int) (pm *PartitionMap) {
	if ParallelDegree < 1 {
		ParallelDegree = 1
	}
	pm = &PartitionMap{
		MaxIndex:       maxIndex,
		ParallelDegree: ParallelDegree,
		Partitions:     make([][2]int, ParallelDegree),
	}
	for n := 0; n < ParallelDegree; n++ {
		pm.Partitions[n] = pm.Split1D(n)
	}
	return
}

// NewDefaultPartitionMap picks the parallel degree from the number of CPUs,
// falling back to a single partition when there is less work than goroutines
func NewDefaultPartitionMap(ProcLimit, maxIndex int) (pm *PartitionMap) {
	var (
		NP = ProcLimit
	)
	if NP == 0 {
		NP = runtime.NumCPU()
	}
	if NP > maxIndex {
		NP = 1
	}
	return NewPartitionMap(NP, maxIndex)
}

func (pm *PartitionMap) GetBucketRange(bucketNum int) (kMin, kMax int) {
	kMin, kMax = pm.Partitions[bucketNum][0], pm.Partitions[bucketNum][1]
	return
}

func (pm *PartitionMap) GetBucketDimension(bn int) (kMax int) {
	var (
		k1, k2 = pm.GetBucketRange(bn)
	)
	kMax = k2 - k1
	return
}

func (pm *PartitionMap) Split1D(threadNum int) (bucket [2]int) {
	// This routine splits one dimension into c.ParallelDegree pieces, with a maximum imbalance of one item
	var (
		Npart            = pm.MaxIndex / (pm.ParallelDegree)
		startAdd, endAdd int
		remainder        int
	)
	remainder = pm.MaxIndex % pm.ParallelDegree
	if remainder != 0 { // spread the remainder over the first chunks evenly
		if threadNum+1 > remainder {
			startAdd = remainder
			endAdd = 0
		} else {
			startAdd = threadNum
			endAdd = 1
		}
	}
	bucket[0] = threadNum*Npart + startAdd
	bucket[1] = bucket[0] + Npart + endAdd
	return
}

// ParallelFor runs f once per partition, each on its own goroutine, and
// returns only after every partition is done
func (pm *PartitionMap) ParallelFor(f func(np, kMin, kMax int)) {
	var (
		wg = sync.WaitGroup{}
	)
	if pm.ParallelDegree == 1 {
		f(0, 0, pm.MaxIndex)
		return
	}
	for np := 0; np < pm.ParallelDegree; np++ {
		wg.Add(1)
		go func(np int) {
			kMin, kMax := pm.GetBucketRange(np)
			f(np, kMin, kMax)
			wg.Done()
		}(np)
	}
	wg.Wait()
}

type ReduceOp uint8

const (
	ReduceSum ReduceOp = iota
	ReduceMax
	ReduceMin
)

// Reduce evaluates f over [0, MaxIndex) and combines partition results in
// partition order, so the result does not depend on goroutine scheduling
func (pm *PartitionMap) Reduce(op ReduceOp, f func(i int) float64) (r float64) {
	var (
		partial = make([]float64, pm.ParallelDegree)
	)
	pm.ParallelFor(func(np, kMin, kMax int) {
		acc := identity(op)
		for i := kMin; i < kMax; i++ {
			acc = combine(op, acc, f(i))
		}
		partial[np] = acc
	})
	r = identity(op)
	for _, p := range partial {
		r = combine(op, r, p)
	}
	return
}

// ReduceRange is Reduce with f evaluated once per partition over [kMin, kMax)
func (pm *PartitionMap) ReduceRange(op ReduceOp, f func(kMin, kMax int) float64) (r float64) {
	var (
		partial = make([]float64, pm.ParallelDegree)
	)
	pm.ParallelFor(func(np, kMin, kMax int) {
		partial[np] = f(kMin, kMax)
	})
	r = identity(op)
	for _, p := range partial {
		r = combine(op, r, p)
	}
	return
}

func identity(op ReduceOp) float64 {
	switch op {
	case ReduceMax:
		return math.Inf(-1)
	case ReduceMin:
		return math.Inf(1)
	}
	return 0
}

func combine(op ReduceOp, a, b float64) float64 {
	switch op {
	case ReduceMax:
		return math.Max(a, b)
	case ReduceMin:
		return math.Min(a, b)
	}
	return a + b
}

func reducerFor(n int) *PartitionMap {
	if n < ParallelThreshold {
		return NewPartitionMap(1, n)
	}
	return NewDefaultPartitionMap(0, n)
}

// Dot is the global inner product of two equal length vectors
func Dot(a, b []float64) float64 {
	if len(a) != len(b) {
		panic("mismatched vector lengths in Dot")
	}
	return reducerFor(len(a)).ReduceRange(ReduceSum, func(kMin, kMax int) float64 {
		return floats.Dot(a[kMin:kMax], b[kMin:kMax])
	})
}

// Norm2 is the global Euclidean norm
func Norm2(a []float64) float64 {
	pm := reducerFor(len(a))
	if pm.ParallelDegree == 1 {
		return floats.Norm(a, 2)
	}
	return math.Sqrt(pm.ReduceRange(ReduceSum, func(kMin, kMax int) float64 {
		return math.Pow(floats.Norm(a[kMin:kMax], 2), 2)
	}))
}

// MaxAbs is the global infinity norm
func MaxAbs(a []float64) float64 {
	if len(a) == 0 {
		return 0
	}
	return reducerFor(len(a)).ReduceRange(ReduceMax, func(kMin, kMax int) float64 {
		return floats.Norm(a[kMin:kMax], math.Inf(1))
	})
}
