package utils

const (
	NODETOL = 1.e-12
	SMALL   = 1.e-15
	VSMALL  = 1.e-300
	GREAT   = 1.e+15
)

type EvalOp uint8

const (
	Equal EvalOp = iota
	Less
	Greater
	LessOrEqual
	GreaterOrEqual
)

// Find returns the indices of the entries of v that satisfy op against target
func Find(v []float64, op EvalOp, target float64, abs bool) (I []int) {
	for i, val := range v {
		if abs && val < 0 {
			val = -val
		}
		var hit bool
		switch op {
		case Equal:
			hit = val == target
		case Less:
			hit = val < target
		case Greater:
			hit = val > target
		case LessOrEqual:
			hit = val <= target
		case GreaterOrEqual:
			hit = val >= target
		}
		if hit {
			I = append(I, i)
		}
	}
	return
}
