package types

// VectorField holds per-face (or per-point) vectors at the current time and
// the two previous time levels
type VectorField struct {
	Values, Old, OldOld []Vec3
	nOldTimes           int
}

func NewVectorField(N int) *VectorField {
	return &VectorField{
		Values: make([]Vec3, N),
		Old:    make([]Vec3, N),
		OldOld: make([]Vec3, N),
	}
}

func (f *VectorField) Len() int { return len(f.Values) }

// StoreOldTime shifts the time levels; call once at the end of each time step
func (f *VectorField) StoreOldTime() {
	copy(f.OldOld, f.Old)
	copy(f.Old, f.Values)
	if f.nOldTimes < 2 {
		f.nOldTimes++
	}
}

// NOldTimes reports how many previous time levels hold stored data
func (f *VectorField) NOldTimes() int { return f.nOldTimes }

// SetNOldTimes is used on restart, when old levels are loaded from a checkpoint
func (f *VectorField) SetNOldTimes(n int) {
	if n < 0 {
		n = 0
	}
	if n > 2 {
		n = 2
	}
	f.nOldTimes = n
}

func (f *VectorField) Set(v []Vec3) {
	if len(v) != len(f.Values) {
		panic("vector field size mismatch")
	}
	copy(f.Values, v)
}

type ScalarField struct {
	Values, Old, OldOld []float64
}

func NewScalarField(N int) *ScalarField {
	return &ScalarField{
		Values: make([]float64, N),
		Old:    make([]float64, N),
		OldOld: make([]float64, N),
	}
}

func (f *ScalarField) StoreOldTime() {
	copy(f.OldOld, f.Old)
	copy(f.Old, f.Values)
}
