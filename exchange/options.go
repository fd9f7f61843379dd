package exchange

import (
	"fmt"
	"math"
	"strings"
)

// Scheme selects how face values are weighted across the interface
type Scheme uint8

const (
	// Consistent maps overlap weighted averages; a uniform field stays uniform.
	// Used for displacement, pressure and temperature.
	Consistent Scheme = iota
	// Conservative maps value times area so the integral over the patch is
	// preserved. Used for traction and heat flux.
	Conservative
)

var (
	SchemeNames = map[string]Scheme{
		"consistent":   Consistent,
		"conservative": Conservative,
	}
	SchemePrintNames = []string{"Consistent", "Conservative"}
)

func (s Scheme) String() string { return SchemePrintNames[s] }

func NewScheme(label string) (s Scheme, err error) {
	var ok bool
	if s, ok = SchemeNames[strings.ToLower(strings.TrimSpace(label))]; !ok {
		err = fmt.Errorf("unable to use exchange scheme named %s", label)
	}
	return
}

type Options struct {
	// MaxAngle is the largest angle in degrees between the lines of the two face
	// normals for the faces to be paired. Orientation is ignored.
	MaxAngle float64
	// ProjectionTolerance bounds the distance between paired face centres along
	// the master normal, relative to the square root of the master face area, in
	// both transfer directions
	ProjectionTolerance float64
	// RequireMatch turns uncovered target faces into an error
	RequireMatch bool
	// ParallelDegree is the number of goroutines building the weights, 0 for NumCPU
	ParallelDegree int
}

func DefaultOptions() Options {
	return Options{
		MaxAngle:            45,
		ProjectionTolerance: 1,
	}
}

func (o Options) validate() error {
	if o.MaxAngle <= 0 || o.MaxAngle > 90 {
		return fmt.Errorf("exchange MaxAngle must be in (0, 90] degrees, have %g", o.MaxAngle)
	}
	if o.ProjectionTolerance <= 0 || math.IsNaN(o.ProjectionTolerance) {
		return fmt.Errorf("exchange ProjectionTolerance must be positive, have %g", o.ProjectionTolerance)
	}
	if o.ParallelDegree < 0 {
		return fmt.Errorf("exchange ParallelDegree must not be negative, have %d", o.ParallelDegree)
	}
	return nil
}

// UncoveredError lists target faces that no source face overlaps
type UncoveredError struct {
	Patch string
	Faces []int
}

func (e *UncoveredError) Error() string {
	const show = 8
	if len(e.Faces) <= show {
		return fmt.Sprintf("patch %s: %d faces have no overlapping face on the other side %v",
			e.Patch, len(e.Faces), e.Faces)
	}
	return fmt.Sprintf("patch %s: %d faces have no overlapping face on the other side %v ...",
		e.Patch, len(e.Faces), e.Faces[:show])
}
