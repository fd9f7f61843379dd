package types

// ContactStatus is stored per contact face; its numeric value is the
// visualisation field written for post processing
type ContactStatus uint8

const (
	NotInContact ContactStatus = iota
	Slipping
	Sticking
)

func (cs ContactStatus) String() string {
	return []string{"NotInContact", "Slipping", "Sticking"}[cs]
}
