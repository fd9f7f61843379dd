package coupling

import (
	"fmt"
	"io"

	"github.com/ghodss/yaml"

	"github.com/denMaier/solids4foam-sub000/types"
)

// Checkpoint is the coupling state carried from one time step to the next
type Checkpoint struct {
	TimeStep     int           `json:"timeStep"`
	Acceleration string        `json:"acceleration"`
	Omega        float64       `json:"omega"`
	NOldTimes    int           `json:"nOldTimes"`
	Old          []types.Vec3  `json:"old"`
	OldOld       []types.Vec3  `json:"oldOld"`
	History      []HistoryStep `json:"history,omitempty"`
}

func (d *Driver) Checkpoint() (cp Checkpoint) {
	cp = Checkpoint{
		TimeStep:     d.timeStep,
		Acceleration: d.Accelerator.Name(),
		Omega:        d.Accelerator.Factor(),
		NOldTimes:    d.Displacement.NOldTimes(),
		Old:          types.CopyVec3(d.Displacement.Old),
		OldOld:       types.CopyVec3(d.Displacement.OldOld),
	}
	if iq, ok := d.Accelerator.(*IQNILS); ok {
		cp.History = iq.History()
	}
	return
}

func (d *Driver) Restore(cp Checkpoint) error {
	n := d.Displacement.Len()
	if len(cp.Old) != n || len(cp.OldOld) != n {
		return fmt.Errorf("checkpoint has displacement for %d and %d faces, interface has %d",
			len(cp.Old), len(cp.OldOld), n)
	}
	if cp.Acceleration != d.Accelerator.Name() {
		return fmt.Errorf("checkpoint was written with %s acceleration, run uses %s",
			cp.Acceleration, d.Accelerator.Name())
	}
	d.timeStep = cp.TimeStep
	copy(d.Displacement.Values, cp.Old)
	copy(d.Displacement.Old, cp.Old)
	copy(d.Displacement.OldOld, cp.OldOld)
	d.Displacement.SetNOldTimes(cp.NOldTimes)
	if iq, ok := d.Accelerator.(*IQNILS); ok {
		iq.SetHistory(cp.History)
	}
	return d.moveInterface(d.Displacement.Values)
}

func (cp Checkpoint) Write(w io.Writer) (err error) {
	var data []byte
	if data, err = yaml.Marshal(cp); err != nil {
		return
	}
	_, err = w.Write(data)
	return
}

func ReadCheckpoint(r io.Reader) (cp Checkpoint, err error) {
	var data []byte
	if data, err = io.ReadAll(r); err != nil {
		return
	}
	err = yaml.Unmarshal(data, &cp)
	return
}
