package BlockContact

import (
	"fmt"
	"io"

	"github.com/ghodss/yaml"

	"github.com/denMaier/solids4foam-sub000/contact"
	"github.com/denMaier/solids4foam-sub000/types"
)

type Checkpoint struct {
	Step         int                    `json:"step"`
	Load         float64                `json:"load"`
	Displacement []types.Vec3           `json:"displacement"`
	Pair         contact.PairCheckpoint `json:"pair"`
}

func (b *BlockContact) Checkpoint() Checkpoint {
	return Checkpoint{
		Step:         b.step,
		Load:         b.Params.Load,
		Displacement: types.CopyVec3(b.Displacement),
		Pair:         b.Pair.Checkpoint(),
	}
}

// Restore resumes from a checkpoint; later steps continue the platen slide
func (b *BlockContact) Restore(cp Checkpoint) (err error) {
	if len(cp.Displacement) != len(b.Displacement) {
		return fmt.Errorf("checkpoint has %d block faces, have %d", len(cp.Displacement), len(b.Displacement))
	}
	if err = b.Pair.Restore(cp.Pair); err != nil {
		return
	}
	b.step = cp.Step
	b.Params.Load = cp.Load
	copy(b.Displacement, cp.Displacement)
	return b.moveBlock(b.Displacement)
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
