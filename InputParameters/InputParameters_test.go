package InputParameters

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denMaier/solids4foam-sub000/coupling"
	"github.com/denMaier/solids4foam-sub000/meshmotion"
)

func TestFSIParameters(t *testing.T) {
	ip := NewFSIParameters()
	input := []byte(`
Title: "Stiff wall"
Tension: 500
SolidCells: 12
MeshMotion: tps
Predictor: extrapolate
Coupling:
  Acceleration: iqn-ils
  ReuseSteps: 2
  OnDivergence: accept
`)
	require.NoError(t, ip.Parse(input))
	assert.Equal(t, "Stiff wall", ip.Title)
	{ // Keys not in the file keep their defaults
		def := NewFSIParameters()
		assert.Equal(t, def.Length, ip.Length)
		assert.Equal(t, def.Coupling.Tolerance, ip.Coupling.Tolerance)
		assert.True(t, ip.MoveInterface)
	}
	p, err := ip.ChannelParameters()
	require.NoError(t, err)
	assert.Equal(t, 500., p.Tension)
	assert.Equal(t, 12, p.SolidCells)
	assert.Equal(t, meshmotion.ThinPlateSpline, p.Kernel)
	opts, err := ip.CouplingOptions()
	require.NoError(t, err)
	assert.Equal(t, coupling.IQNILSType, opts.Acceleration.Type)
	assert.Equal(t, 2, opts.Acceleration.ReuseSteps)
	assert.Equal(t, coupling.Accept, opts.Criteria.OnDivergence)
	assert.Equal(t, coupling.Extrapolate, opts.Predictor)

	var buf bytes.Buffer
	ip.Print(&buf)
	assert.Contains(t, buf.String(), "Stiff wall")
	assert.Contains(t, buf.String(), "Reuse Steps")

	{
		bad := NewFSIParameters()
		require.NoError(t, bad.Parse([]byte("MeshMotion: multiquadric\n")))
		_, err = bad.ChannelParameters()
		assert.Error(t, err)
		bad = NewFSIParameters()
		require.NoError(t, bad.Parse([]byte("Coupling:\n  Residual: weighted\n")))
		_, err = bad.CouplingOptions()
		assert.Error(t, err)
	}
}

func TestContactParameters(t *testing.T) {
	ip := NewContactParameters()
	require.NoError(t, ip.Parse([]byte("Load: 25\nFrictionCoefficient: 0\nAdaptPenalty: true\n")))
	p := ip.BlockParameters()
	assert.Equal(t, 25., p.Load)
	assert.Equal(t, 0., p.Contact.FrictionCoefficient)
	assert.True(t, p.AdaptPenalty)
	assert.Equal(t, 600., p.Material.ShearModulus)
	acc, err := ip.Coupling.AccelerationOptions()
	require.NoError(t, err)
	assert.Equal(t, coupling.AitkenType, acc.Type)
	var buf bytes.Buffer
	ip.Print(&buf)
	assert.Contains(t, buf.String(), "Block on a flat")
}
