package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denMaier/solids4foam-sub000/InputParameters"
	"github.com/denMaier/solids4foam-sub000/coupling"
)

func TestRunFSI(t *testing.T) {
	ip := InputParameters.NewFSIParameters()
	require.NoError(t, ip.Parse([]byte(exampleFSIFile)))
	ip.Steps = 2
	var (
		dir = t.TempDir()
		cp  = filepath.Join(dir, "channel.ckpt")
		buf bytes.Buffer
	)
	mf := &ModelFSI{CheckpointFile: cp, RunOptions: RunOptions{Procs: 2}}
	require.NoError(t, RunFSI(mf, ip, &buf))
	assert.Contains(t, buf.String(), "Time step 2: Converged")
	{ // Restart continues the time step count
		ckpt, err := readFSICheckpoint(cp)
		require.NoError(t, err)
		assert.Equal(t, 2, ckpt.TimeStep)
		buf.Reset()
		mf = &ModelFSI{RestartFile: cp, RunOptions: RunOptions{Verbose: true}}
		require.NoError(t, RunFSI(mf, ip, &buf))
		assert.Contains(t, buf.String(), "Restarted from")
		assert.Contains(t, buf.String(), "Time step 4: Converged")
		assert.Contains(t, buf.String(), coupling.FSILoop)
	}
	{
		ip.Coupling.Acceleration = "newton"
		assert.Error(t, RunFSI(&ModelFSI{}, ip, &buf))
	}
}

func TestRunContact(t *testing.T) {
	ip := InputParameters.NewContactParameters()
	require.NoError(t, ip.Parse([]byte(exampleContactFile)))
	ip.Steps = 2
	var (
		cp  = filepath.Join(t.TempDir(), "block.ckpt")
		buf bytes.Buffer
	)
	require.NoError(t, RunContact(&ModelContact{CheckpointFile: cp}, ip, &buf))
	assert.Contains(t, buf.String(), "Step 2")
	_, err := os.Stat(cp)
	require.NoError(t, err)
	buf.Reset()
	require.NoError(t, RunContact(&ModelContact{RestartFile: cp}, ip, &buf))
	assert.Contains(t, buf.String(), "Step 4")
}

func TestProcsReachEveryParallelLoop(t *testing.T) {
	{ // Channel: exchange and mesh motion
		ip := InputParameters.NewFSIParameters()
		require.NoError(t, ip.Parse([]byte(exampleFSIFile)))
		c, err := newFSIChannel(&ModelFSI{RunOptions: RunOptions{Procs: 3}}, ip, nil)
		require.NoError(t, err)
		assert.Equal(t, 3, c.Driver.Exchange.Options().ParallelDegree)
		assert.Equal(t, 3, c.Fluid.Motion().Options().ParallelDegree)
	}
	{ // Block: probe, penalty statistics and exchange
		ip := InputParameters.NewContactParameters()
		require.NoError(t, ip.Parse([]byte(exampleContactFile)))
		b, err := newBlockContact(&ModelContact{RunOptions: RunOptions{Procs: 3}}, ip)
		require.NoError(t, err)
		assert.Equal(t, 3, b.Pair.Probe.Options().ParallelDegree)
		assert.Equal(t, 3, b.Pair.Normal.Options().ParallelDegree)
		assert.Equal(t, 3, b.Pair.Exchange.Options().ParallelDegree)
	}
}

func TestProfileSelection(t *testing.T) {
	stop, err := startProfile("")
	require.NoError(t, err)
	stop()
	_, err = startProfile("block")
	assert.Error(t, err)
	ran := false
	require.NoError(t, execute(RunOptions{}, func() error { ran = true; return nil }))
	assert.True(t, ran)
}
