//go:build linux

package cmd

import (
	"fmt"

	perf "github.com/hodgesds/perf-utils"
)

func countInstructions(f func() error) (err error) {
	var (
		ran    bool
		runErr error
	)
	pv, err := perf.CPUInstructions(func() error {
		ran = true
		runErr = f()
		return runErr
	})
	if !ran {
		fmt.Printf("instruction counter unavailable: %v\n", err)
		return f()
	}
	if runErr != nil {
		return runErr
	}
	if err != nil {
		fmt.Printf("instruction counter failed: %v\n", err)
		return nil
	}
	fmt.Printf("CPU instructions: %d (enabled %d ns, running %d ns)\n",
		pv.Value, pv.TimeEnabled, pv.TimeRunning)
	return nil
}
