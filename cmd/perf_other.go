//go:build !linux

package cmd

import "fmt"

func countInstructions(f func() error) error {
	fmt.Println("instruction counts need linux perf events")
	return f()
}
