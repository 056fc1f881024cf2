// Command resilience computes per-block-group resilience metrics from daily
// mobility in-degree around a disaster window.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
