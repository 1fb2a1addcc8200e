// Command gridsense scores feeder telemetry for suspicious consumption and
// asset failure risk.
package main

import (
	"os"
)

var (
	version = "v0.0.1-default"
	commit  = ""
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
