// Command foro formats source files through a pluggable, per-extension rule
// set, optionally via a background daemon that keeps plugins warm between
// invocations.
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
