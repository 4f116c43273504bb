// Package buildinfo computes a deterministic build identity string used by
// the daemon and its clients to detect version drift.
package buildinfo

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"runtime"
)

// Version and Commit are set via -ldflags at release build time, mirroring
// the teacher's version.go pattern. BuildDate is intentionally omitted from
// the identity hash: it would make every build from source non-reproducible
// even when the commit is identical.
var (
	Version = "dev"
	Commit  = "none"
)

// ID returns a short deterministic string identifying this build. Two
// binaries built from the same commit, version, and Go toolchain produce the
// same ID; the daemon and a client compare these to decide whether a restart
// is required (spec.md §4.4, "build-id mismatch").
func ID() string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s", Version, Commit, runtime.Version())
	return hex.EncodeToString(h.Sum(nil))[:16]
}
