package daemon

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/foro-dev/foro/internal/buildinfo"
	"github.com/foro-dev/foro/internal/procutil"
)

// Info is the decoded contents of a daemon's <socket>.info sidecar file
// (spec.md §4.4, §6: "pid,start_time,build_id\n", ASCII).
type Info struct {
	PID       int
	StartTime time.Time
	BuildID   string
}

// InfoPath returns the sidecar info path for a socket file.
func InfoPath(socketPath string) string { return socketPath + ".info" }

// WriteInfo records this process's identity next to socketPath, on bind.
func WriteInfo(socketPath string, pid int, startTime time.Time) error {
	line := fmt.Sprintf("%d,%d,%s\n", pid, startTime.UnixNano(), buildinfo.ID())
	return os.WriteFile(InfoPath(socketPath), []byte(line), 0o644)
}

// RemoveInfo deletes the sidecar info file; called alongside socket cleanup.
func RemoveInfo(socketPath string) error {
	return os.Remove(InfoPath(socketPath))
}

// ReadInfo parses the sidecar info file.
func ReadInfo(socketPath string) (Info, error) {
	data, err := os.ReadFile(InfoPath(socketPath))
	if err != nil {
		return Info{}, err
	}

	fields := strings.SplitN(strings.TrimSpace(string(data)), ",", 3)
	if len(fields) != 3 {
		return Info{}, fmt.Errorf("daemon: malformed info file: %q", data)
	}

	pid, err := strconv.Atoi(fields[0])
	if err != nil {
		return Info{}, fmt.Errorf("daemon: malformed pid in info file: %w", err)
	}
	nanos, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return Info{}, fmt.Errorf("daemon: malformed start_time in info file: %w", err)
	}

	return Info{PID: pid, StartTime: time.Unix(0, nanos), BuildID: fields[2]}, nil
}

// Liveness is daemon_is_alive's two-way outcome (spec.md §4.4): either
// Running carries the peer's build id, or the daemon is not running at all.
type Liveness struct {
	Running bool
	BuildID string
}

// CheckLiveness implements daemon_is_alive: read the info file, confirm the
// pid is alive, and confirm its start time still matches (a mismatch means
// the pid was recycled by an unrelated process). Where the pid's start time
// cannot be read, the alive check alone decides.
func CheckLiveness(socketPath string) Liveness {
	info, err := ReadInfo(socketPath)
	if err != nil {
		return Liveness{}
	}
	if !procutil.Alive(info.PID) {
		return Liveness{}
	}
	actualStart, err := procutil.StartTime(info.PID)
	if err != nil {
		return Liveness{Running: true, BuildID: info.BuildID}
	}
	if !actualStart.Truncate(time.Second).Equal(info.StartTime.Truncate(time.Second)) {
		return Liveness{}
	}
	return Liveness{Running: true, BuildID: info.BuildID}
}
