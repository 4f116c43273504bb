package daemon

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/foro-dev/foro/internal/procutil"
)

func TestWriteReadInfo_RoundTrip(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "foro.sock")
	start := time.Unix(1_700_000_000, 123_000_000)

	if err := WriteInfo(socketPath, 4242, start); err != nil {
		t.Fatalf("WriteInfo: %v", err)
	}
	info, err := ReadInfo(socketPath)
	if err != nil {
		t.Fatalf("ReadInfo: %v", err)
	}
	if info.PID != 4242 {
		t.Errorf("PID = %d, want 4242", info.PID)
	}
	if !info.StartTime.Equal(start) {
		t.Errorf("StartTime = %v, want %v", info.StartTime, start)
	}
	if info.BuildID == "" {
		t.Error("BuildID is empty")
	}
}

func TestReadInfo_Missing(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "foro.sock")
	if _, err := ReadInfo(socketPath); err == nil {
		t.Error("expected an error reading a nonexistent info file")
	}
}

func TestReadInfo_Malformed(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "foro.sock")
	if err := os.WriteFile(InfoPath(socketPath), []byte("not,enough\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadInfo(socketPath); err == nil {
		t.Error("expected an error reading a malformed info file")
	}
}

func TestRemoveInfo(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "foro.sock")
	if err := WriteInfo(socketPath, os.Getpid(), time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := RemoveInfo(socketPath); err != nil {
		t.Fatalf("RemoveInfo: %v", err)
	}
	if _, err := os.Stat(InfoPath(socketPath)); !os.IsNotExist(err) {
		t.Errorf("info file still exists after RemoveInfo: %v", err)
	}
}

func TestCheckLiveness_Running(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "foro.sock")
	pid := os.Getpid()
	start, err := procutil.StartTime(pid)
	if err != nil {
		t.Skipf("procutil.StartTime unsupported on this platform: %v", err)
	}
	if err := WriteInfo(socketPath, pid, start); err != nil {
		t.Fatal(err)
	}

	liveness := CheckLiveness(socketPath)
	if !liveness.Running {
		t.Error("expected CheckLiveness to report Running for this process's own pid")
	}
	if liveness.BuildID == "" {
		t.Error("expected a non-empty BuildID when running")
	}
}

func TestCheckLiveness_NoInfoFile(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "foro.sock")
	if liveness := CheckLiveness(socketPath); liveness.Running {
		t.Error("expected Running=false with no info file present")
	}
}

func TestCheckLiveness_DeadPID(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "foro.sock")
	// A pid astronomically unlikely to be alive.
	if err := WriteInfo(socketPath, 1<<30, time.Now()); err != nil {
		t.Fatal(err)
	}
	if liveness := CheckLiveness(socketPath); liveness.Running {
		t.Error("expected Running=false for an implausible pid")
	}
}

func TestCheckLiveness_StartTimeMismatch(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "foro.sock")
	pid := os.Getpid()
	if _, err := procutil.StartTime(pid); err != nil {
		t.Skipf("procutil.StartTime unsupported on this platform: %v", err)
	}
	// A start time far from this process's real one simulates pid recycling.
	if err := WriteInfo(socketPath, pid, time.Unix(1, 0)); err != nil {
		t.Fatal(err)
	}
	if liveness := CheckLiveness(socketPath); liveness.Running {
		t.Error("expected Running=false when the recorded start time doesn't match")
	}
}
