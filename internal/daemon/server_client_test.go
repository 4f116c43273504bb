package daemon

import (
	"context"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/foro-dev/foro/internal/rules"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestServer_PingAndStop(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "foro.sock")
	handlers := &Handlers{StartedAt: time.Now()}
	server := NewServer(socketPath, handlers, discardLogger())

	if err := server.Bind(); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Serve(ctx) }()

	client := NewClient(socketPath)
	info, err := client.Ping()
	if err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if info.PID != os.Getpid() {
		t.Errorf("Ping PID = %d, want %d", info.PID, os.Getpid())
	}

	if err := client.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	select {
	case err := <-serveErr:
		if err != nil {
			t.Fatalf("Serve returned an error after Stop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after a Stop command")
	}

	if _, err := os.Stat(socketPath); !os.IsNotExist(err) {
		t.Errorf("socket file still present after Serve returned: %v", err)
	}
	if _, err := os.Stat(InfoPath(socketPath)); !os.IsNotExist(err) {
		t.Errorf("info file still present after Serve returned: %v", err)
	}
}

func TestServer_Bind_RefusesSecondBindWhileRunning(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "foro.sock")
	handlers := &Handlers{StartedAt: time.Now()}
	first := NewServer(socketPath, handlers, discardLogger())
	if err := first.Bind(); err != nil {
		t.Fatalf("first Bind: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go first.Serve(ctx)

	// Give the accept loop a moment to start so Ping can reach it.
	time.Sleep(20 * time.Millisecond)

	second := NewServer(socketPath, handlers, discardLogger())
	if err := second.Bind(); err == nil {
		t.Error("expected the second Bind to fail while the first daemon is live")
	}

	if err := NewClient(socketPath).Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestServer_Bind_CleansUpStaleSocket(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "foro.sock")
	handlers := &Handlers{StartedAt: time.Now()}

	first := NewServer(socketPath, handlers, discardLogger())
	if err := first.Bind(); err != nil {
		t.Fatalf("first Bind: %v", err)
	}
	// Simulate a crash: the socket/info files are left behind with no
	// listener actually accepting on them. A plain Close on a listener
	// created by net.Listen would unlink the socket file itself, so
	// disable that first to leave genuinely stale state behind.
	unixListener, ok := first.listener.(*net.UnixListener)
	if !ok {
		t.Fatalf("listener is %T, want *net.UnixListener", first.listener)
	}
	unixListener.SetUnlinkOnClose(false)
	unixListener.Close()

	second := NewServer(socketPath, handlers, discardLogger())
	if err := second.Bind(); err != nil {
		t.Fatalf("second Bind did not recover from a stale socket: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go second.Serve(ctx)

	if err := NewClient(socketPath).Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestHandlers_Execute_StopAndPing(t *testing.T) {
	h := &Handlers{StartedAt: time.Now(), StdoutPath: "/tmp/out.log", StderrPath: "/tmp/err.log"}

	resp := h.Execute(context.Background(), CommandPayload{Command: Command{Stop: true}})
	if !resp.Stop {
		t.Errorf("Execute(Stop) = %+v, want Stop response", resp)
	}

	resp = h.Execute(context.Background(), CommandPayload{Command: Command{Ping: true}})
	if resp.Pong == nil {
		t.Fatalf("Execute(Ping) = %+v, want a Pong response", resp)
	}
	if resp.Pong.StdoutPath != "/tmp/out.log" || resp.Pong.StderrPath != "/tmp/err.log" {
		t.Errorf("Pong = %+v, missing the daemon's log paths", resp.Pong)
	}
}

func TestHandlers_Execute_BulkFormat_EmptyPathsFails(t *testing.T) {
	h := &Handlers{
		LoadConfig: func(GlobalOptions) (rules.Config, string, error) {
			t.Fatal("LoadConfig should not be reached for an empty path list")
			return rules.Config{}, "", nil
		},
	}

	resp := h.Execute(context.Background(), CommandPayload{
		Command: Command{BulkFormat: &BulkFormatArgs{Paths: nil, Threads: 1}},
	})
	if resp.BulkFormat == nil {
		t.Fatalf("Execute(BulkFormat) = %+v, want a BulkFormat response", resp)
	}
	if resp.BulkFormat.ErrorMessage == nil {
		t.Fatalf("BulkFormat with no paths = %+v, want an ErrorMessage", resp.BulkFormat)
	}
}
