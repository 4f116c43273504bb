package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/foro-dev/foro/internal/procutil"
)

// Server listens on a Unix-domain socket and serves one request per
// connection (spec.md §4.4: "each accepted connection carries one request
// and one response"). Grounded on the teacher's internal/adapters/daemon/
// server.go (mutex-guarded running flag, stopCh+wg shutdown), generalized
// from Forge's multi-request-per-connection RPC loop to foro's one-shot
// half-close framing.
type Server struct {
	socketPath string
	handlers   *Handlers
	logger     *slog.Logger

	listener  net.Listener
	startedAt time.Time

	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewServer constructs a Server bound to socketPath once Bind is called.
func NewServer(socketPath string, handlers *Handlers, logger *slog.Logger) *Server {
	return &Server{
		socketPath: socketPath,
		handlers:   handlers,
		logger:     logger,
		stopCh:     make(chan struct{}),
	}
}

// Bind creates the listener, mirroring WrappedUnixSocket::bind: on
// AddrInUse it pings the existing socket, refusing to start if a live peer
// answers and otherwise removing the stale socket and info files.
func (s *Server) Bind() error {
	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0o755); err != nil {
		return fmt.Errorf("daemon: creating socket directory: %w", err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		if !isAddrInUse(err) {
			return fmt.Errorf("daemon: binding socket: %w", err)
		}
		if pingSocket(s.socketPath) {
			return fmt.Errorf("daemon: already running")
		}
		s.logger.Info("removing dead socket file", "path", s.socketPath)
		_ = os.Remove(s.socketPath)
		_ = RemoveInfo(s.socketPath)
		listener, err = net.Listen("unix", s.socketPath)
		if err != nil {
			return fmt.Errorf("daemon: binding socket after stale cleanup: %w", err)
		}
	}

	s.listener = listener
	s.startedAt = time.Now()
	// The info file records the process's OS start time, the value
	// CheckLiveness compares against procutil.StartTime for this pid.
	procStart, err := procutil.StartTime(os.Getpid())
	if err != nil {
		procStart = s.startedAt
	}
	return WriteInfo(s.socketPath, os.Getpid(), procStart)
}

func isAddrInUse(err error) bool {
	return errors.Is(err, syscall.EADDRINUSE)
}

// Serve runs the accept loop until a Stop command is handled or ctx is
// canceled. The two files it owns are removed on return (spec.md §4.4,
// "The info file and socket file are both removed on Drop").
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()
	defer s.cleanup()

	s.logger.Info("daemon listening", "socket", s.socketPath, "pid", os.Getpid())

	go func() {
		select {
		case <-ctx.Done():
			s.listener.Close()
		case <-s.stopCh:
		}
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.stopCh:
				s.wg.Wait()
				return nil
			default:
			}
			select {
			case <-ctx.Done():
				s.wg.Wait()
				return nil
			default:
			}
			return fmt.Errorf("daemon: accept: %w", err)
		}

		s.wg.Add(1)
		go s.handleConnection(ctx, conn)
	}
}

// handleConnection reads exactly one request, dispatches it, and writes
// exactly one response (spec.md §4.4, §5: "requests on a given connection
// are totally ordered, one per connection").
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	log := s.logger.With("trace_id", uuid.NewString())

	buf, err := io.ReadAll(conn)
	if err != nil {
		log.Debug("reading request", "error", err)
		return
	}

	var payload CommandPayload
	if err := json.Unmarshal(buf, &payload); err != nil {
		log.Debug("malformed request", "error", err)
		return
	}

	resp := s.handlers.Execute(ctx, payload)

	if resp.Stop {
		s.mu.Lock()
		select {
		case <-s.stopCh:
		default:
			close(s.stopCh)
		}
		s.mu.Unlock()
		s.listener.Close()
	}

	respBytes, err := json.Marshal(resp)
	if err != nil {
		log.Error("marshaling response", "error", err)
		return
	}
	if _, err := conn.Write(respBytes); err != nil {
		log.Debug("writing response", "error", err)
	}
}

func (s *Server) cleanup() {
	_ = os.Remove(s.socketPath)
	_ = RemoveInfo(s.socketPath)
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning reports whether Serve is currently accepting connections.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// StartedAt is the time Bind succeeded.
func (s *Server) StartedAt() time.Time { return s.startedAt }
