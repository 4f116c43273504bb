package daemon

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"time"
)

// pingTimeout bounds the liveness round-trip (spec.md §5: "the only
// built-in timeout is on Ping").
const pingTimeout = time.Second

// Client dials the daemon's socket for a single request/response exchange
// (spec.md §4.4: one command per connection, half-close after write).
// Grounded on the teacher's internal/adapters/daemon/client.go dialing
// idiom, adapted from newline-framed multi-request RPC to foro's one-shot
// protocol.
type Client struct {
	socketPath string
}

// NewClient returns a Client for socketPath.
func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath}
}

func (c *Client) call(payload CommandPayload, timeout time.Duration) (Response, error) {
	conn, err := net.Dial("unix", c.socketPath)
	if err != nil {
		return Response{}, fmt.Errorf("daemon: dialing socket: %w", err)
	}
	defer conn.Close()

	if timeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
			return Response{}, fmt.Errorf("daemon: setting deadline: %w", err)
		}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return Response{}, fmt.Errorf("daemon: encoding request: %w", err)
	}
	if _, err := conn.Write(data); err != nil {
		return Response{}, fmt.Errorf("daemon: writing request: %w", err)
	}
	if uc, ok := conn.(*net.UnixConn); ok {
		_ = uc.CloseWrite()
	}

	respBytes, err := io.ReadAll(conn)
	if err != nil {
		return Response{}, fmt.Errorf("daemon: reading response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return Response{}, fmt.Errorf("daemon: decoding response: %w", err)
	}
	return resp, nil
}

// Ping sends Ping and returns the peer's DaemonInfo.
func (c *Client) Ping() (DaemonInfo, error) {
	resp, err := c.call(CommandPayload{Command: Command{Ping: true}}, pingTimeout)
	if err != nil {
		return DaemonInfo{}, err
	}
	if resp.Pong == nil {
		return DaemonInfo{}, fmt.Errorf("daemon: expected a Pong response")
	}
	return *resp.Pong, nil
}

// Format sends a Format command.
func (c *Client) Format(currentDir, path string, opts GlobalOptions) (FormatStatus, error) {
	resp, err := c.call(CommandPayload{
		Command:       Command{Format: &FormatArgs{Path: path}},
		CurrentDir:    currentDir,
		GlobalOptions: opts,
	}, 0)
	if err != nil {
		return FormatStatus{}, err
	}
	if resp.Format == nil {
		return FormatStatus{}, fmt.Errorf("daemon: expected a Format response")
	}
	return *resp.Format, nil
}

// PureFormat sends a PureFormat command.
func (c *Client) PureFormat(currentDir, path, content string, opts GlobalOptions) (PureFormatStatus, error) {
	resp, err := c.call(CommandPayload{
		Command:       Command{PureFormat: &PureFormatArgs{Path: path, Content: content}},
		CurrentDir:    currentDir,
		GlobalOptions: opts,
	}, 0)
	if err != nil {
		return PureFormatStatus{}, err
	}
	if resp.PureFormat == nil {
		return PureFormatStatus{}, fmt.Errorf("daemon: expected a PureFormat response")
	}
	return *resp.PureFormat, nil
}

// BulkFormat sends a BulkFormat command.
func (c *Client) BulkFormat(currentDir string, paths []string, threads int, opts GlobalOptions) (BulkFormatStatus, error) {
	resp, err := c.call(CommandPayload{
		Command:       Command{BulkFormat: &BulkFormatArgs{Paths: paths, Threads: threads}},
		CurrentDir:    currentDir,
		GlobalOptions: opts,
	}, 0)
	if err != nil {
		return BulkFormatStatus{}, err
	}
	if resp.BulkFormat == nil {
		return BulkFormatStatus{}, fmt.Errorf("daemon: expected a BulkFormat response")
	}
	return *resp.BulkFormat, nil
}

// Stop sends a Stop command; the daemon exits its accept loop afterward.
func (c *Client) Stop() error {
	_, err := c.call(CommandPayload{Command: Command{Stop: true}}, pingTimeout)
	return err
}

// pingSocket is a best-effort liveness probe: any failure (connection
// refused, socket missing, malformed reply) reads as "not running", mirroring
// the original's ping() treating ConnectionRefused/NotFound as Ok(false).
func pingSocket(socketPath string) bool {
	_, err := NewClient(socketPath).Ping()
	return err == nil
}
