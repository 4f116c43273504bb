// Package daemon implements the daemon's Unix-domain socket transport,
// liveness protocol, startup arbitration, and the Format/PureFormat/
// BulkFormat/Stop/Ping request handlers (spec.md §4.4-§4.7).
package daemon

import (
	"encoding/json"
	"fmt"
)

// GlobalOptions mirrors the per-request options a client may override.
type GlobalOptions struct {
	ConfigFile            string `json:"config_file,omitempty"`
	CacheDir              string `json:"cache_dir,omitempty"`
	SocketDir             string `json:"socket_dir,omitempty"`
	NoCache               bool   `json:"no_cache"`
	NoLongLog             bool   `json:"no_long_log"`
	IgnoreBuildIDMismatch bool   `json:"ignore_build_id_mismatch"`
}

// FormatArgs is the Format command's payload.
type FormatArgs struct {
	Path string `json:"path"`
}

// PureFormatArgs is the PureFormat command's payload.
type PureFormatArgs struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// BulkFormatArgs is the BulkFormat command's payload.
type BulkFormatArgs struct {
	Paths   []string `json:"paths"`
	Threads int      `json:"threads"`
}

// Command is the tagged union of daemon RPC commands (spec.md §6). Exactly
// one field is populated. Stop and Ping are unit variants, carried as bare
// JSON strings the way serde's default enum representation encodes Rust
// unit variants; the others carry a single-key object.
type Command struct {
	Format     *FormatArgs
	PureFormat *PureFormatArgs
	BulkFormat *BulkFormatArgs
	Stop       bool
	Ping       bool
}

func (c Command) MarshalJSON() ([]byte, error) {
	switch {
	case c.Format != nil:
		return json.Marshal(map[string]*FormatArgs{"Format": c.Format})
	case c.PureFormat != nil:
		return json.Marshal(map[string]*PureFormatArgs{"PureFormat": c.PureFormat})
	case c.BulkFormat != nil:
		return json.Marshal(map[string]*BulkFormatArgs{"BulkFormat": c.BulkFormat})
	case c.Stop:
		return json.Marshal("Stop")
	case c.Ping:
		return json.Marshal("Ping")
	default:
		return nil, fmt.Errorf("daemon: empty command")
	}
}

func (c *Command) UnmarshalJSON(data []byte) error {
	var tag string
	if err := json.Unmarshal(data, &tag); err == nil {
		switch tag {
		case "Stop":
			*c = Command{Stop: true}
			return nil
		case "Ping":
			*c = Command{Ping: true}
			return nil
		default:
			return fmt.Errorf("daemon: unknown unit command %q", tag)
		}
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return fmt.Errorf("daemon: command is neither a unit string nor an object: %w", err)
	}
	if len(wrapper) != 1 {
		return fmt.Errorf("daemon: command object must carry exactly one variant, got %d", len(wrapper))
	}

	for tag, raw := range wrapper {
		switch tag {
		case "Format":
			var args FormatArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return fmt.Errorf("daemon: decoding Format args: %w", err)
			}
			*c = Command{Format: &args}
		case "PureFormat":
			var args PureFormatArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return fmt.Errorf("daemon: decoding PureFormat args: %w", err)
			}
			*c = Command{PureFormat: &args}
		case "BulkFormat":
			var args BulkFormatArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return fmt.Errorf("daemon: decoding BulkFormat args: %w", err)
			}
			*c = Command{BulkFormat: &args}
		default:
			return fmt.Errorf("daemon: unknown command variant %q", tag)
		}
	}
	return nil
}

// CommandPayload is the full request envelope (spec.md §6).
type CommandPayload struct {
	Command       Command       `json:"command"`
	CurrentDir    string        `json:"current_dir"`
	GlobalOptions GlobalOptions `json:"global_options"`
}

// FormatStatus is Format's Success()|Ignored(reason)|Error(msg) response.
type FormatStatus struct {
	Success       bool
	IgnoredReason *string
	ErrorMessage  *string
}

func (s FormatStatus) MarshalJSON() ([]byte, error) {
	switch {
	case s.ErrorMessage != nil:
		return json.Marshal(map[string]string{"Error": *s.ErrorMessage})
	case s.IgnoredReason != nil:
		return json.Marshal(map[string]string{"Ignored": *s.IgnoredReason})
	default:
		return json.Marshal("Success")
	}
}

func (s *FormatStatus) UnmarshalJSON(data []byte) error {
	var tag string
	if err := json.Unmarshal(data, &tag); err == nil {
		if tag != "Success" {
			return fmt.Errorf("daemon: unknown FormatStatus tag %q", tag)
		}
		*s = FormatStatus{Success: true}
		return nil
	}
	var wrapper map[string]string
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return fmt.Errorf("daemon: malformed FormatStatus: %w", err)
	}
	if reason, ok := wrapper["Ignored"]; ok {
		*s = FormatStatus{IgnoredReason: &reason}
		return nil
	}
	if msg, ok := wrapper["Error"]; ok {
		*s = FormatStatus{ErrorMessage: &msg}
		return nil
	}
	return fmt.Errorf("daemon: malformed FormatStatus object: %s", data)
}

// PureFormatStatus is PureFormat's Success(formatted)|Ignored(reason)|
// Error(msg) response.
type PureFormatStatus struct {
	SuccessContent *string
	IgnoredReason  *string
	ErrorMessage   *string
}

func (s PureFormatStatus) MarshalJSON() ([]byte, error) {
	switch {
	case s.ErrorMessage != nil:
		return json.Marshal(map[string]string{"Error": *s.ErrorMessage})
	case s.IgnoredReason != nil:
		return json.Marshal(map[string]string{"Ignored": *s.IgnoredReason})
	case s.SuccessContent != nil:
		return json.Marshal(map[string]string{"Success": *s.SuccessContent})
	default:
		return nil, fmt.Errorf("daemon: empty PureFormatStatus")
	}
}

func (s *PureFormatStatus) UnmarshalJSON(data []byte) error {
	var wrapper map[string]string
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return fmt.Errorf("daemon: malformed PureFormatStatus: %w", err)
	}
	if content, ok := wrapper["Success"]; ok {
		*s = PureFormatStatus{SuccessContent: &content}
		return nil
	}
	if reason, ok := wrapper["Ignored"]; ok {
		*s = PureFormatStatus{IgnoredReason: &reason}
		return nil
	}
	if msg, ok := wrapper["Error"]; ok {
		*s = PureFormatStatus{ErrorMessage: &msg}
		return nil
	}
	return fmt.Errorf("daemon: malformed PureFormatStatus object: %s", data)
}

// BulkSummary is BulkFormat's (changed, total_processed) tally.
type BulkSummary struct {
	Changed        int `json:"changed"`
	TotalProcessed int `json:"total_processed"`
}

// BulkFormatStatus is BulkFormat's Success(summary)|Error(msg) response.
type BulkFormatStatus struct {
	Success      *BulkSummary
	ErrorMessage *string
}

func (s BulkFormatStatus) MarshalJSON() ([]byte, error) {
	switch {
	case s.ErrorMessage != nil:
		return json.Marshal(map[string]string{"Error": *s.ErrorMessage})
	case s.Success != nil:
		return json.Marshal(map[string]*BulkSummary{"Success": s.Success})
	default:
		return nil, fmt.Errorf("daemon: empty BulkFormatStatus")
	}
}

func (s *BulkFormatStatus) UnmarshalJSON(data []byte) error {
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return fmt.Errorf("daemon: malformed BulkFormatStatus: %w", err)
	}
	if raw, ok := wrapper["Success"]; ok {
		var summary BulkSummary
		if err := json.Unmarshal(raw, &summary); err != nil {
			return fmt.Errorf("daemon: malformed BulkFormatStatus.Success: %w", err)
		}
		*s = BulkFormatStatus{Success: &summary}
		return nil
	}
	if raw, ok := wrapper["Error"]; ok {
		var msg string
		if err := json.Unmarshal(raw, &msg); err != nil {
			return fmt.Errorf("daemon: malformed BulkFormatStatus.Error: %w", err)
		}
		*s = BulkFormatStatus{ErrorMessage: &msg}
		return nil
	}
	return fmt.Errorf("daemon: malformed BulkFormatStatus object: %s", data)
}

// DaemonInfo is Ping's response payload.
type DaemonInfo struct {
	PID        int    `json:"pid"`
	StartTime  string `json:"start_time"`
	StdoutPath string `json:"stdout_path"`
	StderrPath string `json:"stderr_path"`
	BuildID    string `json:"build_id"`
}

// Response is the Format|PureFormat|BulkFormat|Stop|Pong tagged union.
type Response struct {
	Format     *FormatStatus
	PureFormat *PureFormatStatus
	BulkFormat *BulkFormatStatus
	Stop       bool
	Pong       *DaemonInfo
}

func (r Response) MarshalJSON() ([]byte, error) {
	switch {
	case r.Format != nil:
		return json.Marshal(map[string]*FormatStatus{"Format": r.Format})
	case r.PureFormat != nil:
		return json.Marshal(map[string]*PureFormatStatus{"PureFormat": r.PureFormat})
	case r.BulkFormat != nil:
		return json.Marshal(map[string]*BulkFormatStatus{"BulkFormat": r.BulkFormat})
	case r.Stop:
		return json.Marshal("Stop")
	case r.Pong != nil:
		return json.Marshal(map[string]*DaemonInfo{"Pong": r.Pong})
	default:
		return nil, fmt.Errorf("daemon: empty response")
	}
}

func (r *Response) UnmarshalJSON(data []byte) error {
	var tag string
	if err := json.Unmarshal(data, &tag); err == nil {
		if tag != "Stop" {
			return fmt.Errorf("daemon: unknown unit response %q", tag)
		}
		*r = Response{Stop: true}
		return nil
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return fmt.Errorf("daemon: response is neither a unit string nor an object: %w", err)
	}
	if len(wrapper) != 1 {
		return fmt.Errorf("daemon: response object must carry exactly one variant, got %d", len(wrapper))
	}

	for tag, raw := range wrapper {
		switch tag {
		case "Format":
			var s FormatStatus
			if err := json.Unmarshal(raw, &s); err != nil {
				return fmt.Errorf("daemon: decoding Format response: %w", err)
			}
			*r = Response{Format: &s}
		case "PureFormat":
			var s PureFormatStatus
			if err := json.Unmarshal(raw, &s); err != nil {
				return fmt.Errorf("daemon: decoding PureFormat response: %w", err)
			}
			*r = Response{PureFormat: &s}
		case "BulkFormat":
			var s BulkFormatStatus
			if err := json.Unmarshal(raw, &s); err != nil {
				return fmt.Errorf("daemon: decoding BulkFormat response: %w", err)
			}
			*r = Response{BulkFormat: &s}
		case "Pong":
			var info DaemonInfo
			if err := json.Unmarshal(raw, &info); err != nil {
				return fmt.Errorf("daemon: decoding Pong response: %w", err)
			}
			*r = Response{Pong: &info}
		default:
			return fmt.Errorf("daemon: unknown response variant %q", tag)
		}
	}
	return nil
}
