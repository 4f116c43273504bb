// Package rules implements the rule set data model: path matchers, the
// pure/write command classification, and the recursive command-flow tree
// shape. The JSON encoding mirrors an untagged Rust enum, so unmarshaling is
// done by trial: each variant is attempted in the order the original
// implementation's serde derive would have tried it.
package rules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"path/filepath"
)

// OnRule matches a path against either a single extension or a disjunction
// of other OnRules.
type OnRule struct {
	Extension string
	Or        []OnRule
}

// OnMatch reports whether target's final extension satisfies the rule.
// Extension comparison is case-sensitive and includes the leading dot,
// matching spec.md §4.1.
func (r OnRule) OnMatch(target string) bool {
	if r.Or != nil {
		for _, sub := range r.Or {
			if sub.OnMatch(target) {
				return true
			}
		}
		return false
	}
	ext := filepath.Ext(target)
	return ext != "" && ext == r.Extension
}

// UnmarshalJSON accepts either a JSON string (an extension like ".rs") or a
// JSON array of OnRule (an "or" group).
func (r *OnRule) UnmarshalJSON(data []byte) error {
	var ext string
	if err := json.Unmarshal(data, &ext); err == nil {
		r.Extension = ext
		r.Or = nil
		return nil
	}
	var or []OnRule
	if err := json.Unmarshal(data, &or); err == nil {
		r.Or = or
		r.Extension = ""
		return nil
	}
	return fmt.Errorf("rules: OnRule must be a string or an array of OnRule")
}

// MarshalJSON renders the rule back to its string or array form.
func (r OnRule) MarshalJSON() ([]byte, error) {
	if r.Or != nil {
		return json.Marshal(r.Or)
	}
	return json.Marshal(r.Extension)
}

// PureCommand is a side-effect-free leaf: either a plugin URL or a shell
// pipe ("io") that formats via stdin/stdout.
type PureCommand struct {
	PluginURL string // set when this is a plugin invocation
	IO        string // set when this is a `{io: "..."}` shell pipe
	isIO      bool
}

// IsPluginURL reports whether this leaf invokes a plugin rather than a
// shell pipe.
func (c PureCommand) IsPluginURL() bool { return !c.isIO }

func looksLikeURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// UnmarshalJSON tries, in order: a JSON string that parses as an absolute
// URL (PluginURL), then a `{"io": "..."}` object (CommandIO). A bare string
// that is not a URL is not a valid PureCommand — callers deserializing a
// WriteCommand rely on that failure to fall through to SimpleCommand.
func (c *PureCommand) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if !looksLikeURL(s) {
			return fmt.Errorf("rules: %q is not a valid plugin URL", s)
		}
		c.PluginURL = s
		c.isIO = false
		return nil
	}
	var obj struct {
		IO *string `json:"io"`
	}
	if err := json.Unmarshal(data, &obj); err == nil && obj.IO != nil {
		c.IO = *obj.IO
		c.isIO = true
		return nil
	}
	return fmt.Errorf("rules: invalid PureCommand")
}

// MarshalJSON renders the leaf back to its URL-string or io-object form.
func (c PureCommand) MarshalJSON() ([]byte, error) {
	if c.isIO {
		return json.Marshal(struct {
			IO string `json:"io"`
		}{c.IO})
	}
	return json.Marshal(c.PluginURL)
}

// WriteCommand is a leaf usable only inside a `write_cmd` tree: either a
// pure command run for its output (whose result is then written to disk by
// the interpreter) or a bare shell command expected to edit the file
// in place.
type WriteCommand struct {
	Pure          *PureCommand
	SimpleCommand string
}

// UnmarshalJSON tries a Pure leaf first (object form `{"io": ...}`, or a
// string that parses as a plugin URL), falling back to treating any other
// string as a literal shell command.
func (c *WriteCommand) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var pure PureCommand
		if err := json.Unmarshal(data, &pure); err == nil {
			c.Pure = &pure
			return nil
		}
		return fmt.Errorf("rules: invalid WriteCommand object")
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("rules: WriteCommand must be a string or an io-object")
	}
	if looksLikeURL(s) {
		c.Pure = &PureCommand{PluginURL: s}
		return nil
	}
	c.SimpleCommand = s
	return nil
}

// MarshalJSON renders the leaf back to its pure or literal-command form.
func (c WriteCommand) MarshalJSON() ([]byte, error) {
	if c.Pure != nil {
		return json.Marshal(*c.Pure)
	}
	return json.Marshal(c.SimpleCommand)
}

// IfNode is the "If" variant of CommandFlow: evaluate Run, compile Cond as
// a template expression against the result, then branch.
type IfNode[T any] struct {
	Run     *CommandFlow[T]
	Cond    string
	OnTrue  *CommandFlow[T]
	OnFalse *CommandFlow[T]
}

// CommandFlow is the recursive command-flow tree, generic over its leaf
// command type (PureCommand or WriteCommand). Exactly one of its fields is
// populated after successful unmarshaling, mirroring the original's
// untagged Rust enum.
type CommandFlow[T any] struct {
	If         *IfNode[T]
	Sequential []CommandFlow[T]
	Set        map[string]string
	Command    *T
}

// unmarshalLeaf unmarshals data into a new T, using T's own UnmarshalJSON
// when it implements json.Unmarshaler (both PureCommand and WriteCommand
// do), falling back to the default decoder otherwise.
func unmarshalLeaf[T any](data []byte) (*T, error) {
	var leaf T
	if u, ok := any(&leaf).(json.Unmarshaler); ok {
		if err := u.UnmarshalJSON(data); err != nil {
			return nil, err
		}
		return &leaf, nil
	}
	if err := json.Unmarshal(data, &leaf); err != nil {
		return nil, err
	}
	return &leaf, nil
}

// UnmarshalJSON tries, in declaration order: an If-object (has "run"), a
// Set-object (has "set"), a JSON array (Sequential), and finally a leaf
// command (string or leaf-shaped object).
func (c *CommandFlow[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(data, &probe); err != nil {
			return err
		}
		if _, ok := probe["run"]; ok {
			var node struct {
				Run     json.RawMessage `json:"run"`
				Cond    string          `json:"cond"`
				OnTrue  json.RawMessage `json:"on_true"`
				OnFalse json.RawMessage `json:"on_false"`
			}
			if err := json.Unmarshal(data, &node); err != nil {
				return err
			}
			run := &CommandFlow[T]{}
			if err := json.Unmarshal(node.Run, run); err != nil {
				return err
			}
			onTrue := &CommandFlow[T]{}
			if err := json.Unmarshal(node.OnTrue, onTrue); err != nil {
				return err
			}
			onFalse := &CommandFlow[T]{}
			if err := json.Unmarshal(node.OnFalse, onFalse); err != nil {
				return err
			}
			c.If = &IfNode[T]{Run: run, Cond: node.Cond, OnTrue: onTrue, OnFalse: onFalse}
			return nil
		}
		if raw, ok := probe["set"]; ok {
			var set map[string]string
			if err := json.Unmarshal(raw, &set); err != nil {
				return err
			}
			c.Set = set
			return nil
		}
		leaf, err := unmarshalLeaf[T](data)
		if err != nil {
			return fmt.Errorf("rules: unrecognized command-flow object: %w", err)
		}
		c.Command = leaf
		return nil
	}

	if len(trimmed) > 0 && trimmed[0] == '[' {
		var arr []json.RawMessage
		if err := json.Unmarshal(data, &arr); err != nil {
			return err
		}
		seq := make([]CommandFlow[T], len(arr))
		for i, raw := range arr {
			if err := json.Unmarshal(raw, &seq[i]); err != nil {
				return err
			}
		}
		c.Sequential = seq
		return nil
	}

	leaf, err := unmarshalLeaf[T](data)
	if err != nil {
		return err
	}
	c.Command = leaf
	return nil
}

// MarshalJSON renders whichever variant is populated.
func (c CommandFlow[T]) MarshalJSON() ([]byte, error) {
	switch {
	case c.If != nil:
		return json.Marshal(struct {
			Run     *CommandFlow[T] `json:"run"`
			Cond    string          `json:"cond"`
			OnTrue  *CommandFlow[T] `json:"on_true"`
			OnFalse *CommandFlow[T] `json:"on_false"`
		}{c.If.Run, c.If.Cond, c.If.OnTrue, c.If.OnFalse})
	case c.Set != nil:
		return json.Marshal(struct {
			Set map[string]string `json:"set"`
		}{c.Set})
	case c.Sequential != nil:
		return json.Marshal(c.Sequential)
	case c.Command != nil:
		return json.Marshal(*c.Command)
	default:
		return nil, fmt.Errorf("rules: empty CommandFlow")
	}
}

// SomeCommand is a rule's command bundle: exactly one of Pure or Write is
// populated.
type SomeCommand struct {
	Pure  *CommandFlow[PureCommand]
	Write *CommandFlow[WriteCommand]
}

// IsPure reports whether this bundle is side-effect-free with respect to
// the filesystem.
func (s SomeCommand) IsPure() bool { return s.Pure != nil }

// Rule pairs a matcher with a command bundle.
type Rule struct {
	On      OnRule
	Command SomeCommand
}

// OnMatch reports whether the rule fires for target. Under forcePure, a
// write-mode rule never fires even if its matcher would otherwise hit
// (spec.md §4.1).
func (r Rule) OnMatch(target string, forcePure bool) bool {
	if forcePure && !r.Command.IsPure() {
		return false
	}
	return r.On.OnMatch(target)
}

// UnmarshalJSON decodes a rule from its flattened `{"on": ..., "cmd": ...}`
// or `{"on": ..., "write_cmd": ...}` form.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var shape struct {
		On       OnRule                      `json:"on"`
		Cmd      *CommandFlow[PureCommand]   `json:"cmd"`
		WriteCmd *CommandFlow[WriteCommand]  `json:"write_cmd"`
	}
	if err := json.Unmarshal(data, &shape); err != nil {
		return err
	}
	r.On = shape.On
	switch {
	case shape.Cmd != nil:
		r.Command = SomeCommand{Pure: shape.Cmd}
	case shape.WriteCmd != nil:
		r.Command = SomeCommand{Write: shape.WriteCmd}
	default:
		return fmt.Errorf("rules: rule must have either \"cmd\" or \"write_cmd\"")
	}
	return nil
}

// MarshalJSON renders the rule back to its flattened form.
func (r Rule) MarshalJSON() ([]byte, error) {
	switch {
	case r.Command.Pure != nil:
		return json.Marshal(struct {
			On  OnRule                    `json:"on"`
			Cmd *CommandFlow[PureCommand] `json:"cmd"`
		}{r.On, r.Command.Pure})
	case r.Command.Write != nil:
		return json.Marshal(struct {
			On       OnRule                     `json:"on"`
			WriteCmd *CommandFlow[WriteCommand] `json:"write_cmd"`
		}{r.On, r.Command.Write})
	default:
		return nil, fmt.Errorf("rules: rule has no command bundle")
	}
}

// Config is the top-level rule-set document (spec.md §6 "Config file").
type Config struct {
	Rules     []Rule  `json:"rules"`
	CacheDir  *string `json:"cache_dir,omitempty"`
	SocketDir *string `json:"socket_dir,omitempty"`
}

// FindMatchedRule scans Rules in declaration order and returns the first
// that matches target under forcePure, or nil.
func (c Config) FindMatchedRule(target string, forcePure bool) *Rule {
	for i := range c.Rules {
		if c.Rules[i].OnMatch(target, forcePure) {
			rule := c.Rules[i]
			return &rule
		}
	}
	return nil
}

// IgnoreReason classifies why FindMatchedRule found nothing, distinguishing
// "no rule at all" from "a write-only rule exists but pure mode excluded
// it" (spec.md §4.5, PureFormat).
func (c Config) IgnoreReason(target string) string {
	if c.FindMatchedRule(target, false) != nil {
		return "No rule matched (but found non-pure rule)"
	}
	return "No rule matched"
}
