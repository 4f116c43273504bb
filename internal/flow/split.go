package flow

import (
	"runtime"
	"strings"

	"github.com/google/shlex"
)

// splitCommand splits a rendered command string into argv, POSIX shell
// rules on POSIX hosts and Windows command-line rules on Windows (spec.md
// §4.3: "split into argv (shell-style on POSIX, Windows-style on
// Windows)").
func splitCommand(s string) ([]string, error) {
	if runtime.GOOS == "windows" {
		return splitWindows(s), nil
	}
	return shlex.Split(s)
}

// splitWindows splits on spaces outside double quotes, after the manner of
// CommandLineToArgvW: a double-quoted span is one argument, and a single
// backslash immediately before a double quote yields a literal quote. Other
// backslashes are kept as they are; a run of backslashes before a quote is
// not halved, and tabs do not separate arguments. No library in the example corpus
// covers this (shlex and go-shellwords are both POSIX-only), so this is a
// small hand-rolled stdlib implementation, justified in DESIGN.md.
func splitWindows(s string) []string {
	var args []string
	var cur strings.Builder
	inQuotes := false
	hasArg := false

	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case c == '"':
			inQuotes = !inQuotes
			hasArg = true
		case c == ' ' && !inQuotes:
			if hasArg {
				args = append(args, cur.String())
				cur.Reset()
				hasArg = false
			}
		case c == '\\' && i+1 < len(runes) && runes[i+1] == '"':
			cur.WriteRune('"')
			i++
			hasArg = true
		default:
			cur.WriteRune(c)
			hasArg = true
		}
	}
	if hasArg {
		args = append(args, cur.String())
	}
	return args
}
