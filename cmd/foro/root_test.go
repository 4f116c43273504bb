package main

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for input, want := range cases {
		if got := parseLogLevel(input); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestNewLogger_RespectsLogLevelFlag(t *testing.T) {
	resetLoggingFlags(t)
	logLevelFlag = "warn"

	var buf bytes.Buffer
	logger := newLogger(&buf)
	logger.Info("should not appear")
	logger.Warn("should appear")

	out := buf.String()
	if strings.Contains(out, "should not appear") {
		t.Errorf("Info-level message leaked through a warn-level logger: %q", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Errorf("Warn-level message missing from output: %q", out)
	}
}

func TestNewLogger_QuietWinsOverLogLevel(t *testing.T) {
	resetLoggingFlags(t)
	logLevelFlag = "debug"
	quiet = true

	var buf bytes.Buffer
	logger := newLogger(&buf)
	logger.Warn("should not appear under quiet")
	logger.Error("should appear")

	out := buf.String()
	if strings.Contains(out, "should not appear") {
		t.Errorf("--quiet did not suppress a warn-level message: %q", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Errorf("error-level message missing under --quiet: %q", out)
	}
}

func TestNewLogger_NoLongLogFloorsAtWarn(t *testing.T) {
	resetLoggingFlags(t)
	logLevelFlag = "debug"
	noLongLog = true

	var buf bytes.Buffer
	logger := newLogger(&buf)
	logger.Info("should not appear")
	logger.Warn("should appear")

	out := buf.String()
	if strings.Contains(out, "should not appear") {
		t.Errorf("--no-long-log did not floor verbosity at warn: %q", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Errorf("warn-level message missing with --no-long-log: %q", out)
	}
}

// resetLoggingFlags restores the package-level flag variables newLogger
// reads, since cobra normally owns their lifecycle across invocations.
func resetLoggingFlags(t *testing.T) {
	t.Helper()
	origLevel, origQuiet, origNoLongLog := logLevelFlag, quiet, noLongLog
	logLevelFlag, quiet, noLongLog = "info", false, false
	t.Cleanup(func() {
		logLevelFlag, quiet, noLongLog = origLevel, origQuiet, origNoLongLog
	})
}
