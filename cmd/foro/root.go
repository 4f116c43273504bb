package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	cfgFile               string
	cacheDirFlag          string
	socketDirFlag         string
	noCache               bool
	noLongLog             bool
	ignoreBuildIDMismatch bool
	noDaemon              bool
	logLevelFlag          string
	quiet                 bool

	v *viper.Viper
)

// rootCmd is the base command when foro is called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "foro",
	Short: "foro formats source files through pluggable rules",
	Long: `foro matches a path against a rule set and runs the matched rule's
command flow — a plugin invocation, a shell pipe, or a small tree of
conditionals and sequences — to format it.

A background daemon keeps plugins warm between invocations; foro talks
to it over a Unix-domain socket and only runs in-process when asked to
with --no-daemon or when no daemon can be reached.`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return initializeConfig(cmd)
	},
	SilenceUsage: true,
}

// Execute runs the root command under a context canceled on SIGINT/SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "rule-set config file (default: OS config dir/foro/config.json)")
	rootCmd.PersistentFlags().StringVar(&cacheDirFlag, "cache-dir", "", "plugin cache directory (default: OS cache dir)")
	rootCmd.PersistentFlags().StringVar(&socketDirFlag, "socket-dir", "", "daemon socket directory (default: OS runtime dir)")
	rootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false, "bypass the on-disk plugin cache")
	rootCmd.PersistentFlags().BoolVar(&noLongLog, "no-long-log", false, "omit verbose diagnostics from daemon logs")
	rootCmd.PersistentFlags().BoolVar(&ignoreBuildIDMismatch, "ignore-build-id-mismatch", false, "accept a running daemon even if its build id differs from this binary's")
	rootCmd.PersistentFlags().BoolVar(&noDaemon, "no-daemon", false, "run in-process instead of talking to the daemon")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "info", "log level: debug|info|warn|error")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress informational logging (errors only)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(formatCmd)
	rootCmd.AddCommand(bulkFormatCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(cacheCmd)
}

// initializeConfig lets every global flag above be set via a FORO_-prefixed
// environment variable instead, the same division of labor as the teacher's
// root.go — except foro has no app-settings file of its own: --config names
// a rule-set document (internal/rules), loaded directly by loadConfigAndCache
// rather than through viper.
func initializeConfig(cmd *cobra.Command) error {
	v = viper.New()
	v.SetEnvPrefix("FORO")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return bindFlags(cmd, v)
}

// bindFlags fills in any flag not set on the command line from viper
// (and therefore from its environment variable), mirroring the teacher's
// bindFlags.
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var err error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if err != nil || f.Changed || !v.IsSet(f.Name) {
			return
		}
		err = cmd.Flags().Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
	})
	return err
}

// newLogger builds the slog.Logger every component that logs uses,
// writing to w at the level --log-level/--quiet/--no-long-log resolve
// to (spec.md's --no-long-log and SPEC_FULL's --log-level/--quiet
// layer on top of each other: --quiet wins outright, otherwise
// --no-long-log floors verbosity at warn, otherwise --log-level decides).
func newLogger(w io.Writer) *slog.Logger {
	level := parseLogLevel(logLevelFlag)
	switch {
	case quiet:
		level = slog.LevelError
	case noLongLog && level < slog.LevelWarn:
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
