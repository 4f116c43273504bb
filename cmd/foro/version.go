package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/foro-dev/foro/internal/buildinfo"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("foro\n")
		fmt.Printf("  version:    %s\n", buildinfo.Version)
		fmt.Printf("  commit:     %s\n", buildinfo.Commit)
		fmt.Printf("  build id:   %s\n", buildinfo.ID())
		fmt.Printf("  go version: %s\n", runtime.Version())
		fmt.Printf("  os/arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}
