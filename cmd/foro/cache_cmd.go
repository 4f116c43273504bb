package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/foro-dev/foro/internal/plugin"
)

var cacheCleanYes bool

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the plugin cache",
}

var cacheDirCmd = &cobra.Command{
	Use:   "dir",
	Short: "Print the resolved plugin cache directory",
	RunE:  runCacheDir,
}

var cacheCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete the entire plugin cache",
	RunE:  runCacheClean,
}

var cacheRemoveCmd = &cobra.Command{
	Use:   "remove <url-or-path>",
	Short: "Delete a single plugin's cache entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runCacheRemove,
}

func init() {
	cacheCleanCmd.Flags().BoolVarP(&cacheCleanYes, "yes", "y", false, "skip the confirmation prompt")
	cacheCmd.AddCommand(cacheDirCmd, cacheCleanCmd, cacheRemoveCmd)
}

func runCacheDir(_ *cobra.Command, _ []string) error {
	dir, err := resolveCacheDir(buildGlobalOptions())
	if err != nil {
		return err
	}
	fmt.Println(dir)
	return nil
}

func runCacheClean(_ *cobra.Command, _ []string) error {
	dir, err := resolveCacheDir(buildGlobalOptions())
	if err != nil {
		return err
	}

	if !cacheCleanYes && !confirm(fmt.Sprintf("delete everything under %s?", dir)) {
		fmt.Println("aborted")
		return nil
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("foro: clearing cache: %w", err)
	}
	fmt.Printf("cleared %s\n", dir)
	return nil
}

func runCacheRemove(_ *cobra.Command, args []string) error {
	dir, err := resolveCacheDir(buildGlobalOptions())
	if err != nil {
		return err
	}
	entryPath, _, err := plugin.CachePathFor(dir, args[0])
	if err != nil {
		return err
	}
	if err := os.Remove(entryPath); err != nil {
		if os.IsNotExist(err) {
			fmt.Printf("%s has no cache entry\n", args[0])
			return nil
		}
		return fmt.Errorf("foro: removing cache entry: %w", err)
	}
	fmt.Printf("removed %s\n", entryPath)
	return nil
}

// confirm prompts on the controlling terminal, defaulting to "no" when
// stdin isn't an interactive terminal at all (e.g. piped into a script).
func confirm(prompt string) bool {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false
	}
	fmt.Printf("%s [y/N] ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	line = strings.TrimSpace(line)
	return line == "y" || line == "Y" || line == "yes"
}
