package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/foro-dev/foro/internal/appdir"
	"github.com/foro-dev/foro/internal/rules"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or edit the rule-set config file",
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the resolved config file path",
	RunE:  runConfigPath,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved config file's contents",
	RunE:  runConfigShow,
}

var configDefaultCmd = &cobra.Command{
	Use:   "default",
	Short: "Write a starter config file if none exists",
	RunE:  runConfigDefault,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the config file in $EDITOR",
	RunE:  runConfigEdit,
}

func init() {
	configCmd.AddCommand(configPathCmd, configShowCmd, configDefaultCmd, configEditCmd)
}

func runConfigPath(_ *cobra.Command, _ []string) error {
	path, err := resolveConfigFile(buildGlobalOptions())
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	path, err := resolveConfigFile(buildGlobalOptions())
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("foro: reading %s: %w", path, err)
	}
	fmt.Println(string(data))
	return nil
}

func runConfigDefault(_ *cobra.Command, _ []string) error {
	path, err := resolveConfigFile(buildGlobalOptions())
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("foro: %s already exists", path)
	}
	if err := appdir.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	data, err := json.MarshalIndent(rules.DefaultConfig(), "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("foro: writing %s: %w", path, err)
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

func runConfigEdit(_ *cobra.Command, _ []string) error {
	path, err := resolveConfigFile(buildGlobalOptions())
	if err != nil {
		return err
	}
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		return fmt.Errorf("foro: set $EDITOR to use `config edit`")
	}

	cmd := exec.Command(editor, path)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
