// Package main is the entry point for the ichat CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ichat",
		Short:         "Chat with an interview transcript from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "path to config file")
	root.AddCommand(versionCmd(), chatCmd(), searchCmd(), initCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("ichat %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

// resolveConfigPath returns the explicit path if given, otherwise the
// default user config location.
func resolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving config dir: %w", err)
	}
	path := filepath.Join(dir, "ichat", "config.yaml")
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("no config found at %s (run `ichat init` to create one)", path)
	}
	return path, nil
}
