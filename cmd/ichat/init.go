package main

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/interviewkit/chatcore/internal/backend/httpapi"
	"github.com/interviewkit/chatcore/internal/config"
)

func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a config file interactively",
		RunE: func(cmd *cobra.Command, _ []string) error {
			output, _ := cmd.Flags().GetString("output")
			return runInit(output)
		},
	}
	cmd.Flags().String("output", "", "where to write the config (default: user config dir)")
	return cmd
}

func runInit(output string) error {
	if output == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("resolving config dir: %w", err)
		}
		output = filepath.Join(dir, "ichat", "config.yaml")
	}

	var baseURL, token string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Backend base URL").
				Placeholder("https://api.example.com").
				Validate(func(s string) error {
					u, err := url.Parse(s)
					if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
						return fmt.Errorf("must be an http(s) URL")
					}
					return nil
				}).
				Value(&baseURL),
			huh.NewInput().
				Title("API token").
				EchoMode(huh.EchoModePassword).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("token is required")
					}
					return nil
				}).
				Value(&token),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	cfg := config.Config{
		Version: "1",
		Backend: httpapi.Config{BaseURL: baseURL},
		Auth:    config.AuthConfig{Token: token},
	}
	raw, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(output), 0o700); err != nil {
		return err
	}
	if err := os.WriteFile(output, raw, 0o600); err != nil {
		return err
	}

	fmt.Println("Wrote", output)
	return nil
}
