package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"igosint/pkg/config"
	"igosint/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage igosint configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (IGOSINT_*)
  - .env files
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file with the default values",
	Long: `Create a configuration file holding every option with its default value.

The file will be created in the current directory as 'igosint.yaml'
unless a different path is specified with the --config flag.`,
	Run: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the effective configuration after merging every source.

Credentials are never part of the configuration; use 'igosint auth list'
to see stored accounts.`,
	Run: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long: `Validate the effective configuration.

This command checks:
  - YAML syntax
  - Value types and ranges
  - Path accessibility`,
	Run: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	console := ui.NewConsole(os.Stdout)

	configPath := configFile
	if configPath == "" {
		configPath = "igosint.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		console.Error("Configuration file already exists: %s", configPath)
		console.Println("\nTo overwrite, first remove the existing file:")
		console.Printf("  rm %s", configPath)
		os.Exit(1)
	}

	if err := config.DefaultConfig().Save(configPath); err != nil {
		console.Error("Failed to create configuration file: %v", err)
		os.Exit(1)
	}

	console.Success("Configuration file created: %s", configPath)
	console.Println("\nNext steps:")
	console.Println("1. Edit the configuration file")
	console.Println("2. Run 'igosint config validate' to check the configuration")
	console.Println("3. Store an account with 'igosint auth login'")
}

func runConfigShow(cmd *cobra.Command, args []string) {
	console := ui.NewConsole(os.Stdout)

	cfg, err := loadConfig(nil)
	if err != nil {
		console.Error("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		console.Error("Failed to format configuration: %v", err)
		os.Exit(1)
	}

	console.Accent("Current Configuration")
	fmt.Fprint(console.Writer(), "\n"+string(data))

	console.Println("\nConfiguration sources (in order of priority):")
	console.Println("1. Command line flags")
	console.Printf("2. Environment variables (%s*)", config.EnvPrefix)
	console.Println("3. .env files")
	if configFile != "" {
		console.Printf("4. Configuration file: %s", configFile)
	} else {
		console.Println("4. Configuration file: (searched in default locations)")
	}
	console.Println("5. Default values")
}

func runConfigValidate(cmd *cobra.Command, args []string) {
	console := ui.NewConsole(os.Stdout)

	cfg, err := loadConfig(nil)
	if err != nil {
		console.Error("Configuration validation failed: %v", err)
		os.Exit(1)
	}

	var problems []string
	if err := os.MkdirAll(cfg.Output.Directory, 0755); err != nil {
		problems = append(problems, fmt.Sprintf("Cannot create output directory: %v", err))
	}
	for _, path := range []string{cfg.Session.CredentialsPath, cfg.Session.SettingsPath, cfg.Geocoder.CachePath, cfg.Logging.File} {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			problems = append(problems, fmt.Sprintf("Cannot create directory for %s: %v", path, err))
		}
	}

	if len(problems) > 0 {
		for _, p := range problems {
			console.Error("%s", p)
		}
		os.Exit(1)
	}
	console.Success("Configuration is valid")
}
