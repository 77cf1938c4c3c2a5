package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"igosint/internal/downloader"
	"igosint/pkg/auth"
	"igosint/pkg/collector"
	"igosint/pkg/config"
	"igosint/pkg/export"
	"igosint/pkg/geocode"
	"igosint/pkg/instagram"
	"igosint/pkg/logger"
	"igosint/pkg/retry"
	"igosint/pkg/session"
	"igosint/pkg/storage"
	"igosint/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string

	// Collection flags
	commands     []string
	extraInputs  []string
	interactive  bool
	jsonOutput   bool
	txtOutput    bool
	outputDir    string
	tableStyle   string
	verification string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "igosint [flags] <target>",
	Short: "Collect public intelligence about an Instagram account",
	Long: `igosint logs into Instagram and runs collection commands against a target
account: followers and followings, comments, likers, hashtags, locations,
usertags, profile data and media downloads.

Without --command an interactive shell is started. Type 'help' in the shell
for the list of commands.`,
	Example: `  # Interactive shell
  igosint natgeo

  # Run commands directly and save JSON
  igosint natgeo -c followers -c comments --json

  # Script the prompts of a command
  igosint natgeo -c posts -e 10`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	Args:    cobra.ExactArgs(1),
	Run:     runRoot,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is ./igosint.yaml or $HOME/.igosint.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.Flags().StringArrayVarP(&commands, "command", "c", nil, "run a command and exit (repeatable)")
	rootCmd.Flags().StringArrayVarP(&extraInputs, "extra-input", "e", nil, "answer the next prompt (repeatable, consumed in order)")
	rootCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "prompt for missing input even when running commands directly")
	rootCmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "save results as JSON")
	rootCmd.Flags().BoolVarP(&txtOutput, "txt", "t", false, "save results as text tables")
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory")
	rootCmd.Flags().StringVarP(&tableStyle, "style", "s", "", "table style ("+strings.Join(config.TableStyles, ", ")+")")
	rootCmd.Flags().StringVarP(&verification, "verification-code", "v", "", "two-factor verification code")

	rootCmd.SetVersionTemplate(`igosint {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig loads the layered configuration with the global flags applied
func loadConfig(extra map[string]interface{}) (*config.Config, error) {
	flags := map[string]interface{}{"log-level": logLevel}
	for k, v := range extra {
		flags[k] = v
	}
	return config.Load(configFile, flags)
}

func runRoot(cmd *cobra.Command, args []string) {
	console := ui.NewConsole(os.Stdout)

	cfg, err := loadConfig(map[string]interface{}{
		"output": outputDir,
		"json":   jsonOutput,
		"txt":    txtOutput,
		"style":  tableStyle,
	})
	if err != nil {
		console.Error("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		console.Error("Failed to initialize logger: %v", err)
		os.Exit(1)
	}
	log := logger.GetLogger()
	log.WithField("version", version).Debug("igosint starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	interactiveMode := interactive || len(commands) == 0
	prompter := ui.NewPrompter(os.Stdin, os.Stdout, extraInputs)

	client, err := instagram.NewClient(cfg, log)
	if err != nil {
		console.Error("Failed to create client: %v", err)
		os.Exit(1)
	}

	store := storage.NewManager(cfg.Output.Directory)
	exporter := export.New(store, cfg.Output)
	dl := downloader.New(client, store, cfg.Collect.DownloadWorkers, log)

	geo, closeGeo := buildGeocoder(cfg, log)
	defer closeGeo()

	c, err := collector.New(collector.Options{
		Session:     client,
		Downloader:  dl,
		Exporter:    exporter,
		Console:     console,
		Prompter:    prompter,
		Geocoder:    geo,
		Config:      cfg.Collect,
		Logger:      log,
		Interactive: interactiveMode,
	})
	if err != nil {
		console.Error("Failed to create collector: %v", err)
		os.Exit(1)
	}

	if interactiveMode {
		console.Logo()
	}

	if err := login(ctx, cfg, client, prompter, log); err != nil {
		c.Report(err)
		os.Exit(1)
	}
	console.Success("Logged in as %s [%s]", client.Username(), client.UserID())

	if err := c.SetTarget(ctx, instagram.SanitizeUsername(args[0])); err != nil {
		c.Report(err)
		os.Exit(1)
	}

	sh := newShell(c, console, prompter, exporter, log)
	if len(commands) > 0 {
		if !sh.runCommands(ctx, commands) {
			os.Exit(1)
		}
		return
	}
	sh.loop(ctx)
}

// login restores saved session settings, logs in with the stored account
// and saves the refreshed settings
func login(ctx context.Context, cfg *config.Config, client *instagram.Client, prompter *ui.Prompter, log logger.Logger) error {
	manager, err := auth.NewManager(cfg.Session, log)
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	account, err := manager.RetrieveDefault()
	if err != nil {
		account, err = askAccount(prompter)
		if err != nil {
			return err
		}
		if err := manager.Store(account); err != nil {
			log.WithError(err).Warn("Failed to store credentials")
		}
	}

	settings := auth.NewSettingsStore(cfg.Session.SettingsPath)
	if data, err := settings.Load(); err != nil {
		log.WithError(err).Warn("Ignoring saved session settings")
	} else if data != nil {
		if err := client.LoadSettings(data); err != nil {
			log.WithError(err).Warn("Ignoring saved session settings")
		}
	}

	code := verification
	if code == "" {
		if code, err = account.TwoFactorCode(time.Now()); err != nil {
			log.WithError(err).Warn("Failed to generate two-factor code")
		}
	}

	prompt := func(ctx context.Context) (string, error) {
		return prompter.Ask("Enter 2FA code: ")
	}
	if err := session.LoginWithRetry(ctx, client, account.Username, account.Password, code, prompt, log); err != nil {
		return err
	}

	data, err := client.Settings()
	if err == nil {
		err = settings.Save(data)
	}
	if err != nil {
		log.WithError(err).Warn("Failed to save session settings")
	}
	return nil
}

// askAccount prompts for the credentials of the account to log in with
func askAccount(prompter *ui.Prompter) (*auth.Account, error) {
	username, err := prompter.Ask("Instagram username: ")
	if err != nil {
		return nil, fmt.Errorf("failed to read username: %w", err)
	}
	username = instagram.SanitizeUsername(username)
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	password, err := prompter.Secret("Password: ")
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	return &auth.Account{Username: username, Password: password}, nil
}

// buildGeocoder returns the Nominatim client, behind the SQLite cache when
// one is configured
func buildGeocoder(cfg *config.Config, log logger.Logger) (geocode.Reverser, func()) {
	client := geocode.NewClient(cfg.Geocoder, retry.FromConfig(cfg.Retry, log), log)
	if cfg.Geocoder.CachePath == "" {
		return client, func() {}
	}
	cache, err := geocode.OpenCache(cfg.Geocoder.CachePath, client, log)
	if err != nil {
		log.WithError(err).Warn("Geocode cache unavailable")
		return client, func() {}
	}
	return cache, func() {
		if err := cache.Close(); err != nil {
			log.WithError(err).Warn("Failed to close geocode cache")
		}
	}
}
