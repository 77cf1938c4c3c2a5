package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"igosint/pkg/auth"
	"igosint/pkg/config"
	"igosint/pkg/instagram"
	"igosint/pkg/logger"
	"igosint/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Instagram credentials",
	Long: `Manage the Instagram account igosint logs in with.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (IGOSINT_USERNAME, IGOSINT_PASSWORD)

Never share your credentials or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Store Instagram credentials securely",
	Long: `Store the username and password of an Instagram account.

If the account uses an authenticator app you can also store its base32
secret; igosint then generates two-factor codes itself.`,
	Example: `  # Interactive login
  igosint auth login

  # Login with username
  igosint auth login myusername`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout <username>",
	Short: "Remove stored credentials",
	Long: `Remove the stored credentials of an account and forget the saved
session settings.`,
	Args: cobra.ExactArgs(1),
	Run:  runLogout,
}

// listCmd represents the auth list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored accounts",
	Long:  `List all stored Instagram accounts with sanitized credential information.`,
	Run:   runList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)
}

// authSetup loads the configuration and opens the credential manager
func authSetup(console *ui.Console) (*config.Config, *auth.Manager) {
	cfg, err := loadConfig(nil)
	if err != nil {
		console.Error("Failed to load configuration: %v", err)
		os.Exit(1)
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		console.Error("Failed to initialize logger: %v", err)
		os.Exit(1)
	}
	manager, err := auth.NewManager(cfg.Session, logger.GetLogger())
	if err != nil {
		console.Error("Failed to initialize credential manager: %v", err)
		os.Exit(1)
	}
	return cfg, manager
}

func runLogin(cmd *cobra.Command, args []string) {
	console := ui.NewConsole(os.Stdout)
	_, manager := authSetup(console)
	prompter := ui.NewPrompter(os.Stdin, os.Stdout, nil)

	var username string
	if len(args) > 0 {
		username = instagram.SanitizeUsername(args[0])
	}
	if username == "" {
		input, err := prompter.Ask("Instagram username: ")
		if err != nil {
			console.Error("Failed to read username: %v", err)
			os.Exit(1)
		}
		username = instagram.SanitizeUsername(input)
	}
	if !instagram.IsValidUsername(username) {
		console.Error("Invalid username: %q", username)
		os.Exit(1)
	}

	if existing, _ := manager.Retrieve(username); existing != nil {
		ok, err := prompter.Confirm(fmt.Sprintf("Account '%s' already exists. Update credentials?", username))
		if err != nil || !ok {
			return
		}
	}

	password, err := prompter.Secret("Password: ")
	if err != nil || password == "" {
		console.Error("Password is required")
		os.Exit(1)
	}

	secret, err := prompter.Secret("Authenticator secret (press Enter to skip): ")
	if err != nil {
		console.Error("Failed to read secret: %v", err)
		os.Exit(1)
	}

	account := &auth.Account{
		Username:   username,
		Password:   password,
		TOTPSecret: strings.TrimSpace(secret),
	}
	if _, err := account.TwoFactorCode(time.Now()); err != nil {
		console.Error("Invalid authenticator secret: %v", err)
		os.Exit(1)
	}

	if err := manager.Store(account); err != nil {
		console.Error("Failed to store credentials: %v", err)
		os.Exit(1)
	}
	console.Success("Account saved: %s", username)
}

func runLogout(cmd *cobra.Command, args []string) {
	console := ui.NewConsole(os.Stdout)
	cfg, manager := authSetup(console)

	username := instagram.SanitizeUsername(args[0])
	if err := manager.Delete(username); err != nil {
		console.Error("Failed to remove account: %v", err)
		os.Exit(1)
	}
	if err := auth.NewSettingsStore(cfg.Session.SettingsPath).Clear(); err != nil {
		console.Warn("Failed to remove session settings: %v", err)
	}
	console.Success("Account removed: %s", username)
}

func runList(cmd *cobra.Command, args []string) {
	console := ui.NewConsole(os.Stdout)
	_, manager := authSetup(console)

	accounts, err := manager.List()
	if err != nil {
		console.Error("Failed to list accounts: %v", err)
		os.Exit(1)
	}
	if len(accounts) == 0 {
		console.Warn("No stored accounts found")
		console.Println("Run 'igosint auth login' to add one.")
		return
	}

	console.Accent("Stored accounts")
	for _, account := range accounts {
		safe := auth.SanitizeAccount(account)
		value := "password " + safe.Password
		if safe.TOTPSecret != "" {
			value += ", authenticator " + safe.TOTPSecret
		}
		if !safe.LastModified.IsZero() {
			value += ", updated " + safe.LastModified.Format("2006-01-02 15:04")
		}
		console.Info(safe.Username, value)
	}
}
