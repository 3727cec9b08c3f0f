// Package main is snipctl, the command line client for the Snipay API.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// defaultAPIURL is used when neither the flag nor SNIPAY_API_URL is set.
const defaultAPIURL = "http://localhost:8080"

var apiURL string

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "snipctl",
		Short:         "Command line client for the Snipay payment-gated URL shortener",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&apiURL, "api", envOr("SNIPAY_API_URL", defaultAPIURL), "base URL of the Snipay API")

	root.AddCommand(
		newSignupCmd(),
		newLoginCmd(),
		newShortenCmd(),
		newListCmd(),
		newAnalyticsCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// tokenPath returns the session token location, ~/.snipay/token.
func tokenPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".snipay", "token"), nil
}

// saveToken persists the session token with user-only permissions.
func saveToken(token string) error {
	path, err := tokenPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

// loadToken reads the cached session token.
func loadToken() (string, error) {
	path, err := tokenPath()
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("not logged in; run 'snipctl login' first")
		}
		return "", fmt.Errorf("read token: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("not logged in; run 'snipctl login' first")
	}
	return token, nil
}

// formatAmount renders a minor-unit amount as a currency string.
func formatAmount(amount int64, currency string) string {
	return fmt.Sprintf("%.2f %s", float64(amount)/100, currency)
}
