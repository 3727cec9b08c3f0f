package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/snipay/snipay/internal/gateway"
)

func newSignupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signup <email>",
		Short: "Create a Snipay account and log in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := promptPassword()
			if err != nil {
				return err
			}

			sessions := gateway.NewSessionClient(apiURL)
			session, err := sessions.Signup(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}

			if err := saveToken(session.Token); err != nil {
				return err
			}

			fmt.Printf("Account created. Logged in as %s.\n", session.Email)
			return nil
		},
	}
}

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <email>",
		Short: "Log in to Snipay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := promptPassword()
			if err != nil {
				return err
			}

			sessions := gateway.NewSessionClient(apiURL)
			session, err := sessions.Login(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}

			if err := saveToken(session.Token); err != nil {
				return err
			}

			fmt.Printf("Logged in as %s.\n", session.Email)
			return nil
		},
	}
}

// promptPassword reads a password from stdin. The SNIPAY_PASSWORD
// environment variable takes precedence for scripted use.
func promptPassword() (string, error) {
	if password := os.Getenv("SNIPAY_PASSWORD"); password != "" {
		return password, nil
	}

	fmt.Print("Password: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", fmt.Errorf("password must not be empty")
	}
	return password, nil
}
