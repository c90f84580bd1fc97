// Package cmd defines and implements the CLI commands for the pollination-guides executable.
package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// newWhoamiCmd creates and configures the 'whoami' subcommand, the smallest
// possible round trip against the API: fetch the user behind the API key and
// the account the client is configured for.
func newWhoamiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the authenticated user and configured account",
		Long: `Fetches the profile of the user the API key belongs to, together with
the account all project operations are issued under. Useful as a first check
that credentials and organization are set up correctly.`,

		RunE: runWhoamiCommand,
	}
	return cmd
}

func runWhoamiCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	client := appInstance.GetClient()

	user, err := client.GetUser(cmd.Context())
	if err != nil {
		return fmt.Errorf("fetch user: %w", err)
	}
	if err := printJSON(cmd, "user", user); err != nil {
		return err
	}

	account, err := client.GetAccount(cmd.Context())
	if err != nil {
		return fmt.Errorf("fetch account %s: %w", client.Org(), err)
	}
	return printJSON(cmd, "account", account)
}

// printJSON pretty-prints a raw API response under a label.
func printJSON(cmd *cobra.Command, label string, raw json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return fmt.Errorf("format %s response: %w", label, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s:\n%s\n", label, buf.String())
	return nil
}
