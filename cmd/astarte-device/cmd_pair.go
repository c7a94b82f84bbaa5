package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// pairCmd only prompts for and echoes back a pairing token; actual
// credential issuance against Astarte's pairing API is out of scope for
// this SDK (see the pairing/credential issuance non-goal), so there is
// nothing beyond the masked-input demo to wire up here.
var pairCmd = &cobra.Command{
	Use:   "pair",
	Short: "Prompt for a pairing token (masked input, not sent anywhere)",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprint(cmd.OutOrStdout(), "pairing token: ")
		token, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return fmt.Errorf("reading pairing token: %w", err)
		}
		if len(token) == 0 {
			return fmt.Errorf("pairing token must not be empty")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "read %d-byte token; credential issuance is not implemented by this SDK\n", len(token))
		return nil
	},
}
