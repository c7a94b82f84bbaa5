package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/astarte-platform/astarte-device-sdk-go/pkg/cli"
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect the device, running the introspection handshake",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.dev.Connect(context.Background()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s as %s\n", cli.Green("connected"), cli.Bold(app.realm+"/"+app.deviceID))
		return nil
	},
}
