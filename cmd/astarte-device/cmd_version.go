package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/astarte-platform/astarte-device-sdk-go/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the SDK build version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), version.Info())
		return nil
	},
}
