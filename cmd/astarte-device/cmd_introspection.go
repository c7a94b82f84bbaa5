package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/astarte-platform/astarte-device-sdk-go/pkg/cli"
)

var introspectionCmd = &cobra.Command{
	Use:   "introspection",
	Short: "Print the loaded interfaces and the canonical introspection string",
	RunE: func(cmd *cobra.Command, args []string) error {
		table := cli.NewTable("INTERFACE", "MAJOR", "MINOR", "TYPE", "OWNERSHIP")
		for _, name := range app.dev.InterfaceNames() {
			iface, ok := app.dev.GetInterface(name)
			if !ok {
				continue
			}
			table.Row(name, strconv.Itoa(iface.VersionMajor), strconv.Itoa(iface.VersionMinor),
				iface.Type.String(), iface.Ownership.String())
		}
		table.Flush()

		fmt.Fprintln(cmd.OutOrStdout(), app.dev.Introspection())
		return nil
	},
}
