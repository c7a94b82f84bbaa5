package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var registerCmd = &cobra.Command{
	Use:   "register <interface.json>...",
	Short: "Load one or more interface definitions into the device's registry",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var datas [][]byte
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			datas = append(datas, data)
		}

		changed, err := app.dev.ExtendInterfaces(datas)
		if err != nil {
			return err
		}
		for _, name := range changed {
			fmt.Fprintf(cmd.OutOrStdout(), "loaded %s\n", name)
		}
		return nil
	},
}
