// Command astarte-device is a demo CLI over the SDK: it loads interfaces,
// fakes a broker connection with transport.LoggingTransport, and sends
// values — enough to exercise the whole stack without a real MQTT broker.
// Its subcommands are flat verbs (astarte-device <command>); the shared App
// state built in PersistentPreRunE mirrors the teacher's newtron CLI
// (cmd/newtron/main.go).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/astarte-platform/astarte-device-sdk-go/internal/ids"
	"github.com/astarte-platform/astarte-device-sdk-go/internal/log"
	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/properties"
	"github.com/astarte-platform/astarte-device-sdk-go/pkg/config"
	"github.com/astarte-platform/astarte-device-sdk-go/pkg/device"
	"github.com/astarte-platform/astarte-device-sdk-go/pkg/transport"
)

// App holds CLI state shared across all commands.
type App struct {
	realm    string
	deviceID string
	cfgPath  string
	verbose  bool

	dev *device.Device
}

var app = &App{}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "astarte-device",
	Short:         "Demo CLI for the Astarte device SDK",
	SilenceUsage:  true,
	SilenceErrors: true,
	Long: `astarte-device is a demo CLI driving the device SDK against a
fake in-process transport, so the publish/introspection pipeline can be
exercised without a real MQTT broker.

  astarte-device register <interface.json>...
  astarte-device connect
  astarte-device send <interface> <path> <value>
  astarte-device introspection
  astarte-device version`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if app.verbose {
			_ = log.SetLevel("debug")
		}

		if _, err := ids.ParseDeviceID(app.deviceID); err != nil {
			return fmt.Errorf("invalid --device-id: %w", err)
		}

		cfg, err := config.Load(app.cfgPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		lt := transport.NewLoggingTransport()
		app.dev = device.New(app.realm, app.deviceID, lt, lt, properties.NewMemStore(), cfg)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&app.realm, "realm", "r", "demo", "Astarte realm")
	rootCmd.PersistentFlags().StringVarP(&app.deviceID, "device-id", "d", ids.NewDeviceID().String(), "base64url-encoded device ID")
	rootCmd.PersistentFlags().StringVarP(&app.cfgPath, "config", "c", "astarte-device.yaml", "SDK config file")
	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "verbose logging")

	rootCmd.AddCommand(registerCmd, connectCmd, sendCmd, introspectionCmd, pairCmd, versionCmd)
}
