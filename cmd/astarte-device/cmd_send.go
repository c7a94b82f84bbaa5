package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/endpoint"
	"github.com/astarte-platform/astarte-device-sdk-go/pkg/astarte/types"
	"github.com/astarte-platform/astarte-device-sdk-go/pkg/cli"
)

var sendCmd = &cobra.Command{
	Use:   "send <interface> <path> <value>",
	Short: "Validate and publish a value on a device-owned interface",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		interfaceName, path, raw := args[0], args[1], args[2]

		iface, ok := app.dev.GetInterface(interfaceName)
		if !ok {
			return fmt.Errorf("interface %q is not loaded", interfaceName)
		}
		concretePath, err := endpoint.ParsePath(path)
		if err != nil {
			return err
		}
		var kind types.Kind
		found := false
		for _, m := range iface.Mappings {
			if _, ok := m.Endpoint.MatchPath(concretePath); ok {
				kind = m.Type
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("no mapping on %q matches path %q", interfaceName, path)
		}

		value, err := parseValue(kind, raw)
		if err != nil {
			return err
		}

		if err := app.dev.SendIndividual(context.Background(), interfaceName, path, value); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %v\n", cli.Green("sent"), cli.Bold(interfaceName+path), value)
		return nil
	},
}

func parseValue(kind types.Kind, raw string) (types.Value, error) {
	switch kind {
	case types.KindInteger:
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("parsing integer: %w", err)
		}
		return types.Integer(n), nil
	case types.KindLongInteger:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing longinteger: %w", err)
		}
		return types.LongInteger(n), nil
	case types.KindDouble:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing double: %w", err)
		}
		return types.Double(f), nil
	case types.KindBoolean:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing boolean: %w", err)
		}
		return types.Boolean(b), nil
	case types.KindString:
		return types.String(raw), nil
	default:
		return nil, fmt.Errorf("send does not support value kind %v from the command line", kind)
	}
}
