// Package main implements panelctl, the command line client of the timer
// panel daemon.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"timerpanel/internal/config"
	"timerpanel/internal/control"
	"timerpanel/internal/platform"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "panelctl",
	Short:        "Control the timer panel daemon",
	SilenceUsage: true,
}

var (
	rootAddress string
	rootTimeout time.Duration
)

func init() {
	rootCmd.PersistentFlags().StringVar(&rootAddress, "addr", "", "Daemon control address (default: derived from the app name, or $TIMERPANEL_CONTROL_ADDRESS)")
	rootCmd.PersistentFlags().DurationVar(&rootTimeout, "timeout", 5*time.Second, "Timeout for a single request")
}

func controlAddress() string {
	if rootAddress != "" {
		return rootAddress
	}
	if env := os.Getenv("TIMERPANEL_CONTROL_ADDRESS"); env != "" {
		return env
	}
	return platform.AddressFor(config.AppName)
}

// withClient connects to the daemon for the lifetime of fn.
func withClient(cmd *cobra.Command, fn func(ctx context.Context, client *control.Client) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	dialCtx, cancel := context.WithTimeout(ctx, rootTimeout)
	defer cancel()

	address := controlAddress()
	client, err := control.Dial(dialCtx, address)
	if err != nil {
		return fmt.Errorf("is the daemon running? %w", err)
	}
	defer client.Close()
	return fn(ctx, client)
}

// call sends one command and decodes the reply data into out, if given.
func call(ctx context.Context, client *control.Client, command string, payload any, out any) error {
	callCtx, cancel := context.WithTimeout(ctx, rootTimeout)
	defer cancel()

	reply, err := client.Call(callCtx, command, payload)
	if err != nil {
		return err
	}
	if err := reply.Err(); err != nil {
		return fmt.Errorf("%s: %w", command, err)
	}
	if out == nil {
		return nil
	}
	if err := reply.Decode(out); err != nil {
		return fmt.Errorf("decode %s reply: %w", command, err)
	}
	return nil
}

// runCommand wraps a single fire-and-forget command as a RunE.
func runCommand(command string, payload func(args []string) (any, error)) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		var body any
		if payload != nil {
			var err error
			body, err = payload(args)
			if err != nil {
				return err
			}
		}
		return withClient(cmd, func(ctx context.Context, client *control.Client) error {
			return call(ctx, client, command, body, nil)
		})
	}
}
