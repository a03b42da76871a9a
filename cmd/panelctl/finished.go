package main

import (
	"context"

	"github.com/spf13/cobra"

	"timerpanel/internal/control"
	"timerpanel/internal/core/model"
	"timerpanel/internal/router"
)

var finishedCmd = &cobra.Command{
	Use:   "finished",
	Short: "Inspect and acknowledge finished timers and alarms",
}

var finishedListCmd = &cobra.Command{
	Use:   "list",
	Short: "List finished items, oldest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, client *control.Client) error {
			var items []model.FinishedItem
			if err := call(ctx, client, "getFinishedItems", nil, &items); err != nil {
				return err
			}
			printFinished(cmd.OutOrStdout(), items)
			return nil
		})
	},
}

var finishedResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Acknowledge everything: stop sound, reset timers, disarm alarms",
	Args:  cobra.NoArgs,
	RunE:  runCommand("resetFinishedItems", nil),
}

var finishedMuteCmd = &cobra.Command{
	Use:   "mute",
	Short: "Stop the sound and reset finished timers, leaving alarms armed",
	Args:  cobra.NoArgs,
	RunE:  runCommand("stopSoundOnly", nil),
}

var finishedDismissCmd = &cobra.Command{
	Use:   "dismiss <id>",
	Short: "Acknowledge one finished alarm and disarm it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, client *control.Client) error {
			var items []model.FinishedItem
			if err := call(ctx, client, "getFinishedItems", nil, &items); err != nil {
				return err
			}
			names := make(map[string]string)
			for _, item := range items {
				if item.Type == model.TypeAlarm {
					names[item.ID] = item.Name
				}
			}
			id, err := resolveID(args[0], names, model.TypeAlarm)
			if err != nil {
				return err
			}
			return call(ctx, client, "resetFinishedAlarm", router.ResetFinishedAlarm{ID: id}, nil)
		})
	},
}

func init() {
	rootCmd.AddCommand(finishedCmd)
	finishedCmd.AddCommand(finishedListCmd, finishedResetCmd, finishedMuteCmd, finishedDismissCmd)
}
