package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"timerpanel/internal/control"
	"timerpanel/internal/core/model"
	"timerpanel/internal/router"
)

var timerCmd = &cobra.Command{
	Use:   "timer",
	Short: "Manage countdown timers",
}

var timerAddCmd = &cobra.Command{
	Use:   "add [duration]",
	Short: "Add a timer (duration as SS, MM:SS or HH:MM:SS; default 3 minutes)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTimerAdd,
}

var (
	timerAddName  string
	timerAddStart bool
)

var timerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List timers",
	Args:  cobra.NoArgs,
	RunE:  runTimerList,
}

var timerRenameCmd = &cobra.Command{
	Use:   "rename <id> <name>",
	Short: "Rename a timer",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTimer(cmd, args[0], func(ctx context.Context, client *control.Client, id string) error {
			return call(ctx, client, "updateTimerName", router.UpdateTimerName{ID: id, NewName: args[1]}, nil)
		})
	},
}

var timerSetCmd = &cobra.Command{
	Use:   "set <id> <duration>",
	Short: "Change a timer's duration",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		seconds, err := parseDuration(args[1])
		if err != nil {
			return err
		}
		return withTimer(cmd, args[0], func(ctx context.Context, client *control.Client, id string) error {
			return call(ctx, client, "updateTimerTime", router.UpdateTimerTime{ID: id, TotalSeconds: seconds}, nil)
		})
	},
}

func init() {
	rootCmd.AddCommand(timerCmd)
	timerCmd.AddCommand(timerAddCmd, timerListCmd, timerRenameCmd, timerSetCmd,
		timerIDCommand("rm <id>", "Delete a timer", "deleteTimer", func(id string) any { return router.DeleteTimer{ID: id} }),
		timerIDCommand("pause <id>", "Pause a running timer", "pauseTimer", func(id string) any { return router.PauseTimer{ID: id} }),
		timerIDCommand("resume <id>", "Start or resume a timer", "resumeTimer", func(id string) any { return router.ResumeTimer{ID: id} }),
		timerIDCommand("reset <id>", "Stop a timer and restore its duration", "resetTimer", func(id string) any { return router.ResetTimer{ID: id} }),
	)

	timerAddCmd.Flags().StringVarP(&timerAddName, "name", "n", "", "Timer name")
	timerAddCmd.Flags().BoolVarP(&timerAddStart, "start", "s", false, "Start the timer right away")
}

func timerIDCommand(use, short, command string, payload func(id string) any) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTimer(cmd, args[0], func(ctx context.Context, client *control.Client, id string) error {
				return call(ctx, client, command, payload(id), nil)
			})
		},
	}
}

func withTimer(cmd *cobra.Command, arg string, fn func(ctx context.Context, client *control.Client, id string) error) error {
	return withClient(cmd, func(ctx context.Context, client *control.Client) error {
		snapshot, err := fetchSnapshot(ctx, client)
		if err != nil {
			return err
		}
		id, err := resolveID(arg, timerNames(snapshot), model.TypeTimer)
		if err != nil {
			return err
		}
		return fn(ctx, client, id)
	})
}

func fetchSnapshot(ctx context.Context, client *control.Client) (*model.Snapshot, error) {
	var snapshot model.Snapshot
	if err := call(ctx, client, "getTimers", nil, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func runTimerAdd(cmd *cobra.Command, args []string) error {
	var request router.AddTimer
	if len(args) == 1 {
		seconds, err := parseDuration(args[0])
		if err != nil {
			return err
		}
		request.Minutes = float64(seconds) / 60
	}

	return withClient(cmd, func(ctx context.Context, client *control.Client) error {
		var timer model.Timer
		if err := call(ctx, client, "addTimer", request, &timer); err != nil {
			return err
		}
		if timerAddName != "" {
			if err := call(ctx, client, "updateTimerName", router.UpdateTimerName{ID: timer.ID, NewName: timerAddName}, nil); err != nil {
				return err
			}
			timer.Name = timerAddName
		}
		if timerAddStart {
			if err := call(ctx, client, "resumeTimer", router.ResumeTimer{ID: timer.ID}, nil); err != nil {
				return err
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s\n", timer.ID, timer.Name, formatMillis(timer.OriginalDuration))
		return nil
	})
}

func runTimerList(cmd *cobra.Command, args []string) error {
	return withClient(cmd, func(ctx context.Context, client *control.Client) error {
		snapshot, err := fetchSnapshot(ctx, client)
		if err != nil {
			return err
		}
		printTimers(cmd.OutOrStdout(), snapshot.Timers, time.Now())
		return nil
	})
}
