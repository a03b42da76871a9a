package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"timerpanel/internal/control"
	"timerpanel/internal/core/model"
	"timerpanel/internal/router"
)

var alarmCmd = &cobra.Command{
	Use:   "alarm",
	Short: "Manage daily alarms",
}

var alarmAddCmd = &cobra.Command{
	Use:   "add [HH:MM]",
	Short: "Add an alarm, armed when a time is given",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAlarmAdd,
}

var alarmAddName string

var alarmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List alarms",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, client *control.Client) error {
			snapshot, err := fetchSnapshot(ctx, client)
			if err != nil {
				return err
			}
			printAlarms(cmd.OutOrStdout(), snapshot.Alarms)
			return nil
		})
	},
}

var alarmRenameCmd = &cobra.Command{
	Use:   "rename <id> <name>",
	Short: "Rename an alarm",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAlarm(cmd, args[0], func(ctx context.Context, client *control.Client, id string) error {
			return call(ctx, client, "updateAlarmName", router.UpdateAlarmName{ID: id, NewName: args[1]}, nil)
		})
	},
}

var alarmSetCmd = &cobra.Command{
	Use:   "set <id> <HH:MM>",
	Short: "Change an alarm's time",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, _, err := model.ParseClock(args[1]); err != nil {
			return err
		}
		return withAlarm(cmd, args[0], func(ctx context.Context, client *control.Client, id string) error {
			return call(ctx, client, "updateAlarmTime", router.UpdateAlarmTime{ID: id, Time: args[1]}, nil)
		})
	},
}

func init() {
	rootCmd.AddCommand(alarmCmd)
	alarmCmd.AddCommand(alarmAddCmd, alarmListCmd, alarmRenameCmd, alarmSetCmd,
		alarmIDCommand("rm <id>", "Delete an alarm", "deleteAlarm", func(id string) any { return router.DeleteAlarm{ID: id} }),
		alarmIDCommand("on <id>", "Arm an alarm", "toggleAlarm", func(id string) any { return router.ToggleAlarm{ID: id, IsActive: true} }),
		alarmIDCommand("off <id>", "Disarm an alarm", "toggleAlarm", func(id string) any { return router.ToggleAlarm{ID: id, IsActive: false} }),
	)

	alarmAddCmd.Flags().StringVarP(&alarmAddName, "name", "n", "", "Alarm name")
}

func alarmIDCommand(use, short, command string, payload func(id string) any) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAlarm(cmd, args[0], func(ctx context.Context, client *control.Client, id string) error {
				return call(ctx, client, command, payload(id), nil)
			})
		},
	}
}

func withAlarm(cmd *cobra.Command, arg string, fn func(ctx context.Context, client *control.Client, id string) error) error {
	return withClient(cmd, func(ctx context.Context, client *control.Client) error {
		snapshot, err := fetchSnapshot(ctx, client)
		if err != nil {
			return err
		}
		id, err := resolveID(arg, alarmNames(snapshot), model.TypeAlarm)
		if err != nil {
			return err
		}
		return fn(ctx, client, id)
	})
}

func runAlarmAdd(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		if _, _, err := model.ParseClock(args[0]); err != nil {
			return err
		}
	}

	return withClient(cmd, func(ctx context.Context, client *control.Client) error {
		var alarm model.Alarm
		if err := call(ctx, client, "addAlarm", nil, &alarm); err != nil {
			return err
		}
		if alarmAddName != "" {
			if err := call(ctx, client, "updateAlarmName", router.UpdateAlarmName{ID: alarm.ID, NewName: alarmAddName}, nil); err != nil {
				return err
			}
			alarm.Name = alarmAddName
		}
		if len(args) == 1 {
			alarm.Time = args[0]
			if err := call(ctx, client, "updateAlarmTime", router.UpdateAlarmTime{ID: alarm.ID, Time: alarm.Time}, nil); err != nil {
				return err
			}
			if err := call(ctx, client, "toggleAlarm", router.ToggleAlarm{ID: alarm.ID, IsActive: true}, nil); err != nil {
				return err
			}
			alarm.IsActive = true
		}
		state := "off"
		if alarm.IsActive {
			state = "on"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s %s\n", alarm.ID, alarm.Name, alarm.Time, state)
		return nil
	})
}
