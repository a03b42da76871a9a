package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"timerpanel/internal/control"
	"timerpanel/internal/core/engine"
	"timerpanel/internal/core/model"
	"timerpanel/internal/router"
)

var reorderCmd = &cobra.Command{
	Use:   "reorder <timer|alarm> <id>...",
	Short: "Set the display order of timers or alarms",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runReorder,
}

var volumeCmd = &cobra.Command{
	Use:   "volume <0-100>",
	Short: "Set the alarm volume",
	Args:  cobra.ExactArgs(1),
	RunE: runCommand("updateVolume", func(args []string) (any, error) {
		volume, err := strconv.Atoi(args[0])
		if err != nil {
			return nil, fmt.Errorf("volume %q: %w", args[0], err)
		}
		return router.UpdateVolume{Volume: volume}, nil
	}),
}

var modeCmd = &cobra.Command{
	Use:   "mode <timer|alarm>",
	Short: "Set the panel tab shown first",
	Args:  cobra.ExactArgs(1),
	RunE: runCommand("updateActiveMode", func(args []string) (any, error) {
		mode := model.Mode(args[0])
		if !mode.Valid() {
			return nil, fmt.Errorf("mode must be timer or alarm, got %q", args[0])
		}
		return router.UpdateActiveMode{Mode: mode}, nil
	}),
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show timers, alarms and finished items",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, client *control.Client) error {
			snapshot, err := fetchSnapshot(ctx, client)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printTimers(out, snapshot.Timers, time.Now())
			printAlarms(out, snapshot.Alarms)
			printFinished(out, snapshot.FinishedTimers)
			return nil
		})
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print broadcast events until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, client *control.Client) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, mutedStyle.Render("attached to "+controlAddress()))
			for {
				select {
				case <-ctx.Done():
					return nil
				case envelope, ok := <-client.Events():
					if !ok {
						return fmt.Errorf("daemon went away")
					}
					event, err := control.DecodeEvent(envelope)
					if err != nil {
						fmt.Fprintln(out, alertStyle.Render(err.Error()))
						continue
					}
					printEvent(out, event, time.Now())
				}
			}
		})
	},
}

func init() {
	rootCmd.AddCommand(reorderCmd, volumeCmd, modeCmd, statusCmd, watchCmd)
}

func runReorder(cmd *cobra.Command, args []string) error {
	kind := model.ItemType(args[0])
	if kind != model.TypeTimer && kind != model.TypeAlarm {
		return fmt.Errorf("type must be timer or alarm, got %q", args[0])
	}
	return withClient(cmd, func(ctx context.Context, client *control.Client) error {
		snapshot, err := fetchSnapshot(ctx, client)
		if err != nil {
			return err
		}
		names := timerNames(snapshot)
		if kind == model.TypeAlarm {
			names = alarmNames(snapshot)
		}
		ids := make([]string, 0, len(args)-1)
		for _, arg := range args[1:] {
			id, err := resolveID(arg, names, kind)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return call(ctx, client, "reorderItems", router.ReorderItems{Type: kind, OrderIDs: ids}, nil)
	})
}

func printEvent(w io.Writer, event engine.Event, now time.Time) {
	stamp := mutedStyle.Render(now.Format("15:04:05"))
	switch event.Type {
	case engine.EventUpdateData:
		fmt.Fprintf(w, "%s %s\n", stamp, headerStyle.Render(string(event.Type)))
		if event.Snapshot != nil {
			printTimers(w, event.Snapshot.Timers, now)
			printAlarms(w, event.Snapshot.Alarms)
		}
	case engine.EventUpdateFinishedList:
		fmt.Fprintf(w, "%s %s\n", stamp, headerStyle.Render(string(event.Type)))
		printFinished(w, event.Finished)
	case engine.EventPlaySound:
		if event.Sound != nil {
			fmt.Fprintf(w, "%s %s %s at %d%%\n", stamp, alertStyle.Render("playSound"), event.Sound.Source, event.Sound.Volume)
			return
		}
		fmt.Fprintf(w, "%s %s\n", stamp, alertStyle.Render("playSound"))
	default:
		fmt.Fprintf(w, "%s %s\n", stamp, event.Type)
	}
}
