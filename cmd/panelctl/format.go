package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"timerpanel/internal/core/model"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33"))
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	alertStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
)

var errBadDuration = errors.New("duration must be SS, MM:SS or HH:MM:SS")

// parseDuration reads SS, MM:SS or HH:MM:SS into whole seconds.
func parseDuration(value string) (int64, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("%q: %w", value, errBadDuration)
	}
	var total int64
	for i, part := range parts {
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%q: %w", value, errBadDuration)
		}
		// Leading components are free; the rest are base 60.
		if i > 0 && n >= 60 {
			return 0, fmt.Errorf("%q: %w", value, errBadDuration)
		}
		total = total*60 + n
	}
	return total, nil
}

// formatMillis renders a duration as MM:SS, or H:MM:SS past an hour.
func formatMillis(millis int64) string {
	if millis < 0 {
		millis = 0
	}
	seconds := (millis + 999) / 1000
	hours := seconds / 3600
	minutes := seconds % 3600 / 60
	seconds = seconds % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

func sortedTimers(timers map[string]*model.Timer) []*model.Timer {
	list := make([]*model.Timer, 0, len(timers))
	for _, timer := range timers {
		list = append(list, timer)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Order != list[j].Order {
			return list[i].Order < list[j].Order
		}
		return list[i].ID < list[j].ID
	})
	return list
}

func sortedAlarms(alarms map[string]*model.Alarm) []*model.Alarm {
	list := make([]*model.Alarm, 0, len(alarms))
	for _, alarm := range alarms {
		list = append(list, alarm)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Order != list[j].Order {
			return list[i].Order < list[j].Order
		}
		return list[i].ID < list[j].ID
	})
	return list
}

func printTimers(w io.Writer, timers map[string]*model.Timer, now time.Time) {
	fmt.Fprintln(w, headerStyle.Render("Timers"))
	if len(timers) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("  none"))
		return
	}
	for _, timer := range sortedTimers(timers) {
		state := mutedStyle.Render("paused")
		if timer.IsRunning {
			state = runningStyle.Render("running")
		}
		fmt.Fprintf(w, "  %s  %-20s %8s / %-8s %s\n",
			mutedStyle.Render(timer.ID), timer.Name,
			formatMillis(timer.Remaining(now)), formatMillis(timer.OriginalDuration), state)
	}
}

func printAlarms(w io.Writer, alarms map[string]*model.Alarm) {
	fmt.Fprintln(w, headerStyle.Render("Alarms"))
	if len(alarms) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("  none"))
		return
	}
	for _, alarm := range sortedAlarms(alarms) {
		state := mutedStyle.Render("off")
		if alarm.IsActive {
			state = runningStyle.Render("on")
		}
		fmt.Fprintf(w, "  %s  %-20s %s %s\n", mutedStyle.Render(alarm.ID), alarm.Name, alarm.Time, state)
	}
}

func printFinished(w io.Writer, items []model.FinishedItem) {
	fmt.Fprintln(w, headerStyle.Render("Finished"))
	if len(items) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("  none"))
		return
	}
	for _, item := range items {
		fmt.Fprintf(w, "  %s  %s\n", mutedStyle.Render(item.ID), alertStyle.Render(item.Message()))
	}
}

// resolveID matches arg against ids of the given kind: the full id, the
// part after the kind prefix, a unique prefix of it, or an exact name.
func resolveID(arg string, names map[string]string, kind model.ItemType) (string, error) {
	if arg == "" {
		return "", fmt.Errorf("empty %s id", kind)
	}
	if _, ok := names[arg]; ok {
		return arg, nil
	}
	prefix := string(kind) + "_"
	var matches []string
	for id, name := range names {
		if strings.HasPrefix(strings.TrimPrefix(id, prefix), arg) || name == arg {
			matches = append(matches, id)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no %s matches %q", kind, arg)
	case 1:
		return matches[0], nil
	default:
		sort.Strings(matches)
		return "", fmt.Errorf("%q is ambiguous: %s", arg, strings.Join(matches, ", "))
	}
}

func timerNames(snapshot *model.Snapshot) map[string]string {
	names := make(map[string]string, len(snapshot.Timers))
	for id, timer := range snapshot.Timers {
		names[id] = timer.Name
	}
	return names
}

func alarmNames(snapshot *model.Snapshot) map[string]string {
	names := make(map[string]string, len(snapshot.Alarms))
	for id, alarm := range snapshot.Alarms {
		names[id] = alarm.Name
	}
	return names
}
