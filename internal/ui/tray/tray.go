package tray

import (
	"fmt"
	"image/color"
	"sort"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"

	"timerpanel/internal/core/model"
	"timerpanel/internal/logging"
)

// Callbacks defines tray action handlers.
type Callbacks struct {
	OnShowFinished func()
	OnQuickTimer   func()
	OnMute         func()
	OnStopAll      func()
	OnPreferences  func()
	OnQuit         func()
}

// Icons are the tray images: Active while something is counting down or
// armed, Idle otherwise.
type Icons struct {
	Active fyne.Resource
	Idle   fyne.Resource
}

// Manager handles system tray state: the icon, its badge and the menu.
type Manager struct {
	app         desktop.App
	icons       Icons
	icon        fyne.Resource
	logger      logging.Logger
	statusItem  *fyne.MenuItem
	nextItem    *fyne.MenuItem
	finished    *fyne.MenuItem
	mute        *fyne.MenuItem
	stopAll     *fyne.MenuItem
	callbacks   Callbacks
	badge       string
	badgeColour string
}

// New creates a tray manager showing the idle icon.
func New(app desktop.App, icons Icons, callbacks Callbacks, logger logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Nop()
	}
	manager := &Manager{
		app:       app,
		icons:     icons,
		icon:      icons.Idle,
		logger:    logger,
		callbacks: callbacks,
	}

	manager.statusItem = fyne.NewMenuItem("Status: starting...", nil)
	manager.statusItem.Disabled = true
	manager.nextItem = fyne.NewMenuItem("Nothing scheduled", nil)
	manager.nextItem.Disabled = true

	manager.finished = fyne.NewMenuItem("Show finished", func() {
		if manager.callbacks.OnShowFinished != nil {
			manager.callbacks.OnShowFinished()
		}
	})
	manager.mute = fyne.NewMenuItem("Mute", func() {
		if manager.callbacks.OnMute != nil {
			manager.callbacks.OnMute()
		}
	})
	manager.stopAll = fyne.NewMenuItem("Stop all", func() {
		if manager.callbacks.OnStopAll != nil {
			manager.callbacks.OnStopAll()
		}
	})
	manager.setFinishedCount(0)

	app.SetSystemTrayIcon(manager.icon)
	manager.refreshMenu()
	return manager
}

// SetSnapshot updates the status lines from the latest aggregate.
func (manager *Manager) SetSnapshot(snapshot *model.Snapshot, now time.Time) {
	if snapshot == nil {
		return
	}
	manager.setIcon(busy(snapshot))
	manager.statusItem.Label = "Status: " + Summary(snapshot)
	manager.nextItem.Label = NextDue(snapshot, now)
	manager.setFinishedCount(len(snapshot.FinishedTimers))
	manager.refreshMenu()
}

// SetFinished updates the finished-item menu entries.
func (manager *Manager) SetFinished(items []model.FinishedItem) {
	manager.setFinishedCount(len(items))
	manager.refreshMenu()
}

// SetBadge draws text over the tray icon; empty text restores the plain
// icon. Call on the UI thread.
func (manager *Manager) SetBadge(text, colour string) {
	if text == manager.badge {
		return
	}
	manager.badge = text
	manager.badgeColour = colour
	manager.drawIcon()
}

func (manager *Manager) setIcon(active bool) {
	icon := manager.icons.Idle
	if active {
		icon = manager.icons.Active
	}
	if icon == manager.icon {
		return
	}
	manager.icon = icon
	manager.drawIcon()
}

func (manager *Manager) drawIcon() {
	text, colour := manager.badge, manager.badgeColour
	if text == "" {
		manager.app.SetSystemTrayIcon(manager.icon)
		return
	}

	fill, err := ParseColor(colour)
	if err != nil {
		manager.logger.Warnf("tray: %v, using red", err)
		fill = color.NRGBA{R: 0xff, A: 0xff}
	}
	data, err := RenderBadge(manager.icon.Content(), text, fill)
	if err != nil {
		manager.logger.Errorf("tray: render badge: %v", err)
		return
	}
	manager.app.SetSystemTrayIcon(fyne.NewStaticResource("badge.png", data))
}

// Badge returns the text currently drawn on the icon.
func (manager *Manager) Badge() string {
	return manager.badge
}

func (manager *Manager) setFinishedCount(count int) {
	manager.finished.Label = fmt.Sprintf("Show finished (%d)", count)
	manager.finished.Disabled = count == 0
	manager.mute.Disabled = count == 0
	manager.stopAll.Disabled = count == 0
}

func (manager *Manager) refreshMenu() {
	if manager.app == nil {
		return
	}
	manager.app.SetSystemTrayMenu(fyne.NewMenu("Timer Panel",
		manager.statusItem,
		manager.nextItem,
		fyne.NewMenuItemSeparator(),
		manager.finished,
		manager.mute,
		manager.stopAll,
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("New 3 minute timer", func() {
			if manager.callbacks.OnQuickTimer != nil {
				manager.callbacks.OnQuickTimer()
			}
		}),
		fyne.NewMenuItem("Preferences", func() {
			if manager.callbacks.OnPreferences != nil {
				manager.callbacks.OnPreferences()
			}
		}),
		fyne.NewMenuItem("Quit", func() {
			if manager.callbacks.OnQuit != nil {
				manager.callbacks.OnQuit()
			}
		}),
	))
}

func busy(snapshot *model.Snapshot) bool {
	for _, timer := range snapshot.Timers {
		if timer.IsRunning {
			return true
		}
	}
	for _, alarm := range snapshot.Alarms {
		if alarm.IsActive {
			return true
		}
	}
	return false
}

// Summary counts running timers and armed alarms.
func Summary(snapshot *model.Snapshot) string {
	running := 0
	for _, timer := range snapshot.Timers {
		if timer.IsRunning {
			running++
		}
	}
	active := 0
	for _, alarm := range snapshot.Alarms {
		if alarm.IsActive {
			active++
		}
	}
	return fmt.Sprintf("%d of %d timers running, %d of %d alarms on",
		running, len(snapshot.Timers), active, len(snapshot.Alarms))
}

// NextDue names the running timer that ends first.
func NextDue(snapshot *model.Snapshot, now time.Time) string {
	var running []*model.Timer
	for _, timer := range snapshot.Timers {
		if timer.IsRunning && timer.EndTime != nil {
			running = append(running, timer)
		}
	}
	if len(running) == 0 {
		return "Nothing scheduled"
	}
	sort.Slice(running, func(i, j int) bool {
		if *running[i].EndTime != *running[j].EndTime {
			return *running[i].EndTime < *running[j].EndTime
		}
		return running[i].Order < running[j].Order
	})
	next := running[0]
	return fmt.Sprintf("Next: %s in %s", next.Name, formatRemaining(next.Remaining(now)))
}

func formatRemaining(millis int64) string {
	seconds := (millis + 999) / 1000
	hours := seconds / 3600
	minutes := seconds % 3600 / 60
	seconds = seconds % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
