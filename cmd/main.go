package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"timerpanel/internal/audio"
	"timerpanel/internal/config"
	"timerpanel/internal/control"
	"timerpanel/internal/core/engine"
	"timerpanel/internal/core/model"
	"timerpanel/internal/core/wake"
	"timerpanel/internal/logging"
	"timerpanel/internal/platform"
	"timerpanel/internal/router"
	"timerpanel/internal/storage"
	"timerpanel/internal/ui/popup"
	"timerpanel/internal/ui/preferences"
	"timerpanel/internal/ui/shell"
	"timerpanel/internal/ui/tray"
	"timerpanel/resources"
)

const appID = "io.timerpanel.app"

func main() {
	configPath, err := config.DefaultPath()
	if err != nil {
		log.Printf("config path: %v", err)
		return
	}
	if wrote, err := config.EnsureFile(configPath); err != nil {
		log.Printf("write default config: %v", err)
	} else if wrote {
		log.Printf("wrote default config to %s", configPath)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("load config: %v", err)
		return
	}

	zapLogger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Printf("logger: %v", err)
		return
	}
	defer func() {
		_ = zapLogger.Sync()
	}()
	var logger logging.Logger = zapLogger

	guard, err := acquireInstance(cfg)
	if err != nil {
		if errors.Is(err, platform.ErrAlreadyRunning) {
			logger.Infof("%v; use panelctl to talk to it", err)
			return
		}
		logger.Errorf("single instance: %v", err)
		return
	}
	defer func() {
		_ = guard.Release()
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := storage.New(ctx, storage.Config{
		Backend: cfg.Store.Backend,
		Path:    cfg.Store.Path,
		DSN:     cfg.Store.DSN,
	})
	if err != nil {
		logger.Errorf("open store: %v", err)
		return
	}
	defer func() {
		_ = store.Close()
	}()

	fyneApp := app.NewWithID(appID)
	activeIcon := resources.MustLogo("clock_active.png")
	fyneApp.SetIcon(activeIcon)
	desktopApp, ok := fyneApp.(desktop.App)
	if !ok {
		logger.Errorf("system tray unsupported on this platform")
		return
	}

	trayWindow := fyneApp.NewWindow("Timer Panel")
	trayWindow.SetContent(widget.NewLabel("Timer Panel is running in the system tray."))
	trayWindow.SetCloseIntercept(func() {
		trayWindow.Hide()
	})
	trayWindow.Hide()
	desktopApp.SetSystemTrayWindow(trayWindow)

	hub := router.NewHub(logger.With("component", "hub"))
	scheduler := wake.New(store, wake.Config{TickInterval: cfg.Wake.TickInterval}, logger.With("component", "wake"))
	presence := platform.NewPresence(platform.NewIdleProvider(), cfg.Presence.IdleThreshold, cfg.Presence.PollInterval, logger)

	// Widget callbacks run on the UI thread; commands may call back into
	// the UI through fyne.Do, so they are handed to a goroutine.
	var commandRouter *router.Router
	dispatch := func(cmd router.Command) {
		go func() {
			if _, err := commandRouter.Dispatch(ctx, cmd); err != nil {
				logger.Errorf("%s: %v", cmd.Name(), err)
			}
		}()
	}

	popupWindow := popup.New(fyneApp, popup.Actions{
		OnStopAll: func() { dispatch(&router.ResetFinishedItems{}) },
		OnMute:    func() { dispatch(&router.StopSoundOnly{}) },
		OnDismiss: func(id string) { dispatch(&router.ResetFinishedAlarm{ID: id}) },
	})

	var chrome *shell.Chrome
	var prefsWindow *preferences.Window
	trayManager := tray.New(desktopApp, tray.Icons{Active: activeIcon, Idle: resources.MustLogo("clock_idle.png")}, tray.Callbacks{
		OnShowFinished: func() { chrome.ShowPopup() },
		OnQuickTimer:   func() { dispatch(&router.AddTimer{Minutes: model.DefaultTimerMinutes}) },
		OnMute:         func() { dispatch(&router.StopSoundOnly{}) },
		OnStopAll:      func() { dispatch(&router.ResetFinishedItems{}) },
		OnPreferences:  func() { prefsWindow.Show() },
		OnQuit: func() {
			cancel()
			fyneApp.Quit()
		},
	}, logger)
	chrome = shell.New(trayManager, popupWindow, presence)

	stateEngine := engine.New(store, scheduler, hub, chrome, engine.Config{
		SoundSource: cfg.Sound.File,
		BadgeText:   cfg.Badge.Text,
		BadgeColor:  cfg.Badge.Color,
	}, logger.With("component", "engine"))
	commandRouter = router.New(stateEngine, logger.With("component", "router"))
	scheduler.SetHandler(commandRouter.Wake)

	player := newPlayer(cfg, logger)
	if player != nil {
		sounds, unsubscribe := hub.Subscribe(8)
		defer unsubscribe()
		go player.Run(ctx, sounds)
	}

	uiEvents, unsubscribeUI := hub.Subscribe(16)
	defer unsubscribeUI()
	go followEvents(ctx, uiEvents, trayManager, popupWindow)

	settings := loadSettings(ctx, stateEngine, logger)
	prefsWindow = preferences.New(fyneApp, settings, func(updated preferences.Settings) {
		for _, cmd := range updated.Commands(settings) {
			dispatch(cmd)
		}
		settings = updated
	}, func(volume int) {
		if player == nil {
			return
		}
		request := engine.SoundRequest{Source: cfg.Sound.File, Volume: volume}
		if err := player.Play(ctx, request); err != nil {
			logger.Warnf("test sound: %v", err)
		}
	})

	if err := stateEngine.Bootstrap(ctx); err != nil {
		logger.Errorf("bootstrap: %v", err)
		return
	}
	if err := stateEngine.Resume(ctx); err != nil {
		logger.Errorf("resume finished items: %v", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	server := control.NewServer(guard.Listener(), commandRouter, hub, logger.With("component", "control"))
	go func() {
		if err := server.Serve(ctx); err != nil {
			logger.Errorf("control server: %v", err)
		}
	}()
	defer func() {
		_ = server.Close()
	}()

	if _, err := commandRouter.Dispatch(ctx, &router.GetTimers{}); err != nil {
		logger.Errorf("initial snapshot: %v", err)
	}

	go func() {
		<-ctx.Done()
		fyne.Do(fyneApp.Quit)
	}()

	logger.Infof("timer panel running, control on %s", guard.Address())
	fyneApp.Run()
	cancel()
	hub.Close()
}

func acquireInstance(cfg *config.Config) (*platform.InstanceGuard, error) {
	if cfg.Control.Address != "" {
		return platform.AcquireAddress(cfg.Control.Address)
	}
	return platform.AcquireSingleInstance(config.AppName)
}

func newPlayer(cfg *config.Config, logger logging.Logger) *audio.Player {
	runner, err := audio.NewExecRunner(cfg.Sound.Player)
	if err != nil {
		logger.Warnf("sound disabled: %v", err)
		return nil
	}
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}
	cacheDir = filepath.Join(cacheDir, config.AppName)
	logger.Debugf("playing sounds with %s", runner.Player())
	return audio.NewPlayer(runner, func(source string) (string, error) {
		return resources.SoundFile(cacheDir, source)
	}, logger.With("component", "audio"))
}

func loadSettings(ctx context.Context, stateEngine *engine.Engine, logger logging.Logger) preferences.Settings {
	settings := preferences.DefaultSettings()
	if volume, err := stateEngine.Volume(ctx); err == nil {
		settings.Volume = volume
	} else {
		logger.Warnf("read volume: %v", err)
	}
	if mode, err := stateEngine.ActiveMode(ctx); err == nil {
		settings.Mode = mode
	} else {
		logger.Warnf("read mode: %v", err)
	}
	return settings
}

// followEvents mirrors broadcasts into the tray and popup and refreshes the
// countdown shown in the tray menu.
func followEvents(ctx context.Context, events <-chan engine.Event, trayManager *tray.Manager, popupWindow *popup.Window) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var latest *model.Snapshot
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			switch event.Type {
			case engine.EventUpdateData:
				if event.Snapshot == nil {
					continue
				}
				latest = event.Snapshot
				snapshot := event.Snapshot
				fyne.Do(func() {
					trayManager.SetSnapshot(snapshot, time.Now())
					popupWindow.SetItems(snapshot.FinishedTimers)
				})
			case engine.EventUpdateFinishedList:
				items := event.Finished
				fyne.Do(func() {
					trayManager.SetFinished(items)
					popupWindow.SetItems(items)
				})
			}
		case now := <-ticker.C:
			if latest == nil {
				continue
			}
			snapshot := latest
			fyne.Do(func() {
				trayManager.SetSnapshot(snapshot, now)
			})
		}
	}
}
