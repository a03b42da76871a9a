package engine

import (
	"context"
	"fmt"

	"timerpanel/internal/core/model"
	"timerpanel/internal/storage"
)

// Bootstrap seeds an empty store with defaults and one three-minute timer.
// A store that already has timers is left alone.
func (engine *Engine) Bootstrap(ctx context.Context) error {
	values, err := engine.store.Get(ctx, keyTimers)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	if _, ok := values[keyTimers]; ok {
		return nil
	}

	err = engine.store.Set(ctx, map[string]any{
		keyTimers:         map[string]*model.Timer{},
		keyAlarms:         map[string]*model.Alarm{},
		keyVolume:         model.DefaultVolume,
		keyFinishedTimers: []model.FinishedItem{},
		keyFinishedAlarms: []model.FinishedItem{},
	})
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	engine.logger.Infof("engine: initialised empty store")

	_, err = engine.AddTimer(ctx, model.DefaultTimerMinutes)
	return err
}

// Snapshot returns the current aggregate.
func (engine *Engine) Snapshot(ctx context.Context) (*model.Snapshot, error) {
	st, err := engine.load(ctx)
	if err != nil {
		return nil, err
	}
	return st.snapshot(), nil
}

// Refresh publishes the full aggregate to every surface and returns it.
func (engine *Engine) Refresh(ctx context.Context) (*model.Snapshot, error) {
	st, err := engine.load(ctx)
	if err != nil {
		return nil, err
	}
	engine.broadcast(st)
	return st.snapshot(), nil
}

// FinishedItems returns the combined finished list in completion order.
func (engine *Engine) FinishedItems(ctx context.Context) ([]model.FinishedItem, error) {
	st, err := engine.load(ctx)
	if err != nil {
		return nil, err
	}
	return nonNil(st.finished()), nil
}

// Volume returns the persisted playback volume.
func (engine *Engine) Volume(ctx context.Context) (int, error) {
	st, err := engine.load(ctx)
	if err != nil {
		return 0, err
	}
	return st.Volume, nil
}

// SetVolume persists volume clamped to 0..100.
func (engine *Engine) SetVolume(ctx context.Context, volume int) error {
	if err := engine.store.Set(ctx, map[string]any{keyVolume: model.ClampVolume(volume)}); err != nil {
		return fmt.Errorf("save volume: %w", err)
	}
	return nil
}

// ActiveMode returns the tab the user looked at last, timers by default.
func (engine *Engine) ActiveMode(ctx context.Context) (model.Mode, error) {
	values, err := engine.store.Get(ctx, keyLastActiveMode)
	if err != nil {
		return "", fmt.Errorf("load mode: %w", err)
	}
	mode := model.ModeTimer
	if _, err := storage.Decode(values, keyLastActiveMode, &mode); err != nil {
		return "", fmt.Errorf("load mode: %w", err)
	}
	if !mode.Valid() {
		return model.ModeTimer, nil
	}
	return mode, nil
}

// SetActiveMode remembers the tab the user looked at last.
func (engine *Engine) SetActiveMode(ctx context.Context, mode model.Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("unknown mode %q", mode)
	}
	if err := engine.store.Set(ctx, map[string]any{keyLastActiveMode: mode}); err != nil {
		return fmt.Errorf("save mode: %w", err)
	}
	return nil
}
