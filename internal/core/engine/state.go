package engine

import (
	"context"
	"fmt"

	"timerpanel/internal/core/model"
	"timerpanel/internal/storage"
)

// Store keys owned by the engine.
const (
	keyTimers         = "timers"
	keyAlarms         = "alarms"
	keyFinishedTimers = "finishedTimers"
	keyFinishedAlarms = "finishedAlarms"
	keyVolume         = "volume"
	keyLastActiveMode = "lastActiveMode"
)

// state is one read of the store. Operations mutate it and write back the
// keys they touched.
type state struct {
	Timers         map[string]*model.Timer
	Alarms         map[string]*model.Alarm
	FinishedTimers []model.FinishedItem
	FinishedAlarms []model.FinishedItem
	Volume         int
}

func (engine *Engine) load(ctx context.Context) (*state, error) {
	values, err := engine.store.Get(ctx, keyTimers, keyAlarms, keyFinishedTimers, keyFinishedAlarms, keyVolume)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}

	st := &state{Volume: model.DefaultVolume}
	targets := []struct {
		key    string
		target any
	}{
		{keyTimers, &st.Timers},
		{keyAlarms, &st.Alarms},
		{keyFinishedTimers, &st.FinishedTimers},
		{keyFinishedAlarms, &st.FinishedAlarms},
		{keyVolume, &st.Volume},
	}
	for _, entry := range targets {
		if _, err := storage.Decode(values, entry.key, entry.target); err != nil {
			return nil, fmt.Errorf("load state: %w", err)
		}
	}

	if st.Timers == nil {
		st.Timers = make(map[string]*model.Timer)
	}
	if st.Alarms == nil {
		st.Alarms = make(map[string]*model.Alarm)
	}
	return st, nil
}

// save writes the named keys of st in one call.
func (engine *Engine) save(ctx context.Context, st *state, keys ...string) error {
	values := make(map[string]any, len(keys))
	for _, key := range keys {
		switch key {
		case keyTimers:
			values[key] = st.Timers
		case keyAlarms:
			values[key] = st.Alarms
		case keyFinishedTimers:
			values[key] = nonNil(st.FinishedTimers)
		case keyFinishedAlarms:
			values[key] = nonNil(st.FinishedAlarms)
		case keyVolume:
			values[key] = st.Volume
		default:
			return fmt.Errorf("save state: unknown key %q", key)
		}
	}
	if err := engine.store.Set(ctx, values); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

func (st *state) finished() []model.FinishedItem {
	return model.Combine(st.FinishedTimers, st.FinishedAlarms)
}

func (st *state) finishedCount() int {
	return len(st.FinishedTimers) + len(st.FinishedAlarms)
}

// purgeFinished drops any finished entry for id from both collections.
func (st *state) purgeFinished(id string) {
	st.FinishedTimers = model.WithoutID(st.FinishedTimers, id)
	st.FinishedAlarms = model.WithoutID(st.FinishedAlarms, id)
}

func (st *state) snapshot() *model.Snapshot {
	return &model.Snapshot{
		Timers:         st.Timers,
		Alarms:         st.Alarms,
		FinishedTimers: nonNil(st.finished()),
	}
}

// broadcast pushes the full aggregate to every attached surface.
func (engine *Engine) broadcast(st *state) {
	engine.publish(Event{Type: EventUpdateData, Snapshot: st.snapshot()})
}

func nonNil(items []model.FinishedItem) []model.FinishedItem {
	if items == nil {
		return []model.FinishedItem{}
	}
	return items
}
