package engine

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timerpanel/internal/core/model"
	"timerpanel/internal/core/wake"
	"timerpanel/internal/storage"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (clock *manualClock) Now() time.Time {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	return clock.now
}

func (clock *manualClock) Advance(d time.Duration) {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	clock.now = clock.now.Add(d)
}

type recordingScheduler struct {
	mu    sync.Mutex
	wakes map[string]wake.Registration
	arms  int
}

func newRecordingScheduler() *recordingScheduler {
	return &recordingScheduler{wakes: make(map[string]wake.Registration)}
}

func (scheduler *recordingScheduler) Arm(_ context.Context, registration wake.Registration) error {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	scheduler.wakes[registration.Name] = registration
	scheduler.arms++
	return nil
}

func (scheduler *recordingScheduler) Cancel(_ context.Context, name string) error {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	delete(scheduler.wakes, name)
	return nil
}

func (scheduler *recordingScheduler) get(name string) (wake.Registration, bool) {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	registration, ok := scheduler.wakes[name]
	return registration, ok
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (publisher *recordingPublisher) Publish(event Event) {
	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	publisher.events = append(publisher.events, event)
}

func (publisher *recordingPublisher) count(eventType EventType) int {
	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	n := 0
	for _, event := range publisher.events {
		if event.Type == eventType {
			n++
		}
	}
	return n
}

func (publisher *recordingPublisher) last(eventType EventType) (Event, bool) {
	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	for i := len(publisher.events) - 1; i >= 0; i-- {
		if publisher.events[i].Type == eventType {
			return publisher.events[i], true
		}
	}
	return Event{}, false
}

type scriptedChrome struct {
	mu         sync.Mutex
	openErrs   []error
	popup      bool
	opened     int
	badgeText  string
	badgeColor string
	listeners  map[int]func()
	nextID     int
	added      int
}

func newScriptedChrome(openErrs ...error) *scriptedChrome {
	return &scriptedChrome{openErrs: openErrs, listeners: make(map[int]func())}
}

func (chrome *scriptedChrome) SetPopup(_ context.Context, enabled bool) error {
	chrome.mu.Lock()
	defer chrome.mu.Unlock()
	chrome.popup = enabled
	return nil
}

// OpenPopup fails with the scripted errors in order, then succeeds.
func (chrome *scriptedChrome) OpenPopup(context.Context) error {
	chrome.mu.Lock()
	defer chrome.mu.Unlock()
	if len(chrome.openErrs) > 0 {
		err := chrome.openErrs[0]
		chrome.openErrs = chrome.openErrs[1:]
		if err != nil {
			return err
		}
	}
	chrome.opened++
	return nil
}

func (chrome *scriptedChrome) SetBadge(_ context.Context, text, color string) error {
	chrome.mu.Lock()
	defer chrome.mu.Unlock()
	chrome.badgeText = text
	chrome.badgeColor = color
	return nil
}

func (chrome *scriptedChrome) AddFocusListener(fn func()) func() {
	chrome.mu.Lock()
	defer chrome.mu.Unlock()
	id := chrome.nextID
	chrome.nextID++
	chrome.added++
	chrome.listeners[id] = fn
	return func() {
		chrome.mu.Lock()
		defer chrome.mu.Unlock()
		delete(chrome.listeners, id)
	}
}

// focus simulates the user coming back to the screen.
func (chrome *scriptedChrome) focus() {
	chrome.mu.Lock()
	listeners := make([]func(), 0, len(chrome.listeners))
	for _, fn := range chrome.listeners {
		listeners = append(listeners, fn)
	}
	chrome.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

func (chrome *scriptedChrome) listenerCount() int {
	chrome.mu.Lock()
	defer chrome.mu.Unlock()
	return len(chrome.listeners)
}

func (chrome *scriptedChrome) badge() string {
	chrome.mu.Lock()
	defer chrome.mu.Unlock()
	return chrome.badgeText
}

type harness struct {
	engine    *Engine
	store     storage.Store
	clock     *manualClock
	scheduler *recordingScheduler
	publisher *recordingPublisher
	chrome    *scriptedChrome
}

func newHarness(t *testing.T, openErrs ...error) *harness {
	t.Helper()
	h := &harness{
		store:     storage.NewMemoryStore(),
		clock:     &manualClock{now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.Local)},
		scheduler: newRecordingScheduler(),
		publisher: &recordingPublisher{},
		chrome:    newScriptedChrome(openErrs...),
	}
	h.engine = New(h.store, h.scheduler, h.publisher, h.chrome, Config{
		SoundSource: "sounds/alarm.wav",
		Now:         h.clock.Now,
	}, nil)
	return h
}

func (h *harness) snapshot(t *testing.T) *model.Snapshot {
	t.Helper()
	snapshot, err := h.engine.Snapshot(context.Background())
	require.NoError(t, err)
	return snapshot
}

func (h *harness) addTimer(t *testing.T, minutes float64) *model.Timer {
	t.Helper()
	timer, err := h.engine.AddTimer(context.Background(), minutes)
	require.NoError(t, err)
	return timer
}

func (h *harness) addAlarm(t *testing.T, clock string, active bool) *model.Alarm {
	t.Helper()
	ctx := context.Background()
	alarm, err := h.engine.AddAlarm(ctx)
	require.NoError(t, err)
	require.NoError(t, h.engine.RetimeAlarm(ctx, alarm.ID, clock))
	if active {
		require.NoError(t, h.engine.ToggleAlarm(ctx, alarm.ID, true))
	}
	return alarm
}

// finishTimer runs a timer to completion through its wake.
func (h *harness) finishTimer(t *testing.T, id string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, h.engine.ResumeTimer(ctx, id))
	registration, ok := h.scheduler.get(id)
	require.True(t, ok)
	h.clock.Advance(registration.At().Sub(h.clock.Now()))
	require.NoError(t, h.engine.HandleWake(ctx, id))
}

func TestBootstrapSeedsOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	require.NoError(t, h.engine.Bootstrap(ctx))
	snapshot := h.snapshot(t)
	require.Len(t, snapshot.Timers, 1)
	for _, timer := range snapshot.Timers {
		assert.Equal(t, "Timer 1", timer.Name)
		assert.Equal(t, int64(3*60000), timer.OriginalDuration)
	}
	assert.Empty(t, snapshot.Alarms)
	assert.Empty(t, snapshot.FinishedTimers)

	volume, err := h.engine.Volume(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50, volume)

	require.NoError(t, h.engine.Bootstrap(ctx))
	assert.Len(t, h.snapshot(t).Timers, 1, "second bootstrap must not add another timer")
}

func TestVolumeIsClamped(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	volume, err := h.engine.Volume(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultVolume, volume)

	require.NoError(t, h.engine.SetVolume(ctx, 140))
	volume, err = h.engine.Volume(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100, volume)

	require.NoError(t, h.engine.SetVolume(ctx, -3))
	volume, err = h.engine.Volume(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, volume)
}

func TestActiveMode(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	mode, err := h.engine.ActiveMode(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.ModeTimer, mode)

	require.NoError(t, h.engine.SetActiveMode(ctx, model.ModeAlarm))
	mode, err = h.engine.ActiveMode(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.ModeAlarm, mode)

	assert.Error(t, h.engine.SetActiveMode(ctx, "stopwatch"))
}

func TestRefreshPublishesSnapshot(t *testing.T) {
	h := newHarness(t)
	h.addTimer(t, 1)
	before := h.publisher.count(EventUpdateData)

	snapshot, err := h.engine.Refresh(context.Background())
	require.NoError(t, err)
	assert.Len(t, snapshot.Timers, 1)
	assert.Equal(t, before+1, h.publisher.count(EventUpdateData))

	event, ok := h.publisher.last(EventUpdateData)
	require.True(t, ok)
	assert.Equal(t, snapshot, event.Snapshot)
	assert.NotNil(t, event.Snapshot.FinishedTimers, "finished list is never null on the wire")
}

func TestStoreFailurePropagates(t *testing.T) {
	store := &brokenStore{err: errors.New("disk gone")}
	engine := New(store, newRecordingScheduler(), nil, nil, Config{}, nil)

	_, err := engine.AddTimer(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.err)
	assert.ErrorIs(t, engine.HandleWake(context.Background(), model.NewTimerID()), store.err)
}

type brokenStore struct {
	err error
}

func (store *brokenStore) Get(context.Context, ...string) (map[string]json.RawMessage, error) {
	return nil, store.err
}

func (store *brokenStore) Set(context.Context, map[string]any) error { return store.err }

func (store *brokenStore) Close() error { return nil }

func sortedIDs[T any](items map[string]T, order func(T) int) []string {
	ids := make([]string, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return order(items[ids[i]]) < order(items[ids[j]])
	})
	return ids
}
