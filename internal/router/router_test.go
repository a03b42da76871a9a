package router

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timerpanel/internal/core/engine"
	"timerpanel/internal/core/model"
	"timerpanel/internal/core/wake"
	"timerpanel/internal/storage"
)

func jsonPayload(t *testing.T, payload string) func(any) error {
	t.Helper()
	return func(target any) error {
		return json.Unmarshal([]byte(payload), target)
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    Command
	}{
		{name: "addTimer", payload: `{"minutes":5}`, want: &AddTimer{Minutes: 5}},
		{name: "addTimer", payload: `{}`, want: &AddTimer{}},
		{name: "updateTimerTime", payload: `{"id":"timer_a","totalSeconds":90}`, want: &UpdateTimerTime{ID: "timer_a", TotalSeconds: 90}},
		{name: "updateTimerName", payload: `{"id":"timer_a","newName":"Tea"}`, want: &UpdateTimerName{ID: "timer_a", NewName: "Tea"}},
		{name: "toggleAlarm", payload: `{"id":"alarm_a","isActive":true}`, want: &ToggleAlarm{ID: "alarm_a", IsActive: true}},
		{name: "reorderItems", payload: `{"type":"timer","orderIds":["b","a"]}`, want: &ReorderItems{Type: model.TypeTimer, OrderIDs: []string{"b", "a"}}},
		{name: "updateVolume", payload: `{"volume":70}`, want: &UpdateVolume{Volume: 70}},
		{name: "updateActiveMode", payload: `{"mode":"alarm"}`, want: &UpdateActiveMode{Mode: model.ModeAlarm}},
	}
	for _, tt := range tests {
		t.Run(tt.name+tt.payload, func(t *testing.T) {
			cmd, err := Decode(tt.name, jsonPayload(t, tt.payload))
			require.NoError(t, err)
			assert.Equal(t, tt.want, cmd)
			assert.Equal(t, tt.name, cmd.Name())
		})
	}
}

func TestDecodeWithoutPayload(t *testing.T) {
	cmd, err := Decode("getFinishedItems", nil)
	require.NoError(t, err)
	assert.IsType(t, &GetFinishedItems{}, cmd)
}

func TestDecodeUnknown(t *testing.T) {
	_, err := Decode("launchRocket", nil)
	assert.ErrorIs(t, err, ErrUnknownCommand)
}

func TestNamesAreUnique(t *testing.T) {
	names := Names()
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		assert.False(t, seen[name], "duplicate command %s", name)
		seen[name] = true
	}
	assert.Len(t, names, 20)
}

func newRouter(t *testing.T) (*Router, *engine.Engine, *Hub) {
	t.Helper()
	store := storage.NewMemoryStore()
	hub := NewHub(nil)
	eng := engine.New(store, nopScheduler{}, hub, nil, engine.Config{}, nil)
	return New(eng, nil), eng, hub
}

func TestHandleUnknownCommand(t *testing.T) {
	router, _, _ := newRouter(t)
	response := router.Handle(context.Background(), "launchRocket", nil)
	assert.Equal(t, Response{Success: false, Message: "Unknown command"}, response)
}

func TestHandleMalformedPayload(t *testing.T) {
	router, _, _ := newRouter(t)
	response := router.Handle(context.Background(), "updateVolume", jsonPayload(t, `{"volume":"loud"}`))
	assert.False(t, response.Success)
	assert.Contains(t, response.Message, "updateVolume")
}

func TestEveryCommandDispatches(t *testing.T) {
	ctx := context.Background()
	router, eng, _ := newRouter(t)

	timer, err := eng.AddTimer(ctx, 1)
	require.NoError(t, err)
	alarm, err := eng.AddAlarm(ctx)
	require.NoError(t, err)

	payloads := map[string]string{
		"addTimer":           `{"minutes":2}`,
		"deleteTimer":        `{"id":"timer_gone"}`,
		"updateTimerTime":    `{"id":"` + timer.ID + `","totalSeconds":30}`,
		"updateTimerName":    `{"id":"` + timer.ID + `","newName":"Eggs"}`,
		"pauseTimer":         `{"id":"` + timer.ID + `"}`,
		"resumeTimer":        `{"id":"` + timer.ID + `"}`,
		"resetTimer":         `{"id":"` + timer.ID + `"}`,
		"addAlarm":           `{}`,
		"deleteAlarm":        `{"id":"alarm_gone"}`,
		"updateAlarmTime":    `{"id":"` + alarm.ID + `","time":"07:30"}`,
		"updateAlarmName":    `{"id":"` + alarm.ID + `","newName":"Wake"}`,
		"toggleAlarm":        `{"id":"` + alarm.ID + `","isActive":true}`,
		"reorderItems":       `{"type":"alarm","orderIds":["` + alarm.ID + `"]}`,
		"getTimers":          `{}`,
		"getFinishedItems":   `{}`,
		"resetFinishedItems": `{}`,
		"resetFinishedAlarm": `{"id":"` + alarm.ID + `"}`,
		"stopSoundOnly":      `{}`,
		"updateVolume":       `{"volume":30}`,
		"updateActiveMode":   `{"mode":"timer"}`,
	}
	for _, name := range Names() {
		payload, ok := payloads[name]
		require.True(t, ok, "no payload for %s", name)
		response := router.Handle(ctx, name, jsonPayload(t, payload))
		assert.True(t, response.Success, "%s: %s", name, response.Message)
	}

	volume, err := eng.Volume(ctx)
	require.NoError(t, err)
	assert.Equal(t, 30, volume)
}

func TestResultPayloads(t *testing.T) {
	ctx := context.Background()
	router, _, hub := newRouter(t)
	events, unsubscribe := hub.Subscribe(8)
	defer unsubscribe()

	response := router.Handle(ctx, "addTimer", jsonPayload(t, `{"minutes":1}`))
	require.True(t, response.Success)
	timer, ok := response.Data.(*model.Timer)
	require.True(t, ok)
	assert.Equal(t, "Timer 1", timer.Name)
	assert.Equal(t, engine.EventUpdateData, (<-events).Type)

	response = router.Handle(ctx, "getTimers", nil)
	require.True(t, response.Success)
	snapshot, ok := response.Data.(*model.Snapshot)
	require.True(t, ok)
	assert.Contains(t, snapshot.Timers, timer.ID)
	assert.Equal(t, engine.EventUpdateData, (<-events).Type, "getTimers forces a broadcast")

	response = router.Handle(ctx, "getFinishedItems", nil)
	require.True(t, response.Success)
	assert.Equal(t, []model.FinishedItem{}, response.Data)
}

func TestStoreErrorsBecomeFailedResponses(t *testing.T) {
	router := New(failingEngine{err: errors.New("disk full")}, nil)
	response := router.Handle(context.Background(), "resetFinishedItems", nil)
	assert.Equal(t, Response{Success: false, Message: "disk full"}, response)
}

type failingEngine struct {
	Engine
	err error
}

func (failing failingEngine) AcknowledgeAll(context.Context) error { return failing.err }

type nopScheduler struct{}

func (nopScheduler) Arm(context.Context, wake.Registration) error { return nil }
func (nopScheduler) Cancel(context.Context, string) error         { return nil }

func TestWakeReachesEngine(t *testing.T) {
	ctx := context.Background()
	router, eng, hub := newRouter(t)
	timer, err := eng.AddTimer(ctx, 1)
	require.NoError(t, err)
	events, unsubscribe := hub.Subscribe(8)
	defer unsubscribe()

	router.Wake(ctx, timer.ID)

	items, err := eng.FinishedItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, engine.EventPlaySound, (<-events).Type)
}

// awayChrome reports nobody at the screen until the first focus listener
// has been handed out.
type awayChrome struct {
	mu       sync.Mutex
	listener func()
	popup    bool
	opened   int
}

func (chrome *awayChrome) SetPopup(_ context.Context, enabled bool) error {
	chrome.mu.Lock()
	defer chrome.mu.Unlock()
	chrome.popup = enabled
	return nil
}

func (chrome *awayChrome) OpenPopup(context.Context) error {
	chrome.mu.Lock()
	defer chrome.mu.Unlock()
	if chrome.listener == nil {
		return engine.ErrNoFocusedWindow
	}
	chrome.opened++
	return nil
}

func (chrome *awayChrome) SetBadge(context.Context, string, string) error { return nil }

func (chrome *awayChrome) AddFocusListener(fn func()) func() {
	chrome.mu.Lock()
	defer chrome.mu.Unlock()
	chrome.listener = fn
	return func() {}
}

func (chrome *awayChrome) state() (bool, int) {
	chrome.mu.Lock()
	defer chrome.mu.Unlock()
	return chrome.popup, chrome.opened
}

func TestFocusRetryTakesTurnWithCommands(t *testing.T) {
	ctx := context.Background()
	chrome := &awayChrome{}
	eng := engine.New(storage.NewMemoryStore(), nopScheduler{}, nil, chrome, engine.Config{}, nil)
	router := New(eng, nil)

	timer, err := eng.AddTimer(ctx, 1)
	require.NoError(t, err)
	router.Wake(ctx, timer.ID)
	require.Equal(t, engine.PresentationAwaitingFocus, eng.Presentation())
	require.NotNil(t, chrome.listener)

	// The user returns while a command holds the turn.
	router.mu.Lock()
	retried := make(chan struct{})
	go func() {
		defer close(retried)
		chrome.listener()
	}()
	select {
	case <-retried:
		t.Fatal("focus retry ran during another turn")
	case <-time.After(50 * time.Millisecond):
	}
	router.mu.Unlock()
	<-retried

	popup, opened := chrome.state()
	assert.True(t, popup)
	assert.Equal(t, 1, opened)
	assert.Equal(t, engine.PresentationPresented, eng.Presentation())
}

func TestAcknowledgeBeforeFocusRetryStaysIdle(t *testing.T) {
	ctx := context.Background()
	chrome := &awayChrome{}
	eng := engine.New(storage.NewMemoryStore(), nopScheduler{}, nil, chrome, engine.Config{}, nil)
	router := New(eng, nil)

	timer, err := eng.AddTimer(ctx, 1)
	require.NoError(t, err)
	router.Wake(ctx, timer.ID)

	retried := make(chan struct{})
	go func() {
		defer close(retried)
		chrome.listener()
	}()
	_, err = router.Dispatch(ctx, &ResetFinishedItems{})
	require.NoError(t, err)
	<-retried

	popup, _ := chrome.state()
	assert.False(t, popup)
	assert.Equal(t, engine.PresentationIdle, eng.Presentation())
}
