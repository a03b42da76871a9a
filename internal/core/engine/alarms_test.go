package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timerpanel/internal/core/model"
	"timerpanel/internal/core/wake"
)

func TestAddAlarm(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	first, err := h.engine.AddAlarm(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Alarm 1", first.Name)
	assert.Equal(t, "00:00", first.Time)
	assert.False(t, first.IsActive)
	assert.Equal(t, 0, first.Order)

	second, err := h.engine.AddAlarm(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Alarm 2", second.Name)
	assert.Equal(t, 1, second.Order)

	_, ok := h.scheduler.get(first.ID)
	assert.False(t, ok, "new alarms are not armed")
}

func TestToggleAlarmArmsNextOccurrence(t *testing.T) {
	h := newHarness(t)
	// Two minutes ahead of the harness clock (10:00 local).
	alarm := h.addAlarm(t, "10:02", true)

	registration, ok := h.scheduler.get(alarm.ID)
	require.True(t, ok)
	assert.Equal(t, h.clock.Now().Add(2*time.Minute).UnixMilli(), registration.When)
	assert.Equal(t, float64(1440), registration.PeriodInMinutes)
	assert.True(t, h.snapshot(t).Alarms[alarm.ID].IsActive)
}

type failingArmScheduler struct {
	*recordingScheduler
	err error
}

func (scheduler failingArmScheduler) Arm(context.Context, wake.Registration) error {
	return scheduler.err
}

func TestToggleAlarmArmFailureKeepsAlarmInactive(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	alarm := h.addAlarm(t, "10:02", false)

	h.engine = New(h.store, failingArmScheduler{recordingScheduler: h.scheduler, err: errors.New("scheduler down")},
		h.publisher, h.chrome, Config{Now: h.clock.Now}, nil)
	updates := h.publisher.count(EventUpdateData)

	err := h.engine.ToggleAlarm(ctx, alarm.ID, true)
	require.ErrorContains(t, err, "scheduler down")
	assert.False(t, h.snapshot(t).Alarms[alarm.ID].IsActive)
	_, ok := h.scheduler.get(alarm.ID)
	assert.False(t, ok)
	assert.Equal(t, updates, h.publisher.count(EventUpdateData), "nothing changed, nothing broadcast")
}

func TestToggleAlarmPastTimeMovesToTomorrow(t *testing.T) {
	h := newHarness(t)
	alarm := h.addAlarm(t, "09:30", true)

	registration, ok := h.scheduler.get(alarm.ID)
	require.True(t, ok)
	want := time.Date(2024, 3, 2, 9, 30, 0, 0, time.Local)
	assert.Equal(t, want.UnixMilli(), registration.When)
}

func TestToggleAlarmOnOffLeavesNoWake(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	alarm := h.addAlarm(t, "12:00", false)

	require.NoError(t, h.engine.ToggleAlarm(ctx, alarm.ID, true))
	require.NoError(t, h.engine.ToggleAlarm(ctx, alarm.ID, false))

	_, ok := h.scheduler.get(alarm.ID)
	assert.False(t, ok)
	assert.False(t, h.snapshot(t).Alarms[alarm.ID].IsActive)

	require.NoError(t, h.engine.ToggleAlarm(ctx, alarm.ID, false), "disarming twice is harmless")
}

func TestToggleAlarmTwiceKeepsOneWake(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	alarm := h.addAlarm(t, "12:00", true)
	require.NoError(t, h.engine.ToggleAlarm(ctx, alarm.ID, true))

	registration, ok := h.scheduler.get(alarm.ID)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local).UnixMilli(), registration.When)
	assert.Len(t, h.scheduler.wakes, 1)
}

func TestToggleAlarmWithBadTimeStaysDisarmed(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	alarm, err := h.engine.AddAlarm(ctx)
	require.NoError(t, err)
	require.NoError(t, h.engine.RetimeAlarm(ctx, alarm.ID, "25:99"))

	require.NoError(t, h.engine.ToggleAlarm(ctx, alarm.ID, true))
	_, ok := h.scheduler.get(alarm.ID)
	assert.False(t, ok)
}

func TestRetimeActiveAlarmRearms(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	alarm := h.addAlarm(t, "12:00", true)

	require.NoError(t, h.engine.RetimeAlarm(ctx, alarm.ID, "18:45"))
	registration, ok := h.scheduler.get(alarm.ID)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 1, 18, 45, 0, 0, time.Local).UnixMilli(), registration.When)
	assert.Equal(t, "18:45", h.snapshot(t).Alarms[alarm.ID].Time)
}

func TestRetimeInactiveAlarmOnlyPersists(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	alarm := h.addAlarm(t, "12:00", false)

	require.NoError(t, h.engine.RetimeAlarm(ctx, alarm.ID, "07:15"))
	assert.Equal(t, "07:15", h.snapshot(t).Alarms[alarm.ID].Time)
	_, ok := h.scheduler.get(alarm.ID)
	assert.False(t, ok)
}

func TestRenameAlarm(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	alarm := h.addAlarm(t, "12:00", false)

	require.NoError(t, h.engine.RenameAlarm(ctx, alarm.ID, "Lunch"))
	assert.Equal(t, "Lunch", h.snapshot(t).Alarms[alarm.ID].Name)
	require.NoError(t, h.engine.RenameAlarm(ctx, "alarm_missing", "x"))
}

func TestDeleteAlarm(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	alarm := h.addAlarm(t, "10:01", true)
	h.clock.Advance(time.Minute)
	require.NoError(t, h.engine.HandleWake(ctx, alarm.ID))
	require.Len(t, h.snapshot(t).FinishedTimers, 1)

	require.NoError(t, h.engine.DeleteAlarm(ctx, alarm.ID))
	snapshot := h.snapshot(t)
	assert.NotContains(t, snapshot.Alarms, alarm.ID)
	assert.Empty(t, snapshot.FinishedTimers)
	_, ok := h.scheduler.get(alarm.ID)
	assert.False(t, ok)
	assert.Equal(t, PresentationIdle, h.engine.Presentation())
}

func TestReorderAlarms(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a := h.addAlarm(t, "08:00", false)
	b := h.addAlarm(t, "09:00", false)
	c := h.addAlarm(t, "10:00", false)

	require.NoError(t, h.engine.ReorderItems(ctx, model.TypeAlarm, []string{c.ID, a.ID, b.ID}))
	ordered := sortedIDs(h.snapshot(t).Alarms, func(alarm *model.Alarm) int { return alarm.Order })
	assert.Equal(t, []string{c.ID, a.ID, b.ID}, ordered)
}
