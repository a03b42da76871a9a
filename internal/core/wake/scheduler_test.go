package wake

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timerpanel/internal/storage"
)

type firedLog struct {
	mu    sync.Mutex
	names []string
}

func (log *firedLog) handle(_ context.Context, name string) {
	log.mu.Lock()
	defer log.mu.Unlock()
	log.names = append(log.names, name)
}

func (log *firedLog) snapshot() []string {
	log.mu.Lock()
	defer log.mu.Unlock()
	return append([]string(nil), log.names...)
}

func newTestScheduler(store storage.Store, now time.Time) (*Scheduler, *firedLog) {
	scheduler := New(store, Config{TickInterval: time.Hour, Now: func() time.Time { return now }}, nil)
	fired := &firedLog{}
	scheduler.SetHandler(fired.handle)
	return scheduler, fired
}

func TestArmCancelRoundTrip(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	scheduler, _ := newTestScheduler(storage.NewMemoryStore(), base)

	require.NoError(t, scheduler.Arm(ctx, OneShot("timer_a", base.Add(time.Minute))))
	require.NoError(t, scheduler.Arm(ctx, Repeating("alarm_b", base.Add(2*time.Minute), 24*time.Hour)))

	registration, ok, err := scheduler.Get(ctx, "alarm_b")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, base.Add(2*time.Minute).UnixMilli(), registration.When)
	assert.Equal(t, float64(1440), registration.PeriodInMinutes)

	list, err := scheduler.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "timer_a", list[0].Name)

	require.NoError(t, scheduler.Cancel(ctx, "alarm_b"))
	require.NoError(t, scheduler.Cancel(ctx, "alarm_b"), "cancel is idempotent")
	require.NoError(t, scheduler.Cancel(ctx, "never-armed"))

	_, ok, err = scheduler.Get(ctx, "alarm_b")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArmReplacesByName(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	scheduler, _ := newTestScheduler(storage.NewMemoryStore(), base)

	require.NoError(t, scheduler.Arm(ctx, OneShot("timer_a", base.Add(time.Minute))))
	require.NoError(t, scheduler.Arm(ctx, OneShot("timer_a", base.Add(5*time.Minute))))

	list, err := scheduler.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, base.Add(5*time.Minute).UnixMilli(), list[0].When)
}

func TestTickFiresDueWakesInOrder(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	scheduler, fired := newTestScheduler(storage.NewMemoryStore(), base)

	require.NoError(t, scheduler.Arm(ctx, OneShot("timer_late", base.Add(10*time.Second))))
	require.NoError(t, scheduler.Arm(ctx, OneShot("timer_early", base.Add(5*time.Second))))
	require.NoError(t, scheduler.Arm(ctx, OneShot("timer_future", base.Add(time.Hour))))

	require.NoError(t, scheduler.tick(ctx, base.Add(4*time.Second)))
	assert.Empty(t, fired.snapshot())

	require.NoError(t, scheduler.tick(ctx, base.Add(10*time.Second)))
	assert.Equal(t, []string{"timer_early", "timer_late"}, fired.snapshot())

	list, err := scheduler.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1, "one-shot wakes are removed after firing")
	assert.Equal(t, "timer_future", list[0].Name)
}

func TestTickAdvancesRepeatingWake(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 7, 0, 0, 0, time.UTC)
	scheduler, fired := newTestScheduler(storage.NewMemoryStore(), base)

	require.NoError(t, scheduler.Arm(ctx, Repeating("alarm_a", base, 24*time.Hour)))

	// Three days late: fires once and lands on the next future occurrence.
	now := base.Add(72*time.Hour + time.Minute)
	require.NoError(t, scheduler.tick(ctx, now))
	assert.Equal(t, []string{"alarm_a"}, fired.snapshot())

	registration, ok, err := scheduler.Get(ctx, "alarm_a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, base.Add(96*time.Hour).UnixMilli(), registration.When)

	require.NoError(t, scheduler.tick(ctx, now.Add(time.Hour)))
	assert.Len(t, fired.snapshot(), 1)
}

func TestHandlerMayRearmSameName(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	scheduler := New(storage.NewMemoryStore(), Config{TickInterval: time.Hour}, nil)
	scheduler.SetHandler(func(ctx context.Context, name string) {
		require.NoError(t, scheduler.Arm(ctx, OneShot(name, base.Add(time.Hour))))
	})

	require.NoError(t, scheduler.Arm(ctx, OneShot("timer_a", base)))
	require.NoError(t, scheduler.tick(ctx, base))

	registration, ok, err := scheduler.Get(ctx, "timer_a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, base.Add(time.Hour).UnixMilli(), registration.When)
}

func TestStartFiresPastDueFromStore(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store := storage.NewMemoryStore()

	// A previous process armed the wake and went away before it fired.
	previous, _ := newTestScheduler(store, base)
	require.NoError(t, previous.Arm(ctx, OneShot("timer_a", base.Add(time.Minute))))

	restarted, fired := newTestScheduler(store, base.Add(10*time.Minute))
	restarted.Start(ctx)
	defer restarted.Stop()

	assert.Equal(t, []string{"timer_a"}, fired.snapshot())
	list, err := restarted.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRunLoopTicks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	scheduler := New(storage.NewMemoryStore(), Config{TickInterval: 5 * time.Millisecond, Now: clock}, nil)
	fired := &firedLog{}
	scheduler.SetHandler(fired.handle)
	require.NoError(t, scheduler.Arm(ctx, OneShot("timer_a", now.Add(time.Second))))

	scheduler.Start(ctx)
	defer scheduler.Stop()

	mu.Lock()
	now = now.Add(2 * time.Second)
	mu.Unlock()

	assert.Eventually(t, func() bool {
		return len(fired.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestStopIsIdempotent(t *testing.T) {
	scheduler := New(storage.NewMemoryStore(), Config{}, nil)
	scheduler.Stop()
	scheduler.Start(context.Background())
	scheduler.Stop()
	scheduler.Stop()
}

func TestAdvance(t *testing.T) {
	base := time.Date(2024, 3, 1, 7, 0, 0, 0, time.UTC)
	period := 24 * time.Hour
	registration := Repeating("alarm_a", base, period)

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{name: "exactly due", now: base, want: base.Add(period)},
		{name: "just after", now: base.Add(time.Second), want: base.Add(period)},
		{name: "on next boundary", now: base.Add(period), want: base.Add(2 * period)},
		{name: "before due", now: base.Add(-time.Hour), want: base},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want.UnixMilli(), registration.advance(tt.now).When)
		})
	}

	oneShot := OneShot("timer_a", base)
	assert.Equal(t, oneShot, oneShot.advance(base.Add(time.Hour)))
}
