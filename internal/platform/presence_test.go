package platform

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIdle struct {
	mu   sync.Mutex
	idle time.Duration
	err  error
}

func (f *fakeIdle) IdleDuration() (time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.idle, f.err
}

func (f *fakeIdle) set(idle time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.idle = idle
}

func TestPresenceAway(t *testing.T) {
	tests := []struct {
		name string
		idle time.Duration
		err  error
		want bool
	}{
		{name: "active", idle: 5 * time.Second, want: false},
		{name: "idle past threshold", idle: 3 * time.Minute, want: true},
		{name: "exactly threshold", idle: time.Minute, want: true},
		{name: "unsupported", err: ErrIdleUnsupported, want: false},
		{name: "query failure", err: errors.New("boom"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			presence := NewPresence(&fakeIdle{idle: tt.idle, err: tt.err}, time.Minute, 0, nil)
			assert.Equal(t, tt.want, presence.Away())
		})
	}
}

func TestPresenceWithoutProviderIsPresent(t *testing.T) {
	assert.False(t, NewPresence(nil, 0, 0, nil).Away())
}

func TestOnReturnFiresOnce(t *testing.T) {
	idle := &fakeIdle{idle: time.Hour}
	presence := NewPresence(idle, time.Minute, 5*time.Millisecond, nil)

	var calls atomic.Int32
	cancel := presence.OnReturn(func() { calls.Add(1) })
	defer cancel()

	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, calls.Load())

	idle.set(0)
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestOnReturnCancel(t *testing.T) {
	idle := &fakeIdle{idle: time.Hour}
	presence := NewPresence(idle, time.Minute, 5*time.Millisecond, nil)

	var calls atomic.Int32
	cancel := presence.OnReturn(func() { calls.Add(1) })
	cancel()
	cancel()

	idle.set(0)
	time.Sleep(40 * time.Millisecond)
	assert.Zero(t, calls.Load())
}

func TestOnReturnCancelInsideCallback(t *testing.T) {
	presence := NewPresence(&fakeIdle{}, time.Minute, 5*time.Millisecond, nil)

	done := make(chan struct{})
	var cancel func()
	var mu sync.Mutex
	mu.Lock()
	cancel = presence.OnReturn(func() {
		mu.Lock()
		defer mu.Unlock()
		cancel()
		close(done)
	})
	mu.Unlock()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("callback did not run")
	}
}

func TestParseIdle(t *testing.T) {
	idle, err := parseIdle([]byte("1500\n"), time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, idle)

	_, err = parseIdle([]byte("soon"), time.Millisecond)
	assert.Error(t, err)
}

func TestSingleInstance(t *testing.T) {
	guard, err := AcquireAddress("127.0.0.1:0")
	require.NoError(t, err)
	require.NotNil(t, guard.Listener())

	_, err = AcquireAddress(guard.Address())
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	require.NoError(t, guard.Release())
	require.NoError(t, guard.Release())

	again, err := AcquireAddress(guard.Address())
	require.NoError(t, err)
	require.NoError(t, again.Release())
}

func TestAddressForIsStable(t *testing.T) {
	assert.Equal(t, AddressFor("timerpanel"), AddressFor("timerpanel"))
	port := portFromName("timerpanel")
	assert.GreaterOrEqual(t, port, 20000)
	assert.LessOrEqual(t, port, 39999)
}
