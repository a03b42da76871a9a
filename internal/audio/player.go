package audio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"timerpanel/internal/core/engine"
	"timerpanel/internal/logging"
)

// loopGap separates repetitions of a looping sound.
const loopGap = 300 * time.Millisecond

// Runner plays a sound file once and blocks until it ends or ctx is done.
type Runner interface {
	Run(ctx context.Context, file string, volume int) error
}

// Resolver turns a sound source into a playable file path.
type Resolver func(source string) (string, error)

// Player is the play/stop actuator behind playSound and stopSound events.
// At most one sound plays at a time.
type Player struct {
	runner  Runner
	resolve Resolver
	logger  logging.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPlayer creates a Player. A nil resolve uses the source as a path.
func NewPlayer(runner Runner, resolve Resolver, logger logging.Logger) *Player {
	if resolve == nil {
		resolve = func(source string) (string, error) { return source, nil }
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Player{runner: runner, resolve: resolve, logger: logger}
}

// Run consumes events until the channel closes or ctx is done, then stops
// whatever is playing.
func (player *Player) Run(ctx context.Context, events <-chan engine.Event) {
	defer player.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			player.handle(ctx, event)
		}
	}
}

func (player *Player) handle(ctx context.Context, event engine.Event) {
	switch event.Type {
	case engine.EventPlaySound:
		if event.Sound == nil {
			return
		}
		if err := player.Play(ctx, *event.Sound); err != nil {
			player.logger.Errorf("audio: %v", err)
		}
	case engine.EventStopSound:
		player.Stop()
	}
}

// Play replaces the current sound with request.
func (player *Player) Play(ctx context.Context, request engine.SoundRequest) error {
	file, err := player.resolve(request.Source)
	if err != nil {
		return fmt.Errorf("resolve sound %s: %w", request.Source, err)
	}

	player.Stop()

	playCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	player.mu.Lock()
	player.cancel = cancel
	player.done = done
	player.mu.Unlock()

	go func() {
		defer close(done)
		player.loop(playCtx, file, request)
	}()
	return nil
}

func (player *Player) loop(ctx context.Context, file string, request engine.SoundRequest) {
	for {
		err := player.runner.Run(ctx, file, request.Volume)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			player.logger.Warnf("audio: play %s: %v", file, err)
			return
		}
		if !request.Loop {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(loopGap):
		}
	}
}

// Stop silences the current sound and waits for playback to end. Stopping
// with nothing playing is a no-op.
func (player *Player) Stop() {
	player.mu.Lock()
	cancel, done := player.cancel, player.done
	player.cancel, player.done = nil, nil
	player.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Playing reports whether a sound is active.
func (player *Player) Playing() bool {
	player.mu.Lock()
	done := player.done
	player.mu.Unlock()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}
