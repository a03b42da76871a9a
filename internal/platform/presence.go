package platform

import (
	"errors"
	"sync"
	"time"

	"timerpanel/internal/logging"
)

const (
	defaultAwayThreshold = 2 * time.Minute
	defaultPresencePoll  = 2 * time.Second
)

// Presence reports whether someone is at the desktop, judged by idle time.
// It backs the "is there a window to present into" question the engine
// asks before opening the popup.
type Presence struct {
	idle      IdleProvider
	threshold time.Duration
	poll      time.Duration
	logger    logging.Logger
}

// NewPresence creates a Presence. Zero durations fall back to defaults.
func NewPresence(idle IdleProvider, threshold, poll time.Duration, logger logging.Logger) *Presence {
	if threshold <= 0 {
		threshold = defaultAwayThreshold
	}
	if poll <= 0 {
		poll = defaultPresencePoll
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Presence{idle: idle, threshold: threshold, poll: poll, logger: logger}
}

// Away reports whether the user has been idle past the threshold. When
// idle time cannot be read the user is assumed present.
func (presence *Presence) Away() bool {
	if presence.idle == nil {
		return false
	}
	idle, err := presence.idle.IdleDuration()
	if err != nil {
		if !errors.Is(err, ErrIdleUnsupported) {
			presence.logger.Debugf("presence: idle query failed: %v", err)
		}
		return false
	}
	return idle >= presence.threshold
}

// OnReturn calls fn once, on its own goroutine, the first time the user is
// seen present again. cancel stops watching; it is idempotent, never
// blocks and may be called from inside fn.
func (presence *Presence) OnReturn(fn func()) (cancel func()) {
	stopCh := make(chan struct{})
	var once sync.Once
	cancel = func() { once.Do(func() { close(stopCh) }) }

	go func() {
		ticker := time.NewTicker(presence.poll)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				if presence.Away() {
					continue
				}
				select {
				case <-stopCh:
					return
				default:
				}
				cancel()
				fn()
				return
			}
		}
	}()
	return cancel
}
