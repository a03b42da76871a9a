package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"timerpanel/internal/core/wake"
	"timerpanel/internal/logging"
	"timerpanel/internal/storage"
)

// ErrNoFocusedWindow is returned by Chrome.OpenPopup when nobody is looking
// at the screen. The engine falls back to the badge and waits for focus.
var ErrNoFocusedWindow = errors.New("no focused window")

// Scheduler arms and cancels named wakes.
type Scheduler interface {
	Arm(ctx context.Context, registration wake.Registration) error
	Cancel(ctx context.Context, name string) error
}

// Publisher delivers events to zero or more attached surfaces.
type Publisher interface {
	Publish(event Event)
}

// Chrome is the notification surface owned by the desktop shell.
type Chrome interface {
	// SetPopup assigns or clears the finished-items popup.
	SetPopup(ctx context.Context, enabled bool) error
	// OpenPopup shows the assigned popup or returns ErrNoFocusedWindow.
	OpenPopup(ctx context.Context) error
	// SetBadge shows text on the tray icon; empty text clears it.
	SetBadge(ctx context.Context, text, color string) error
	// AddFocusListener calls fn when the user is back. The returned func
	// unregisters it and must be safe to call more than once.
	AddFocusListener(fn func()) (remove func())
}

// Config contains runtime options for the Engine.
type Config struct {
	SoundSource string
	BadgeText   string
	BadgeColor  string
	Now         func() time.Time
}

// Engine is the authoritative owner of timers, alarms and finished items.
// Every operation re-reads the store; only presentation lives in memory.
type Engine struct {
	store     storage.Store
	scheduler Scheduler
	publisher Publisher
	chrome    Chrome
	options   Config
	logger    logging.Logger

	mu           sync.Mutex
	presentation Presentation
	removeFocus  func()
	serialize    func(func())
}

// New creates an Engine. A nil publisher or chrome is replaced by a no-op.
func New(store storage.Store, scheduler Scheduler, publisher Publisher, chrome Chrome, options Config, logger logging.Logger) *Engine {
	if options.Now == nil {
		options.Now = time.Now
	}
	if options.BadgeText == "" {
		options.BadgeText = "!"
	}
	if options.BadgeColor == "" {
		options.BadgeColor = "#FF0000"
	}
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if chrome == nil {
		chrome = nopChrome{}
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Engine{
		store:     store,
		scheduler: scheduler,
		publisher: publisher,
		chrome:    chrome,
		options:   options,
		logger:    logger,
		serialize: func(fn func()) { fn() },
	}
}

// SetSerializer routes work the engine starts by itself, the focus retry,
// through run so it takes turns with commands and fired wakes.
func (engine *Engine) SetSerializer(run func(func())) {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if run == nil {
		run = func(fn func()) { fn() }
	}
	engine.serialize = run
}

// WakeHandler adapts HandleWake to the scheduler's handler signature.
func (engine *Engine) WakeHandler() wake.Handler {
	return func(ctx context.Context, name string) {
		if err := engine.HandleWake(ctx, name); err != nil {
			engine.logger.Errorf("engine: handle wake %s: %v", name, err)
		}
	}
}

func (engine *Engine) now() time.Time {
	return engine.options.Now()
}

func (engine *Engine) publish(event Event) {
	engine.publisher.Publish(event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(Event) {}
