package wake

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"timerpanel/internal/logging"
	"timerpanel/internal/storage"
)

// Handler receives the name of every wake that fires.
type Handler func(ctx context.Context, name string)

// Config contains runtime options for the Scheduler.
type Config struct {
	TickInterval time.Duration
	Now          func() time.Time
}

// Scheduler fires named wakes at absolute times. Registrations live in the
// store, so a restarted process picks them up again and fires the ones it
// missed while it was down.
type Scheduler struct {
	mu      sync.Mutex
	store   storage.Store
	options Config
	handler Handler
	logger  logging.Logger
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// New creates a Scheduler persisting to store.
func New(store storage.Store, options Config, logger logging.Logger) *Scheduler {
	if options.TickInterval <= 0 {
		options.TickInterval = time.Second
	}
	if options.Now == nil {
		options.Now = time.Now
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Scheduler{
		store:   store,
		options: options,
		logger:  logger,
	}
}

// SetHandler injects the callback invoked for fired wakes.
func (scheduler *Scheduler) SetHandler(handler Handler) {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	scheduler.handler = handler
}

// Arm registers or replaces the wake with the registration's name.
func (scheduler *Scheduler) Arm(ctx context.Context, registration Registration) error {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()

	wakes, err := scheduler.loadLocked(ctx)
	if err != nil {
		return err
	}
	wakes[registration.Name] = registration
	return scheduler.saveLocked(ctx, wakes)
}

// Cancel removes the named wake. Cancelling an unknown name is a no-op.
func (scheduler *Scheduler) Cancel(ctx context.Context, name string) error {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()

	wakes, err := scheduler.loadLocked(ctx)
	if err != nil {
		return err
	}
	if _, ok := wakes[name]; !ok {
		return nil
	}
	delete(wakes, name)
	return scheduler.saveLocked(ctx, wakes)
}

// Get returns the named registration.
func (scheduler *Scheduler) Get(ctx context.Context, name string) (Registration, bool, error) {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()

	wakes, err := scheduler.loadLocked(ctx)
	if err != nil {
		return Registration{}, false, err
	}
	registration, ok := wakes[name]
	return registration, ok, nil
}

// List returns all registrations ordered by their next firing time.
func (scheduler *Scheduler) List(ctx context.Context) ([]Registration, error) {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()

	wakes, err := scheduler.loadLocked(ctx)
	if err != nil {
		return nil, err
	}
	return sortedRegistrations(wakes), nil
}

// Start fires anything already due and launches the ticking loop.
func (scheduler *Scheduler) Start(ctx context.Context) {
	scheduler.mu.Lock()
	if scheduler.running {
		scheduler.mu.Unlock()
		return
	}
	scheduler.running = true
	scheduler.stopCh = make(chan struct{})
	scheduler.doneCh = make(chan struct{})
	scheduler.mu.Unlock()

	if err := scheduler.tick(ctx, scheduler.options.Now()); err != nil {
		scheduler.logger.Errorf("wake: initial tick: %v", err)
	}

	go scheduler.run(ctx)
}

// Stop terminates the ticking loop and waits for it to exit.
func (scheduler *Scheduler) Stop() {
	scheduler.mu.Lock()
	if !scheduler.running {
		scheduler.mu.Unlock()
		return
	}
	scheduler.running = false
	close(scheduler.stopCh)
	done := scheduler.doneCh
	scheduler.mu.Unlock()

	<-done
}

func (scheduler *Scheduler) run(ctx context.Context) {
	defer close(scheduler.doneCh)

	ticker := time.NewTicker(scheduler.options.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-scheduler.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := scheduler.tick(ctx, scheduler.options.Now()); err != nil {
				scheduler.logger.Errorf("wake: tick: %v", err)
			}
		}
	}
}

// tick fires every registration due at now. One-shot wakes are removed and
// repeating ones advanced before any handler runs, so a handler that re-arms
// the same name is not overwritten.
func (scheduler *Scheduler) tick(ctx context.Context, now time.Time) error {
	scheduler.mu.Lock()
	wakes, err := scheduler.loadLocked(ctx)
	if err != nil {
		scheduler.mu.Unlock()
		return err
	}

	var due []Registration
	for _, registration := range sortedRegistrations(wakes) {
		if registration.At().After(now) {
			continue
		}
		due = append(due, registration)
		if registration.Period() > 0 {
			wakes[registration.Name] = registration.advance(now)
		} else {
			delete(wakes, registration.Name)
		}
	}
	if len(due) > 0 {
		if err := scheduler.saveLocked(ctx, wakes); err != nil {
			scheduler.mu.Unlock()
			return err
		}
	}
	handler := scheduler.handler
	scheduler.mu.Unlock()

	for _, registration := range due {
		scheduler.logger.Debugf("wake: firing %s (due %s)", registration.Name, registration.At().Format(time.RFC3339))
		if handler != nil {
			handler(ctx, registration.Name)
		}
	}
	return nil
}

func (scheduler *Scheduler) loadLocked(ctx context.Context) (map[string]Registration, error) {
	values, err := scheduler.store.Get(ctx, StoreKey)
	if err != nil {
		return nil, fmt.Errorf("load wakes: %w", err)
	}
	wakes := make(map[string]Registration)
	if _, err := storage.Decode(values, StoreKey, &wakes); err != nil {
		return nil, fmt.Errorf("load wakes: %w", err)
	}
	if wakes == nil {
		wakes = make(map[string]Registration)
	}
	return wakes, nil
}

func (scheduler *Scheduler) saveLocked(ctx context.Context, wakes map[string]Registration) error {
	if err := scheduler.store.Set(ctx, map[string]any{StoreKey: wakes}); err != nil {
		return fmt.Errorf("save wakes: %w", err)
	}
	return nil
}

func sortedRegistrations(wakes map[string]Registration) []Registration {
	list := make([]Registration, 0, len(wakes))
	for _, registration := range wakes {
		list = append(list, registration)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].When != list[j].When {
			return list[i].When < list[j].When
		}
		return list[i].Name < list[j].Name
	})
	return list
}
