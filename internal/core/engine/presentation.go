package engine

import (
	"context"
	"errors"
)

// Presentation is the derived notification mode.
type Presentation int

const (
	// PresentationIdle means nothing is finished: no badge, no popup.
	PresentationIdle Presentation = iota
	// PresentationAwaitingFocus means the popup could not be shown; the
	// badge is up and a focus listener will retry once.
	PresentationAwaitingFocus
	// PresentationPresented means the popup is on screen.
	PresentationPresented
)

func (presentation Presentation) String() string {
	switch presentation {
	case PresentationIdle:
		return "idle"
	case PresentationAwaitingFocus:
		return "awaiting-focus"
	case PresentationPresented:
		return "presented"
	default:
		return "unknown"
	}
}

// Presentation returns the current notification mode.
func (engine *Engine) Presentation() Presentation {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.presentation
}

// present tries the popup and falls back to the badge plus a one-shot
// focus retry when nobody is at the screen.
func (engine *Engine) present(ctx context.Context) {
	err := engine.openPopup(ctx)
	switch {
	case err == nil:
		engine.setPresentation(PresentationPresented)
	case errors.Is(err, ErrNoFocusedWindow):
		engine.logger.Infof("engine: no focused window, showing badge until focus returns")
		if err := engine.chrome.SetBadge(ctx, engine.options.BadgeText, engine.options.BadgeColor); err != nil {
			engine.logger.Errorf("engine: set badge: %v", err)
		}
		engine.armFocusRetry(context.WithoutCancel(ctx))
		engine.setPresentation(PresentationAwaitingFocus)
	default:
		engine.logger.Errorf("engine: open popup: %v", err)
	}
}

func (engine *Engine) openPopup(ctx context.Context) error {
	if err := engine.chrome.SetPopup(ctx, true); err != nil {
		return err
	}
	return engine.chrome.OpenPopup(ctx)
}

func (engine *Engine) armFocusRetry(ctx context.Context) {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.removeFocus != nil {
		return
	}
	run := engine.serialize
	engine.removeFocus = engine.chrome.AddFocusListener(func() {
		run(func() { engine.retryPresentation(ctx) })
	})
}

func (engine *Engine) disarmFocusRetry() {
	engine.mu.Lock()
	remove := engine.removeFocus
	engine.removeFocus = nil
	engine.mu.Unlock()
	if remove != nil {
		remove()
	}
}

// retryPresentation runs once when the user returns. The listener is
// removed whatever the outcome; the badge stays if the popup fails again.
func (engine *Engine) retryPresentation(ctx context.Context) {
	engine.disarmFocusRetry()
	if engine.Presentation() != PresentationAwaitingFocus {
		return
	}

	st, err := engine.load(ctx)
	if err != nil {
		engine.logger.Errorf("engine: focus retry: %v", err)
		return
	}
	if st.finishedCount() == 0 {
		return
	}
	if err := engine.openPopup(ctx); err != nil {
		engine.logger.Errorf("engine: focus retry: open popup: %v", err)
		return
	}
	if err := engine.chrome.SetBadge(ctx, "", ""); err != nil {
		engine.logger.Errorf("engine: clear badge: %v", err)
	}
	engine.setPresentation(PresentationPresented)

	// An acknowledgement may have emptied the collections while the popup
	// was opening.
	st, err = engine.load(ctx)
	if err != nil {
		engine.logger.Errorf("engine: focus retry: %v", err)
		return
	}
	if st.finishedCount() == 0 {
		engine.clearPresentation(ctx)
	}
}

// reconcileFinished clears the presentation when an operation emptied the
// finished collections.
func (engine *Engine) reconcileFinished(ctx context.Context, before, after int) {
	if before > 0 && after == 0 {
		engine.clearPresentation(ctx)
	}
}

func (engine *Engine) clearPresentation(ctx context.Context) {
	engine.publish(Event{Type: EventStopSound})
	if err := engine.chrome.SetPopup(ctx, false); err != nil {
		engine.logger.Errorf("engine: clear popup: %v", err)
	}
	if err := engine.chrome.SetBadge(ctx, "", ""); err != nil {
		engine.logger.Errorf("engine: clear badge: %v", err)
	}
	engine.disarmFocusRetry()
	engine.setPresentation(PresentationIdle)
}

func (engine *Engine) setPresentation(presentation Presentation) {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	engine.presentation = presentation
}

type nopChrome struct{}

func (nopChrome) SetPopup(context.Context, bool) error           { return nil }
func (nopChrome) OpenPopup(context.Context) error                { return nil }
func (nopChrome) SetBadge(context.Context, string, string) error { return nil }
func (nopChrome) AddFocusListener(func()) func()                 { return func() {} }
