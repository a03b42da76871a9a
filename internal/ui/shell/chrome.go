package shell

import (
	"context"
	"errors"
	"sync"

	"fyne.io/fyne/v2"

	"timerpanel/internal/core/engine"
)

// ErrNoPopup is returned by OpenPopup before a popup has been assigned.
var ErrNoPopup = errors.New("no popup assigned")

// Badge shows short text over the tray icon.
type Badge interface {
	SetBadge(text, colour string)
}

// Popup is the finished-items window.
type Popup interface {
	Show()
	Hide()
}

// Presence tells whether someone is at the screen and when they return.
type Presence interface {
	Away() bool
	OnReturn(fn func()) (cancel func())
}

// Chrome puts engine presentation calls on the desktop: the tray badge,
// the popup window and the idle-based focus check.
type Chrome struct {
	badge    Badge
	popup    Popup
	presence Presence
	run      func(func())

	mu       sync.Mutex
	assigned bool
}

// New creates a Chrome that runs widget calls through fyne.Do.
func New(badge Badge, popup Popup, presence Presence) *Chrome {
	return NewWithRunner(badge, popup, presence, fyne.Do)
}

// NewWithRunner creates a Chrome that hands widget calls to run.
func NewWithRunner(badge Badge, popup Popup, presence Presence, run func(func())) *Chrome {
	return &Chrome{badge: badge, popup: popup, presence: presence, run: run}
}

var _ engine.Chrome = (*Chrome)(nil)

func (chrome *Chrome) SetPopup(ctx context.Context, enabled bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	chrome.mu.Lock()
	chrome.assigned = enabled
	chrome.mu.Unlock()
	if !enabled {
		chrome.run(chrome.popup.Hide)
	}
	return nil
}

func (chrome *Chrome) OpenPopup(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	chrome.mu.Lock()
	assigned := chrome.assigned
	chrome.mu.Unlock()
	if !assigned {
		return ErrNoPopup
	}
	if chrome.presence != nil && chrome.presence.Away() {
		return engine.ErrNoFocusedWindow
	}
	chrome.run(chrome.popup.Show)
	return nil
}

func (chrome *Chrome) SetBadge(ctx context.Context, text, colour string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	chrome.run(func() { chrome.badge.SetBadge(text, colour) })
	return nil
}

func (chrome *Chrome) AddFocusListener(fn func()) (remove func()) {
	if chrome.presence == nil {
		return func() {}
	}
	return chrome.presence.OnReturn(fn)
}

// ShowPopup opens the popup on request from the tray, if one is assigned.
func (chrome *Chrome) ShowPopup() {
	chrome.mu.Lock()
	assigned := chrome.assigned
	chrome.mu.Unlock()
	if assigned {
		chrome.run(chrome.popup.Show)
	}
}
