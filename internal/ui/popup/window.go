package popup

import (
	"fmt"
	"image/color"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"

	"timerpanel/internal/core/model"
)

// Actions defines popup button handlers. They are called on the UI thread
// and should hand work off to a goroutine.
type Actions struct {
	OnStopAll func()
	OnMute    func()
	OnDismiss func(id string)
}

// Window is the finished-items popup.
type Window struct {
	window     fyne.Window
	title      *canvas.Text
	list       *fyne.Container
	stopButton *widget.Button
	muteButton *widget.Button
	actions    Actions
	items      []model.FinishedItem
	visible    bool
}

const (
	popupWidth  = float32(360)
	popupHeight = float32(220)
)

var accent = color.NRGBA{R: 232, G: 190, B: 66, A: 255}

type splashWindowDriver interface {
	CreateSplashWindow() fyne.Window
}

// New creates the popup window, hidden.
func New(app fyne.App, actions Actions) *Window {
	window := app.NewWindow("Finished")
	if driver, ok := app.Driver().(splashWindowDriver); ok {
		// Splash window is undecorated (no native frame/buttons).
		window = driver.CreateSplashWindow()
	}
	if app.Icon() != nil {
		window.SetIcon(app.Icon())
	}

	title := canvas.NewText("", accent)
	title.TextStyle = fyne.TextStyle{Bold: true}
	title.TextSize = 18

	popup := &Window{
		window:  window,
		title:   title,
		list:    container.NewVBox(),
		actions: actions,
	}

	popup.stopButton = widget.NewButton("Stop", func() {
		if popup.actions.OnStopAll != nil {
			popup.actions.OnStopAll()
		}
	})
	popup.stopButton.Importance = widget.HighImportance
	popup.muteButton = widget.NewButton("Mute", func() {
		if popup.actions.OnMute != nil {
			popup.actions.OnMute()
		}
	})

	buttons := container.NewHBox(popup.muteButton, layout.NewSpacer(), popup.stopButton)
	content := container.NewBorder(title, buttons, nil, nil, container.NewVScroll(popup.list))
	window.SetContent(container.NewPadded(content))
	window.SetCloseIntercept(popup.Hide)
	window.Resize(fyne.NewSize(popupWidth, popupHeight))

	popup.SetItems(nil)
	return popup
}

// SetItems replaces the listed items. Call on the UI thread.
func (popup *Window) SetItems(items []model.FinishedItem) {
	popup.items = items
	popup.title.Text = heading(items)
	popup.title.Refresh()

	popup.list.RemoveAll()
	for _, item := range items {
		popup.list.Add(popup.row(item))
	}
	popup.list.Refresh()

	if len(items) == 0 {
		popup.stopButton.Disable()
		popup.muteButton.Disable()
	} else {
		popup.stopButton.Enable()
		popup.muteButton.Enable()
	}
}

func (popup *Window) row(item model.FinishedItem) fyne.CanvasObject {
	label := widget.NewLabel(finishedLine(item))
	label.Wrapping = fyne.TextWrapWord
	if item.Type != model.TypeAlarm {
		return label
	}
	id := item.ID
	dismiss := widget.NewButton("Dismiss", func() {
		if popup.actions.OnDismiss != nil {
			popup.actions.OnDismiss(id)
		}
	})
	return container.NewBorder(nil, nil, nil, dismiss, label)
}

// Show raises the popup. Call on the UI thread.
func (popup *Window) Show() {
	popup.visible = true
	popup.window.CenterOnScreen()
	popup.window.Show()
	popup.window.RequestFocus()
}

// Hide closes the popup without acknowledging anything.
func (popup *Window) Hide() {
	popup.visible = false
	popup.window.Hide()
}

// Visible reports whether Show was called more recently than Hide.
func (popup *Window) Visible() bool {
	return popup.visible
}

func heading(items []model.FinishedItem) string {
	switch len(items) {
	case 0:
		return "Nothing finished"
	case 1:
		return "1 item finished"
	default:
		return fmt.Sprintf("%d items finished", len(items))
	}
}

func finishedLine(item model.FinishedItem) string {
	if item.FinishedAt == 0 {
		return item.Message()
	}
	at := time.UnixMilli(item.FinishedAt).Format("15:04")
	return fmt.Sprintf("%s (%s)", item.Message(), at)
}
