package preferences

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"

	"timerpanel/internal/core/model"
)

var modeLabels = map[model.Mode]string{
	model.ModeTimer: "Timers",
	model.ModeAlarm: "Alarms",
}

// Window handles the preferences UI.
type Window struct {
	window      fyne.Window
	settings    Settings
	onSave      func(Settings)
	onTest      func(volume int)
	volume      *widget.Slider
	volumeLabel *widget.Label
	mode        *widget.RadioGroup
}

// New creates a preferences window. onTest, if set, plays the alarm at the
// slider volume.
func New(app fyne.App, settings Settings, onSave func(Settings), onTest func(volume int)) *Window {
	window := app.NewWindow("Timer Panel Settings")

	volumeLabel := widget.NewLabel("")
	volume := widget.NewSlider(0, 100)
	volume.Step = 1
	volume.OnChanged = func(value float64) {
		volumeLabel.SetText(fmt.Sprintf("%d%%", int(value)))
	}

	mode := widget.NewRadioGroup([]string{modeLabels[model.ModeTimer], modeLabels[model.ModeAlarm]}, nil)
	mode.Horizontal = true

	prefs := &Window{
		window:      window,
		onSave:      onSave,
		onTest:      onTest,
		volume:      volume,
		volumeLabel: volumeLabel,
		mode:        mode,
	}

	testButton := widget.NewButton("Test sound", func() {
		if prefs.onTest != nil {
			prefs.onTest(int(prefs.volume.Value))
		}
	})

	form := container.NewVBox(
		widget.NewLabelWithStyle("Sound", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewBorder(nil, nil, widget.NewLabel("Volume"), volumeLabel, volume),
		testButton,
		widget.NewLabelWithStyle("Panel", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewHBox(widget.NewLabel("Open on"), mode),
	)

	saveButton := widget.NewButton("Save", prefs.handleSave)
	cancelButton := widget.NewButton("Cancel", func() {
		window.Hide()
		prefs.UpdateSettings(prefs.settings)
	})
	buttons := container.NewHBox(saveButton, layout.NewSpacer(), cancelButton)

	window.SetContent(container.NewBorder(nil, buttons, nil, nil, form))
	window.SetCloseIntercept(window.Hide)
	window.Resize(fyne.NewSize(360, 240))

	prefs.UpdateSettings(settings)
	return prefs
}

// Show displays the preferences window.
func (prefs *Window) Show() {
	prefs.window.Show()
	prefs.window.RequestFocus()
}

// UpdateSettings replaces window values. Call on the UI thread.
func (prefs *Window) UpdateSettings(settings Settings) {
	prefs.settings = settings
	prefs.volume.SetValue(float64(settings.Volume))
	prefs.volumeLabel.SetText(fmt.Sprintf("%d%%", settings.Volume))
	prefs.mode.SetSelected(modeLabels[settings.Mode])
}

func (prefs *Window) handleSave() {
	settings := prefs.settings
	settings.Volume = model.ClampVolume(int(prefs.volume.Value))
	for mode, label := range modeLabels {
		if label == prefs.mode.Selected {
			settings.Mode = mode
		}
	}

	previous := prefs.settings
	prefs.settings = settings
	prefs.window.Hide()
	if prefs.onSave != nil && settings != previous {
		prefs.onSave(settings)
	}
}
