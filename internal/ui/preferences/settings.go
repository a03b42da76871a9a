package preferences

import (
	"timerpanel/internal/core/model"
	"timerpanel/internal/router"
)

// Settings defines editable user preferences.
type Settings struct {
	Volume int
	Mode   model.Mode
}

// DefaultSettings returns the settings of a fresh install.
func DefaultSettings() Settings {
	return Settings{
		Volume: model.DefaultVolume,
		Mode:   model.ModeTimer,
	}
}

// Commands converts settings into the router commands that persist them.
// Only values that differ from previous are included.
func (settings Settings) Commands(previous Settings) []router.Command {
	var commands []router.Command
	volume := model.ClampVolume(settings.Volume)
	if volume != previous.Volume {
		commands = append(commands, &router.UpdateVolume{Volume: volume})
	}
	if settings.Mode.Valid() && settings.Mode != previous.Mode {
		commands = append(commands, &router.UpdateActiveMode{Mode: settings.Mode})
	}
	return commands
}
