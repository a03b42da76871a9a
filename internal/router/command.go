package router

import (
	"errors"
	"fmt"

	"timerpanel/internal/core/model"
)

// ErrUnknownCommand is returned for command names outside the closed set.
var ErrUnknownCommand = errors.New("unknown command")

// UnknownCommandMessage is the response message surfaces match on.
const UnknownCommandMessage = "Unknown command"

// Command is one decoded request. The set is closed: only types in this
// file implement it, and Dispatch handles each of them.
type Command interface {
	Name() string
	command()
}

type AddTimer struct {
	Minutes float64 `json:"minutes,omitempty" cbor:"minutes,omitempty"`
}

type DeleteTimer struct {
	ID string `json:"id" cbor:"id"`
}

type UpdateTimerTime struct {
	ID           string `json:"id" cbor:"id"`
	TotalSeconds int64  `json:"totalSeconds" cbor:"totalSeconds"`
}

type UpdateTimerName struct {
	ID      string `json:"id" cbor:"id"`
	NewName string `json:"newName" cbor:"newName"`
}

type PauseTimer struct {
	ID string `json:"id" cbor:"id"`
}

type ResumeTimer struct {
	ID string `json:"id" cbor:"id"`
}

type ResetTimer struct {
	ID string `json:"id" cbor:"id"`
}

type AddAlarm struct{}

type DeleteAlarm struct {
	ID string `json:"id" cbor:"id"`
}

type UpdateAlarmTime struct {
	ID   string `json:"id" cbor:"id"`
	Time string `json:"time" cbor:"time"`
}

type UpdateAlarmName struct {
	ID      string `json:"id" cbor:"id"`
	NewName string `json:"newName" cbor:"newName"`
}

type ToggleAlarm struct {
	ID       string `json:"id" cbor:"id"`
	IsActive bool   `json:"isActive" cbor:"isActive"`
}

type ReorderItems struct {
	Type     model.ItemType `json:"type" cbor:"type"`
	OrderIDs []string       `json:"orderIds" cbor:"orderIds"`
}

type GetTimers struct{}

type GetFinishedItems struct{}

type ResetFinishedItems struct{}

type ResetFinishedAlarm struct {
	ID string `json:"id" cbor:"id"`
}

type StopSoundOnly struct{}

type UpdateVolume struct {
	Volume int `json:"volume" cbor:"volume"`
}

type UpdateActiveMode struct {
	Mode model.Mode `json:"mode" cbor:"mode"`
}

func (*AddTimer) Name() string           { return "addTimer" }
func (*DeleteTimer) Name() string        { return "deleteTimer" }
func (*UpdateTimerTime) Name() string    { return "updateTimerTime" }
func (*UpdateTimerName) Name() string    { return "updateTimerName" }
func (*PauseTimer) Name() string         { return "pauseTimer" }
func (*ResumeTimer) Name() string        { return "resumeTimer" }
func (*ResetTimer) Name() string         { return "resetTimer" }
func (*AddAlarm) Name() string           { return "addAlarm" }
func (*DeleteAlarm) Name() string        { return "deleteAlarm" }
func (*UpdateAlarmTime) Name() string    { return "updateAlarmTime" }
func (*UpdateAlarmName) Name() string    { return "updateAlarmName" }
func (*ToggleAlarm) Name() string        { return "toggleAlarm" }
func (*ReorderItems) Name() string       { return "reorderItems" }
func (*GetTimers) Name() string          { return "getTimers" }
func (*GetFinishedItems) Name() string   { return "getFinishedItems" }
func (*ResetFinishedItems) Name() string { return "resetFinishedItems" }
func (*ResetFinishedAlarm) Name() string { return "resetFinishedAlarm" }
func (*StopSoundOnly) Name() string      { return "stopSoundOnly" }
func (*UpdateVolume) Name() string       { return "updateVolume" }
func (*UpdateActiveMode) Name() string   { return "updateActiveMode" }

func (*AddTimer) command()           {}
func (*DeleteTimer) command()        {}
func (*UpdateTimerTime) command()    {}
func (*UpdateTimerName) command()    {}
func (*PauseTimer) command()         {}
func (*ResumeTimer) command()        {}
func (*ResetTimer) command()         {}
func (*AddAlarm) command()           {}
func (*DeleteAlarm) command()        {}
func (*UpdateAlarmTime) command()    {}
func (*UpdateAlarmName) command()    {}
func (*ToggleAlarm) command()        {}
func (*ReorderItems) command()       {}
func (*GetTimers) command()          {}
func (*GetFinishedItems) command()   {}
func (*ResetFinishedItems) command() {}
func (*ResetFinishedAlarm) command() {}
func (*StopSoundOnly) command()      {}
func (*UpdateVolume) command()       {}
func (*UpdateActiveMode) command()   {}

var commands = []func() Command{
	func() Command { return &AddTimer{} },
	func() Command { return &DeleteTimer{} },
	func() Command { return &UpdateTimerTime{} },
	func() Command { return &UpdateTimerName{} },
	func() Command { return &PauseTimer{} },
	func() Command { return &ResumeTimer{} },
	func() Command { return &ResetTimer{} },
	func() Command { return &AddAlarm{} },
	func() Command { return &DeleteAlarm{} },
	func() Command { return &UpdateAlarmTime{} },
	func() Command { return &UpdateAlarmName{} },
	func() Command { return &ToggleAlarm{} },
	func() Command { return &ReorderItems{} },
	func() Command { return &GetTimers{} },
	func() Command { return &GetFinishedItems{} },
	func() Command { return &ResetFinishedItems{} },
	func() Command { return &ResetFinishedAlarm{} },
	func() Command { return &StopSoundOnly{} },
	func() Command { return &UpdateVolume{} },
	func() Command { return &UpdateActiveMode{} },
}

var byName = func() map[string]func() Command {
	index := make(map[string]func() Command, len(commands))
	for _, factory := range commands {
		index[factory().Name()] = factory
	}
	return index
}()

// Names lists every accepted command name.
func Names() []string {
	names := make([]string, 0, len(commands))
	for _, factory := range commands {
		names = append(names, factory().Name())
	}
	return names
}

// Decode builds the command called name, filling it through decode.
// decode receives a pointer to the command struct and may be nil for
// commands sent without a payload.
func Decode(name string, decode func(target any) error) (Command, error) {
	factory, ok := byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
	cmd := factory()
	if decode != nil {
		if err := decode(cmd); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
	}
	return cmd, nil
}
