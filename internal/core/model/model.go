package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ItemType distinguishes timers from alarms.
type ItemType string

const (
	TypeTimer ItemType = "timer"
	TypeAlarm ItemType = "alarm"
)

// Mode is the panel tab the user looked at last. Only surfaces read it.
type Mode string

const (
	ModeTimer Mode = "timer"
	ModeAlarm Mode = "alarm"
)

// Valid reports whether the mode is one of the known tabs.
func (mode Mode) Valid() bool {
	return mode == ModeTimer || mode == ModeAlarm
}

// Defaults applied by the engine.
const (
	DefaultTimerMinutes = 3
	DefaultVolume       = 50
	DefaultAlarmTime    = "00:00"
	AlarmPeriod         = 24 * time.Hour
)

const (
	timerPrefix = "timer_"
	alarmPrefix = "alarm_"
)

// Timer is a single countdown.
//
// While IsRunning is true EndTime is authoritative and RemainingTime is stale.
// All durations and timestamps are milliseconds.
type Timer struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	OriginalDuration int64  `json:"originalDuration"`
	RemainingTime    int64  `json:"remainingTime"`
	IsRunning        bool   `json:"isRunning"`
	EndTime          *int64 `json:"endTime"`
	Order            int    `json:"order"`
}

// Remaining returns the milliseconds left at now, never negative.
func (timer *Timer) Remaining(now time.Time) int64 {
	remaining := timer.RemainingTime
	if timer.IsRunning && timer.EndTime != nil {
		remaining = *timer.EndTime - now.UnixMilli()
	}
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Alarm is a daily wall-clock trigger.
type Alarm struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Time     string `json:"time"`
	IsActive bool   `json:"isActive"`
	Order    int    `json:"order"`
}

// FinishedItem is a completed timer or alarm awaiting acknowledgement.
type FinishedItem struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Type       ItemType `json:"type"`
	FinishedAt int64    `json:"finishedAt,omitempty"`
}

// Message is the line shown for the item in the popup.
func (item FinishedItem) Message() string {
	if item.Type == TypeAlarm {
		return "It's time for \"" + item.Name + "\""
	}
	return "\"" + item.Name + "\" has finished"
}

// Snapshot is the full aggregate pushed to surfaces.
type Snapshot struct {
	Timers         map[string]*Timer `json:"timers"`
	Alarms         map[string]*Alarm `json:"alarms"`
	FinishedTimers []FinishedItem    `json:"finishedTimers"`
}

// NewTimerID allocates a fresh timer identifier.
func NewTimerID() string {
	return timerPrefix + uuid.NewString()
}

// NewAlarmID allocates a fresh alarm identifier.
func NewAlarmID() string {
	return alarmPrefix + uuid.NewString()
}

// KindOf returns the item type encoded in an identifier.
func KindOf(id string) (ItemType, bool) {
	switch {
	case strings.HasPrefix(id, timerPrefix):
		return TypeTimer, true
	case strings.HasPrefix(id, alarmPrefix):
		return TypeAlarm, true
	default:
		return "", false
	}
}

// NextOrder returns one past the highest order in use, or 0 when empty.
func NextOrder(orders []int) int {
	next := 0
	for _, order := range orders {
		if order+1 > next {
			next = order + 1
		}
	}
	return next
}

// ClampVolume bounds a volume to 0..100.
func ClampVolume(volume int) int {
	if volume < 0 {
		return 0
	}
	if volume > 100 {
		return 100
	}
	return volume
}

// MillisPtr returns a pointer to the unix millisecond value of t.
func MillisPtr(t time.Time) *int64 {
	value := t.UnixMilli()
	return &value
}
