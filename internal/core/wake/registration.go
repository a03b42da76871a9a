package wake

import "time"

// StoreKey is the store document holding every registration.
const StoreKey = "wakes"

// Registration is a named wake-up. When is an absolute time in unix
// milliseconds; a positive PeriodInMinutes makes it repeat.
type Registration struct {
	Name            string  `json:"name"`
	When            int64   `json:"when"`
	PeriodInMinutes float64 `json:"periodInMinutes,omitempty"`
}

// At returns When as a time.
func (registration Registration) At() time.Time {
	return time.UnixMilli(registration.When)
}

// Period returns the repeat interval, zero for one-shot wakes.
func (registration Registration) Period() time.Duration {
	return time.Duration(registration.PeriodInMinutes * float64(time.Minute))
}

// OneShot builds a single wake at the given time.
func OneShot(name string, at time.Time) Registration {
	return Registration{Name: name, When: at.UnixMilli()}
}

// Repeating builds a wake first firing at start and then every period.
func Repeating(name string, start time.Time, period time.Duration) Registration {
	return Registration{Name: name, When: start.UnixMilli(), PeriodInMinutes: period.Minutes()}
}

// advance moves a repeating registration to its first occurrence after now.
func (registration Registration) advance(now time.Time) Registration {
	period := registration.Period()
	if period <= 0 {
		return registration
	}
	next := registration.At()
	if !next.After(now) {
		missed := now.Sub(next)/period + 1
		next = next.Add(missed * period)
	}
	registration.When = next.UnixMilli()
	return registration
}
