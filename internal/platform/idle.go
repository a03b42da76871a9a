package platform

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrIdleUnsupported indicates the platform cannot report user idle time.
var ErrIdleUnsupported = errors.New("idle detection unsupported")

// IdleProvider returns the duration since last user input.
type IdleProvider interface {
	IdleDuration() (time.Duration, error)
}

// NewIdleProvider returns a platform-specific idle provider.
func NewIdleProvider() IdleProvider {
	return newIdleProvider()
}

type unsupportedIdleProvider struct{}

func (unsupportedIdleProvider) IdleDuration() (time.Duration, error) {
	return 0, ErrIdleUnsupported
}

// parseIdle converts a tool's integer output in the given unit.
func parseIdle(output []byte, unit time.Duration) (time.Duration, error) {
	value := strings.TrimSpace(string(output))
	idle, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse idle time %q: %w", value, err)
	}
	if idle < 0 {
		idle = 0
	}
	return time.Duration(idle) * unit, nil
}
