package simclock

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownSpeed is returned when text does not name a Speed.
var ErrUnknownSpeed = errors.New("simclock: unknown speed")

// Speed is a playback speed selection.
type Speed uint8

const (
	Paused Speed = iota
	Half
	Normal
	Fast
	Faster
	Ultra
	Turbo
)

var speedFactors = [...]float64{
	Paused: 0,
	Half:   0.5,
	Normal: 1,
	Fast:   2,
	Faster: 4,
	Ultra:  8,
	Turbo:  16,
}

var speedNames = [...]string{
	Paused: "paused",
	Half:   "half",
	Normal: "normal",
	Fast:   "fast",
	Faster: "faster",
	Ultra:  "ultra",
	Turbo:  "turbo",
}

// Factor returns the multiplier applied to wall time. s must be one of the
// declared constants; other values index past the table.
func (s Speed) Factor() float64 {
	return speedFactors[s]
}

func (s Speed) String() string {
	if int(s) < len(speedNames) {
		return speedNames[s]
	}
	return fmt.Sprintf("Speed(%d)", uint8(s))
}

// ParseSpeed accepts a speed name, case-insensitively.
func ParseSpeed(text string) (Speed, error) {
	name := strings.ToLower(strings.TrimSpace(text))
	for i, candidate := range speedNames {
		if candidate == name {
			return Speed(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSpeed, text)
}

func (s Speed) MarshalText() ([]byte, error) {
	if int(s) >= len(speedNames) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSpeed, uint8(s))
	}
	return []byte(speedNames[s]), nil
}

func (s *Speed) UnmarshalText(text []byte) error {
	parsed, err := ParseSpeed(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
