// Package input watches the configured trigger (a keyboard key or a pointer
// side button) and publishes whether it is held.
package input

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Mode selects which device classes can drive the trigger.
type Mode int

const (
	PointerOnly Mode = iota
	KeyboardOnly
	Both
)

func (m Mode) String() string {
	switch m {
	case KeyboardOnly:
		return "keyboard"
	case Both:
		return "both"
	}
	return "pointer"
}

func (m Mode) keyboard() bool { return m != PointerOnly }
func (m Mode) pointer() bool  { return m != KeyboardOnly }

// ParseMode reads the "mode" setting. "auto" (or empty) picks the keyboard
// when a key is configured and the pointer buttons otherwise.
func ParseMode(s string, key rune) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		if key != 0 {
			return KeyboardOnly, nil
		}
		return PointerOnly, nil
	case "pointer", "mouse":
		return PointerOnly, nil
	case "keyboard", "key":
		return KeyboardOnly, nil
	case "both":
		return Both, nil
	}
	return PointerOnly, fmt.Errorf("unknown input mode %q (use auto, pointer, keyboard or both)", s)
}

// ParseKey reads the "key" setting. Only a single character is accepted.
func ParseKey(s string) (rune, error) {
	if s == "" {
		return 0, nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("key %q must be a single character", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}

// Trigger is the control that opens the gate while held.
type Trigger struct {
	Key  rune // 0 when no key is configured
	Mode Mode
}

func (t Trigger) String() string {
	switch {
	case t.Mode == PointerOnly:
		return "mouse side buttons"
	case t.Mode == Both && t.Key != 0:
		return fmt.Sprintf("key %q or mouse side buttons", t.Key)
	case t.Key != 0:
		return fmt.Sprintf("key %q", t.Key)
	}
	return "no trigger"
}

type Kind int

const (
	Key Kind = iota
	PointerButton
)

// Linux input codes the listener cares about.
const (
	BtnSide  = 0x113
	BtnExtra = 0x114
)

// Event is one press or release read from an input device.
type Event struct {
	Kind    Kind
	Code    uint16
	Pressed bool
	Repeat  bool
}

// Source delivers input events. Wait blocks until events are pending or
// timeout elapses; Next drains them.
type Source interface {
	Wait(timeout time.Duration) error
	Next() (Event, bool)
	Close() error
}

// Rescanner is implemented by sources that can pick up devices plugged in
// after they were opened. Rescan reports how many were added.
type Rescanner interface {
	Rescan() (int, error)
}

// ErrNoDevices is returned when no input device is left to read from.
var ErrNoDevices = errors.New("no usable input devices")

// Opener acquires the input devices needed for mode.
type Opener func(mode Mode) (Source, error)
