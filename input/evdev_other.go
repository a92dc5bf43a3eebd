//go:build !linux

package input

import "fmt"

func OpenEvdev(mode Mode) (Source, error) {
	return nil, fmt.Errorf("evdev input is only available on linux: %w", ErrNoDevices)
}

func Diagnose(mode Mode) (string, error) {
	return "", fmt.Errorf("evdev input is only available on linux")
}
