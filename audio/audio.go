// Package audio talks to the audio server: it discovers capture devices,
// reads their parameter trees and commits changed parameters back.
package audio

import (
	"fmt"
	"strings"

	"ptt/param"
)

// Device is one endpoint reported by the audio server.
type Device struct {
	ID          string // opaque backend-specific identifier
	Description string // human-readable name, matched against the "mic" setting
	Class       string // backend capability marker (media.class / device.class)
	Capture     bool
	Props       map[string]string
}

func (d Device) String() string {
	return fmt.Sprintf("%s (%s)", d.Description, d.ID)
}

// Param is one parameter set of a device. Tree is reissued on every read
// and must not be kept across calls.
type Param struct {
	ID   string
	Tree *param.Node
}

// Lister enumerates the devices currently known to the server.
type Lister interface {
	Devices() ([]Device, error)
}

// Backend is the control plane of an audio server. Calls are synchronous and
// must all be made from one goroutine.
type Backend interface {
	Lister
	Params(dev Device) ([]Param, error)
	SetParam(dev Device, id string, tree *param.Node) error
	// Sync makes preceding reads and writes observable.
	Sync() error
	Close() error
}

// Options configures the backend constructors.
type Options struct {
	// PipeWireParams lists the param ids searched for a mute control.
	PipeWireParams []string
	Runner         Runner
}

// Names of the supported backends, in the order the "backend" setting accepts.
var Backends = []string{"pipewire", "pulse", "dbus"}

// New opens the named backend.
func New(name string, opts Options) (Backend, error) {
	switch strings.ToLower(name) {
	case "", "pipewire":
		return NewPipeWire(opts)
	case "pulse":
		return NewPulse()
	case "dbus":
		return NewDBus(opts)
	}
	return nil, fmt.Errorf("unknown audio backend %q (use %s)", name, strings.Join(Backends, ", "))
}

var btKeywords = []string{
	"airpods", "bose", "wh-1000", "jabra", "buds",
	"bluetooth", "bluez", " bt ", " bt)",
}

// IsBluetooth guesses from the description whether a device is a Bluetooth
// headset. Profile switches on those can drop the route carrying the mute
// control.
func IsBluetooth(d Device) bool {
	if strings.HasPrefix(d.Props["device.api"], "bluez") || d.Props["device.bus"] == "bluetooth" {
		return true
	}
	lower := " " + strings.ToLower(d.Description) + " "
	for _, kw := range btKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
