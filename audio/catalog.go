package audio

import (
	"fmt"

	"ptt/log"
)

// Match returns the capture devices whose description equals target, in
// discovery order.
func Match(devices []Device, target string) []Device {
	if target == "" {
		return nil
	}
	var matched []Device
	for _, d := range devices {
		if d.Capture && d.Description == target {
			matched = append(matched, d)
		}
	}
	return matched
}

// Captures filters devices down to capture endpoints.
func Captures(devices []Device) []Device {
	var out []Device
	for _, d := range devices {
		if d.Capture {
			out = append(out, d)
		}
	}
	return out
}

// Catalog tracks the devices matching the configured target across
// refreshes and reports arrivals and departures.
type Catalog struct {
	lister  Lister
	target  string
	matched []Device

	reportedMissing bool

	OnAdded   func(Device)
	OnRemoved func(Device)
}

func NewCatalog(l Lister, target string) *Catalog {
	return &Catalog{lister: l, target: target}
}

func (c *Catalog) Target() string { return c.target }

// Matched returns the devices retained by the last refresh.
func (c *Catalog) Matched() []Device { return c.matched }

// Refresh lists devices again, updates the retained set and fires the
// notification callbacks for the difference.
func (c *Catalog) Refresh() ([]Device, error) {
	devices, err := c.lister.Devices()
	if err != nil {
		return c.matched, fmt.Errorf("refresh devices: %w", err)
	}
	next := Match(devices, c.target)

	prev := make(map[string]bool, len(c.matched))
	for _, d := range c.matched {
		prev[d.ID] = true
	}
	cur := make(map[string]bool, len(next))
	for _, d := range next {
		cur[d.ID] = true
		if !prev[d.ID] && c.OnAdded != nil {
			c.OnAdded(d)
		}
	}
	for _, d := range c.matched {
		if !cur[d.ID] && c.OnRemoved != nil {
			c.OnRemoved(d)
		}
	}
	c.matched = next

	if c.target != "" {
		switch {
		case len(next) == 0 && !c.reportedMissing:
			log.Criticalf("Your desired mic, %q, was not detected.", c.target)
			c.reportedMissing = true
		case len(next) > 0:
			c.reportedMissing = false
		}
	}
	return next, nil
}
