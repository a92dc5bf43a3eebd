package gate

import (
	"context"
	"time"

	"ptt/audio"
	"ptt/log"
	"ptt/param"
)

const (
	DefaultPollInterval   = time.Millisecond
	DefaultRescanInterval = 3 * time.Second
)

// Cues plays the audible feedback for opening and closing the gate.
type Cues interface {
	On()
	Off()
}

// Events receives gate activity for display.
type Events interface {
	GateChanged(open bool, commits int)
	DevicesChanged(devices []audio.Device)
}

type Option func(*Controller)

func WithCues(c Cues) Option { return func(ctl *Controller) { ctl.cues = c } }

func WithEvents(e Events) Option { return func(ctl *Controller) { ctl.events = e } }

// WithPollInterval sets how often Run samples the trigger state.
func WithPollInterval(d time.Duration) Option {
	return func(ctl *Controller) {
		if d > 0 {
			ctl.interval = d
		}
	}
}

// WithCatalog makes Run refresh the catalog every interval and follow the
// devices it retains. A zero interval disables rescanning.
func WithCatalog(cat *audio.Catalog, interval time.Duration) Option {
	return func(ctl *Controller) {
		ctl.catalog = cat
		ctl.rescan = interval
	}
}

// Controller turns trigger edges into mute commits. All backend calls happen
// on the goroutine running Run (or calling Step/Apply directly).
type Controller struct {
	state   *State
	backend audio.Backend
	devices []audio.Device

	cues     Cues
	events   Events
	interval time.Duration
	catalog  *audio.Catalog
	rescan   time.Duration

	prev        bool
	transitions int
}

func New(state *State, backend audio.Backend, devices []audio.Device, opts ...Option) *Controller {
	c := &Controller{
		state:    state,
		backend:  backend,
		devices:  devices,
		interval: DefaultPollInterval,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Devices returns the devices the controller currently gates.
func (c *Controller) Devices() []audio.Device { return c.devices }

// Transitions counts the edges handled so far.
func (c *Controller) Transitions() int { return c.transitions }

// Apply commits mute to every gated device and returns how many devices were
// committed. Only the first parameter set carrying a mute control is written
// per device. Failures are logged and the device is skipped for this pass.
func (c *Controller) Apply(mute bool) int {
	commits := 0
	for _, dev := range c.devices {
		if c.applyDevice(dev, mute) {
			commits++
		}
	}
	return commits
}

func (c *Controller) applyDevice(dev audio.Device, mute bool) bool {
	params, err := c.backend.Params(dev)
	if err != nil {
		log.Warnf("read params of %s: %v", dev, err)
		return false
	}
	if err := c.backend.Sync(); err != nil {
		log.Warnf("sync after reading %s: %v", dev, err)
		return false
	}

	for _, p := range params {
		h, ok := param.Locate(p.Tree)
		if !ok {
			continue
		}
		h.Set(mute)
		if err := c.backend.SetParam(dev, p.ID, p.Tree); err != nil {
			log.Warnf("set %s on %s: %v", p.ID, dev, err)
			return false
		}
		if err := c.backend.Sync(); err != nil {
			log.Warnf("sync after writing %s: %v", dev, err)
			return false
		}
		log.Verbosef("%s: %s.%s = %t", dev, p.ID, h.Name(), mute)
		return true
	}
	log.Verbosef("%s: no mute control found", dev)
	return false
}

// Step feeds one trigger sample. A rising edge opens the gate, a falling edge
// closes it.
func (c *Controller) Step(sample bool) Edge {
	e := Detect(c.prev, sample)
	c.prev = sample

	switch e {
	case RisingEdge:
		if c.cues != nil {
			c.cues.On()
		}
		c.transition(true)
	case FallingEdge:
		if c.cues != nil {
			c.cues.Off()
		}
		c.transition(false)
	}
	return e
}

func (c *Controller) transition(open bool) {
	start := time.Now()
	n := c.Apply(!open)
	c.transitions++
	log.Transition(open, n, time.Since(start))
	if c.events != nil {
		c.events.GateChanged(open, n)
	}
}

// Run mutes every device, then samples the trigger until the listener has
// finished. Cancelling ctx requests shutdown; Run still waits for the
// listener. On the way out every device is unmuted so the microphone is never
// left closed.
func (c *Controller) Run(ctx context.Context) error {
	start := time.Now()
	c.prev = false
	c.Apply(true)
	if c.events != nil {
		c.events.DevicesChanged(c.devices)
		c.events.GateChanged(false, len(c.devices))
	}

	tick := time.NewTicker(c.interval)
	defer tick.Stop()

	var rescan <-chan time.Time
	if c.catalog != nil && c.rescan > 0 {
		t := time.NewTicker(c.rescan)
		defer t.Stop()
		rescan = t.C
	}

	done := ctx.Done()
loop:
	for {
		select {
		case <-c.state.Finished():
			break loop
		case <-done:
			c.state.Shutdown()
			done = nil
		case <-rescan:
			c.refresh()
		case <-tick.C:
			c.Step(c.state.Talking())
		}
	}

	n := c.Apply(false)
	log.Infof("gate released, %d device(s) unmuted", n)
	if c.events != nil {
		c.events.GateChanged(true, n)
	}
	log.SessionEnd(c.transitions, time.Since(start))
	return nil
}

// refresh follows the catalog. Devices that appeared since the last refresh
// are forced to the current gate state.
func (c *Controller) refresh() {
	matched, err := c.catalog.Refresh()
	if err != nil {
		log.Warnf("%v", err)
		return
	}

	known := make(map[string]bool, len(c.devices))
	for _, d := range c.devices {
		known[d.ID] = true
	}
	changed := len(matched) != len(c.devices)
	for _, d := range matched {
		if known[d.ID] {
			continue
		}
		changed = true
		if c.applyDevice(d, !c.prev) {
			log.Infof("%s attached, gate state applied", d)
		}
	}
	c.devices = matched

	if changed && c.events != nil {
		c.events.DevicesChanged(matched)
	}
}
