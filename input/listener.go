package input

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ptt/log"
)

const DefaultTimeout = time.Second

// State is the part of the shared gate state the listener writes.
type State interface {
	SetTalking(held bool)
	ShuttingDown() bool
	MarkFinished()
}

// Listener polls the input devices and mirrors the trigger into State.
type Listener struct {
	trigger Trigger
	state   State
	open    Opener
	timeout time.Duration
	layout  Layout

	// Strict makes Run return acquisition errors instead of idling.
	Strict bool

	held uint16 // key code that opened the gate, 0 if none
}

func NewListener(trigger Trigger, state State, open Opener, timeout time.Duration) *Listener {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Listener{trigger: trigger, state: state, open: open, timeout: timeout}
}

// Run polls until shutdown is requested or ctx is done, then releases the
// devices and marks the listener finished. If the devices cannot be acquired,
// or all of them disappear, the failure is logged and Run keeps trying to
// acquire them again every timeout.
func (l *Listener) Run(ctx context.Context) error {
	defer l.state.MarkFinished()
	defer log.Info("stopping input polling")

	src, err := l.open(l.trigger.Mode)
	if err != nil {
		log.Criticalf("Failed to acquire input devices: %v", err)
		if l.Strict {
			return fmt.Errorf("acquire input: %w", err)
		}
		src = l.reacquire(ctx)
	}
	if src != nil {
		log.Infof("listening for %s", l.trigger)
	}

	lastScan := time.Now()
	for src != nil && !l.stopping(ctx) {
		if err := src.Wait(l.timeout); err != nil {
			if errors.Is(err, ErrNoDevices) {
				log.Criticalf("input devices lost: %v", err)
				src.Close()
				l.release()
				src = l.reacquire(ctx)
				continue
			}
			log.Warnf("input wait: %v", err)
			continue
		}
		for {
			ev, ok := src.Next()
			if !ok {
				break
			}
			l.handle(ev)
		}
		if time.Since(lastScan) >= l.timeout {
			lastScan = time.Now()
			l.rescan(src)
		}
	}
	if src != nil {
		src.Close()
	}
	return nil
}

func (l *Listener) stopping(ctx context.Context) bool {
	return l.state.ShuttingDown() || ctx.Err() != nil
}

// reacquire opens the devices again, retrying every timeout. It returns nil
// once shutdown is requested.
func (l *Listener) reacquire(ctx context.Context) Source {
	t := time.NewTicker(l.timeout)
	defer t.Stop()
	for !l.stopping(ctx) {
		src, err := l.open(l.trigger.Mode)
		if err == nil {
			log.Info("input devices acquired")
			return src
		}
		log.Verbosef("acquire input: %v", err)
		select {
		case <-ctx.Done():
		case <-t.C:
		}
	}
	return nil
}

func (l *Listener) rescan(src Source) {
	r, ok := src.(Rescanner)
	if !ok {
		return
	}
	n, err := r.Rescan()
	if err != nil {
		log.Verbosef("rescan input devices: %v", err)
	}
	if n > 0 {
		log.Infof("picked up %d new input device(s)", n)
	}
}

// release drops the trigger when its device goes away mid-press.
func (l *Listener) release() {
	l.held = 0
	l.state.SetTalking(false)
}

func (l *Listener) handle(ev Event) {
	if ev.Repeat {
		return
	}
	switch ev.Kind {
	case Key:
		if !l.trigger.Mode.keyboard() {
			return
		}
		l.layout.Update(ev.Code, ev.Pressed)
		if l.trigger.Key == 0 {
			return
		}
		switch {
		case ev.Pressed && l.layout.Translate(ev.Code) == l.trigger.Key:
			l.held = ev.Code
			l.state.SetTalking(true)
		case !ev.Pressed && l.held == ev.Code:
			l.held = 0
			l.state.SetTalking(false)
		}
	case PointerButton:
		if !l.trigger.Mode.pointer() {
			return
		}
		if ev.Code == BtnSide || ev.Code == BtnExtra {
			l.state.SetTalking(ev.Pressed)
		}
	}
}
