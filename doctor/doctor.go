// Package doctor walks through the pieces the gate depends on and reports
// which one is broken.
package doctor

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"ptt/audio"
	"ptt/gate"
	"ptt/input"
	"ptt/param"
	"ptt/shutdown"
)

// Doctor holds what the checks need. Zero-valued hooks fall back to the real
// system.
type Doctor struct {
	Out     io.Writer
	Trigger input.Trigger
	Mic     string

	Diagnose    func(input.Mode) (string, error)
	Open        input.Opener
	OpenBackend func() (audio.Backend, error)

	// PressTimeout bounds the wait for the trigger.
	PressTimeout time.Duration
}

// Run executes the checks in order and returns an exit code (0=all pass,
// 1=any fail). Later checks are skipped once one fails.
func (d *Doctor) Run() int {
	if d.Out == nil {
		d.Out = os.Stdout
	}
	if d.Diagnose == nil {
		d.Diagnose = input.Diagnose
	}
	if d.Open == nil {
		d.Open = input.OpenEvdev
	}
	if d.PressTimeout <= 0 {
		d.PressTimeout = 10 * time.Second
	}
	resetTerminal()

	fmt.Fprintln(d.Out, "ptt doctor - interactive system diagnostics")
	fmt.Fprintln(d.Out, "===========================================")

	allPass := d.checkInput()
	var backend audio.Backend
	if allPass {
		backend, allPass = d.checkBackend()
	}
	if backend != nil {
		defer backend.Close()
	}
	if allPass {
		allPass = d.checkTarget(backend)
	}
	if allPass {
		allPass = d.checkTrigger()
	}

	fmt.Fprintln(d.Out)
	if allPass {
		fmt.Fprintln(d.Out, "All checks passed!")
		return 0
	}
	fmt.Fprintln(d.Out, "Some checks failed. See details above.")
	return 1
}

func (d *Doctor) checkInput() bool {
	fmt.Fprintln(d.Out)
	fmt.Fprintf(d.Out, "[1/4] Input devices (%s)\n", d.Trigger.Mode)

	msg, err := d.Diagnose(d.Trigger.Mode)
	if err != nil {
		fmt.Fprintf(d.Out, "  FAIL: %v\n", err)
		return false
	}
	fmt.Fprintf(d.Out, "  PASS: %s\n", msg)
	return true
}

func (d *Doctor) checkBackend() (audio.Backend, bool) {
	fmt.Fprintln(d.Out)
	fmt.Fprintln(d.Out, "[2/4] Audio server")

	b, err := d.OpenBackend()
	if err != nil {
		fmt.Fprintf(d.Out, "  FAIL: cannot connect: %v\n", err)
		return nil, false
	}
	devices, err := b.Devices()
	if err != nil {
		fmt.Fprintf(d.Out, "  FAIL: cannot list devices: %v\n", err)
		return b, false
	}
	captures := audio.Captures(devices)
	if len(captures) == 0 {
		fmt.Fprintln(d.Out, "  FAIL: no capture devices found")
		return b, false
	}
	fmt.Fprintf(d.Out, "  PASS: %d capture device(s)\n", len(captures))
	return b, true
}

func (d *Doctor) checkTarget(b audio.Backend) bool {
	fmt.Fprintln(d.Out)
	fmt.Fprintf(d.Out, "[3/4] Target microphone %q\n", d.Mic)

	if d.Mic == "" {
		fmt.Fprintln(d.Out, "  FAIL: no mic configured (run: ptt setup)")
		return false
	}
	devices, err := b.Devices()
	if err != nil {
		fmt.Fprintf(d.Out, "  FAIL: cannot list devices: %v\n", err)
		return false
	}
	matched := audio.Match(devices, d.Mic)
	if len(matched) == 0 {
		fmt.Fprintln(d.Out, "  FAIL: not detected. Available:")
		for _, dev := range audio.Captures(devices) {
			fmt.Fprintf(d.Out, "    %s\n", dev.Description)
		}
		return false
	}

	ok := true
	for _, dev := range matched {
		params, err := b.Params(dev)
		if err != nil {
			fmt.Fprintf(d.Out, "  FAIL: %s: cannot read params: %v\n", dev, err)
			ok = false
			continue
		}
		found := false
		for _, p := range params {
			if h, hit := param.Locate(p.Tree); hit {
				fmt.Fprintf(d.Out, "  PASS: %s: mute control %s.%s (currently %t)\n", dev, p.ID, h.Name(), h.Value())
				found = true
				break
			}
		}
		if !found {
			fmt.Fprintf(d.Out, "  FAIL: %s: no mute control found\n", dev)
			ok = false
		}
	}
	return ok
}

func (d *Doctor) checkTrigger() bool {
	fmt.Fprintln(d.Out)
	fmt.Fprintln(d.Out, "[4/4] Trigger")
	fmt.Fprintf(d.Out, "Press and hold %s...\n", d.Trigger)

	state := gate.NewState()
	l := input.NewListener(d.Trigger, state, d.Open, 100*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), d.PressTimeout)
	defer cancel()

	go shutdown.Watch(ctx, state)
	go l.Run(ctx)
	defer func() {
		state.Shutdown()
		<-state.Finished()
	}()

	tick := time.NewTicker(5 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(d.Out, "  FAIL: timeout waiting for trigger")
			return false
		case <-state.Finished():
			fmt.Fprintln(d.Out, "  FAIL: interrupted")
			return false
		case <-tick.C:
			if state.Talking() {
				fmt.Fprintln(d.Out, "  PASS: trigger detected")
				return true
			}
		}
	}
}
