package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

var ErrPickCancelled = errors.New("device selection cancelled")

type picker struct {
	devices []Device
	current string
	cursor  int
}

func newPicker(devices []Device, current string) *picker {
	p := &picker{devices: devices, current: current}
	for i, d := range devices {
		if d.Description == current {
			p.cursor = i
		}
	}
	return p
}

// key applies one read from the terminal. It returns done when the user
// confirmed or cancelled.
func (p *picker) key(buf []byte) (done bool, err error) {
	if len(buf) == 1 {
		switch buf[0] {
		case 13: // Enter
			return true, nil
		case 3, 'q': // Ctrl+C
			return true, ErrPickCancelled
		case 'j':
			p.move(1)
		case 'k':
			p.move(-1)
		}
	} else if len(buf) == 3 && buf[0] == 0x1b && buf[1] == '[' {
		switch buf[2] {
		case 'A':
			p.move(-1)
		case 'B':
			p.move(1)
		}
	}
	return false, nil
}

func (p *picker) move(d int) {
	p.cursor = max(0, min(len(p.devices)-1, p.cursor+d))
}

func (p *picker) render(w io.Writer) {
	fmt.Fprint(w, "\r\x1b[J")
	fmt.Fprint(w, "Select the microphone to gate (↑/↓, Enter to confirm, q to cancel):\r\n\r\n")
	for i, d := range p.devices {
		tag := ""
		if d.Description == p.current {
			tag = " <--"
		}
		if IsBluetooth(d) {
			tag += " \x1b[33m[bluetooth]\x1b[0m"
		}
		if i == p.cursor {
			fmt.Fprintf(w, "  \x1b[1;36m▶ %s%s\x1b[0m\r\n", d.Description, tag)
		} else {
			fmt.Fprintf(w, "    %s%s\r\n", d.Description, tag)
		}
	}
}

// SelectDevice presents an interactive picker over the capture devices and
// returns the chosen one. current is highlighted as the configured device.
func SelectDevice(devices []Device, current string) (*Device, error) {
	devices = Captures(devices)
	if len(devices) == 0 {
		return nil, fmt.Errorf("no capture devices found")
	}
	if len(devices) == 1 {
		return &devices[0], nil
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("setting raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	p := newPicker(devices, current)
	p.render(os.Stdout)

	buf := make([]byte, 3)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("reading input: %w", err)
		}
		done, err := p.key(buf[:n])
		if done {
			fmt.Print("\r\n")
			if err != nil {
				return nil, err
			}
			return &p.devices[p.cursor], nil
		}
		fmt.Printf("\x1b[%dA", len(p.devices)+2)
		p.render(os.Stdout)
	}
}
