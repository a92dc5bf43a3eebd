//go:build linux

package input

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

const (
	evKey    = 1
	btnMisc  = 0x100
	keyA     = 30
	keySpace = 57
)

// input_event is 24 bytes on 64-bit Linux:
// timeval (16 bytes) + type (2) + code (2) + value (4)
const inputEventSize = 24

var (
	devInputDir = "/dev/input"
	sysInputDir = "/sys/class/input"
)

type evdevSource struct {
	mode    Mode
	fds     []unix.PollFd
	paths   []string
	pending []Event
	buf     []byte
}

// OpenEvdev opens the keyboard and/or pointer event nodes needed for mode.
// Requires read access to /dev/input (usually the 'input' group).
func OpenEvdev(mode Mode) (Source, error) {
	nodes, err := findNodes(mode)
	if err != nil {
		return nil, fmt.Errorf("scanning input devices: %w", err)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("no %s devices found: %w", mode, ErrNoDevices)
	}

	s := &evdevSource{mode: mode, buf: make([]byte, inputEventSize*64)}
	if _, err := s.add(nodes); len(s.fds) == 0 {
		return nil, fmt.Errorf("could not open any of %d input device(s): %v (run: sudo usermod -aG input $USER, then re-login)", len(nodes), err)
	}
	return s, nil
}

// add opens the nodes not already held and returns how many it opened along
// with the last open error.
func (s *evdevSource) add(nodes []string) (int, error) {
	var lastErr error
	added := 0
	for _, path := range nodes {
		if s.holds(path) {
			continue
		}
		fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
		if err != nil {
			lastErr = err
			continue
		}
		s.fds = append(s.fds, unix.PollFd{Fd: int32(fd), Events: unix.POLLIN})
		s.paths = append(s.paths, path)
		added++
	}
	return added, lastErr
}

func (s *evdevSource) holds(path string) bool {
	for _, p := range s.paths {
		if p == path {
			return true
		}
	}
	return false
}

// Rescan opens matching devices that appeared since the source was opened.
func (s *evdevSource) Rescan() (int, error) {
	nodes, err := findNodes(s.mode)
	if err != nil {
		return 0, fmt.Errorf("scanning input devices: %w", err)
	}
	return s.add(nodes)
}

func (s *evdevSource) Wait(timeout time.Duration) error {
	if len(s.fds) == 0 {
		return ErrNoDevices
	}
	for i := range s.fds {
		s.fds[i].Revents = 0
	}
	n, err := unix.Poll(s.fds, int(timeout/time.Millisecond))
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return nil
		}
		return fmt.Errorf("poll: %w", err)
	}
	if n == 0 {
		return nil
	}

	kept := s.fds[:0]
	keptPaths := s.paths[:0]
	for i, pfd := range s.fds {
		if pfd.Revents&unix.POLLIN != 0 {
			if !s.read(int(pfd.Fd)) {
				unix.Close(int(pfd.Fd))
				continue
			}
		} else if pfd.Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
			unix.Close(int(pfd.Fd))
			continue
		}
		kept = append(kept, pfd)
		keptPaths = append(keptPaths, s.paths[i])
	}
	s.fds, s.paths = kept, keptPaths
	if len(s.fds) == 0 {
		return ErrNoDevices
	}
	return nil
}

// read drains fd into the pending queue. It reports false once the device
// is gone.
func (s *evdevSource) read(fd int) bool {
	for {
		n, err := unix.Read(fd, s.buf)
		if err != nil {
			return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR)
		}
		if n <= 0 {
			return false
		}
		for i := 0; i+inputEventSize <= n; i += inputEventSize {
			if ev, ok := decodeEvent(s.buf[i : i+inputEventSize]); ok {
				s.pending = append(s.pending, ev)
			}
		}
		if n < len(s.buf) {
			return true
		}
	}
}

func decodeEvent(b []byte) (Event, bool) {
	evType := binary.LittleEndian.Uint16(b[16:])
	evCode := binary.LittleEndian.Uint16(b[18:])
	evValue := int32(binary.LittleEndian.Uint32(b[20:]))
	if evType != evKey {
		return Event{}, false
	}
	ev := Event{Kind: Key, Code: evCode, Pressed: evValue != 0, Repeat: evValue == 2}
	if evCode >= btnMisc {
		ev.Kind = PointerButton
	}
	return ev, true
}

func (s *evdevSource) Next() (Event, bool) {
	if len(s.pending) == 0 {
		return Event{}, false
	}
	ev := s.pending[0]
	s.pending = s.pending[1:]
	return ev, true
}

func (s *evdevSource) Close() error {
	for _, pfd := range s.fds {
		unix.Close(int(pfd.Fd))
	}
	s.fds, s.paths = nil, nil
	return nil
}

func findNodes(mode Mode) ([]string, error) {
	entries, err := os.ReadDir(devInputDir)
	if err != nil {
		return nil, err
	}

	var nodes []string
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "event") {
			continue
		}
		caps := readKeyCaps(e.Name())
		if (mode.keyboard() && isKeyboard(caps)) || (mode.pointer() && hasSideButtons(caps)) {
			nodes = append(nodes, filepath.Join(devInputDir, e.Name()))
		}
	}
	return nodes, nil
}

func readKeyCaps(eventName string) []uint64 {
	data, err := os.ReadFile(filepath.Join(sysInputDir, eventName, "device", "capabilities", "key"))
	if err != nil {
		return nil
	}
	return parseCaps(string(data))
}

// parseCaps decodes a sysfs capability bitmap. The kernel prints the words
// most significant first; the result is indexed from bit 0.
func parseCaps(s string) []uint64 {
	fields := strings.Fields(s)
	words := make([]uint64, 0, len(fields))
	for i := len(fields) - 1; i >= 0; i-- {
		w, err := strconv.ParseUint(fields[i], 16, 64)
		if err != nil {
			return nil
		}
		words = append(words, w)
	}
	return words
}

func hasBit(words []uint64, bit int) bool {
	i := bit / 64
	return i < len(words) && words[i]&(1<<(bit%64)) != 0
}

func isKeyboard(caps []uint64) bool {
	return hasBit(caps, keyA) && hasBit(caps, keySpace)
}

func hasSideButtons(caps []uint64) bool {
	return hasBit(caps, BtnSide) || hasBit(caps, BtnExtra)
}

// Diagnose checks evdev access for mode and returns a status message.
func Diagnose(mode Mode) (string, error) {
	var keyboards, pointers []string
	entries, err := os.ReadDir(devInputDir)
	if err != nil {
		return "", fmt.Errorf("cannot scan input devices: %w", err)
	}
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "event") {
			continue
		}
		caps := readKeyCaps(e.Name())
		path := filepath.Join(devInputDir, e.Name())
		if isKeyboard(caps) {
			keyboards = append(keyboards, path)
		}
		if hasSideButtons(caps) {
			pointers = append(pointers, path)
		}
	}

	var wanted []string
	if mode.keyboard() {
		wanted = append(wanted, keyboards...)
	}
	if mode.pointer() {
		wanted = append(wanted, pointers...)
	}
	if len(wanted) == 0 {
		return "", fmt.Errorf("no %s devices found (%d keyboard(s), %d pointer(s) with side buttons)", mode, len(keyboards), len(pointers))
	}

	var opened string
	for _, path := range wanted {
		fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK, 0)
		if err == nil {
			unix.Close(fd)
			opened = path
			break
		}
	}
	if opened == "" {
		return "", fmt.Errorf("found %d device(s) but cannot open any (run: sudo usermod -aG input $USER)", len(wanted))
	}
	return fmt.Sprintf("%d keyboard(s), %d pointer(s) with side buttons, opened %s", len(keyboards), len(pointers), opened), nil
}
