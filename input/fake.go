package input

import (
	"sync"
	"time"
)

// FakeSource is a Source fed by tests.
type FakeSource struct {
	mu      sync.Mutex
	pending []Event
	ready   chan struct{}
	closed  bool
	lost    bool
	rescans int
}

func NewFakeSource() *FakeSource {
	return &FakeSource{ready: make(chan struct{}, 1)}
}

// Opener returns an Opener handing out f regardless of mode. Opening fails
// with ErrNoDevices while f is unplugged.
func (f *FakeSource) Opener() Opener {
	return func(Mode) (Source, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.lost {
			return nil, ErrNoDevices
		}
		f.closed = false
		return f, nil
	}
}

func (f *FakeSource) Push(events ...Event) {
	f.mu.Lock()
	f.pending = append(f.pending, events...)
	f.mu.Unlock()
	select {
	case f.ready <- struct{}{}:
	default:
	}
}

// Press and Release push a single key or button event.
func (f *FakeSource) Press(kind Kind, code uint16)   { f.Push(Event{Kind: kind, Code: code, Pressed: true}) }
func (f *FakeSource) Release(kind Kind, code uint16) { f.Push(Event{Kind: kind, Code: code}) }

// Unplug makes the next Wait report that every device is gone.
func (f *FakeSource) Unplug() {
	f.mu.Lock()
	f.lost = true
	f.mu.Unlock()
	select {
	case f.ready <- struct{}{}:
	default:
	}
}

// Replug makes f available to its Opener again.
func (f *FakeSource) Replug() {
	f.mu.Lock()
	f.lost = false
	f.mu.Unlock()
}

func (f *FakeSource) Rescan() (int, error) {
	f.mu.Lock()
	f.rescans++
	f.mu.Unlock()
	return 0, nil
}

func (f *FakeSource) Rescans() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rescans
}

func (f *FakeSource) Wait(timeout time.Duration) error {
	f.mu.Lock()
	n, lost := len(f.pending), f.lost
	f.mu.Unlock()
	if lost {
		return ErrNoDevices
	}
	if n > 0 {
		return nil
	}
	select {
	case <-f.ready:
	case <-time.After(timeout):
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lost {
		return ErrNoDevices
	}
	return nil
}

func (f *FakeSource) Next() (Event, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pending) == 0 {
		return Event{}, false
	}
	ev := f.pending[0]
	f.pending = f.pending[1:]
	return ev, true
}

func (f *FakeSource) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *FakeSource) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
