package audio

import (
	"fmt"
	"sync"

	"ptt/param"
)

// Commit records one SetParam call seen by FakeBackend.
type Commit struct {
	DeviceID string
	ParamID  string
	Mute     bool
}

// FakeBackend is an in-memory Backend. Every Params call hands out fresh
// copies of the stored trees, the way a real server reissues them.
type FakeBackend struct {
	mu      sync.Mutex
	devices []Device
	params  map[string][]Param
	commits []Commit
	fail    map[string]error
	syncs   int
	listErr error
}

func NewFakeBackend() *FakeBackend {
	return &FakeBackend{params: map[string][]Param{}, fail: map[string]error{}}
}

// AddDevice registers a device with its parameter sets.
func (f *FakeBackend) AddDevice(d Device, params ...Param) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.devices = append(f.devices, d)
	f.params[d.ID] = params
}

func (f *FakeBackend) RemoveDevice(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, d := range f.devices {
		if d.ID == id {
			f.devices = append(f.devices[:i], f.devices[i+1:]...)
			break
		}
	}
	delete(f.params, id)
}

// FailSetParam makes SetParam on the device return err (nil clears it).
func (f *FakeBackend) FailSetParam(id string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fail, id)
		return
	}
	f.fail[id] = err
}

func (f *FakeBackend) FailDevices(err error) {
	f.mu.Lock()
	f.listErr = err
	f.mu.Unlock()
}

func (f *FakeBackend) Devices() ([]Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]Device(nil), f.devices...), nil
}

func (f *FakeBackend) Params(dev Device) ([]Param, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.params[dev.ID]
	if !ok {
		return nil, fmt.Errorf("fake: device %s not found", dev.ID)
	}
	out := make([]Param, len(stored))
	for i, p := range stored {
		out[i] = Param{ID: p.ID, Tree: p.Tree.Clone()}
	}
	return out, nil
}

func (f *FakeBackend) SetParam(dev Device, id string, tree *param.Node) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[dev.ID]; err != nil {
		return err
	}
	stored := f.params[dev.ID]
	for i := range stored {
		if stored[i].ID == id {
			stored[i].Tree = tree.Clone()
			break
		}
	}
	c := Commit{DeviceID: dev.ID, ParamID: id}
	if h, ok := param.Locate(tree); ok {
		c.Mute = h.Value()
	}
	f.commits = append(f.commits, c)
	return nil
}

func (f *FakeBackend) Sync() error {
	f.mu.Lock()
	f.syncs++
	f.mu.Unlock()
	return nil
}

func (f *FakeBackend) Close() error { return nil }

func (f *FakeBackend) Commits() []Commit {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Commit(nil), f.commits...)
}

func (f *FakeBackend) Syncs() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.syncs
}

// Muted reports the mute value currently stored for the device, as a server
// would expose it.
func (f *FakeBackend) Muted(id string) (muted, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.params[id] {
		if h, found := param.Locate(p.Tree); found {
			return h.Value(), true
		}
	}
	return false, false
}
