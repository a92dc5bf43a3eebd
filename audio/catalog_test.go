package audio

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"ptt/log"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stdout) })
	return &buf
}

func mic(id, desc string) Device {
	return Device{ID: id, Description: desc, Class: "Audio/Device", Capture: true}
}

func TestMatch(t *testing.T) {
	devices := []Device{
		mic("1", "USB Mic"),
		{ID: "2", Description: "USB Mic", Class: "monitor"},
		mic("3", "Built-in Audio"),
		mic("4", "USB Mic"),
	}

	got := Match(devices, "USB Mic")
	if len(got) != 2 || got[0].ID != "1" || got[1].ID != "4" {
		t.Errorf("Match = %+v, want capture devices 1 and 4 in order", got)
	}
	if got := Match(devices, "usb mic"); len(got) != 0 {
		t.Errorf("match must be exact, got %+v", got)
	}
	if got := Match(devices, ""); got != nil {
		t.Errorf("empty target matched %+v", got)
	}
}

func TestCatalogNotifications(t *testing.T) {
	capture(t)
	fb := NewFakeBackend()
	fb.AddDevice(mic("1", "USB Mic"))

	c := NewCatalog(fb, "USB Mic")
	var added, removed []string
	c.OnAdded = func(d Device) { added = append(added, d.ID) }
	c.OnRemoved = func(d Device) { removed = append(removed, d.ID) }

	if _, err := c.Refresh(); err != nil {
		t.Fatal(err)
	}
	fb.AddDevice(mic("2", "USB Mic"))
	if _, err := c.Refresh(); err != nil {
		t.Fatal(err)
	}
	fb.RemoveDevice("1")
	matched, err := c.Refresh()
	if err != nil {
		t.Fatal(err)
	}

	if strings.Join(added, ",") != "1,2" {
		t.Errorf("added = %v, want [1 2]", added)
	}
	if strings.Join(removed, ",") != "1" {
		t.Errorf("removed = %v, want [1]", removed)
	}
	if len(matched) != 1 || matched[0].ID != "2" {
		t.Errorf("matched = %+v", matched)
	}
}

func TestCatalogReportsMissingOnce(t *testing.T) {
	buf := capture(t)
	fb := NewFakeBackend()
	fb.AddDevice(mic("1", "Built-in Audio"))

	c := NewCatalog(fb, "USB Mic")
	for i := 0; i < 3; i++ {
		if _, err := c.Refresh(); err != nil {
			t.Fatal(err)
		}
	}
	if n := strings.Count(buf.String(), "was not detected"); n != 1 {
		t.Fatalf("not-detected logged %d times, want 1:\n%s", n, buf.String())
	}
	if !strings.Contains(buf.String(), "CRT") {
		t.Errorf("not-detected must be critical: %q", buf.String())
	}

	// Seen, lost, then reported again.
	fb.AddDevice(mic("2", "USB Mic"))
	c.Refresh()
	fb.RemoveDevice("2")
	c.Refresh()
	if n := strings.Count(buf.String(), "was not detected"); n != 2 {
		t.Errorf("not-detected logged %d times after loss, want 2", n)
	}
}

func TestCatalogKeepsMatchesOnListError(t *testing.T) {
	capture(t)
	fb := NewFakeBackend()
	fb.AddDevice(mic("1", "USB Mic"))
	c := NewCatalog(fb, "USB Mic")
	c.Refresh()

	fb.FailDevices(errors.New("server gone"))
	matched, err := c.Refresh()
	if err == nil {
		t.Fatal("expected error")
	}
	if len(matched) != 1 {
		t.Errorf("matched set dropped on error: %+v", matched)
	}
}

func TestIsBluetooth(t *testing.T) {
	tests := []struct {
		dev  Device
		want bool
	}{
		{Device{Description: "WH-1000XM4"}, true},
		{Device{Description: "USB Mic", Props: map[string]string{"device.api": "bluez5"}}, true},
		{Device{Description: "Built-in Audio"}, false},
		{Device{Description: "Webcam BT Edition"}, true},
	}
	for _, tt := range tests {
		if got := IsBluetooth(tt.dev); got != tt.want {
			t.Errorf("IsBluetooth(%q) = %v, want %v", tt.dev.Description, got, tt.want)
		}
	}
}

func TestPickerKeys(t *testing.T) {
	p := newPicker([]Device{mic("1", "A"), mic("2", "B"), mic("3", "C")}, "B")
	if p.cursor != 1 {
		t.Fatalf("cursor starts at %d, want configured device 1", p.cursor)
	}
	p.key([]byte{0x1b, '[', 'B'})
	p.key([]byte("j"))
	if p.cursor != 2 {
		t.Errorf("cursor = %d, want clamped at 2", p.cursor)
	}
	p.key([]byte("k"))
	done, err := p.key([]byte{13})
	if !done || err != nil || p.devices[p.cursor].ID != "2" {
		t.Errorf("enter: done=%v err=%v cursor=%d", done, err, p.cursor)
	}
	if done, err := p.key([]byte{3}); !done || !errors.Is(err, ErrPickCancelled) {
		t.Errorf("ctrl+c: done=%v err=%v", done, err)
	}

	var out bytes.Buffer
	p.render(&out)
	if !strings.Contains(out.String(), "B <--") {
		t.Errorf("configured device not marked: %q", out.String())
	}
}
