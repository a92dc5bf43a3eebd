package beep

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func writeWAV(t *testing.T, rate, depth, chans int, data []int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cue.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	enc := wav.NewEncoder(f, rate, depth, chans, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: chans, SampleRate: rate},
		Data:           data,
		SourceBitDepth: depth,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()
	return path
}

func TestScale(t *testing.T) {
	in := []int16{1000, -1000, 32767}
	half := scale(in, 64)
	if half[0] != 500 || half[1] != -500 || half[2] != 16383 {
		t.Errorf("scale 64 = %v", half)
	}
	if full := scale(in, MaxVolume); full[2] != 32767 {
		t.Errorf("scale 128 = %v", full)
	}
	for _, s := range scale(in, 0) {
		if s != 0 {
			t.Fatalf("volume 0 not silent: %v", scale(in, 0))
		}
	}
	if in[0] != 1000 {
		t.Error("scale modified its input")
	}
}

func TestSetVolumeClamps(t *testing.T) {
	p, err := New(Options{Volume: 500})
	if err != nil {
		t.Fatal(err)
	}
	if p.Volume() != MaxVolume {
		t.Errorf("volume = %d, want %d", p.Volume(), MaxVolume)
	}
	p.SetVolume(-3)
	if p.Volume() != 0 {
		t.Errorf("volume = %d, want 0", p.Volume())
	}
}

func TestPlayUsesVolume(t *testing.T) {
	p, err := New(Options{Volume: 32})
	if err != nil {
		t.Fatal(err)
	}
	got := make(chan []int16, 1)
	p.out = func(s []int16, rate int) {
		if rate != sampleRate {
			t.Errorf("rate = %d", rate)
		}
		got <- s
	}

	p.On()
	select {
	case s := <-got:
		src := p.sounds[CueOn].samples
		if len(s) != len(src) {
			t.Fatalf("len = %d, want %d", len(s), len(src))
		}
		for i := range s {
			if want := int16(int(src[i]) * 32 / MaxVolume); s[i] != want {
				t.Fatalf("sample %d = %d, want %d", i, s[i], want)
			}
		}
	case <-time.After(time.Second):
		t.Fatal("cue not played")
	}
}

func TestDisableSilences(t *testing.T) {
	p, err := New(Options{Volume: DefaultVolume})
	if err != nil {
		t.Fatal(err)
	}
	played := make(chan struct{}, 1)
	p.out = func([]int16, int) { played <- struct{}{} }

	Disable()
	t.Cleanup(func() { disabled.Store(false) })
	p.Off()
	select {
	case <-played:
		t.Error("disabled player produced sound")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestLoadWAVMono(t *testing.T) {
	path := writeWAV(t, 22050, 16, 1, []int{100, -200, 300})

	samples, rate, err := loadWAV(path)
	if err != nil {
		t.Fatal(err)
	}
	if rate != 22050 {
		t.Errorf("rate = %d", rate)
	}
	want := []int16{100, 100, -200, -200, 300, 300}
	if len(samples) != len(want) {
		t.Fatalf("samples = %v, want %v", samples, want)
	}
	for i := range want {
		if samples[i] != want[i] {
			t.Fatalf("samples = %v, want %v", samples, want)
		}
	}
}

func TestLoadWAV24Bit(t *testing.T) {
	path := writeWAV(t, 48000, 24, 2, []int{25600, 51200})

	samples, _, err := loadWAV(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 2 || samples[0] != 100 || samples[1] != 200 {
		t.Errorf("samples = %v, want [100 200]", samples)
	}
}

func TestNewWithCueFiles(t *testing.T) {
	on := writeWAV(t, 16000, 16, 2, []int{7, 8, 9, 10})
	p, err := New(Options{Volume: DefaultVolume, OnSound: on})
	if err != nil {
		t.Fatal(err)
	}
	if p.sounds[CueOn].rate != 16000 || len(p.sounds[CueOn].samples) != 4 {
		t.Errorf("on cue = %+v", p.sounds[CueOn])
	}
	if p.sounds[CueOff].rate != sampleRate {
		t.Error("off cue should stay generated")
	}

	if _, err := New(Options{OffSound: filepath.Join(t.TempDir(), "missing.wav")}); err == nil {
		t.Error("missing cue file accepted")
	}
}
