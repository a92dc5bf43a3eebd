// Package beep plays the short cues heard when the gate opens and closes.
package beep

import (
	"fmt"
	"math"
	"sync/atomic"

	"ptt/log"
)

var disabled atomic.Bool

// Disable silences every player (tests, --quiet).
func Disable() { disabled.Store(true) }

const (
	sampleRate = 44100

	// On cue: high pitch, short
	onFreq   = 1200
	onVolume = 0.5
	onDecay  = 60

	// Off cue: medium pitch, slightly longer
	offFreq   = 900
	offVolume = 0.5
	offDecay  = 40

	tickDuration = 0.2

	MaxVolume     = 128
	DefaultVolume = 64
)

type Cue int

const (
	CueOn Cue = iota
	CueOff
)

func (c Cue) String() string {
	if c == CueOn {
		return "on"
	}
	return "off"
}

// sound is interleaved stereo PCM at rate.
type sound struct {
	samples []int16
	rate    int
}

// Options selects the cue sounds. Empty paths use the generated ticks.
type Options struct {
	Volume   int
	OnSound  string
	OffSound string
}

// Player holds the decoded cues. Play is safe to call from any goroutine.
type Player struct {
	sounds [2]sound
	volume atomic.Int32
	out    func(samples []int16, rate int)
}

func New(opts Options) (*Player, error) {
	p := &Player{out: playSamples}
	p.SetVolume(opts.Volume)

	p.sounds[CueOn] = sound{generateTick(sampleRate, onFreq, tickDuration, onVolume, onDecay), sampleRate}
	p.sounds[CueOff] = sound{generateTick(sampleRate, offFreq, tickDuration, offVolume, offDecay), sampleRate}

	for cue, path := range map[Cue]string{CueOn: opts.OnSound, CueOff: opts.OffSound} {
		if path == "" {
			continue
		}
		samples, rate, err := loadWAV(path)
		if err != nil {
			return nil, fmt.Errorf("load %s sound: %w", cue, err)
		}
		p.sounds[cue] = sound{samples, rate}
	}
	return p, nil
}

// SetVolume sets the cue volume, clamped to 0..MaxVolume.
func (p *Player) SetVolume(v int) {
	p.volume.Store(int32(max(0, min(MaxVolume, v))))
}

func (p *Player) Volume() int { return int(p.volume.Load()) }

// Play starts the cue and returns immediately. Playback errors are logged.
func (p *Player) Play(c Cue) {
	if disabled.Load() {
		return
	}
	s := p.sounds[c]
	if len(s.samples) == 0 {
		return
	}
	go p.out(scale(s.samples, p.Volume()), s.rate)
}

func (p *Player) On()  { p.Play(CueOn) }
func (p *Player) Off() { p.Play(CueOff) }

func generateTick(sampleRate int, freq float64, duration float64, volume float64, decay float64) []int16 {
	n := int(float64(sampleRate) * duration)
	// Stereo (interleaved L/R) to match the sink format
	samples := make([]int16, n*2)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(sampleRate)
		envelope := math.Exp(-t * decay)
		s := int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
		samples[i*2] = s
		samples[i*2+1] = s
	}
	return samples
}

// scale returns a copy of samples with the amplitude multiplied by
// volume/MaxVolume.
func scale(samples []int16, volume int) []int16 {
	out := make([]int16, len(samples))
	if volume <= 0 {
		return out
	}
	for i, s := range samples {
		out[i] = int16(int(s) * volume / MaxVolume)
	}
	return out
}

func logPlaybackError(err error) {
	log.Warnf("cue playback: %v", err)
}
