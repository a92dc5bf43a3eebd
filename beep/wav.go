package beep

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

// loadWAV decodes a WAV file into interleaved stereo 16-bit samples. Mono
// files are duplicated onto both channels; extra channels are dropped.
func loadWAV(path string) ([]int16, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, errors.New("not a valid WAV file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decode: %w", err)
	}

	chans := int(dec.NumChans)
	if chans == 0 {
		return nil, 0, errors.New("WAV file declares no channels")
	}
	shift := int(dec.BitDepth) - 16

	frames := len(buf.Data) / chans
	out := make([]int16, frames*2)
	for i := 0; i < frames; i++ {
		l := buf.Data[i*chans]
		r := l
		if chans > 1 {
			r = buf.Data[i*chans+1]
		}
		out[i*2] = to16(l, shift)
		out[i*2+1] = to16(r, shift)
	}
	return out, int(dec.SampleRate), nil
}

func to16(v, shift int) int16 {
	switch {
	case shift > 0:
		v >>= shift
	case shift < 0:
		v <<= -shift
	}
	return int16(v)
}
