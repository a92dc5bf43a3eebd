//go:build !linux

package beep

import "errors"

func playSamples(samples []int16, rate int) {
	logPlaybackError(errors.New("no cue output on this platform"))
}
