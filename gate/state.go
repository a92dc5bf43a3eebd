// Package gate couples the input listener to the audio backend: it samples
// the trigger state, detects press and release edges and commits the matching
// mute value to every targeted device.
package gate

import (
	"sync"
	"sync/atomic"
)

// State is shared by the input listener and the controller. Each field has a
// single writer:
//
//   - talk is written by the listener and read by the controller.
//   - shutdown is set once by a signal handler (or any caller) and never reset.
//   - finished is closed once by the listener when it stops polling.
type State struct {
	talk     atomic.Bool
	shutdown atomic.Bool

	finished     chan struct{}
	finishedOnce sync.Once
}

func NewState() *State {
	return &State{finished: make(chan struct{})}
}

// SetTalking records whether the trigger is held.
func (s *State) SetTalking(held bool) { s.talk.Store(held) }

func (s *State) Talking() bool { return s.talk.Load() }

// Shutdown asks the listener to stop. Safe to call more than once.
func (s *State) Shutdown() { s.shutdown.Store(true) }

func (s *State) ShuttingDown() bool { return s.shutdown.Load() }

// MarkFinished signals that the listener has stopped and released its inputs.
func (s *State) MarkFinished() {
	s.finishedOnce.Do(func() { close(s.finished) })
}

// Finished is closed once the listener has stopped.
func (s *State) Finished() <-chan struct{} { return s.finished }

func (s *State) IsFinished() bool {
	select {
	case <-s.finished:
		return true
	default:
		return false
	}
}
