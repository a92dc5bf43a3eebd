package gate

import "testing"

func TestStateFlags(t *testing.T) {
	s := NewState()
	if s.Talking() || s.ShuttingDown() || s.IsFinished() {
		t.Fatal("new state should be idle")
	}

	s.SetTalking(true)
	s.SetTalking(false)
	s.SetTalking(true)
	if !s.Talking() {
		t.Error("last write should win")
	}

	s.Shutdown()
	s.Shutdown()
	if !s.ShuttingDown() {
		t.Error("shutdown not recorded")
	}

	s.MarkFinished()
	s.MarkFinished()
	select {
	case <-s.Finished():
	default:
		t.Error("finished channel not closed")
	}
}
