package main

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"ptt/audio"
	"ptt/gate"
)

// EventSink abstracts the display layer so the status view receives the same
// gate events the log does.
type EventSink interface {
	gate.Events
	LogLine(text string)
}

type tuiSink struct {
	p *tea.Program
}

func (s *tuiSink) GateChanged(open bool, commits int) {
	s.p.Send(GateMsg{Open: open, Commits: commits})
}

func (s *tuiSink) DevicesChanged(devices []audio.Device) {
	names := make([]string, len(devices))
	for i, d := range devices {
		names[i] = d.Description
	}
	s.p.Send(DevicesMsg{Names: names})
}

func (s *tuiSink) LogLine(text string) {
	s.p.Send(LogMsg{Text: text})
}

// tuiLogWriter feeds log output into the status view, one message per line.
type tuiLogWriter struct {
	sink EventSink
}

func (w *tuiLogWriter) Write(b []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(b), "\n"), "\n") {
		if line != "" {
			w.sink.LogLine(line)
		}
	}
	return len(b), nil
}
