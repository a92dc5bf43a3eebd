package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"ptt/audio"
)

type recordingSink struct {
	lines []string
}

func (r *recordingSink) GateChanged(bool, int)           {}
func (r *recordingSink) DevicesChanged([]audio.Device) {}
func (r *recordingSink) LogLine(text string)           { r.lines = append(r.lines, text) }

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if got := out.String(); got != "ptt dev\n" {
		t.Errorf("version output = %q", got)
	}
}

func TestRootRejectsArgs(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"bogus"})
	if err := cmd.Execute(); err == nil {
		t.Error("unknown argument accepted")
	}
}

func TestBrokenConfigOnlyFailsStrict(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("mic: [unterminated\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	opts := &options{configPath: path}

	store, cfg, err := loadConfig(opts)
	if err != nil {
		t.Fatalf("loadConfig = %v, want defaults", err)
	}
	if store.Err() == nil || cfg.Volume != 64 {
		t.Errorf("store err = %v, volume = %d", store.Err(), cfg.Volume)
	}

	opts.strict = true
	if err := run(context.Background(), opts); err == nil {
		t.Error("strict run accepted a broken config")
	}
}

func TestPrintDevices(t *testing.T) {
	devices := []audio.Device{
		{ID: "1", Description: "Built-in Audio", Capture: true},
		{ID: "2", Description: "USB Mic", Capture: true},
		{ID: "3", Description: "HDMI Output"},
		{ID: "4", Description: "Jabra Evolve", Capture: true},
	}
	var out bytes.Buffer
	printDevices(&out, devices, "USB Mic")

	want := "  Built-in Audio\n  USB Mic <--\n  Jabra Evolve [bluetooth]\n"
	if out.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", out.String(), want)
	}

	out.Reset()
	printDevices(&out, nil, "")
	if !strings.Contains(out.String(), "No capture devices") {
		t.Errorf("empty list output = %q", out.String())
	}
}

func TestLogWriterSplitsLines(t *testing.T) {
	sink := &recordingSink{}
	w := &tuiLogWriter{sink: sink}
	n, err := w.Write([]byte("12:00:00 INF one\n12:00:01 WRN two\n"))
	if err != nil || n == 0 {
		t.Fatalf("Write = %d, %v", n, err)
	}
	if len(sink.lines) != 2 || sink.lines[1] != "12:00:01 WRN two" {
		t.Errorf("lines = %q", sink.lines)
	}
}

func update(m tuiModel, msg tea.Msg) tuiModel {
	next, _ := m.Update(msg)
	return next.(tuiModel)
}

func TestTUIModel(t *testing.T) {
	m := newTUIModel("USB Mic", "mouse side buttons")
	if !strings.Contains(m.View(), "muted") {
		t.Errorf("initial view:\n%s", m.View())
	}

	m = update(m, DevicesMsg{Names: []string{"USB Mic"}})
	start := time.Now()
	m = update(m, tickMsg(start))
	m = update(m, GateMsg{Open: true, Commits: 1})
	m = update(m, tickMsg(start.Add(1500*time.Millisecond)))

	view := m.View()
	if !strings.Contains(view, "TALK 1.5s") {
		t.Errorf("talking view:\n%s", view)
	}
	if !strings.Contains(view, "1 device(s) gated, 1 transition(s)") {
		t.Errorf("device line missing:\n%s", view)
	}

	m = update(m, GateMsg{Open: false, Commits: 1})
	if !strings.Contains(m.View(), "muted") {
		t.Errorf("released view:\n%s", m.View())
	}

	m = update(m, DevicesMsg{})
	if !strings.Contains(m.View(), "not detected") {
		t.Errorf("missing device view:\n%s", m.View())
	}
}

func TestTUIKeepsLastLogLines(t *testing.T) {
	m := newTUIModel("", "key 't'")
	for i := 0; i < logLines+3; i++ {
		m = update(m, LogMsg{Text: strings.Repeat("x", i+1)})
	}
	if len(m.logs) != logLines {
		t.Fatalf("kept %d lines, want %d", len(m.logs), logLines)
	}
	if m.logs[logLines-1] != strings.Repeat("x", logLines+3) {
		t.Errorf("newest line not kept: %q", m.logs[logLines-1])
	}
	if !strings.Contains(m.View(), "(none configured)") {
		t.Errorf("view:\n%s", m.View())
	}
}

func TestTUIQuit(t *testing.T) {
	m := newTUIModel("", "")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("ctrl+c did not quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("ctrl+c command is not tea.Quit")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdefgh", 6); got != "abc..." {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("abc", 0); got != "abc" {
		t.Errorf("zero width = %q", got)
	}
}
