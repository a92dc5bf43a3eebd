package log

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func setupLogDir(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	SetDir(tmp)
	t.Cleanup(func() { Close(); SetDir("") })
	return tmp
}

func captureOutput(t *testing.T, l Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(l)
	t.Cleanup(func() {
		SetOutput(os.Stdout)
		SetLevel(LevelInfo)
	})
	return &buf
}

func TestResolveDirFlag(t *testing.T) {
	got, err := ResolveDir("/tmp/mylog")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/mylog" {
		t.Errorf("got %q, want /tmp/mylog", got)
	}
}

func TestResolveDirFlagRelative(t *testing.T) {
	got, err := ResolveDir("logs")
	if err != nil {
		t.Fatal(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(wd, "logs")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResolveDirDefault(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/tmp/state")
	got, err := ResolveDir("")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/state/ptt" {
		t.Errorf("got %q, want /tmp/state/ptt", got)
	}
}

func TestInitCreatesFile(t *testing.T) {
	tmp := setupLogDir(t)
	captureOutput(t, LevelInfo)

	if err := Init(); err != nil {
		t.Fatal(err)
	}
	Info("hello file")

	data, err := os.ReadFile(filepath.Join(tmp, "ptt.log"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "hello file") {
		t.Errorf("ptt.log missing message, got: %q", data)
	}
}

func TestCloseIdempotent(t *testing.T) {
	setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}
	Close()
	Close() // should not panic
}

func TestLevelFiltering(t *testing.T) {
	buf := captureOutput(t, LevelInfo)

	Verbose("hidden detail")
	Info("shown info")
	if strings.Contains(buf.String(), "hidden detail") {
		t.Errorf("verbose line printed at info level: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "INF shown info") {
		t.Errorf("info line missing: %q", buf.String())
	}

	SetLevel(LevelVerbose)
	Verbosef("now %s", "visible")
	if !strings.Contains(buf.String(), "VRB now visible") {
		t.Errorf("verbose line missing at verbose level: %q", buf.String())
	}
}

func TestCriticalDoesNotExit(t *testing.T) {
	buf := captureOutput(t, LevelCritical)

	Warn("dropped warning")
	Criticalf("mic %q was not detected", "USB")

	out := buf.String()
	if strings.Contains(out, "dropped warning") {
		t.Errorf("warning printed at critical level: %q", out)
	}
	if !strings.Contains(out, `CRT mic "USB" was not detected`) {
		t.Errorf("critical line missing: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"", LevelInfo, false},
		{"verbose", LevelVerbose, false},
		{"DEBUG", LevelVerbose, false},
		{"warn", LevelWarn, false},
		{"critical", LevelCritical, false},
		{"loud", LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
