package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Level mirrors the four severities the gate reports at. Critical maps onto
// zerolog's fatal level but never exits the process.
type Level int

const (
	LevelVerbose Level = iota
	LevelInfo
	LevelWarn
	LevelCritical
)

var (
	diagLog  zerolog.Logger
	diagFile *os.File
	console  io.Writer = os.Stdout
	logMu    sync.Mutex
	level    = LevelInfo
	pid      int
	dir      string
)

func init() {
	pid = os.Getpid()
	rebuild()
}

func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "verbose", "debug":
		return LevelVerbose, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "critical", "error":
		return LevelCritical, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case LevelVerbose:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelCritical:
		return zerolog.FatalLevel
	}
	return zerolog.InfoLevel
}

func formatLevel(i any) string {
	s, _ := i.(string)
	switch s {
	case zerolog.LevelDebugValue:
		return "VRB"
	case zerolog.LevelInfoValue:
		return "INF"
	case zerolog.LevelWarnValue:
		return "WRN"
	case zerolog.LevelFatalValue, zerolog.LevelErrorValue:
		return "CRT"
	}
	return strings.ToUpper(s)
}

// rebuild must be called with logMu held (or before any concurrent use).
func rebuild() {
	writers := []io.Writer{zerolog.ConsoleWriter{
		Out:         console,
		TimeFormat:  "15:04:05",
		NoColor:     true,
		FormatLevel: formatLevel,
	}}
	if diagFile != nil {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:         diagFile,
			TimeFormat:  "2006-01-02 15:04:05",
			NoColor:     true,
			FormatLevel: formatLevel,
		})
	}
	diagLog = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level.zerolog()).
		With().Timestamp().Int("pid", pid).Logger()
}

// SetOutput redirects console output. Tests use it to capture log lines.
func SetOutput(w io.Writer) {
	logMu.Lock()
	defer logMu.Unlock()
	console = w
	rebuild()
}

func SetLevel(l Level) {
	logMu.Lock()
	defer logMu.Unlock()
	level = l
	rebuild()
}

// ResolveDir returns the directory for ptt.log: the log.path setting when
// set, otherwise the per-user state directory.
func ResolveDir(path string) (string, error) {
	if path != "" {
		return absPath(path)
	}
	return getDefaultDir()
}

func absPath(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

// Init opens ptt.log inside Dir() in addition to the console writer.
func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	f, err := os.OpenFile(filepath.Join(dir, "ptt.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	diagFile = f
	rebuild()
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	rebuild()
}

func logger() *zerolog.Logger {
	logMu.Lock()
	defer logMu.Unlock()
	l := diagLog
	return &l
}

func Verbose(msg string) { logger().Debug().Msg(msg) }

func Verbosef(format string, args ...any) { logger().Debug().Msg(fmt.Sprintf(format, args...)) }

func Info(msg string) { logger().Info().Msg(msg) }

func Infof(format string, args ...any) { logger().Info().Msg(fmt.Sprintf(format, args...)) }

func Warn(msg string) { logger().Warn().Msg(msg) }

func Warnf(format string, args ...any) { logger().Warn().Msg(fmt.Sprintf(format, args...)) }

// Critical reports a failure the gate cannot recover from. The process keeps
// running; callers decide whether to stop.
func Critical(msg string) { logger().WithLevel(zerolog.FatalLevel).Msg(msg) }

func Criticalf(format string, args ...any) {
	logger().WithLevel(zerolog.FatalLevel).Msg(fmt.Sprintf(format, args...))
}

func SessionStart(backend, mic, mode string) {
	logger().Info().
		Str("backend", backend).
		Str("mic", mic).
		Str("mode", mode).
		Msg("session_start")
}

func SessionEnd(transitions int, uptime time.Duration) {
	logger().Info().
		Int("transitions", transitions).
		Dur("uptime", uptime).
		Msg("session_end")
}

// Transition logs one gate edge with the number of devices committed.
func Transition(open bool, commits int, took time.Duration) {
	state := "muted"
	if open {
		state = "talking"
	}
	logger().Debug().
		Str("gate", state).
		Int("commits", commits).
		Float64("commit_ms", float64(took.Microseconds())/1000).
		Msg("gate_transition")
}
