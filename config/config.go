// Package config loads the gate settings from the config file and PTT_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"ptt/beep"
	"ptt/gate"
	"ptt/input"
	"ptt/log"
)

const envPrefix = "PTT"

// Config is the resolved settings. It is immutable once loaded; only the cue
// volume follows file changes.
type Config struct {
	Mic            string
	Trigger        input.Trigger
	Volume         int
	Backend        string
	PollInterval   time.Duration
	InputTimeout   time.Duration
	RescanInterval time.Duration
	OnSound        string
	OffSound       string
	PipeWireParams []string
	LogLevel       log.Level
	LogPath        string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mic", "")
	v.SetDefault("key", "")
	v.SetDefault("mode", "auto")
	v.SetDefault("volume", beep.DefaultVolume)
	v.SetDefault("backend", "pipewire")
	v.SetDefault("poll_interval", gate.DefaultPollInterval)
	v.SetDefault("input_timeout", input.DefaultTimeout)
	v.SetDefault("rescan_interval", gate.DefaultRescanInterval)
	v.SetDefault("on_sound", "")
	v.SetDefault("off_sound", "")
	v.SetDefault("pipewire.params", []string{"Route", "Props"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.path", "")
}

// Store wraps the viper instance backing a Config.
type Store struct {
	v    *viper.Viper
	path string // file read, empty when running on defaults

	broken string // file that failed to parse
	err    error
}

// DefaultDir is $XDG_CONFIG_HOME/ptt (or ~/.config/ptt).
func DefaultDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "ptt"), nil
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Open reads the config file at path, or searches the default directory for
// config.{toml,yaml,json} when path is empty. A missing file is not an error.
// A file that cannot be parsed is reported and the store falls back to
// defaults and the environment; Err returns the parse error.
func Open(path string) (*Store, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		dir, err := DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("locate config dir: %w", err)
		}
		v.SetConfigName("config")
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			log.Info("no config file found, using defaults")
			return &Store{v: v}, nil
		}
		broken := v.ConfigFileUsed()
		log.Warnf("could not read config %s, using defaults: %v", broken, err)
		return &Store{v: newViper(), broken: broken, err: fmt.Errorf("read config: %w", err)}, nil
	}
	s := &Store{v: v, path: v.ConfigFileUsed()}
	log.Verbosef("config loaded from %s", s.path)
	return s, nil
}

// Err returns the error that made Open fall back to defaults, if any.
func (s *Store) Err() error { return s.err }

// Path returns the config file in use, or "" when none was found.
func (s *Store) Path() string { return s.path }

// explicit reports whether key came from the file or the environment.
func (s *Store) explicit(key string) bool {
	if s.v.InConfig(key) {
		return true
	}
	env := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
	_, ok := os.LookupEnv(env)
	return ok
}

// Config resolves the current settings. Invalid values are reported and
// replaced by their defaults.
func (s *Store) Config() *Config {
	v := s.v
	for _, k := range []string{"mic", "key", "volume"} {
		if !s.explicit(k) {
			log.Infof("%s not set, using default %q", k, v.GetString(k))
		}
	}

	c := &Config{
		Mic:            strings.TrimSpace(v.GetString("mic")),
		Backend:        v.GetString("backend"),
		PollInterval:   v.GetDuration("poll_interval"),
		InputTimeout:   v.GetDuration("input_timeout"),
		RescanInterval: v.GetDuration("rescan_interval"),
		OnSound:        v.GetString("on_sound"),
		OffSound:       v.GetString("off_sound"),
		PipeWireParams: v.GetStringSlice("pipewire.params"),
		LogPath:        v.GetString("log.path"),
	}

	key, err := input.ParseKey(v.GetString("key"))
	if err != nil {
		log.Warnf("%v, ignoring it", err)
	}
	mode, err := input.ParseMode(v.GetString("mode"), key)
	if err != nil {
		log.Warnf("%v, using auto", err)
		mode, _ = input.ParseMode("auto", key)
	}
	c.Trigger = input.Trigger{Key: key, Mode: mode}
	switch {
	case key != 0 && !input.Typeable(key):
		log.Warnf("key %q cannot be typed on a US layout, it will never trigger", key)
	case key == 0 && mode == input.KeyboardOnly:
		log.Warn("mode is keyboard but no key is set, nothing will trigger")
	}

	c.Volume = s.volume(true)

	if c.PollInterval <= 0 {
		log.Warnf("poll_interval must be positive, using %s", gate.DefaultPollInterval)
		c.PollInterval = gate.DefaultPollInterval
	}
	if c.InputTimeout <= 0 {
		log.Warnf("input_timeout must be positive, using %s", input.DefaultTimeout)
		c.InputTimeout = input.DefaultTimeout
	}
	if c.RescanInterval < 0 {
		c.RescanInterval = 0
	}

	c.LogLevel, err = log.ParseLevel(v.GetString("log.level"))
	if err != nil {
		log.Warnf("%v, using info", err)
	}
	return c
}

func (s *Store) volume(warn bool) int {
	vol := s.v.GetInt("volume")
	if vol < 0 || vol > beep.MaxVolume {
		clamped := max(0, min(beep.MaxVolume, vol))
		if warn {
			log.Warnf("volume %d out of range 0..%d, using %d", vol, beep.MaxVolume, clamped)
		}
		return clamped
	}
	return vol
}

// Watch calls onVolume with the cue volume whenever the config file changes.
// Other settings need a restart. It does nothing when no file is in use.
func (s *Store) Watch(onVolume func(volume int)) {
	if s.path == "" {
		return
	}
	s.v.OnConfigChange(func(e fsnotify.Event) {
		log.Verbosef("config changed (%s)", e.Op)
		onVolume(s.volume(false))
	})
	s.v.WatchConfig()
}

// SetMic stores the target device name in the config file, creating
// config.toml in the default directory when no file exists yet.
func (s *Store) SetMic(name string) (string, error) {
	if s.broken != "" {
		return "", fmt.Errorf("not overwriting %s: %w", s.broken, s.err)
	}
	s.v.Set("mic", name)
	if s.path != "" {
		if err := s.v.WriteConfig(); err != nil {
			return "", fmt.Errorf("write config: %w", err)
		}
		return s.path, nil
	}

	dir, err := DefaultDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	path := filepath.Join(dir, "config.toml")
	if err := s.v.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}
	s.path = path
	return path, nil
}
