package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"ptt/audio"
	"ptt/beep"
	"ptt/config"
	"ptt/doctor"
	"ptt/gate"
	"ptt/input"
	"ptt/log"
	"ptt/login"
	"ptt/shutdown"
)

var version = "dev"

type options struct {
	configPath string
	tui        bool
	quiet      bool
	strict     bool
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "ptt",
		Short: "Push-to-talk microphone gate",
		Long: `ptt keeps a microphone muted and unmutes it only while a key or a mouse
side button is held.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/ptt/config.toml)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log every commit")
	root.Flags().BoolVar(&opts.tui, "tui", false, "show a status view instead of log lines")
	root.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "do not play cues")
	root.Flags().BoolVar(&opts.strict, "strict", false, "exit with an error when input, audio or cue setup fails")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ptt %s\n", version)
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List capture devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			backend, err := openBackend(cfg)
			if err != nil {
				return err
			}
			defer backend.Close()
			devices, err := backend.Devices()
			if err != nil {
				return err
			}
			printDevices(cmd.OutOrStdout(), devices, cfg.Mic)
			return nil
		},
	}

	setupCmd := &cobra.Command{
		Use:   "setup",
		Short: "Pick the microphone to gate and save it to the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			backend, err := openBackend(cfg)
			if err != nil {
				return err
			}
			defer backend.Close()
			devices, err := backend.Devices()
			if err != nil {
				return err
			}
			dev, err := audio.SelectDevice(devices, cfg.Mic)
			if err != nil {
				return err
			}
			path, err := store.SetMic(dev.Description)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved mic %q to %s\n", dev.Description, path)
			if audio.IsBluetooth(*dev) {
				fmt.Fprintln(cmd.OutOrStdout(), "Note: Bluetooth headsets may drop the mute control when switching profiles.")
			}
			return nil
		},
	}

	doctorCmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check input access, the audio server and the configured microphone",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			d := &doctor.Doctor{
				Out:         cmd.OutOrStdout(),
				Trigger:     cfg.Trigger,
				Mic:         cfg.Mic,
				OpenBackend: func() (audio.Backend, error) { return openBackend(cfg) },
			}
			if code := d.Run(); code != 0 {
				os.Exit(code)
			}
			return nil
		},
	}

	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Start ptt with the user session (systemd user unit)",
	}
	loginCmd.AddCommand(
		&cobra.Command{
			Use:   "enable",
			Short: "Install and start the user unit",
			RunE: func(cmd *cobra.Command, args []string) error {
				var unitArgs []string
				if opts.configPath != "" {
					abs, err := filepath.Abs(opts.configPath)
					if err != nil {
						return err
					}
					unitArgs = append(unitArgs, "--config", abs)
				}
				if err := login.Enable(unitArgs...); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "ptt will start with your session.")
				return nil
			},
		},
		&cobra.Command{
			Use:   "disable",
			Short: "Stop and remove the user unit",
			RunE: func(cmd *cobra.Command, args []string) error {
				return login.Disable()
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Report whether the user unit is installed",
			Run: func(cmd *cobra.Command, args []string) {
				if login.Enabled() {
					fmt.Fprintln(cmd.OutOrStdout(), "enabled")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "disabled")
				}
			},
		},
	)

	root.AddCommand(versionCmd, listCmd, setupCmd, doctorCmd, loginCmd)
	return root
}

func loadConfig(opts *options) (*config.Store, *config.Config, error) {
	store, err := config.Open(opts.configPath)
	if err != nil {
		return nil, nil, err
	}
	cfg := store.Config()
	level := cfg.LogLevel
	if opts.verbose {
		level = log.LevelVerbose
	}
	log.SetLevel(level)
	return store, cfg, nil
}

func openBackend(cfg *config.Config) (audio.Backend, error) {
	return audio.New(cfg.Backend, audio.Options{PipeWireParams: cfg.PipeWireParams})
}

func printDevices(w io.Writer, devices []audio.Device, mic string) {
	captures := audio.Captures(devices)
	if len(captures) == 0 {
		fmt.Fprintln(w, "No capture devices found.")
		return
	}
	for _, d := range captures {
		line := "  " + d.Description
		if d.Description == mic {
			line += " <--"
		}
		if audio.IsBluetooth(d) {
			line += " [bluetooth]"
		}
		fmt.Fprintln(w, line)
	}
}

func run(ctx context.Context, opts *options) error {
	store, cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	// The status view owns the terminal, so it always logs to a file too.
	if cfg.LogPath != "" || opts.tui {
		dir, err := log.ResolveDir(cfg.LogPath)
		if err == nil {
			log.SetDir(dir)
			err = log.Init()
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
		}
	}
	defer log.Close()

	// inert reports a setup failure. Unless strict, the gate keeps running
	// without the failed piece.
	inert := func(what string, err error) error {
		log.Criticalf("%s: %v", what, err)
		if opts.strict {
			return fmt.Errorf("%s: %w", what, err)
		}
		return nil
	}

	if err := store.Err(); err != nil && opts.strict {
		log.Criticalf("Failed to load the config file: %v", err)
		return err
	}

	state := gate.NewState()

	var sink EventSink
	var prog *tea.Program
	if opts.tui {
		prog = NewTUIProgram(cfg.Mic, cfg.Trigger.String())
		sink = &tuiSink{p: prog}
		log.SetOutput(&tuiLogWriter{sink: sink})
		defer log.SetOutput(os.Stdout)
		go func() {
			if _, err := prog.Run(); err != nil {
				fmt.Fprintf(os.Stderr, "status view: %v\n", err)
			}
			state.Shutdown()
		}()
		defer func() {
			prog.Quit()
			prog.Wait()
		}()
	}

	var gateOpts []gate.Option
	gateOpts = append(gateOpts, gate.WithPollInterval(cfg.PollInterval))
	if sink != nil {
		gateOpts = append(gateOpts, gate.WithEvents(sink))
	}

	if opts.quiet {
		beep.Disable()
	}
	player, err := beep.New(beep.Options{Volume: cfg.Volume, OnSound: cfg.OnSound, OffSound: cfg.OffSound})
	if err != nil {
		if err := inert("Failed to load cue sounds", err); err != nil {
			return err
		}
	} else {
		gateOpts = append(gateOpts, gate.WithCues(player))
		store.Watch(func(volume int) {
			if volume != player.Volume() {
				log.Infof("cue volume set to %d", volume)
				player.SetVolume(volume)
			}
		})
	}

	var matched []audio.Device
	backend, err := openBackend(cfg)
	if err != nil {
		if err := inert("Failed to connect to the audio server", err); err != nil {
			return err
		}
	} else {
		defer backend.Close()
		if cfg.Mic == "" {
			log.Warn("no mic configured (run: ptt setup). Detected capture devices:")
			if devices, err := backend.Devices(); err == nil {
				for _, d := range audio.Captures(devices) {
					log.Infof("  %s", d.Description)
				}
			}
		} else {
			cat := audio.NewCatalog(backend, cfg.Mic)
			cat.OnAdded = func(d audio.Device) { log.Infof("matched %s", d) }
			cat.OnRemoved = func(d audio.Device) { log.Warnf("lost %s", d) }
			matched, err = cat.Refresh()
			if err != nil {
				log.Warnf("%v", err)
			}
			gateOpts = append(gateOpts, gate.WithCatalog(cat, cfg.RescanInterval))
		}
	}

	log.SessionStart(cfg.Backend, cfg.Mic, cfg.Trigger.Mode.String())
	ctl := gate.New(state, backend, matched, gateOpts...)

	listener := input.NewListener(cfg.Trigger, state, input.OpenEvdev, cfg.InputTimeout)
	listener.Strict = opts.strict

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go shutdown.Watch(watchCtx, state)

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return listener.Run(gctx) })
	g.Go(func() error { return ctl.Run(gctx) })
	err = g.Wait()

	log.Verbosef("stopped after %s", time.Since(start).Round(time.Millisecond))
	return err
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
