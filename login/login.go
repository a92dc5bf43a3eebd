// Package login starts the gate with the user session through a systemd user
// unit.
package login

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const unitName = "ptt.service"

// systemctl runs systemctl --user; replaced in tests.
var systemctl = func(args ...string) ([]byte, error) {
	return exec.Command("systemctl", append([]string{"--user"}, args...)...).CombinedOutput()
}

func unitPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "systemd", "user", unitName), nil
}

func Enabled() bool {
	path, err := unitPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

func unit(exe string, args []string) string {
	cmd := append([]string{exe}, args...)
	for i, a := range cmd {
		if strings.ContainsAny(a, " \t\"'\\") {
			cmd[i] = `"` + strings.ReplaceAll(strings.ReplaceAll(a, `\`, `\\`), `"`, `\"`) + `"`
		}
	}
	return fmt.Sprintf(`[Unit]
Description=Push-to-talk microphone gate
After=pipewire.service pulseaudio.service

[Service]
ExecStart=%s
Restart=on-failure
RestartSec=3

[Install]
WantedBy=default.target
`, strings.Join(cmd, " "))
}

// Enable installs the unit for the running executable and starts it. args are
// passed to ptt (for example --config).
func Enable(args ...string) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	path, err := unitPath()
	if err != nil {
		return fmt.Errorf("locate unit dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create unit dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(unit(exe, args)), 0644); err != nil {
		return fmt.Errorf("write unit: %w", err)
	}

	if out, err := systemctl("daemon-reload"); err != nil {
		return fmt.Errorf("systemctl daemon-reload: %w (%s)", err, out)
	}
	if out, err := systemctl("enable", "--now", unitName); err != nil {
		return fmt.Errorf("systemctl enable: %w (%s)", err, out)
	}
	return nil
}

func Disable() error {
	path, err := unitPath()
	if err != nil {
		return fmt.Errorf("locate unit dir: %w", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	// Stopping may fail when the unit never ran.
	systemctl("disable", "--now", unitName)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove unit: %w", err)
	}
	systemctl("daemon-reload")
	return nil
}
