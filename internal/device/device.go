// Package device wraps the OS-level wake, volume, and playback primitives
// behind a stable interface. Every call can fail independently and carries its
// own timeout; failures never propagate as crashes.
package device

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"ezan-player-backend/config"
)

// ErrNotConfigured is returned when the config has no command for a capability.
var ErrNotConfigured = errors.New("device command not configured")

// Controller is the device capability consumed by the trigger executor.
type Controller interface {
	// Wake wakes the device display/audio path.
	Wake(ctx context.Context) error
	// Volume reports the current output volume in 0..100.
	Volume(ctx context.Context) (int, error)
	// SetVolume sets the output volume; level is clamped to 0..100.
	SetVolume(ctx context.Context, level int) error
	// Play opens the given media URL with the configured player command.
	Play(ctx context.Context, url string) error
}

var volumeRe = regexp.MustCompile(`\d+`)

// ExecController runs configured argv templates for each capability.
type ExecController struct {
	cfg *config.DeviceConfig
}

// NewExecController creates a Controller backed by OS commands.
func NewExecController(cfg *config.DeviceConfig) *ExecController {
	return &ExecController{cfg: cfg}
}

func (c *ExecController) Wake(ctx context.Context) error {
	_, err := c.run(ctx, c.cfg.WakeCmd, nil)
	return err
}

func (c *ExecController) Volume(ctx context.Context) (int, error) {
	out, err := c.run(ctx, c.cfg.GetVolumeCmd, nil)
	if err != nil {
		return 0, err
	}
	m := volumeRe.FindString(string(out))
	if m == "" {
		return 0, fmt.Errorf("no volume level in command output %q", strings.TrimSpace(string(out)))
	}
	level, err := strconv.Atoi(m)
	if err != nil {
		return 0, fmt.Errorf("failed to parse volume level %q: %w", m, err)
	}
	return Clamp(level), nil
}

func (c *ExecController) SetVolume(ctx context.Context, level int) error {
	repl := map[string]string{"{level}": strconv.Itoa(Clamp(level))}
	_, err := c.run(ctx, c.cfg.SetVolumeCmd, repl)
	return err
}

func (c *ExecController) Play(ctx context.Context, url string) error {
	repl := map[string]string{"{url}": url}
	_, err := c.run(ctx, c.cfg.PlayCmd, repl)
	return err
}

// run executes an argv template after placeholder substitution, bounded by the
// configured per-call timeout.
func (c *ExecController) run(ctx context.Context, argv []string, repl map[string]string) ([]byte, error) {
	if len(argv) == 0 {
		return nil, ErrNotConfigured
	}

	args := make([]string, len(argv))
	for i, a := range argv {
		for placeholder, value := range repl {
			a = strings.ReplaceAll(a, placeholder, value)
		}
		args[i] = a
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	out, err := exec.CommandContext(callCtx, args[0], args[1:]...).CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("command %s failed: %w (output: %s)", args[0], err, strings.TrimSpace(string(out)))
	}
	return out, nil
}

// Clamp confines a volume level to the valid 0..100 range.
func Clamp(level int) int {
	if level < 0 {
		return 0
	}
	if level > 100 {
		return 100
	}
	return level
}
