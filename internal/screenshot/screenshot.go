// Package screenshot captures the screen through the platform's
// native capture tool and hands back the image path for attachment.
package screenshot

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"gemai/internal/config"
	"gemai/internal/logging"
)

// Path is where captures land, overwritten on every run.
func Path() string {
	return filepath.Join(config.Dir(), "screenshot.png")
}

// Capture takes a screenshot. With selection=true the user draws a
// region (where the platform tool supports it); otherwise the full
// screen is captured.
func Capture(ctx context.Context, selection bool) (string, error) {
	out := Path()
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", fmt.Errorf("create screenshot directory: %w", err)
	}

	cmd, err := captureCommand(ctx, out, selection)
	if err != nil {
		return "", err
	}

	logging.L(logging.CategoryUI).Debugw("capturing screen", "tool", cmd.Path, "selection", selection)
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("screen capture failed: %w: %s", err, output)
	}
	if stat, err := os.Stat(out); err != nil || stat.Size() == 0 {
		return "", fmt.Errorf("screen capture produced no image (cancelled?)")
	}
	return out, nil
}

func captureCommand(ctx context.Context, out string, selection bool) (*exec.Cmd, error) {
	switch runtime.GOOS {
	case "darwin":
		args := []string{"-x"}
		if selection {
			args = append(args, "-s")
		}
		args = append(args, out)
		return exec.CommandContext(ctx, "screencapture", args...), nil
	case "linux":
		// Wayland first, X11 fallback.
		if _, err := exec.LookPath("grim"); err == nil {
			return exec.CommandContext(ctx, "grim", out), nil
		}
		if _, err := exec.LookPath("scrot"); err == nil {
			args := []string{"--overwrite"}
			if selection {
				args = append(args, "-s")
			}
			args = append(args, out)
			return exec.CommandContext(ctx, "scrot", args...), nil
		}
		return nil, fmt.Errorf("no screenshot tool found (install grim or scrot)")
	default:
		return nil, fmt.Errorf("screen capture is not supported on %s", runtime.GOOS)
	}
}
