// Package screenshot captures the host screen using whichever capture tool
// is installed.
package screenshot

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Grabber writes PNG captures under CacheDir/screenshots.
type Grabber struct {
	CacheDir string
}

func (g *Grabber) Capture(ctx context.Context) (string, error) {
	return Capture(ctx, g.CacheDir)
}

func commandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func selectCaptureCmd(ctx context.Context, dstPath string) *exec.Cmd {
	if commandExists("grim") {
		return exec.CommandContext(ctx, "grim", dstPath)
	}
	if commandExists("gnome-screenshot") {
		return exec.CommandContext(ctx, "gnome-screenshot", "-f", dstPath)
	}
	if commandExists("scrot") {
		return exec.CommandContext(ctx, "scrot", "-o", dstPath)
	}
	if commandExists("import") {
		// ImageMagick: capture the root window.
		return exec.CommandContext(ctx, "import", "-window", "root", dstPath)
	}
	if commandExists("screencapture") {
		return exec.CommandContext(ctx, "screencapture", "-x", dstPath)
	}
	return nil
}

func Capture(ctx context.Context, cacheDir string) (string, error) {
	cacheDir = strings.TrimSpace(cacheDir)
	if cacheDir == "" {
		return "", fmt.Errorf("cache dir is not configured")
	}
	shotDir := filepath.Join(cacheDir, "screenshots")
	if err := os.MkdirAll(shotDir, 0o700); err != nil {
		return "", err
	}
	dstPath := filepath.Join(shotDir, fmt.Sprintf("screen_%d.png", time.Now().UTC().UnixMilli()))

	cmd := selectCaptureCmd(ctx, dstPath)
	if cmd == nil {
		return "", fmt.Errorf("no screenshot tool found (install one of: grim, gnome-screenshot, scrot, import, screencapture)")
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("screenshot failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	if _, err := os.Stat(dstPath); err != nil {
		return "", fmt.Errorf("screenshot produced no file: %w", err)
	}
	_ = os.Chmod(dstPath, 0o600)
	return dstPath, nil
}
