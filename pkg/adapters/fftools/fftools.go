// Package fftools locates the ffmpeg and ffprobe executables.
package fftools

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
)

// Tool names an ffmpeg suite executable.
type Tool string

const (
	FFmpeg  Tool = "ffmpeg"
	FFprobe Tool = "ffprobe"
)

// ErrNotFound is returned when a tool is not installed.
var ErrNotFound = errors.New("fftools: executable not found")

var (
	mu          sync.RWMutex
	customPaths = map[Tool]string{}
)

// SetPath overrides the location of a tool. An empty path restores the
// default search.
func SetPath(tool Tool, path string) {
	mu.Lock()
	defer mu.Unlock()
	if path == "" {
		delete(customPaths, tool)
		return
	}
	customPaths[tool] = path
}

// envVar returns the environment variable consulted for a tool,
// e.g. FFMPEG_PATH.
func (t Tool) envVar() string {
	return strings.ToUpper(string(t)) + "_PATH"
}

// Find searches for the tool.
// Priority: 1) SetPath, 2) <TOOL>_PATH env, 3) PATH, 4) common locations
func Find(tool Tool) (string, error) {
	mu.RLock()
	custom := customPaths[tool]
	mu.RUnlock()

	if custom != "" {
		if _, err := os.Stat(custom); err == nil {
			return custom, nil
		}
		return "", fmt.Errorf("%w: %s custom path %s", ErrNotFound, tool, custom)
	}

	if envPath := os.Getenv(tool.envVar()); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
		return "", fmt.Errorf("%w: %s %s", ErrNotFound, tool.envVar(), envPath)
	}

	execName := string(tool)
	if runtime.GOOS == "windows" {
		execName += ".exe"
	}
	if path, err := exec.LookPath(execName); err == nil {
		return path, nil
	}

	for _, p := range commonPaths(execName) {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, tool)
}

// Available reports whether the tool can be found.
func Available(tool Tool) bool {
	_, err := Find(tool)
	return err == nil
}

func commonPaths(execName string) []string {
	switch runtime.GOOS {
	case "windows":
		return []string{
			`C:\ffmpeg\bin\` + execName,
			`C:\Program Files\ffmpeg\bin\` + execName,
			`C:\Program Files (x86)\ffmpeg\bin\` + execName,
		}
	case "darwin":
		return []string{
			"/opt/homebrew/bin/" + execName,
			"/usr/local/bin/" + execName,
			"/usr/bin/" + execName,
		}
	default:
		return []string{
			"/usr/bin/" + execName,
			"/usr/local/bin/" + execName,
			"/opt/homebrew/bin/" + execName,
			"/snap/bin/" + execName,
		}
	}
}
