package trust

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const versionTimeout = 15 * time.Second

// Binary is a resolved audit executable.
type Binary struct {
	Requested string `json:"requested"`
	Path      string `json:"path"`
	Version   string `json:"version"`
}

// ResolveBinary finds requested on PATH (or as a path), follows symlinks, refuses
// directories and group/world-writable files, and reads its --version line.
func ResolveBinary(ctx context.Context, requested string) (Binary, error) {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return Binary{}, fmt.Errorf("binary path is required")
	}

	lookedUp, err := exec.LookPath(requested)
	if err != nil {
		return Binary{}, fmt.Errorf("resolve %q: %w", requested, err)
	}
	resolved, err := filepath.Abs(lookedUp)
	if err != nil {
		return Binary{}, fmt.Errorf("resolve absolute path: %w", err)
	}
	if eval, evalErr := filepath.EvalSymlinks(resolved); evalErr == nil && eval != "" {
		resolved = eval
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return Binary{}, fmt.Errorf("stat %s: %w", resolved, err)
	}
	if info.IsDir() {
		return Binary{}, fmt.Errorf("%s is a directory", resolved)
	}
	if runtime.GOOS != "windows" {
		if info.Mode()&0o111 == 0 {
			return Binary{}, fmt.Errorf("%s is not executable", resolved)
		}
		if info.Mode().Perm()&0o022 != 0 {
			return Binary{}, fmt.Errorf("%s is group/world writable and not trusted", resolved)
		}
	}

	version, err := readVersion(ctx, resolved)
	if err != nil {
		return Binary{}, err
	}
	return Binary{Requested: requested, Path: resolved, Version: version}, nil
}

func readVersion(parent context.Context, path string) (string, error) {
	ctx, cancel := context.WithTimeout(parent, versionTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, path, "--version").CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("read %s version: %w", filepath.Base(path), err)
	}
	version := strings.TrimSpace(string(out))
	if i := strings.IndexByte(version, '\n'); i >= 0 {
		version = strings.TrimSpace(version[:i])
	}
	if version == "" {
		return "", fmt.Errorf("%s --version returned empty output", filepath.Base(path))
	}
	return version, nil
}
