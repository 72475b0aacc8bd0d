// Package safefile writes report artifacts without following symlinks and without
// leaving half-written files behind.
package safefile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	dirPerm  os.FileMode = 0o755
	filePerm os.FileMode = 0o644
)

// EnsureDir creates dir when missing and returns its absolute path. A symlinked
// directory is refused.
func EnsureDir(dir string) (string, error) {
	abs, err := absPath(dir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(abs, dirPerm); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}
	if err := realDir(abs); err != nil {
		return "", err
	}
	return abs, nil
}

// Write replaces path with data through a temp file in the same directory.
func Write(path string, data []byte) error {
	abs, err := absPath(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := realDir(dir); err != nil {
		return err
	}
	switch info, err := os.Lstat(abs); {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return fmt.Errorf("stat %s: %w", filepath.Base(abs), err)
	case info.Mode()&os.ModeSymlink != 0:
		return fmt.Errorf("refusing symlinked file target: %s", abs)
	case info.IsDir():
		return fmt.Errorf("refusing directory write target: %s", abs)
	}

	tmp, err := os.CreateTemp(dir, ".pagepulse-tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	name := tmp.Name()
	if err := fill(tmp, data); err != nil {
		_ = os.Remove(name)
		return err
	}
	if err := os.Rename(name, abs); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("replace %s: %w", filepath.Base(abs), err)
	}
	return nil
}

// WriteJSON writes v as indented JSON followed by a newline.
func WriteJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	return Write(path, append(b, '\n'))
}

func fill(f *os.File, data []byte) error {
	_, err := f.Write(data)
	if err == nil {
		err = f.Chmod(filePerm)
	}
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	return nil
}

func absPath(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", errors.New("path is required")
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", p, err)
	}
	return filepath.Clean(abs), nil
}

func realDir(dir string) error {
	info, err := os.Lstat(dir)
	if err != nil {
		return fmt.Errorf("stat directory: %w", err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("refusing symlinked path: %s", dir)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", dir)
	}
	return nil
}
