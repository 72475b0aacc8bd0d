package trust

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func writeScript(t *testing.T, dir, name, body string, perm os.FileMode) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o700); err != nil {
		t.Fatalf("write script: %v", err)
	}
	if err := os.Chmod(path, perm); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	return path
}

func TestResolveBinary_OnPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts")
	}
	dir := t.TempDir()
	writeScript(t, dir, "lighthouse", "#!/bin/sh\necho 12.2.1\n", 0o755)
	t.Setenv("PATH", dir)

	bin, err := ResolveBinary(context.Background(), "lighthouse")
	if err != nil {
		t.Fatalf("ResolveBinary: %v", err)
	}
	if bin.Version != "12.2.1" {
		t.Fatalf("version = %q", bin.Version)
	}
	if !strings.HasSuffix(bin.Path, "lighthouse") || !filepath.IsAbs(bin.Path) {
		t.Fatalf("unexpected path %q", bin.Path)
	}
}

func TestResolveBinary_Rejections(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	dir := t.TempDir()
	writable := writeScript(t, dir, "writable", "#!/bin/sh\necho 1\n", 0o777)
	silent := writeScript(t, dir, "silent", "#!/bin/sh\nexit 0\n", 0o755)
	failing := writeScript(t, dir, "failing", "#!/bin/sh\nexit 3\n", 0o755)

	tests := []struct {
		name string
		bin  string
		want string
	}{
		{name: "empty", bin: " ", want: "required"},
		{name: "missing", bin: filepath.Join(dir, "nope"), want: "resolve"},
		{name: "world writable", bin: writable, want: "not trusted"},
		{name: "no version output", bin: silent, want: "empty output"},
		{name: "version fails", bin: failing, want: "version"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveBinary(context.Background(), tt.bin)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
