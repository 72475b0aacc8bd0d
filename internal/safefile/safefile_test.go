package safefile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWrite(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T, dir string) string
		wantErr string
	}{
		{
			name:  "new file",
			setup: func(t *testing.T, dir string) string { return filepath.Join(dir, "report.md") },
		},
		{
			name: "overwrites regular file",
			setup: func(t *testing.T, dir string) string {
				p := filepath.Join(dir, "summary.json")
				if err := os.WriteFile(p, []byte("old"), 0o600); err != nil {
					t.Fatal(err)
				}
				return p
			},
		},
		{
			name: "symlink target",
			setup: func(t *testing.T, dir string) string {
				target := filepath.Join(dir, "target.txt")
				if err := os.WriteFile(target, []byte("old"), 0o600); err != nil {
					t.Fatal(err)
				}
				link := filepath.Join(dir, "link.txt")
				if err := os.Symlink(target, link); err != nil {
					t.Skipf("symlink unsupported: %v", err)
				}
				return link
			},
			wantErr: "symlinked file target",
		},
		{
			name: "directory target",
			setup: func(t *testing.T, dir string) string {
				p := filepath.Join(dir, "sub")
				if err := os.Mkdir(p, 0o700); err != nil {
					t.Fatal(err)
				}
				return p
			},
			wantErr: "directory write target",
		},
		{
			name:    "empty path",
			setup:   func(t *testing.T, dir string) string { return "  " },
			wantErr: "path is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.setup(t, t.TempDir())
			err := Write(p, []byte("new"))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Write() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			got, err := os.ReadFile(p)
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != "new" {
				t.Fatalf("content = %q", got)
			}
		})
	}
}

func TestWriteJSON_LeavesOnlyTarget(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "blocks.json")
	if err := WriteJSON(p, map[string]int{"blocks": 3}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "blocks.json" {
		t.Fatalf("unexpected entries: %v", entries)
	}
	raw, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(string(raw), "}\n") {
		t.Fatalf("missing trailing newline: %q", raw)
	}
	var got map[string]int
	if err := json.Unmarshal(raw, &got); err != nil || got["blocks"] != 3 {
		t.Fatalf("decoded %v, err %v", got, err)
	}
	if info, err := os.Stat(p); err != nil || info.Mode().Perm() != filePerm {
		t.Fatalf("mode = %v, err %v", info.Mode().Perm(), err)
	}
}

func TestEnsureDir(t *testing.T) {
	root := t.TempDir()
	got, err := EnsureDir(filepath.Join(root, "a", "b"))
	if err != nil {
		t.Fatalf("EnsureDir() error = %v", err)
	}
	if !filepath.IsAbs(got) {
		t.Fatalf("EnsureDir() = %q, want absolute", got)
	}

	real := filepath.Join(root, "real")
	if err := os.Mkdir(real, 0o700); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(root, "link")
	if err := os.Symlink(real, link); err != nil {
		t.Skipf("symlink unsupported: %v", err)
	}
	if _, err := EnsureDir(link); err == nil {
		t.Fatal("expected symlinked directory to be rejected")
	}
}
