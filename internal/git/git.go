package git

import (
	"fmt"
	"os/exec"
	"strings"
)

// Info identifies the checked-out commit of a working tree.
type Info struct {
	Root   string
	Branch string
	SHA    string
}

// Label renders info as branch@sha7, or just the short sha on a detached head.
func (i Info) Label() string {
	sha := i.SHA
	if len(sha) > 7 {
		sha = sha[:7]
	}
	if i.Branch == "" || i.Branch == "HEAD" {
		return sha
	}
	if sha == "" {
		return i.Branch
	}
	return i.Branch + "@" + sha
}

// RepoRoot returns the git repository root for the given path,
// or an error if the path is not inside a git repository.
func RepoRoot(path string) (string, error) {
	out, err := run(path, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("not a git repository (or git not installed): %w", err)
	}
	return out, nil
}

// Describe reads the root, branch and commit of the repository containing path.
func Describe(path string) (Info, error) {
	root, err := RepoRoot(path)
	if err != nil {
		return Info{}, err
	}
	sha, err := run(root, "rev-parse", "HEAD")
	if err != nil {
		return Info{}, fmt.Errorf("git rev-parse HEAD: %w", err)
	}
	branch, err := run(root, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return Info{}, fmt.Errorf("git rev-parse --abbrev-ref HEAD: %w", err)
	}
	return Info{Root: root, Branch: branch, SHA: sha}, nil
}

func run(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
