// Package ci reads the GitHub Actions environment and writes step summaries and outputs.
package ci

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
)

// Context is the subset of the Actions environment a report links back to.
type Context struct {
	ServerURL   string
	Repository  string
	RunID       string
	RunAttempt  string
	SHA         string
	RefName     string
	Workflow    string
	StepSummary string
	Output      string
}

// FromEnv reads the context through getenv; pass os.Getenv outside tests.
func FromEnv(getenv func(string) string) Context {
	if getenv == nil {
		getenv = os.Getenv
	}
	get := func(k string) string { return strings.TrimSpace(getenv(k)) }
	c := Context{
		ServerURL:   get("GITHUB_SERVER_URL"),
		Repository:  get("GITHUB_REPOSITORY"),
		RunID:       get("GITHUB_RUN_ID"),
		RunAttempt:  get("GITHUB_RUN_ATTEMPT"),
		SHA:         get("GITHUB_SHA"),
		RefName:     get("GITHUB_REF_NAME"),
		Workflow:    get("GITHUB_WORKFLOW"),
		StepSummary: get("GITHUB_STEP_SUMMARY"),
		Output:      get("GITHUB_OUTPUT"),
	}
	if c.ServerURL == "" && c.Repository != "" {
		c.ServerURL = "https://github.com"
	}
	return c
}

func (c Context) Active() bool {
	return c.Repository != "" && c.RunID != ""
}

// RunURL links to the workflow run, or is empty outside Actions.
func (c Context) RunURL() string {
	if !c.Active() {
		return ""
	}
	u := fmt.Sprintf("%s/%s/actions/runs/%s", strings.TrimRight(c.ServerURL, "/"), c.Repository, c.RunID)
	if c.RunAttempt != "" && c.RunAttempt != "1" {
		u += "/attempts/" + c.RunAttempt
	}
	return u
}

func (c Context) RunLabel() string {
	if !c.Active() {
		return ""
	}
	parts := []string{c.Repository}
	if c.RefName != "" {
		parts = append(parts, c.RefName)
	}
	if len(c.SHA) >= 7 {
		parts = append(parts, c.SHA[:7])
	}
	return strings.Join(parts, "@")
}

// AppendStepSummary appends markdown to the job summary file when one is configured.
func (c Context) AppendStepSummary(markdown string) error {
	if c.StepSummary == "" {
		return nil
	}
	return appendFile(c.StepSummary, strings.TrimRight(markdown, "\n")+"\n")
}

type Output struct {
	Name  string
	Value string
}

// WriteOutputs appends step outputs. Multi-line values use the delimiter form.
func (c Context) WriteOutputs(outputs []Output) error {
	if c.Output == "" || len(outputs) == 0 {
		return nil
	}
	var b strings.Builder
	for _, o := range outputs {
		if strings.ContainsAny(o.Value, "\r\n") {
			delim := "ghadelimiter_" + uuid.NewString()
			fmt.Fprintf(&b, "%s<<%s\n%s\n%s\n", o.Name, delim, o.Value, delim)
			continue
		}
		fmt.Fprintf(&b, "%s=%s\n", o.Name, o.Value)
	}
	return appendFile(c.Output, b.String())
}

func appendFile(path, content string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return fmt.Errorf("append %s: %w", path, err)
	}
	return f.Close()
}
