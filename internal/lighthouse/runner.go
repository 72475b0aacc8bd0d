package lighthouse

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"pagepulse/internal/envsafe"
	"pagepulse/internal/matrix"
	"pagepulse/internal/model"
	"pagepulse/internal/progress"
	"pagepulse/internal/redact"
	"pagepulse/internal/safefile"
)

const (
	DefaultBin         = "lighthouse"
	DefaultWorkers     = 3
	DefaultTimeout     = 3 * time.Minute
	DefaultRunDelay    = 2 * time.Second
	DefaultChromeFlags = "--headless --no-sandbox --disable-gpu"

	// killWaitDelay bounds how long Wait blocks on output pipes held open by
	// orphaned descendants after the group is killed.
	killWaitDelay = 5 * time.Second
)

type Options struct {
	Bin         string
	OutDir      string
	Categories  []string
	Workers     int
	Timeout     time.Duration
	RunDelay    time.Duration
	ChromeFlags string
	Sink        progress.Sink
}

// RunError records one failed audit invocation.
type RunError struct {
	URL    string
	Device model.DeviceType
	Run    int
	Err    error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("audit %s [%s] run %d: %v", e.URL, e.Device, e.Run, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

type Runner struct {
	opts Options
}

func NewRunner(opts Options) *Runner {
	if strings.TrimSpace(opts.Bin) == "" {
		opts.Bin = DefaultBin
	}
	if opts.Workers < 1 {
		opts.Workers = DefaultWorkers
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RunDelay < 0 {
		opts.RunDelay = 0
	}
	if strings.TrimSpace(opts.ChromeFlags) == "" {
		opts.ChromeFlags = DefaultChromeFlags
	}
	if opts.Sink == nil {
		opts.Sink = progress.NoopSink{}
	}
	return &Runner{opts: opts}
}

type pairOutcome struct {
	results []model.RunResult
	errs    []error
}

// RunAll audits every pair. Pairs run concurrently up to Workers; the runs of one pair
// are sequential. Results and errors keep pair order, then run order.
func (r *Runner) RunAll(ctx context.Context, pairs []matrix.Pair) ([]model.RunResult, []error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	dir, err := safefile.EnsureDir(r.reportDir())
	if err != nil {
		return nil, []error{fmt.Errorf("prepare report directory: %w", err)}
	}

	outcomes := make([]pairOutcome, len(pairs))
	var g errgroup.Group
	g.SetLimit(r.opts.Workers)
	for i, pair := range pairs {
		g.Go(func() error {
			outcomes[i] = r.runPair(ctx, dir, pair)
			return nil
		})
	}
	_ = g.Wait()

	var (
		results []model.RunResult
		errs    []error
	)
	for _, o := range outcomes {
		results = append(results, o.results...)
		errs = append(errs, o.errs...)
	}
	return results, errs
}

func (r *Runner) reportDir() string {
	base := r.opts.OutDir
	if strings.TrimSpace(base) == "" {
		base = "."
	}
	return filepath.Join(base, "lighthouse")
}

func (r *Runner) runPair(ctx context.Context, dir string, pair matrix.Pair) pairOutcome {
	started := time.Now().UTC()
	runs := pair.Runs
	if runs < 1 {
		runs = 1
	}
	r.opts.Sink.Emit(progress.Event{
		Type:   progress.EventAuditStarted,
		At:     started,
		URL:    pair.URL,
		Device: string(pair.Device),
		Runs:   runs,
	})

	var out pairOutcome
	for n := 1; n <= runs; n++ {
		if n > 1 && r.opts.RunDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(r.opts.RunDelay):
			}
		}
		if err := ctx.Err(); err != nil {
			out.errs = append(out.errs, &RunError{URL: pair.URL, Device: pair.Device, Run: n, Err: err})
			break
		}

		runStarted := time.Now()
		res, err := r.runOnce(ctx, dir, pair, n)
		status := "success"
		if err != nil {
			status = "failed"
			if errors.Is(err, context.DeadlineExceeded) {
				status = "timeout"
			}
			out.errs = append(out.errs, &RunError{URL: pair.URL, Device: pair.Device, Run: n, Err: err})
		} else {
			out.results = append(out.results, res)
		}
		ev := progress.Event{
			Type:       progress.EventAuditRunFinished,
			URL:        pair.URL,
			Device:     string(pair.Device),
			Run:        n,
			Runs:       runs,
			Status:     status,
			DurationMS: time.Since(runStarted).Milliseconds(),
		}
		if err != nil {
			ev.Error = redact.Text(err.Error())
		}
		r.opts.Sink.Emit(ev)
	}

	status := "success"
	switch {
	case len(out.results) == 0:
		status = "failed"
	case len(out.errs) > 0:
		status = "partial"
	}
	completed := time.Now().UTC()
	ev := progress.Event{
		Type:       progress.EventAuditFinished,
		At:         completed,
		URL:        pair.URL,
		Device:     string(pair.Device),
		Run:        len(out.results),
		Runs:       runs,
		Status:     status,
		DurationMS: completed.Sub(started).Milliseconds(),
	}
	if len(out.errs) > 0 {
		ev.Error = redact.Text(out.errs[len(out.errs)-1].Error())
	}
	r.opts.Sink.Emit(ev)
	return out
}

func (r *Runner) runOnce(parent context.Context, dir string, pair matrix.Pair, n int) (model.RunResult, error) {
	ctx, cancel := context.WithTimeout(parent, r.opts.Timeout)
	defer cancel()

	reportPath := filepath.Join(dir, ReportName(pair, n))
	cmd := exec.CommandContext(ctx, r.opts.Bin, r.args(pair, reportPath)...)
	cmd.Env = envsafe.AuditEnv(os.Environ())
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	// Chrome runs as a grandchild, so the whole group goes on cancel.
	cmd.Cancel = func() error { return killProcessGroup(cmd.Process) }
	cmd.WaitDelay = killWaitDelay

	combined, err := cmd.CombinedOutput()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return model.RunResult{}, fmt.Errorf("lighthouse interrupted: %w", ctxErr)
		}
		return model.RunResult{}, fmt.Errorf("lighthouse failed: %w%s", err, outputTail(combined))
	}

	data, err := os.ReadFile(reportPath)
	if err != nil {
		return model.RunResult{}, fmt.Errorf("read lighthouse report: %w", err)
	}
	res, err := ParseJSON(data)
	if err != nil {
		return model.RunResult{}, err
	}
	// Group by the requested pair, not the url Lighthouse landed on after redirects.
	res.URL = pair.URL
	res.DeviceType = pair.Device
	return res, nil
}

func (r *Runner) args(pair matrix.Pair, reportPath string) []string {
	args := []string{
		pair.URL,
		"--output=json",
		"--output-path=" + reportPath,
		"--quiet",
		"--chrome-flags=" + r.opts.ChromeFlags,
	}
	if len(r.opts.Categories) > 0 {
		args = append(args, "--only-categories="+strings.Join(r.opts.Categories, ","))
	}
	if pair.Device == model.DeviceDesktop {
		args = append(args, "--preset=desktop")
	} else {
		args = append(args, "--form-factor=mobile")
	}
	return args
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ReportName is the artifact file name for run n of pair.
func ReportName(pair matrix.Pair, n int) string {
	slug := pair.URL
	slug = strings.TrimPrefix(slug, "https://")
	slug = strings.TrimPrefix(slug, "http://")
	slug = strings.Trim(unsafeName.ReplaceAllString(slug, "_"), "_.")
	if len(slug) > 80 {
		slug = slug[:80]
	}
	if slug == "" {
		slug = "page"
	}
	return fmt.Sprintf("%s-%s-run%d.report.json", slug, pair.Device, n)
}

func outputTail(out []byte) string {
	text := strings.TrimSpace(redact.Text(string(out)))
	if text == "" {
		return ""
	}
	if len(text) > 400 {
		text = "…" + text[len(text)-400:]
	}
	return ": " + text
}

func killProcessGroup(p *os.Process) error {
	if p == nil || p.Pid <= 0 {
		return os.ErrProcessDone
	}
	if err := syscall.Kill(-p.Pid, syscall.SIGKILL); err != nil {
		return p.Kill()
	}
	return nil
}
