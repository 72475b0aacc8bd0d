package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pagepulse/internal/aggregate"
	"pagepulse/internal/ci"
	"pagepulse/internal/config"
	"pagepulse/internal/dispatch"
	"pagepulse/internal/git"
	"pagepulse/internal/history"
	"pagepulse/internal/lighthouse"
	"pagepulse/internal/matrix"
	"pagepulse/internal/model"
	"pagepulse/internal/policy"
	"pagepulse/internal/progress"
	"pagepulse/internal/redact"
	"pagepulse/internal/render"
	"pagepulse/internal/report"
	"pagepulse/internal/summary"
	"pagepulse/internal/trust"
)

// ErrNoResults is returned when every audit failed and nothing could be reported.
var ErrNoResults = errors.New("no audit results")

type AuditOptions struct {
	Settings config.Settings

	// FromDir re-renders saved lighthouse reports instead of auditing.
	FromDir string
	DryRun  bool

	CI         ci.Context
	Logger     *zap.Logger
	Progress   progress.Sink
	Dispatcher dispatch.Dispatcher
	Now        func() time.Time
}

// Outcome is what one run produced. DeliveryErr is set when the report was built but
// could not be posted.
type Outcome struct {
	Metadata    model.RunMetadata
	Results     []model.RunResult
	Summary     model.Summary
	Decision    policy.Decision
	Trend       history.Comparison
	Delivered   bool
	DeliveryErr error
}

func RunAudit(ctx context.Context, opts AuditOptions) (out Outcome, paths report.Paths, err error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	sink := opts.Progress
	if sink == nil {
		sink = progress.NoopSink{}
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	s := opts.Settings

	started := now()
	runID := uuid.NewString()
	log = log.With(zap.String("run_id", runID))

	pairs, err := resolvePairs(s)
	if err != nil {
		return Outcome{}, report.Paths{}, err
	}
	if opts.FromDir == "" && len(pairs) == 0 {
		return Outcome{}, report.Paths{}, errors.New("no urls to audit (set urls or a matrix file)")
	}

	sink.Emit(progress.Event{
		Type:  progress.EventRunStarted,
		At:    started,
		RunID: runID,
		Pairs: len(pairs),
	})
	defer func() {
		status := "success"
		errMsg := ""
		switch {
		case err != nil:
			status = "failed"
			errMsg = redact.Text(err.Error())
		case len(out.Metadata.Errors) > 0 || out.DeliveryErr != nil:
			status = "partial"
		}
		sink.Emit(progress.Event{
			Type:       progress.EventRunFinished,
			At:         now(),
			RunID:      runID,
			Status:     status,
			DurationMS: now().Sub(started).Milliseconds(),
			Error:      errMsg,
		})
	}()

	var (
		raw       []model.RunResult
		runErrs   []error
		lhVersion string
	)
	if opts.FromDir != "" {
		raw, runErrs = lighthouse.LoadDir(reportSource(opts.FromDir))
	} else {
		bin, binErr := trust.ResolveBinary(ctx, s.LighthouseBin)
		if binErr != nil {
			err = fmt.Errorf("lighthouse unavailable: %w", binErr)
			return Outcome{}, report.Paths{}, err
		}
		lhVersion = bin.Version
		log.Debug("lighthouse resolved", zap.String("path", bin.Path), zap.String("version", bin.Version))
		runner := lighthouse.NewRunner(lighthouse.Options{
			Bin:         bin.Path,
			OutDir:      s.OutputDir,
			Categories:  s.Categories,
			Workers:     s.Workers,
			Timeout:     s.Timeout,
			RunDelay:    s.RunDelay,
			ChromeFlags: s.ChromeFlags,
			Sink:        sink,
		})
		raw, runErrs = runner.RunAll(ctx, pairs)
	}

	canonical, aggErrs := aggregate.All(aggregate.GroupRuns(raw))
	runErrs = append(runErrs, aggErrs...)
	warnings := make([]string, 0, len(runErrs))
	for _, e := range runErrs {
		msg := redact.Text(e.Error())
		warnings = append(warnings, msg)
		log.Warn("audit error", zap.String("error", msg))
		sink.Emit(progress.Event{Type: progress.EventRunWarning, RunID: runID, Status: "warning", Message: msg})
	}

	sum := summary.Build(canonical)
	out = Outcome{Results: canonical, Summary: sum}

	urls, devices := historyScope(pairs, canonical)
	out.Trend = recordHistory(ctx, log, s, runID, urls, devices, sum, now())

	r, err := render.New(render.Options{Layout: s.Layout, Now: now})
	if err != nil {
		return out, report.Paths{}, err
	}
	blocks := r.Render(render.Input{
		Title:    s.Title,
		Results:  canonical,
		Summary:  sum,
		Trend:    history.Describe(out.Trend),
		RunURL:   opts.CI.RunURL(),
		RunLabel: runLabel(opts.CI),
	})

	out.Decision = policy.Evaluate(canonical, s.Gate)
	completed := now()
	out.Metadata = model.RunMetadata{
		RunID:       runID,
		StartedAt:   started,
		CompletedAt: completed,
		DurationMS:  completed.Sub(started).Milliseconds(),
		Categories:  s.Categories,
		Devices:     s.Devices,
		RunsPerURL:  s.RunsPerURL,
		Lighthouse:  lhVersion,
		Errors:      warnings,
	}

	bundle := report.Bundle{
		Title:    s.Title,
		Metadata: out.Metadata,
		Results:  canonical,
		Summary:  sum,
		Blocks:   blocks,
		Decision: out.Decision,
		Trend:    out.Trend,
	}
	paths, err = report.Write(s.OutputDir, bundle)
	if err != nil {
		return out, report.Paths{}, err
	}
	log.Info("artifacts written", zap.String("dir", filepath.Dir(paths.Results)))

	publishCI(log, opts.CI, bundle, paths)

	if len(canonical) == 0 {
		err = fmt.Errorf("%w: %d audit error(s)", ErrNoResults, len(runErrs))
		return out, paths, err
	}

	if !opts.DryRun {
		out.Delivered, out.DeliveryErr = deliver(ctx, log, opts.Dispatcher, s, dispatch.Message{Title: s.Title, Blocks: blocks})
	}
	return out, paths, nil
}

// runLabel names the CI run, falling back to the local checkout outside CI.
func runLabel(c ci.Context) string {
	if label := c.RunLabel(); label != "" {
		return label
	}
	info, err := git.Describe(".")
	if err != nil {
		return ""
	}
	return info.Label()
}

func resolvePairs(s config.Settings) ([]matrix.Pair, error) {
	path := s.MatrixPath
	if path == "" {
		if _, err := os.Stat(matrix.DefaultPath()); err == nil {
			path = matrix.DefaultPath()
		}
	}
	if path == "" {
		return matrix.Build(s.URLs, s.Devices, s.RunsPerURL), nil
	}
	f, err := matrix.Load(path)
	if err != nil {
		return nil, err
	}
	return f.Pairs(s.Devices, s.RunsPerURL)
}

// reportSource accepts either an output directory or its lighthouse/ subdirectory.
func reportSource(dir string) string {
	sub := filepath.Join(dir, "lighthouse")
	if info, err := os.Stat(sub); err == nil && info.IsDir() {
		return sub
	}
	return dir
}

func recordHistory(ctx context.Context, log *zap.Logger, s config.Settings, runID string, urls []string, devices []model.DeviceType, sum model.Summary, now time.Time) history.Comparison {
	dir := s.HistoryDir
	if dir == "" {
		dir = filepath.Join(s.OutputDir, "history")
	}
	store, err := history.Open(ctx, s.DatabaseURL, dir)
	if err != nil {
		log.Warn("history unavailable", zap.String("error", redact.Text(err.Error())))
		return history.Compare(history.Entry{}, false, sum.AverageScores)
	}
	defer store.Close()

	key := history.Key(urls, devices)
	prev, ok, err := store.Previous(ctx, key)
	if err != nil {
		log.Warn("read history", zap.String("error", redact.Text(err.Error())))
		ok = false
	}
	cmp := history.Compare(prev, ok, sum.AverageScores)
	if sum.AverageScores.Len() == 0 {
		return cmp
	}
	if err := store.Record(ctx, history.NewEntry(runID, key, sum.AverageScores, now)); err != nil {
		log.Warn("record history", zap.String("error", redact.Text(err.Error())))
	}
	return cmp
}

func publishCI(log *zap.Logger, c ci.Context, b report.Bundle, paths report.Paths) {
	if !c.Active() {
		return
	}
	if err := c.AppendStepSummary(report.RenderMarkdown(b)); err != nil {
		log.Warn("append step summary", zap.Error(err))
	}
	outputs := []ci.Output{
		{Name: "report_dir", Value: filepath.Dir(paths.Results)},
		{Name: "passed", Value: fmt.Sprintf("%t", b.Decision.Passed)},
		{Name: "min_score", Value: fmt.Sprintf("%.0f", b.Decision.MinScore)},
	}
	if overall, ok := report.Overall(b.Summary); ok {
		outputs = append(outputs, ci.Output{Name: "overall_score", Value: fmt.Sprintf("%.0f", overall*100)})
	}
	if err := c.WriteOutputs(outputs); err != nil {
		log.Warn("write step outputs", zap.Error(err))
	}
}

func deliver(ctx context.Context, log *zap.Logger, d dispatch.Dispatcher, s config.Settings, msg dispatch.Message) (bool, error) {
	if d == nil {
		if !s.SlackConfigured() {
			log.Info("slack not configured, skipping delivery")
			return false, nil
		}
		var err error
		d, err = dispatch.New(s.Slack, s.SlackTimeout)
		if err != nil {
			return false, err
		}
	}
	if err := d.Send(ctx, msg); err != nil {
		log.Error("slack delivery failed", zap.String("error", err.Error()))
		return false, err
	}
	log.Info("report delivered")
	return true, nil
}

// historyScope names the audited urls and devices. Pairs win over results so the key
// stays stable when some audits fail.
func historyScope(pairs []matrix.Pair, results []model.RunResult) ([]string, []model.DeviceType) {
	var (
		urls    []string
		devices []model.DeviceType
	)
	seenURL := map[string]struct{}{}
	seenDevice := map[model.DeviceType]struct{}{}
	add := func(u string, d model.DeviceType) {
		u = strings.TrimSpace(u)
		if _, ok := seenURL[u]; !ok && u != "" {
			seenURL[u] = struct{}{}
			urls = append(urls, u)
		}
		if _, ok := seenDevice[d]; !ok && d != "" {
			seenDevice[d] = struct{}{}
			devices = append(devices, d)
		}
	}
	for _, p := range pairs {
		add(p.URL, p.Device)
	}
	if len(urls) > 0 {
		return urls, devices
	}
	for _, r := range results {
		add(r.URL, r.DeviceType)
	}
	return urls, devices
}
