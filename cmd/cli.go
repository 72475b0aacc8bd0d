package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"pagepulse/internal/app"
	"pagepulse/internal/ci"
	"pagepulse/internal/config"
	"pagepulse/internal/console"
	"pagepulse/internal/doctor"
	"pagepulse/internal/logging"
	"pagepulse/internal/policy"
	"pagepulse/internal/progress"
	"pagepulse/internal/report"
	"pagepulse/internal/tui"
	"pagepulse/internal/version"
)

// ExitError carries a process exit code other than 1.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

func Execute(args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "run":
		return runAudit(args[1:])
	case "report":
		return runReport(args[1:])
	case "doctor":
		return runDoctor(args[1:])
	case "version", "--version":
		fmt.Println("pagepulse " + version.String())
		return nil
	case "help", "--help", "-h":
		printUsage()
		return nil
	default:
		return usageError(fmt.Sprintf("unknown command %q", args[0]))
	}
}

// runFlags are the command-line overrides shared by run and report.
type runFlags struct {
	configPath string
	envFile    string
	urls       listFlag
	categories listFlag
	devices    listFlag
	runs       int
	failBelow  float64
	title      string
	layout     string
	workers    int
	timeout    time.Duration
	runDelay   time.Duration
	bin        string
	out        string
	historyDir string
	matrix     string
	channel    string
	dryRun     bool
	verbose    bool
	enableTUI  bool
	disableTUI bool
}

func registerFlags(fs *flag.FlagSet) *runFlags {
	f := &runFlags{}
	fs.StringVar(&f.configPath, "config", "", "Extra config file layered over ~/.pagepulse and ./.pagepulse")
	fs.StringVar(&f.envFile, "env-file", ".env", "Dotenv file loaded before reading the environment")
	fs.Var(&f.urls, "url", "URL to audit (repeatable or comma-separated)")
	fs.Var(&f.categories, "category", "Category to audit (repeatable or comma-separated)")
	fs.Var(&f.devices, "device", "Device type: mobile|desktop (repeatable or comma-separated)")
	fs.IntVar(&f.runs, "runs", 0, "Audit runs per url and device (1-20)")
	fs.Float64Var(&f.failBelow, "fail-below", 0, "Fail when any score is below this percentage (0 disables)")
	fs.StringVar(&f.title, "title", "", "Report title")
	fs.StringVar(&f.layout, "layout", "", "Report layout: compact|detailed")
	fs.IntVar(&f.workers, "workers", 0, "Concurrent audits")
	fs.DurationVar(&f.timeout, "timeout", 0, "Per-run audit timeout")
	fs.DurationVar(&f.runDelay, "run-delay", 0, "Pause between repeated runs of one url")
	fs.StringVar(&f.bin, "lighthouse-bin", "", "Lighthouse executable")
	fs.StringVar(&f.out, "out", "", "Output directory for artifacts")
	fs.StringVar(&f.historyDir, "history-dir", "", "History directory (default <out>/history)")
	fs.StringVar(&f.matrix, "matrix", "", "Audit matrix file (default .pagepulse/matrix.yaml when present)")
	fs.StringVar(&f.channel, "slack-channel", "", "Slack channel for token delivery")
	fs.BoolVar(&f.dryRun, "dry-run", false, "Write artifacts without posting to Slack")
	fs.BoolVar(&f.verbose, "verbose", false, "Enable debug logs")
	fs.BoolVar(&f.enableTUI, "tui", false, "Force the interactive terminal UI")
	fs.BoolVar(&f.disableTUI, "no-tui", false, "Disable the interactive terminal UI")
	return f
}

// layer converts the flags that were actually set into a config layer.
func (f *runFlags) layer(fs *flag.FlagSet) config.Config {
	set := map[string]bool{}
	fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })

	var c config.Config
	c.URLs = f.urls.Values()
	c.Categories = f.categories.Values()
	c.DeviceTypes = f.devices.Values()
	if set["runs"] {
		c.RunsPerURL = &f.runs
	}
	if set["fail-below"] {
		c.FailOnScoreBelow = &f.failBelow
	}
	if set["workers"] {
		c.Workers = &f.workers
	}
	if set["timeout"] {
		c.Timeout = f.timeout.String()
	}
	if set["run-delay"] {
		c.RunDelay = f.runDelay.String()
	}
	if set["verbose"] {
		c.Verbose = &f.verbose
	}
	if set["no-tui"] {
		c.NoTUI = &f.disableTUI
	}
	c.Title = f.title
	c.Layout = f.layout
	c.LighthouseBin = f.bin
	c.OutputDir = f.out
	c.HistoryDir = f.historyDir
	c.Matrix = f.matrix
	c.SlackChannel = f.channel
	return c
}

func runReport(args []string) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	fs.SetOutput(flag.CommandLine.Output())
	from := fs.String("from", "", "Directory of saved lighthouse reports (*.report.json|html)")
	f := registerFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return usageError("usage: pagepulse report --from <dir> [flags]")
	}
	if strings.TrimSpace(*from) == "" {
		return errors.New("--from is required")
	}
	return execute(fs, f, *from)
}

func runAudit(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(flag.CommandLine.Output())
	f := registerFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return usageError("usage: pagepulse run [flags]")
	}
	return execute(fs, f, "")
}

func execute(fs *flag.FlagSet, f *runFlags, from string) error {
	if f.enableTUI && f.disableTUI {
		return errors.New("cannot set both --tui and --no-tui")
	}
	settings, err := resolveSettings(fs, f, os.Getenv)
	if err != nil {
		return err
	}

	useTUI := console.IsTerminal(os.Stdout) && console.IsTerminal(os.Stderr) && !settings.NoTUI
	if f.enableTUI {
		useTUI = true
	}
	if from != "" {
		useTUI = false
	}

	var logOut io.Writer = os.Stderr
	if useTUI {
		logOut = io.Discard
	}
	log := logging.New(logOut, settings.Verbose)
	defer func() { _ = log.Sync() }()
	log.Debug("settings resolved",
		zap.Int("urls", len(settings.URLs)),
		zap.Strings("categories", settings.Categories),
		zap.Int("runs_per_url", settings.RunsPerURL),
		zap.Bool("slack", settings.SlackConfigured()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := app.AuditOptions{
		Settings: settings,
		FromDir:  from,
		DryRun:   f.dryRun,
		CI:       ci.FromEnv(os.Getenv),
		Logger:   log,
	}

	var (
		out   app.Outcome
		paths report.Paths
	)
	if useTUI {
		events := make(chan progress.Event, 128)
		opts.Progress = progress.Fanout{progress.NewZapSink(log), progress.NewChannelSink(events)}

		type runResult struct {
			out   app.Outcome
			paths report.Paths
			err   error
		}
		runDone := make(chan runResult, 1)
		go func() {
			defer close(events)
			o, p, err := app.RunAudit(ctx, opts)
			runDone <- runResult{out: o, paths: p, err: err}
		}()

		if err := tui.Run(tui.Options{Title: settings.Title, Events: events}); err != nil {
			return err
		}
		result := <-runDone
		out, paths, err = result.out, result.paths, result.err
	} else {
		opts.Progress = progress.Fanout{progress.NewZapSink(log), progress.NewPlainSink(os.Stderr)}
		out, paths, err = app.RunAudit(ctx, opts)
	}

	if out.Metadata.RunID != "" {
		console.PrintSummary(os.Stdout, out, paths, console.IsTerminal(os.Stdout))
	}
	return exitStatus(out, err)
}

// exitStatus maps an outcome onto the process result: a failed gate wins over a failed
// delivery, which is reported as a plain error.
func exitStatus(out app.Outcome, err error) error {
	if err != nil {
		return err
	}
	if !out.Decision.Passed {
		return &ExitError{
			Code: policy.ExitCodeFailed,
			Err:  fmt.Errorf("score gate failed: %d violation(s), minimum score %.0f", len(out.Decision.Violations), out.Decision.MinScore),
		}
	}
	if out.DeliveryErr != nil {
		return out.DeliveryErr
	}
	return nil
}

// resolveSettings layers defaults < config files < --config < .env/environment < flags.
func resolveSettings(fs *flag.FlagSet, f *runFlags, getenv func(string) string) (config.Settings, error) {
	cfg, err := layeredConfig(fs, f, getenv)
	if err != nil {
		return config.Settings{}, err
	}
	return config.Resolve(cfg)
}

func layeredConfig(fs *flag.FlagSet, f *runFlags, getenv func(string) string) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if strings.TrimSpace(f.configPath) != "" {
		extra, err := config.LoadFile(f.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = config.Merge(cfg, extra)
	}
	if err := config.LoadDotEnv(f.envFile); err != nil {
		return config.Config{}, err
	}
	env, err := config.FromEnv(getenv)
	if err != nil {
		return config.Config{}, err
	}
	cfg = config.Merge(cfg, env)
	return config.Merge(cfg, f.layer(fs)), nil
}

func runDoctor(args []string) error {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	fs.SetOutput(flag.CommandLine.Output())
	asJSON := fs.Bool("json", false, "Print the report as JSON")
	strict := fs.Bool("strict", false, "Treat warnings as failures")
	f := registerFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return usageError("usage: pagepulse doctor [--json] [--strict]")
	}

	cfg, err := layeredConfig(fs, f, os.Getenv)
	opts := doctor.Options{LoadErr: err}
	if err == nil {
		opts.Config = &cfg
	}
	rep := doctor.BuildReport(context.Background(), opts)

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return err
		}
	} else {
		for _, c := range rep.Checks {
			fmt.Printf("%-8s %-20s %s\n", strings.ToUpper(string(c.Status)), c.ID, c.Message)
		}
		fmt.Printf("pass=%d warning=%d fail=%d\n", rep.Counts.Pass, rep.Counts.Warning, rep.Counts.Fail)
	}
	if rep.Failed(*strict) {
		return errors.New("doctor found problems")
	}
	return nil
}

func usageError(msg string) error {
	printUsage()
	return errors.New(msg)
}

func printUsage() {
	fmt.Println("pagepulse: Lighthouse audits summarized to Slack")
	fmt.Println("")
	fmt.Println("Usage:")
	fmt.Println("  pagepulse run [flags]")
	fmt.Println("  pagepulse report --from <dir> [flags]")
	fmt.Println("  pagepulse doctor [--json] [--strict]")
	fmt.Println("  pagepulse version")
	fmt.Println("")
	fmt.Println("Flags (run, report):")
	fmt.Println("  --url <url>            URL to audit (repeatable or comma-separated)")
	fmt.Println("  --category <id>        Category to audit (default performance,accessibility,best-practices,seo)")
	fmt.Println("  --device <type>        mobile|desktop (default both)")
	fmt.Println("  --runs <1-20>          Runs per url and device, reduced by median (default 1)")
	fmt.Println("  --fail-below <0-100>   Exit 2 when any score is below this percentage")
	fmt.Println("  --title <text>         Report title")
	fmt.Println("  --layout <name>        compact|detailed (default compact)")
	fmt.Println("  --workers <n>          Concurrent audits (default 3)")
	fmt.Println("  --timeout <dur>        Per-run timeout (default 3m)")
	fmt.Println("  --run-delay <dur>      Pause between repeated runs (default 2s)")
	fmt.Println("  --lighthouse-bin <p>   Lighthouse executable (default lighthouse)")
	fmt.Println("  --out <dir>            Artifact directory (default pagepulse-report)")
	fmt.Println("  --history-dir <dir>    History directory (default <out>/history)")
	fmt.Println("  --matrix <file>        Audit matrix (default .pagepulse/matrix.yaml when present)")
	fmt.Println("  --slack-channel <id>   Channel for token delivery")
	fmt.Println("  --config <file>        Extra config file")
	fmt.Println("  --env-file <file>      Dotenv file (default .env)")
	fmt.Println("  --dry-run              Skip Slack delivery")
	fmt.Println("  --verbose              Debug logs")
	fmt.Println("  --tui / --no-tui       Force or disable the terminal UI")
	fmt.Println("")
	fmt.Println("Flags (report):")
	fmt.Println("  --from <dir>           Saved lighthouse reports to re-render")
	fmt.Println("")
	fmt.Println("Flags (doctor):")
	fmt.Println("  --json                 Machine-readable output")
	fmt.Println("  --strict               Fail on warnings")
	fmt.Println("")
	fmt.Println("Secrets (SLACK_WEBHOOK_URL, SLACK_TOKEN, DATABASE_URL) are read from PAGEPULSE_* or INPUT_* variables.")
	fmt.Println("Exit codes: 0 ok, 1 error or delivery failure, 2 score gate failed.")
}

type listFlag struct {
	values []string
}

func (f *listFlag) String() string {
	if f == nil {
		return ""
	}
	return strings.Join(f.values, ",")
}

func (f *listFlag) Set(value string) error {
	for _, part := range config.SplitList(value) {
		f.values = append(f.values, part)
	}
	return nil
}

func (f *listFlag) Values() []string {
	if f == nil || len(f.values) == 0 {
		return nil
	}
	return append([]string(nil), f.values...)
}
