package matrix

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"pagepulse/internal/model"
)

const APIVersion = "pagepulse/matrix/v1"

// File is the optional .pagepulse/matrix.yaml describing per-url overrides.
type File struct {
	APIVersion string        `yaml:"api_version" json:"api_version"`
	Defaults   TargetOptions `yaml:"defaults" json:"defaults"`
	Targets    []Target      `yaml:"targets" json:"targets"`
}

type TargetOptions struct {
	Devices []string `yaml:"devices,omitempty" json:"devices,omitempty"`
	Runs    *int     `yaml:"runs,omitempty" json:"runs,omitempty"`
}

type Target struct {
	URL           string `yaml:"url" json:"url"`
	TargetOptions `yaml:",inline" json:",inline"`
}

func DefaultPath() string {
	return filepath.Join(".pagepulse", "matrix.yaml")
}

func Load(path string) (File, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultPath()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read matrix file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return File{}, fmt.Errorf("parse matrix file: %w", err)
	}
	f = Normalize(f)
	if err := Validate(f); err != nil {
		return File{}, err
	}
	return f, nil
}

func Normalize(f File) File {
	f.APIVersion = strings.TrimSpace(f.APIVersion)
	if f.APIVersion == "" {
		f.APIVersion = APIVersion
	}
	f.Defaults = normalizeOptions(f.Defaults)
	for i := range f.Targets {
		f.Targets[i].URL = strings.TrimSpace(f.Targets[i].URL)
		f.Targets[i].TargetOptions = normalizeOptions(f.Targets[i].TargetOptions)
	}
	return f
}

func Validate(f File) error {
	if f.APIVersion != APIVersion {
		return fmt.Errorf("unsupported matrix api_version %q", f.APIVersion)
	}
	if len(f.Targets) == 0 {
		return fmt.Errorf("matrix targets are required")
	}
	if err := validateOptions("defaults", f.Defaults); err != nil {
		return err
	}
	seen := map[string]struct{}{}
	for i, target := range f.Targets {
		if target.URL == "" {
			return fmt.Errorf("targets[%d].url is required", i)
		}
		if err := ValidateURL(target.URL); err != nil {
			return fmt.Errorf("targets[%d]: %w", i, err)
		}
		if _, exists := seen[target.URL]; exists {
			return fmt.Errorf("duplicate target url %q", target.URL)
		}
		seen[target.URL] = struct{}{}
		if err := validateOptions(fmt.Sprintf("targets[%d]", i), target.TargetOptions); err != nil {
			return err
		}
	}
	return nil
}

func MergeOptions(defaults, override TargetOptions) TargetOptions {
	out := defaults
	if len(override.Devices) > 0 {
		out.Devices = append([]string{}, override.Devices...)
	}
	if override.Runs != nil {
		out.Runs = override.Runs
	}
	return out
}

// Pairs expands the file. Fallback devices and runs apply where neither defaults nor the target set them.
func (f File) Pairs(devices []model.DeviceType, runs int) ([]Pair, error) {
	var out []Pair
	for _, target := range f.Targets {
		opts := MergeOptions(f.Defaults, target.TargetOptions)
		targetDevices := devices
		if len(opts.Devices) > 0 {
			parsed, err := ParseDevices(strings.Join(opts.Devices, ","))
			if err != nil {
				return nil, fmt.Errorf("target %s: %w", target.URL, err)
			}
			targetDevices = parsed
		}
		targetRuns := runs
		if opts.Runs != nil {
			targetRuns = *opts.Runs
		}
		out = append(out, Build([]string{target.URL}, targetDevices, targetRuns)...)
	}
	return out, nil
}

// URLs lists target urls in file order.
func (f File) URLs() []string {
	out := make([]string, 0, len(f.Targets))
	for _, t := range f.Targets {
		out = append(out, t.URL)
	}
	return out
}

func normalizeOptions(in TargetOptions) TargetOptions {
	devices := make([]string, 0, len(in.Devices))
	for _, d := range in.Devices {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			devices = append(devices, d)
		}
	}
	if len(devices) == 0 {
		devices = nil
	}
	in.Devices = devices
	return in
}

func validateOptions(where string, opts TargetOptions) error {
	for _, d := range opts.Devices {
		if _, err := model.ParseDevice(d); err != nil {
			return fmt.Errorf("%s.devices: %w", where, err)
		}
	}
	if opts.Runs != nil && (*opts.Runs < 1 || *opts.Runs > 20) {
		return fmt.Errorf("%s.runs must be between 1 and 20", where)
	}
	return nil
}
