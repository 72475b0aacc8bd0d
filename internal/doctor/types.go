package doctor

type Status string

const (
	StatusPass Status = "pass"
	StatusWarn Status = "warning"
	StatusFail Status = "fail"
)

// CheckResult is one environment check. Metadata carries machine-readable detail for
// --json output.
type CheckResult struct {
	ID       string            `json:"id"`
	Status   Status            `json:"status"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type Counts struct {
	Pass    int `json:"pass"`
	Warning int `json:"warning"`
	Fail    int `json:"fail"`
}

type Report struct {
	Checks []CheckResult `json:"checks"`
	Counts Counts        `json:"counts"`
}

func (r *Report) record(c CheckResult) {
	r.Checks = append(r.Checks, c)
	switch c.Status {
	case StatusFail:
		r.Counts.Fail++
	case StatusWarn:
		r.Counts.Warning++
	default:
		r.Counts.Pass++
	}
}

// Failed reports whether the environment is unusable. Strict mode treats warnings as
// failures.
func (r Report) Failed(strict bool) bool {
	return r.Counts.Fail > 0 || (strict && r.Counts.Warning > 0)
}
