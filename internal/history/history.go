// Package history stores per-run category averages and compares a run with the one before it.
package history

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"pagepulse/internal/model"
)

// Entry is one recorded run.
type Entry struct {
	ID         string       `json:"id"`
	RunID      string       `json:"run_id"`
	Key        string       `json:"key"`
	RecordedAt time.Time    `json:"recorded_at"`
	Averages   model.Scores `json:"averages"`
}

type Store interface {
	// Previous returns the most recent entry recorded under key.
	Previous(ctx context.Context, key string) (Entry, bool, error)
	Record(ctx context.Context, e Entry) error
	Close() error
}

// NewEntry stamps a fresh id and time onto the averages of one run.
func NewEntry(runID, key string, averages model.Scores, now time.Time) Entry {
	return Entry{
		ID:         uuid.NewString(),
		RunID:      runID,
		Key:        key,
		RecordedAt: now.UTC(),
		Averages:   averages,
	}
}

// Key identifies comparable runs: the same url set audited on the same devices.
func Key(urls []string, devices []model.DeviceType) string {
	u := append([]string(nil), urls...)
	sort.Strings(u)
	d := make([]string, 0, len(devices))
	for _, dev := range devices {
		d = append(d, string(dev))
	}
	sort.Strings(d)
	sum := sha256.Sum256([]byte(strings.Join(u, "\n") + "|" + strings.Join(d, ",")))
	return hex.EncodeToString(sum[:8])
}
