// Package quota measures total local storage consumption and classifies it
// into the discrete warning level shown by storage indicators.
package quota

import (
	"context"
	"sync"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/kmezhova/everlog/internal/models"
)

// SizeReader is the bulk size accessor the monitor measures through.
type SizeReader interface {
	// TotalSize returns the byte size of all locally persisted records.
	TotalSize(ctx context.Context) (int64, error)
}

// Classify maps a byte total onto a warning level under fixed thresholds.
// It is monotonic: a larger total never yields a less severe level.
func Classify(total, warn, crit int64) models.WarningLevel {
	switch {
	case total >= crit:
		return models.LevelCritical
	case total >= warn:
		return models.LevelWarning
	default:
		return models.LevelNone
	}
}

// Monitor computes usage snapshots on demand. Overlapping refreshes are
// resolved by a monotonically increasing sequence number: a measurement is
// applied only if no newer refresh has been issued since it started, so the
// reported value always reflects the most recent request.
type Monitor struct {
	store SizeReader
	log   *zap.Logger
	warn  int64
	crit  int64

	mu      sync.Mutex
	seq     uint64
	current models.UsageSnapshot
}

// NewMonitor constructs a Monitor with the given thresholds in bytes.
func NewMonitor(s SizeReader, log *zap.Logger, warn, crit int64) *Monitor {
	return &Monitor{
		store: s,
		log:   log,
		warn:  warn,
		crit:  crit,
		current: models.UsageSnapshot{
			Formatted: humanize.Bytes(0),
			Level:     models.LevelNone,
		},
	}
}

// Refresh measures current usage and returns the snapshot after applying the
// result. If a newer refresh was issued while this one was measuring, its
// result is discarded and the snapshot of the newer request wins.
// Measurement failure keeps the last known total and logs the error.
func (m *Monitor) Refresh(ctx context.Context) models.UsageSnapshot {
	m.mu.Lock()
	m.seq++
	seq := m.seq
	m.current.Loading = true
	m.mu.Unlock()

	total, err := m.store.TotalSize(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	if seq != m.seq {
		// A newer refresh owns the snapshot now; drop this result.
		return m.current
	}

	m.current.Loading = false
	if err != nil {
		m.log.Error("storage usage measurement failed", zap.Error(err))
		return m.current
	}

	m.current.Total = total
	m.current.Formatted = humanize.Bytes(uint64(total))
	m.current.Level = Classify(total, m.warn, m.crit)
	return m.current
}

// Snapshot returns the most recently applied usage snapshot.
func (m *Monitor) Snapshot() models.UsageSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}
