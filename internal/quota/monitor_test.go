package quota

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/kmezhova/everlog/internal/models"
)

const (
	testWarn = int64(50_000_000)
	testCrit = int64(100_000_000)
)

func TestClassify(t *testing.T) {
	tests := []struct {
		total int64
		want  models.WarningLevel
	}{
		{0, models.LevelNone},
		{10_000_000, models.LevelNone},
		{49_999_999, models.LevelNone},
		{50_000_000, models.LevelWarning},
		{60_000_000, models.LevelWarning},
		{99_999_999, models.LevelWarning},
		{100_000_000, models.LevelCritical},
		{150_000_000, models.LevelCritical},
	}

	for _, tt := range tests {
		if got := Classify(tt.total, testWarn, testCrit); got != tt.want {
			t.Errorf("Classify(%d) = %v, want %v", tt.total, got, tt.want)
		}
	}
}

func TestClassify_Monotonic(t *testing.T) {
	severity := map[models.WarningLevel]int{
		models.LevelNone:     0,
		models.LevelWarning:  1,
		models.LevelCritical: 2,
	}
	totals := []int64{0, 1, 49_999_999, 50_000_000, 50_000_001, 99_999_999, 100_000_000, 1 << 40}
	for i := 1; i < len(totals); i++ {
		lo := Classify(totals[i-1], testWarn, testCrit)
		hi := Classify(totals[i], testWarn, testCrit)
		if severity[lo] > severity[hi] {
			t.Errorf("classification not monotonic: %d→%v but %d→%v",
				totals[i-1], lo, totals[i], hi)
		}
	}
}

// fixedReader returns a constant size or error.
type fixedReader struct {
	total int64
	err   error
}

func (r *fixedReader) TotalSize(ctx context.Context) (int64, error) {
	return r.total, r.err
}

func TestRefresh_AppliesMeasurement(t *testing.T) {
	m := NewMonitor(&fixedReader{total: 60_000_000}, zap.NewNop(), testWarn, testCrit)

	snap := m.Refresh(context.Background())
	if snap.Total != 60_000_000 || snap.Level != models.LevelWarning || snap.Loading {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
	if snap.Formatted == "" {
		t.Error("expected a humanized size string")
	}
}

func TestRefresh_FailureKeepsLastKnownTotal(t *testing.T) {
	r := &fixedReader{total: 10_000_000}
	m := NewMonitor(r, zap.NewNop(), testWarn, testCrit)

	if snap := m.Refresh(context.Background()); snap.Total != 10_000_000 {
		t.Fatalf("seed refresh failed: %+v", snap)
	}

	r.err = errors.New("io error")
	snap := m.Refresh(context.Background())
	if snap.Total != 10_000_000 {
		t.Errorf("failed measurement must keep prior total, got %d", snap.Total)
	}
	if snap.Loading {
		t.Error("Loading must clear after a failed measurement")
	}
	if snap.Level != models.LevelNone {
		t.Errorf("level changed on failure: %v", snap.Level)
	}
}

// gateReader blocks each TotalSize call until the test releases it, so the
// test controls which of two overlapping measurements resolves first.
type gateReader struct {
	mu      sync.Mutex
	totals  chan int64 // each call takes its assigned total from here
	started chan int64 // receives the call's assigned total when it begins
	release map[int64]chan struct{}
}

func newGateReader() *gateReader {
	return &gateReader{
		totals:  make(chan int64, 2),
		started: make(chan int64, 2),
		release: make(map[int64]chan struct{}),
	}
}

func (r *gateReader) expect(total int64) chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch := make(chan struct{})
	r.release[total] = ch
	r.totals <- total
	return ch
}

func (r *gateReader) TotalSize(ctx context.Context) (int64, error) {
	total := <-r.totals
	r.started <- total
	r.mu.Lock()
	gate := r.release[total]
	r.mu.Unlock()
	<-gate
	return total, nil
}

func TestRefresh_StaleResultDiscarded(t *testing.T) {
	r := newGateReader()
	m := NewMonitor(r, zap.NewNop(), testWarn, testCrit)

	const (
		totalA = int64(150_000_000)
		totalB = int64(10_000_000)
	)
	gateA := r.expect(totalA)
	gateB := r.expect(totalB)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		m.Refresh(context.Background())
	}()
	<-r.started // A is measuring
	go func() {
		defer wg.Done()
		m.Refresh(context.Background())
	}()
	<-r.started // B is measuring

	// B resolves first, then A: A's result is stale and must be discarded.
	close(gateB)
	close(gateA)
	wg.Wait()

	snap := m.Snapshot()
	if snap.Total == totalA {
		t.Fatal("stale result A overwrote the newer result B")
	}
	if snap.Total != totalB {
		t.Errorf("Snapshot total = %d, want %d", snap.Total, totalB)
	}
	if snap.Level != models.LevelNone {
		t.Errorf("Snapshot level = %v, want %v", snap.Level, models.LevelNone)
	}
}
