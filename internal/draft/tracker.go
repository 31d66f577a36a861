// Package draft implements the autosave lifecycle for in-progress diary
// entries: periodic change-detecting persistence, a final flush on teardown,
// and best-effort load/discard helpers.
//
// All persistence here is best-effort. A failed save or load is logged and
// degrades to "no draft"; it never surfaces as an error to the editor.
package draft

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kmezhova/everlog/internal/models"
	"github.com/kmezhova/everlog/internal/store"
)

// Store defines the persistence operations needed by the Tracker.
type Store interface {
	// PutDraft upserts the full draft record, binary payloads included.
	PutDraft(ctx context.Context, d models.Draft) error
	// GetDraft returns the draft stored under key, or store.ErrNotFound.
	GetDraft(ctx context.Context, key string) (*models.Draft, error)
	// DeleteDraft removes the draft stored under key.
	DeleteDraft(ctx context.Context, key string) error
}

// Tracker owns the autosave cycle for drafts.
type Tracker struct {
	store    Store
	log      *zap.Logger
	interval time.Duration
}

// NewTracker constructs a Tracker saving at the given interval.
func NewTracker(s Store, log *zap.Logger, interval time.Duration) *Tracker {
	return &Tracker{store: s, log: log, interval: interval}
}

// Session is one running autosave cycle for a single draft key.
// Callers must never run two Sessions for the same key concurrently;
// per-key write ordering is guaranteed only within one Session.
type Session struct {
	tracker  *Tracker
	key      string
	snapshot func() models.Draft

	stop chan struct{}
	done chan struct{}
}

// Track starts a repeating save cycle for the draft identified by key.
// snapshot is called on every tick to read the editor's current state.
// The returned Session must be stopped when editing ends.
func (t *Tracker) Track(key string, snapshot func() models.Draft) *Session {
	s := &Session{
		tracker:  t,
		key:      key,
		snapshot: snapshot,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go s.run()
	return s
}

// run owns the save loop. lastSaved lives here, so writes for this key are
// strictly sequential: a tick never starts before the previous write settled.
func (s *Session) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.tracker.interval)
	defer ticker.Stop()

	lastSaved := ""
	for {
		select {
		case <-ticker.C:
			lastSaved = s.saveIfChanged(lastSaved)
		case <-s.stop:
			// Final flush so the last few seconds of edits survive teardown.
			s.saveIfChanged(lastSaved)
			return
		}
	}
}

// saveIfChanged persists the current snapshot when its comparison key differs
// from the last successfully saved one, and returns the new comparison key.
// The key advances only after a successful write.
func (s *Session) saveIfChanged(lastSaved string) string {
	d := s.snapshot()
	d.Key = s.key

	ck := comparisonKey(d)
	if ck == lastSaved {
		return lastSaved
	}

	d.UpdatedAt = time.Now().UnixMilli()
	if err := s.tracker.store.PutDraft(context.Background(), d); err != nil {
		s.tracker.log.Error("draft autosave failed",
			zap.String("key", s.key), zap.Error(err))
		return lastSaved
	}
	return ck
}

// Stop cancels the autosave timer, performs one final save attempt, and
// returns once the session has fully shut down. An already-dispatched write
// is never aborted; Stop waits for it to settle.
func (s *Session) Stop() {
	close(s.stop)
	<-s.done
}

// Load returns the persisted draft for key. Absence and read failures both
// report ok=false; failures are logged, never propagated.
func (t *Tracker) Load(ctx context.Context, key string) (models.Draft, bool) {
	d, err := t.store.GetDraft(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			t.log.Error("draft load failed", zap.String("key", key), zap.Error(err))
		}
		return models.Draft{}, false
	}
	return *d, true
}

// Discard deletes the persisted draft for key. Failure is logged, not returned.
func (t *Tracker) Discard(ctx context.Context, key string) {
	if err := t.store.DeleteDraft(ctx, key); err != nil {
		t.log.Error("draft discard failed", zap.String("key", key), zap.Error(err))
	}
}

// HasContent reports whether the draft holds anything worth keeping:
// non-blank text, an attachment, a tag, or a mood away from the default.
func HasContent(d models.Draft) bool {
	return strings.TrimSpace(d.Text) != "" ||
		len(d.Attachments) > 0 ||
		len(d.Tags) > 0 ||
		d.Mood != models.DefaultMood
}

// comparisonKey canonicalizes the content-bearing subset of a draft for
// change detection. Attachment payloads are represented by count only, so
// re-encoding a thumbnail does not force a redundant write.
func comparisonKey(d models.Draft) string {
	tags := append([]string(nil), d.Tags...)
	sort.Strings(tags)

	b, _ := json.Marshal(struct {
		Text        string   `json:"text"`
		Mood        int      `json:"mood"`
		Tags        []string `json:"tags"`
		Private     bool     `json:"private"`
		Attachments int      `json:"attachments"`
	}{d.Text, d.Mood, tags, d.Private, len(d.Attachments)})
	return string(b)
}
