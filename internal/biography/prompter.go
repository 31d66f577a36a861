// Package biography decides when to surface the generate/update biography
// prompt and drives generation through the AI backend.
//
// The prompter is instance-scoped: each Prompter owns its own once-per-session
// check flag, so constructing a new one (new session) re-arms the check.
package biography

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kmezhova/everlog/internal/models"
	"github.com/kmezhova/everlog/internal/store"
)

// promptedMarker persists which date the user was last prompted for, so the
// generate prompt shows at most once per day.
const promptedMarker = "biography_prompted"

// dateLayout is the canonical YYYY-MM-DD entry date form.
const dateLayout = "2006-01-02"

// ErrGenerating is returned when a generation is already in flight.
var ErrGenerating = errors.New("biography generation already in progress")

// Store defines the local persistence operations needed by the Prompter.
type Store interface {
	// EntriesByDate returns all non-deleted entries for the given date.
	EntriesByDate(ctx context.Context, date string) ([]models.Entry, error)
	// GetBiography returns the biography for date, or store.ErrNotFound.
	GetBiography(ctx context.Context, date string) (*models.Biography, error)
	// PutBiography upserts the biography for its date.
	PutBiography(ctx context.Context, b models.Biography) error
	// GetMarker returns the named marker value, or store.ErrNotFound.
	GetMarker(ctx context.Context, name string) (string, error)
	// SetMarker stores a value under the named marker.
	SetMarker(ctx context.Context, name, value string, updatedAt int64) error
}

// Generator is the AI generation backend contract.
type Generator interface {
	// Generate produces the biography for date in the given locale.
	Generate(ctx context.Context, date, locale string, notify bool) (models.Biography, error)
	// RetryPending re-drives biographies left pending or failed by prior sessions.
	RetryPending(ctx context.Context, locale string) error
}

// PromptType distinguishes the two prompt flavors.
type PromptType string

const (
	// PromptGenerate asks to generate a first biography for a date.
	PromptGenerate PromptType = "generate"
	// PromptUpdate asks to regenerate an existing complete biography.
	PromptUpdate PromptType = "update"
)

// Prompt is the active prompt surfaced to the user, if any.
type Prompt struct {
	// Type is generate or update.
	Type PromptType
	// Date is the day the prompt is about, YYYY-MM-DD.
	Date string
}

// Prompter runs the once-per-session prompt decision and the generation flow.
type Prompter struct {
	store   Store
	gen     Generator
	log     *zap.Logger
	enabled bool
	locale  string
	now     func() time.Time

	mu         sync.Mutex
	checked    bool
	active     *Prompt
	generating bool
}

// NewPrompter constructs a Prompter. enabled mirrors the AI feature flag;
// when false the prompter is idle for the whole session.
func NewPrompter(s Store, gen Generator, log *zap.Logger, enabled bool, locale string) *Prompter {
	return &Prompter{
		store:   s,
		gen:     gen,
		log:     log,
		enabled: enabled,
		locale:  locale,
		now:     time.Now,
	}
}

func (p *Prompter) today() string {
	return p.now().Format(dateLayout)
}

// Check runs the prompt evaluation for today. It runs at most once per
// Prompter; later calls are no-ops, so re-renders never re-trigger it.
func (p *Prompter) Check(ctx context.Context) {
	p.mu.Lock()
	if p.checked {
		p.mu.Unlock()
		return
	}
	p.checked = true
	enabled := p.enabled
	p.mu.Unlock()

	if !enabled {
		return
	}

	// Sweep biographies stranded by prior sessions. Fire-and-forget: the
	// outcome only matters to the log.
	go func() {
		if err := p.gen.RetryPending(context.Background(), p.locale); err != nil {
			p.log.Warn("biography retry sweep failed", zap.Error(err))
		}
	}()

	today := p.today()

	if marked, err := p.promptedOn(ctx); err != nil {
		p.log.Error("reading prompted marker failed", zap.Error(err))
		return
	} else if marked == today {
		return
	}

	entries, err := p.store.EntriesByDate(ctx, today)
	if err != nil {
		p.log.Error("reading today's entries failed", zap.Error(err))
		return
	}
	if !anyQualifying(entries) {
		return
	}

	bio, err := p.store.GetBiography(ctx, today)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		p.log.Error("reading today's biography failed", zap.Error(err))
		return
	}
	if bio != nil && bio.Status == models.BiographyComplete {
		return
	}

	p.mu.Lock()
	p.active = &Prompt{Type: PromptGenerate, Date: today}
	p.mu.Unlock()
}

// anyQualifying reports whether at least one entry may feed a biography.
func anyQualifying(entries []models.Entry) bool {
	for _, e := range entries {
		if !e.Private && e.AIAllowed {
			return true
		}
	}
	return false
}

// promptedOn returns the date the marker was last set for, "" if never.
func (p *Prompter) promptedOn(ctx context.Context) (string, error) {
	v, err := p.store.GetMarker(ctx, promptedMarker)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	return v, err
}

// markPromptedToday persists today's date in the marker. Best-effort.
func (p *Prompter) markPromptedToday(ctx context.Context) {
	if err := p.store.SetMarker(ctx, promptedMarker, p.today(), p.now().UnixMilli()); err != nil {
		p.log.Error("setting prompted marker failed", zap.Error(err))
	}
}

// Active returns a copy of the active prompt, or nil when idle.
func (p *Prompter) Active() *Prompt {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active == nil {
		return nil
	}
	c := *p.active
	return &c
}

// IsGenerating reports whether a generation is in flight.
func (p *Prompter) IsGenerating() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generating
}

// Generate invokes the backend for date, persists whatever record comes back,
// marks "prompted today" iff date is today, and clears the active prompt.
// The returned record carries its own status; a failed status is the caller's
// to render. At most one generation runs per prompt lifecycle.
func (p *Prompter) Generate(ctx context.Context, date string) (models.Biography, error) {
	p.mu.Lock()
	if p.generating {
		p.mu.Unlock()
		return models.Biography{}, ErrGenerating
	}
	p.generating = true
	p.mu.Unlock()

	bio, err := p.gen.Generate(ctx, date, p.locale, true)
	if err == nil {
		if perr := p.store.PutBiography(ctx, bio); perr != nil {
			p.log.Error("persisting biography failed",
				zap.String("date", date), zap.Error(perr))
		}
	}

	if date == p.today() {
		p.markPromptedToday(ctx)
	}

	p.mu.Lock()
	p.active = nil
	p.generating = false
	p.mu.Unlock()

	return bio, err
}

// Dismiss clears the active prompt. The "prompted today" marker is set only
// when the dismissed prompt was about today; nagging state is scoped to today.
func (p *Prompter) Dismiss(ctx context.Context) {
	p.mu.Lock()
	active := p.active
	p.active = nil
	p.mu.Unlock()

	if active != nil && active.Date == p.today() {
		p.markPromptedToday(ctx)
	}
}

// PromptUpdate surfaces an update prompt for date if a complete biography
// already exists there. It bypasses the prompted marker entirely; updates can
// be requested any number of times.
func (p *Prompter) PromptUpdate(ctx context.Context, date string) {
	bio, err := p.store.GetBiography(ctx, date)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			p.log.Error("reading biography failed", zap.String("date", date), zap.Error(err))
		}
		return
	}
	if bio.Status != models.BiographyComplete {
		return
	}

	p.mu.Lock()
	p.active = &Prompt{Type: PromptUpdate, Date: date}
	p.mu.Unlock()
}
