// Package models defines the core data structures for diary entries,
// drafts, biographies, and admin triage records.
package models

// DefaultMood is the neutral mood value a fresh draft starts with.
const DefaultMood = 3

// AttachmentKind classifies a draft attachment payload.
type AttachmentKind string

const (
	// AttachmentImage is a photo or scanned image.
	AttachmentImage AttachmentKind = "image"
	// AttachmentAudio is a recorded voice note.
	AttachmentAudio AttachmentKind = "audio"
	// AttachmentOther is any other binary payload.
	AttachmentOther AttachmentKind = "other"
)

// Attachment is a media preview held by a draft before the entry is committed.
type Attachment struct {
	// ID is the temporary identifier assigned when the attachment is added.
	ID string `json:"id"`
	// Kind classifies the payload (image, audio, other).
	Kind AttachmentKind `json:"kind"`
	// MIME is the declared content type of the payload.
	MIME string `json:"mime"`
	// Size is the payload length in bytes.
	Size int64 `json:"size"`
	// DurationMS is the playback length for audio attachments, 0 otherwise.
	DurationMS int64 `json:"duration_ms,omitempty"`
	// Data is the binary payload.
	Data []byte `json:"data,omitempty"`
	// Thumbnail is an optional downscaled preview of image payloads.
	Thumbnail []byte `json:"thumbnail,omitempty"`
}

// Draft is an unsaved in-progress diary entry. Only one draft may exist
// per key at a time; last write wins.
type Draft struct {
	// Key scopes the draft to a logical slot, typically a date or session.
	Key string `json:"key"`
	// Text is the entry body as typed so far.
	Text string `json:"text"`
	// Mood is the 1-5 mood rating, DefaultMood when untouched.
	Mood int `json:"mood"`
	// Tags is the set of tags attached to the draft.
	Tags []string `json:"tags"`
	// Private marks the draft as excluded from AI features.
	Private bool `json:"private"`
	// Attachments are the media previews added so far.
	Attachments []Attachment `json:"attachments"`
	// UpdatedAt is the last autosave time in epoch milliseconds.
	UpdatedAt int64 `json:"updated_at"`
}

// Entry is a committed diary record for a specific date.
type Entry struct {
	// ID is the unique identifier for the entry.
	ID string `json:"id"`
	// Date is the entry's calendar date in YYYY-MM-DD form.
	Date string `json:"date"`
	// Text is the entry body.
	Text string `json:"text"`
	// Mood is the 1-5 mood rating.
	Mood int `json:"mood"`
	// Tags is the set of tags on the entry.
	Tags []string `json:"tags"`
	// Private excludes the entry from AI features and biographies.
	Private bool `json:"private"`
	// AIAllowed permits the entry to feed biography generation.
	AIAllowed bool `json:"ai_allowed"`
	// Version is the sync version number for concurrency control.
	Version int64 `json:"version"`
	// Deleted marks the entry soft-deleted pending cleanup.
	Deleted bool `json:"deleted"`
}

// BiographyStatus is the lifecycle state of a generated biography.
type BiographyStatus string

const (
	// BiographyPending means generation was requested but has not completed.
	BiographyPending BiographyStatus = "pending"
	// BiographyComplete means the narrative was generated successfully.
	BiographyComplete BiographyStatus = "complete"
	// BiographyFailed means the last generation attempt failed.
	BiographyFailed BiographyStatus = "failed"
)

// Biography is an AI-generated narrative summary of one day's entries.
type Biography struct {
	// Date is the day the biography covers, YYYY-MM-DD.
	Date string `json:"date"`
	// Status is the generation lifecycle state.
	Status BiographyStatus `json:"status"`
	// Text is the generated narrative, empty unless Status is complete.
	Text string `json:"text"`
	// Locale is the language the narrative was generated in.
	Locale string `json:"locale"`
	// UpdatedAt is the last status change in epoch milliseconds.
	UpdatedAt int64 `json:"updated_at"`
}

// WarningLevel is the discrete classification of local storage consumption.
type WarningLevel string

const (
	// LevelNone means usage is below the warning threshold.
	LevelNone WarningLevel = "none"
	// LevelWarning means usage is at or above the warning threshold.
	LevelWarning WarningLevel = "warning"
	// LevelCritical means usage is at or above the critical threshold.
	LevelCritical WarningLevel = "critical"
)

// UsageSnapshot reports total local storage consumption for UI display.
type UsageSnapshot struct {
	// Total is the persisted byte count, non-negative.
	Total int64 `json:"total"`
	// Formatted is Total rendered for humans, e.g. "60 MB".
	Formatted string `json:"formatted"`
	// Level is the classification of Total against the fixed thresholds.
	Level WarningLevel `json:"level"`
	// Loading is true while a measurement is outstanding.
	Loading bool `json:"loading"`
}

// FeedbackStatus is the admin triage state of a feedback record.
type FeedbackStatus string

const (
	// FeedbackNew is the initial state of submitted feedback.
	FeedbackNew FeedbackStatus = "new"
	// FeedbackReviewed means an admin has looked at the feedback.
	FeedbackReviewed FeedbackStatus = "reviewed"
	// FeedbackResolved means the feedback has been acted on.
	FeedbackResolved FeedbackStatus = "resolved"
)

// ValidFeedbackStatus reports whether s is a known triage state.
func ValidFeedbackStatus(s FeedbackStatus) bool {
	switch s {
	case FeedbackNew, FeedbackReviewed, FeedbackResolved:
		return true
	}
	return false
}

// Feedback is a user-submitted feedback record triaged from the admin dashboard.
type Feedback struct {
	// ID is the unique identifier for the record.
	ID string `json:"id"`
	// Message is the user's feedback text.
	Message string `json:"message"`
	// Status is the admin triage state.
	Status FeedbackStatus `json:"status"`
	// CreatedAt is the submission time in epoch milliseconds.
	CreatedAt int64 `json:"created_at"`
}

// CrashReport is a client-submitted crash record for admin triage.
type CrashReport struct {
	// ID is the unique identifier for the report.
	ID string `json:"id"`
	// DeviceID identifies the submitting device.
	DeviceID string `json:"device_id"`
	// Message is the crash summary line.
	Message string `json:"message"`
	// Stack is the captured stack trace.
	Stack string `json:"stack"`
	// AppVersion is the client build that crashed.
	AppVersion string `json:"app_version"`
	// CreatedAt is the ingestion time in epoch milliseconds.
	CreatedAt int64 `json:"created_at"`
}
