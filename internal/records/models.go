package records

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Tier selects the processing pipeline a document is routed to.
type Tier string

const (
	TierFast  Tier = "fast"
	TierHeavy Tier = "heavy"
)

// ParseTier converts a string into a known Tier.
func ParseTier(value string) (Tier, bool) {
	switch Tier(strings.ToLower(strings.TrimSpace(value))) {
	case TierFast:
		return TierFast, true
	case TierHeavy:
		return TierHeavy, true
	default:
		return "", false
	}
}

// Status represents the lifecycle of a document record.
type Status string

const (
	StatusUploaded         Status = "uploaded"
	StatusQueued           Status = "queued"
	StatusProcessing       Status = "processing"
	StatusProcessingOCR    Status = "processing_ocr"
	StatusAssessingQuality Status = "assessing_quality"
	StatusRefiningText     Status = "refining_text"
	StatusSavingResults    Status = "saving_results"
	StatusProcessed        Status = "processed"
	StatusFailed           Status = "failed"
)

// StatusCompleted is the historical fast-tier spelling of StatusProcessed.
// It is accepted on the wire and normalized to StatusProcessed on parse;
// rows never store it.
const StatusCompleted Status = "completed"

// StuckReason is the diagnostic recorded when the reconciler exhausts the
// retry budget for a record that stopped making progress.
const StuckReason = "stuck: no progress within SLA"

var allStatuses = []Status{
	StatusUploaded,
	StatusQueued,
	StatusProcessing,
	StatusProcessingOCR,
	StatusAssessingQuality,
	StatusRefiningText,
	StatusSavingResults,
	StatusProcessed,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var inFlightStatuses = map[Status]struct{}{
	StatusProcessing:       {},
	StatusProcessingOCR:    {},
	StatusAssessingQuality: {},
	StatusRefiningText:     {},
	StatusSavingResults:    {},
}

// forwardTransitions lists the legal next step for each status as the worker
// advances a document. Requeue and failure edges are handled separately in
// CanTransition.
var forwardTransitions = map[Status][]Status{
	StatusUploaded:         {StatusQueued},
	StatusQueued:           {StatusProcessing},
	StatusProcessing:       {StatusProcessingOCR, StatusProcessed},
	StatusProcessingOCR:    {StatusAssessingQuality},
	StatusAssessingQuality: {StatusRefiningText},
	StatusRefiningText:     {StatusSavingResults},
	StatusSavingResults:    {StatusProcessed},
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status. The fast-tier spelling
// "completed" normalizes to StatusProcessed.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	if normalized == StatusCompleted {
		return StatusProcessed, true
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Terminal reports whether a status ends the lifecycle.
func (s Status) Terminal() bool {
	return s == StatusProcessed || s == StatusCompleted || s == StatusFailed
}

// TerminalSuccess reports whether a status represents successful completion.
func (s Status) TerminalSuccess() bool {
	return s == StatusProcessed || s == StatusCompleted
}

// InFlight reports whether a worker currently owns the record.
func (s Status) InFlight() bool {
	_, ok := inFlightStatuses[s]
	return ok
}

// CanTransition reports whether moving from one status to another is legal.
// Terminal success is sticky. Failure is reachable from any non-terminal
// state. Queued is reachable from uploaded (dispatch), queued (re-dispatch
// with a fresh token), failed (explicit retry), and any in-flight state
// (reconciler requeue).
func CanTransition(from, to Status) bool {
	if from.TerminalSuccess() {
		return false
	}
	if to == StatusFailed {
		return from != StatusFailed
	}
	if to == StatusQueued {
		return from == StatusUploaded || from == StatusQueued || from == StatusFailed || from.InFlight()
	}
	if from == StatusFailed {
		return false
	}
	for _, next := range forwardTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Metadata holds the user-settable descriptive fields stored as JSON.
type Metadata struct {
	Title       string   `json:"title,omitempty"`
	Author      string   `json:"author,omitempty"`
	Publication string   `json:"publication,omitempty"`
	Year        int      `json:"year,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// IsZero reports whether no metadata field is set.
func (m Metadata) IsZero() bool {
	return m.Title == "" && m.Author == "" && m.Publication == "" &&
		m.Year == 0 && m.Description == "" && len(m.Tags) == 0
}

// Result holds extraction output stored as JSON. Workers write it once; the
// editor may subsequently change RefinedText and FormattedText.
type Result struct {
	ExtractedText string  `json:"extracted_text,omitempty"`
	RefinedText   string  `json:"refined_text,omitempty"`
	FormattedText string  `json:"formatted_text,omitempty"`
	Language      string  `json:"language,omitempty"`
	PageCount     int     `json:"page_count,omitempty"`
	WordCount     int     `json:"word_count,omitempty"`
	QualityScore  float64 `json:"quality_score,omitempty"`
	ResultKey     string  `json:"result_key,omitempty"`
}

// OriginalResult snapshots the editable text fields as they stood before the
// first user edit. Fields serialize without omitempty so empty strings
// round-trip bit-identically.
type OriginalResult struct {
	RefinedText   string `json:"refined_text"`
	FormattedText string `json:"formatted_text"`
}

// EditHistoryEntry records one editor call: which fields were touched and the
// value each held immediately before the edit.
type EditHistoryEntry struct {
	EditedAt     time.Time      `json:"edited_at"`
	EditedFields []string       `json:"edited_fields"`
	Previous     map[string]any `json:"previous"`
}

// EditHistoryLimit caps the number of retained history entries per record.
// Entries are kept newest first; the oldest drops off when the cap is hit.
const EditHistoryLimit = 10

// Document represents one record persisted in SQLite.
type Document struct {
	DocumentID         string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	Tier               Tier
	Status             Status
	StatusGeneration   int64
	StatusChangedAt    time.Time
	Revision           int64
	SourceBucket       string
	SourceKey          string
	ContentType        string
	SizeBytes          int64
	PageCount          int
	MetadataJSON       string
	ResultJSON         string
	OriginalResultJSON string
	UserEdited         bool
	LastEditedAt       *time.Time
	EditHistoryJSON    string
	LastError          string
	RetryCount         int
	DispatchToken      string
	LastHeartbeat      *time.Time
	DeletedAt          *time.Time
	ExpiresAt          *time.Time
}

// Deleted reports whether the record lives in the recycle view.
func (d *Document) Deleted() bool {
	return d != nil && d.DeletedAt != nil
}

// Metadata decodes the stored metadata JSON, returning the zero value when
// none has been recorded.
func (d *Document) Metadata() Metadata {
	var meta Metadata
	if d == nil || strings.TrimSpace(d.MetadataJSON) == "" {
		return meta
	}
	_ = json.Unmarshal([]byte(d.MetadataJSON), &meta)
	return meta
}

// SetMetadata encodes and stores metadata on the document.
func (d *Document) SetMetadata(meta Metadata) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	d.MetadataJSON = string(data)
	return nil
}

// Result decodes the stored result JSON. The second return is false when no
// result has been written yet.
func (d *Document) Result() (Result, bool) {
	var result Result
	if d == nil || strings.TrimSpace(d.ResultJSON) == "" {
		return result, false
	}
	if err := json.Unmarshal([]byte(d.ResultJSON), &result); err != nil {
		return Result{}, false
	}
	return result, true
}

// SetResult encodes and stores extraction output on the document.
func (d *Document) SetResult(result Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	d.ResultJSON = string(data)
	return nil
}

// OriginalResult decodes the first-edit snapshot. The second return is false
// when the record has never been edited.
func (d *Document) OriginalResult() (OriginalResult, bool) {
	var snapshot OriginalResult
	if d == nil || strings.TrimSpace(d.OriginalResultJSON) == "" {
		return snapshot, false
	}
	if err := json.Unmarshal([]byte(d.OriginalResultJSON), &snapshot); err != nil {
		return OriginalResult{}, false
	}
	return snapshot, true
}

// EditHistory decodes the stored history, newest first.
func (d *Document) EditHistory() []EditHistoryEntry {
	if d == nil || strings.TrimSpace(d.EditHistoryJSON) == "" {
		return nil
	}
	var entries []EditHistoryEntry
	if err := json.Unmarshal([]byte(d.EditHistoryJSON), &entries); err != nil {
		return nil
	}
	return entries
}

// SetEditHistory encodes and stores the history entries.
func (d *Document) SetEditHistory(entries []EditHistoryEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal edit history: %w", err)
	}
	d.EditHistoryJSON = string(data)
	return nil
}

// StoreStats summarizes record counts for status reporting.
type StoreStats struct {
	Total      int
	Uploaded   int
	Queued     int
	InFlight   int
	Processed  int
	Failed     int
	Recycled   int
	UserEdited int
}

// DatabaseHealth captures diagnostic information about the records database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	MissingColumns   []string
	IntegrityCheck   bool
	TotalDocuments   int
	Error            string
}
