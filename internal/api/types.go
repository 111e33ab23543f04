package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Metadata carries the user-settable descriptive fields of a document.
type Metadata struct {
	Title       string   `json:"title,omitempty"`
	Author      string   `json:"author,omitempty"`
	Publication string   `json:"publication,omitempty"`
	Year        int      `json:"year,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Result carries extraction output for a document.
type Result struct {
	ExtractedText string  `json:"extractedText,omitempty"`
	RefinedText   string  `json:"refinedText,omitempty"`
	FormattedText string  `json:"formattedText,omitempty"`
	Language      string  `json:"language,omitempty"`
	PageCount     int     `json:"pageCount,omitempty"`
	WordCount     int     `json:"wordCount,omitempty"`
	QualityScore  float64 `json:"qualityScore,omitempty"`
	ResultKey     string  `json:"resultKey,omitempty"`
}

// OriginalResult is the pre-edit snapshot of the editable text fields. The
// fields serialize without omitempty so an originally empty value survives
// the round trip unchanged.
type OriginalResult struct {
	RefinedText   string `json:"refinedText"`
	FormattedText string `json:"formattedText"`
}

// EditHistoryEntry describes one editor call, newest entries first.
type EditHistoryEntry struct {
	EditedAt     string         `json:"editedAt"`
	EditedFields []string       `json:"editedFields"`
	Previous     map[string]any `json:"previous"`
}

// Document describes one record in a transport-friendly format.
type Document struct {
	DocumentID     string             `json:"documentId"`
	CreatedAt      string             `json:"createdAt"`
	UpdatedAt      string             `json:"updatedAt,omitempty"`
	Tier           string             `json:"tier"`
	Status         string             `json:"status"`
	SourceBucket   string             `json:"sourceBucket,omitempty"`
	SourceKey      string             `json:"sourceKey,omitempty"`
	ContentType    string             `json:"contentType,omitempty"`
	SizeBytes      int64              `json:"sizeBytes,omitempty"`
	PageCount      int                `json:"pageCount,omitempty"`
	Metadata       Metadata           `json:"metadata"`
	Result         *Result            `json:"result,omitempty"`
	OriginalResult *OriginalResult    `json:"originalResult,omitempty"`
	UserEdited     bool               `json:"userEdited"`
	LastEdited     string             `json:"lastEdited,omitempty"`
	EditHistory    []EditHistoryEntry `json:"editHistory"`
	LastError      string             `json:"lastError,omitempty"`
	RetryCount     int                `json:"retryCount,omitempty"`
	DeletedAt      string             `json:"deletedAt,omitempty"`
	ExpiresAt      string             `json:"expiresAt,omitempty"`
}

// RecycleEntry summarizes one recycled document.
type RecycleEntry struct {
	DocumentID string `json:"documentId"`
	Title      string `json:"title,omitempty"`
	Status     string `json:"status"`
	DeletedAt  string `json:"deletedAt"`
	ExpiresAt  string `json:"expiresAt"`
}

// WorkItem describes a queue entry, surfaced for dead-letter inspection.
type WorkItem struct {
	ID            int64  `json:"id"`
	DocumentID    string `json:"documentId"`
	Tier          string `json:"tier"`
	DispatchToken string `json:"dispatchToken"`
	TriggerSource string `json:"triggerSource"`
	EnqueuedAt    string `json:"enqueuedAt,omitempty"`
	Attempts      int    `json:"attempts"`
	MaxAttempts   int    `json:"maxAttempts"`
	DeadLettered  bool   `json:"deadLettered"`
	LastError     string `json:"lastError,omitempty"`
}

// DispatchOutcome reports the result of a dispatch or retry call.
type DispatchOutcome struct {
	DocumentID string `json:"documentId"`
	Status     string `json:"status"`
	Token      string `json:"token"`
	ItemID     int64  `json:"itemId"`
}

// StageHealth mirrors readiness reporting for pipeline stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// RecordStats summarizes record counts by lifecycle bucket.
type RecordStats struct {
	Total      int `json:"total"`
	Uploaded   int `json:"uploaded"`
	Queued     int `json:"queued"`
	InFlight   int `json:"inFlight"`
	Processed  int `json:"processed"`
	Failed     int `json:"failed"`
	Recycled   int `json:"recycled"`
	UserEdited int `json:"userEdited"`
}

// QueueStats summarizes work queue depth.
type QueueStats struct {
	Ready       int `json:"ready"`
	Leased      int `json:"leased"`
	DeadLetters int `json:"deadLetters"`
}

// WorkerStatus summarizes worker lane execution state.
type WorkerStatus struct {
	Running      bool          `json:"running"`
	LastError    string        `json:"lastError,omitempty"`
	LastDocument *Document     `json:"lastDocument,omitempty"`
	Records      RecordStats   `json:"records"`
	Queue        QueueStats    `json:"queue"`
	StageHealth  []StageHealth `json:"stageHealth"`
}

// ReconcilerStatus summarizes the most recent SLA sweep.
type ReconcilerStatus struct {
	Running   bool   `json:"running"`
	LastSweep string `json:"lastSweep,omitempty"`
	Scanned   int    `json:"scanned"`
	Requeued  int    `json:"requeued"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped"`
	LastError string `json:"lastError,omitempty"`
}

// PreflightResult reports the outcome of one startup check.
type PreflightResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running       bool              `json:"running"`
	PID           int               `json:"pid"`
	RecordsDBPath string            `json:"recordsDbPath"`
	QueueDBPath   string            `json:"queueDbPath"`
	LockFilePath  string            `json:"lockFilePath"`
	Worker        WorkerStatus      `json:"worker"`
	Reconciler    ReconcilerStatus  `json:"reconciler"`
	Preflight     []PreflightResult `json:"preflight,omitempty"`
}

// DocumentListResponse wraps a collection of documents.
type DocumentListResponse struct {
	Documents []Document `json:"documents"`
}

// DocumentResponse wraps a single document.
type DocumentResponse struct {
	Document Document `json:"document"`
}

// RecycleListResponse wraps the recycle view.
type RecycleListResponse struct {
	Entries []RecycleEntry `json:"entries"`
}

// DeadLetterListResponse wraps dead-lettered work items.
type DeadLetterListResponse struct {
	Items []WorkItem `json:"items"`
}

// HealthReport aggregates the preflight checks served on the health endpoint.
type HealthReport struct {
	Healthy bool              `json:"healthy"`
	Checks  []PreflightResult `json:"checks"`
}

// PurgeResponse reports how many recycled records a purge removed.
type PurgeResponse struct {
	Purged int64 `json:"purged"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
