package workqueue

import (
	"encoding/json"
	"fmt"
	"time"
)

// TriggerSource records which path produced a work item.
type TriggerSource string

const (
	TriggerAPI          TriggerSource = "api"
	TriggerStorageEvent TriggerSource = "storage_event"
	TriggerReconciler   TriggerSource = "reconciler"
	TriggerRetry        TriggerSource = "retry"
	TriggerReplay       TriggerSource = "replay"
)

// Payload is the normalized work-item body every trigger shape reduces to.
type Payload struct {
	DocumentID   string `json:"document_id"`
	Tier         string `json:"tier"`
	SourceBucket string `json:"source_bucket,omitempty"`
	SourceKey    string `json:"source_key,omitempty"`
}

// Item is one queued unit of work.
type Item struct {
	ID            int64
	DocumentID    string
	Tier          string
	DispatchToken string
	TriggerSource TriggerSource
	PayloadJSON   string
	EnqueuedAt    time.Time
	AvailableAt   time.Time
	LeasedUntil   *time.Time
	Attempts      int
	MaxAttempts   int
	DeadLettered  bool
	LastError     string
}

// Payload decodes the stored payload JSON.
func (i *Item) Payload() (Payload, error) {
	var payload Payload
	if i == nil || i.PayloadJSON == "" {
		return payload, fmt.Errorf("work item has no payload")
	}
	if err := json.Unmarshal([]byte(i.PayloadJSON), &payload); err != nil {
		return Payload{}, fmt.Errorf("decode payload: %w", err)
	}
	return payload, nil
}

// Stats summarizes queue depth for status reporting.
type Stats struct {
	Ready       int
	Leased      int
	DeadLetters int
}
