package dispatch

import (
	"strings"

	cloudevents "github.com/cloudevents/sdk-go/v2"

	"inkwell/internal/services"
	"inkwell/internal/workqueue"
)

// Trigger is the normalized dispatch request every entry point reduces to.
// Either DocumentID or the Bucket/Key pair must identify a record; when both
// are present they must agree.
type Trigger struct {
	Source     workqueue.TriggerSource
	DocumentID string
	Bucket     string
	Key        string
	Tier       string
}

// TriggerFromRequest builds the direct-call trigger shape used by the API and
// CLI. Bucket, key, and tier are optional cross-checks against the record.
func TriggerFromRequest(documentID, bucket, key, tier string) Trigger {
	return Trigger{
		Source:     workqueue.TriggerAPI,
		DocumentID: strings.TrimSpace(documentID),
		Bucket:     strings.TrimSpace(bucket),
		Key:        strings.TrimSpace(key),
		Tier:       strings.TrimSpace(tier),
	}
}

// TriggerForRetry builds the explicit operator requeue for a failed document.
// It resets the retry budget and clears the recorded error.
func TriggerForRetry(documentID string) Trigger {
	return Trigger{Source: workqueue.TriggerRetry, DocumentID: strings.TrimSpace(documentID)}
}

// TriggerFromReconciler builds the requeue the SLA sweep issues for a stuck
// document. It consumes one unit of the retry budget.
func TriggerFromReconciler(documentID string) Trigger {
	return Trigger{Source: workqueue.TriggerReconciler, DocumentID: strings.TrimSpace(documentID)}
}

// storageObjectEvent is the data payload of an object-created notification.
// Key and name are alternate spellings across storage providers.
type storageObjectEvent struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	Name   string `json:"name"`
}

// TriggerFromStorageEvent normalizes an object-created CloudEvent. The record
// is resolved by source location, so intake must have seen the object first.
func TriggerFromStorageEvent(event cloudevents.Event) (Trigger, error) {
	var payload storageObjectEvent
	if err := event.DataAs(&payload); err != nil {
		return Trigger{}, services.Wrap(services.ErrValidation, "dispatch", "storage_event",
			"decode event data", err)
	}
	key := strings.TrimSpace(payload.Key)
	if key == "" {
		key = strings.TrimSpace(payload.Name)
	}
	bucket := strings.TrimSpace(payload.Bucket)
	if bucket == "" || key == "" {
		return Trigger{}, services.Wrap(services.ErrValidation, "dispatch", "storage_event",
			"event data carries no bucket and key", nil)
	}
	return Trigger{Source: workqueue.TriggerStorageEvent, Bucket: bucket, Key: key}, nil
}
