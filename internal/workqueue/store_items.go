package workqueue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const itemColumns = "id, document_id, tier, dispatch_token, trigger_source, payload_json, enqueued_at, available_at, leased_until, attempts, max_attempts, dead_lettered, last_error"

// leaseRaceRetries bounds how many candidates one Lease call will contend for
// before reporting an empty queue.
const leaseRaceRetries = 3

// NewItem carries the fields the dispatcher supplies when enqueuing.
type NewItem struct {
	DocumentID    string
	Tier          string
	DispatchToken string
	TriggerSource TriggerSource
	Payload       Payload
	MaxAttempts   int
	Delay         time.Duration
}

// Enqueue inserts one work item. Duplicate items for the same document are
// allowed; the dispatch token makes them safe for consumers to discard.
func (s *Store) Enqueue(ctx context.Context, input NewItem) (*Item, error) {
	if input.DocumentID == "" || input.DispatchToken == "" {
		return nil, errors.New("document id and dispatch token are required")
	}
	if input.MaxAttempts <= 0 {
		input.MaxAttempts = 3
	}

	payloadJSON, err := json.Marshal(input.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	now := time.Now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO work_items (
            document_id, tier, dispatch_token, trigger_source, payload_json,
            enqueued_at, available_at, attempts, max_attempts, dead_lettered
        ) VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, 0)`,
		input.DocumentID,
		input.Tier,
		input.DispatchToken,
		string(input.TriggerSource),
		string(payloadJSON),
		now.Format(time.RFC3339Nano),
		now.Add(input.Delay).Format(time.RFC3339Nano),
		input.MaxAttempts,
	)
	if err != nil {
		return nil, fmt.Errorf("insert work item: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.Get(ctx, id)
}

// Get fetches a work item by identifier.
func (s *Store) Get(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM work_items WHERE id = ?`, id)
	item, err := scanWorkItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get work item: %w", err)
	}
	return item, nil
}

// Lease claims the oldest available item for one tier, bumping its attempt
// counter and holding it for the lease duration. Returns nil when nothing is
// ready. Expired leases make items claimable again without any separate
// release step; that is the crash-recovery path for dead consumers.
func (s *Store) Lease(ctx context.Context, tier string, leaseFor time.Duration) (*Item, error) {
	ctx = ensureContext(ctx)

	for attempt := 0; attempt < leaseRaceRetries; attempt++ {
		now := time.Now().UTC()
		nowStr := now.Format(time.RFC3339Nano)

		row := s.db.QueryRowContext(
			ctx,
			`SELECT `+itemColumns+` FROM work_items
             WHERE tier = ? AND dead_lettered = 0 AND available_at <= ?
               AND (leased_until IS NULL OR leased_until <= ?)
             ORDER BY id LIMIT 1`,
			tier,
			nowStr,
			nowStr,
		)
		candidate, err := scanWorkItem(row)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("lease candidate: %w", err)
		}

		res, err := s.execWithRetry(
			ctx,
			`UPDATE work_items SET leased_until = ?, attempts = attempts + 1
             WHERE id = ? AND dead_lettered = 0 AND (leased_until IS NULL OR leased_until <= ?)`,
			now.Add(leaseFor).Format(time.RFC3339Nano),
			candidate.ID,
			nowStr,
		)
		if err != nil {
			return nil, fmt.Errorf("claim work item: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("rows affected: %w", err)
		}
		if affected > 0 {
			return s.Get(ctx, candidate.ID)
		}
		// Another consumer claimed the candidate first; look again.
	}
	return nil, nil
}

// ExtendLease pushes a held item's lease deadline out. Consumers call this on
// their heartbeat cadence during long stages.
func (s *Store) ExtendLease(ctx context.Context, id int64, leaseFor time.Duration) error {
	if _, err := s.execWithRetry(
		ctx,
		`UPDATE work_items SET leased_until = ? WHERE id = ? AND dead_lettered = 0`,
		time.Now().UTC().Add(leaseFor).Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("extend lease: %w", err)
	}
	return nil
}

// Ack removes a completed (or deliberately discarded) item from the queue.
func (s *Store) Ack(ctx context.Context, id int64) error {
	if _, err := s.execWithRetry(ctx, `DELETE FROM work_items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("ack work item: %w", err)
	}
	return nil
}

// Release returns a failed item to the queue after a delay, recording the
// error. Items that have used their whole attempt budget move to the
// dead-letter view instead; the returned bool reports that case.
func (s *Store) Release(ctx context.Context, id int64, retryDelay time.Duration, lastError string) (bool, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if item == nil {
		return false, fmt.Errorf("work item %d not found", id)
	}

	now := time.Now().UTC()
	if item.Attempts >= item.MaxAttempts {
		if _, err := s.execWithRetry(
			ctx,
			`UPDATE work_items SET dead_lettered = 1, leased_until = NULL, last_error = ? WHERE id = ?`,
			nullableString(lastError),
			id,
		); err != nil {
			return false, fmt.Errorf("dead-letter work item: %w", err)
		}
		return true, nil
	}

	if _, err := s.execWithRetry(
		ctx,
		`UPDATE work_items SET leased_until = NULL, available_at = ?, last_error = ? WHERE id = ?`,
		now.Add(retryDelay).Format(time.RFC3339Nano),
		nullableString(lastError),
		id,
	); err != nil {
		return false, fmt.Errorf("release work item: %w", err)
	}
	return false, nil
}

// DeadLetters lists items awaiting operator action, oldest first.
func (s *Store) DeadLetters(ctx context.Context) ([]*Item, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+itemColumns+` FROM work_items WHERE dead_lettered = 1 ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query dead letters: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanWorkItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ReplayDeadLetter returns a dead-lettered item to the live queue with a
// fresh attempt budget.
func (s *Store) ReplayDeadLetter(ctx context.Context, id int64) (*Item, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE work_items
         SET dead_lettered = 0, attempts = 0, leased_until = NULL, available_at = ?,
             last_error = NULL, trigger_source = ?
         WHERE id = ? AND dead_lettered = 1`,
		time.Now().UTC().Format(time.RFC3339Nano),
		string(TriggerReplay),
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("replay dead letter: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("work item %d is not dead-lettered", id)
	}
	return s.Get(ctx, id)
}

// PendingForDocument counts live (non-dead-lettered) items for one document.
func (s *Store) PendingForDocument(ctx context.Context, documentID string) (int, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM work_items WHERE document_id = ? AND dead_lettered = 0`,
		documentID,
	)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count pending items: %w", err)
	}
	return count, nil
}

// Stats summarizes queue depth.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{}
	nowStr := time.Now().UTC().Format(time.RFC3339Nano)

	row := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM work_items
         WHERE dead_lettered = 0 AND (leased_until IS NULL OR leased_until <= ?)`,
		nowStr,
	)
	if err := row.Scan(&stats.Ready); err != nil {
		return stats, fmt.Errorf("count ready: %w", err)
	}

	row = s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM work_items
         WHERE dead_lettered = 0 AND leased_until IS NOT NULL AND leased_until > ?`,
		nowStr,
	)
	if err := row.Scan(&stats.Leased); err != nil {
		return stats, fmt.Errorf("count leased: %w", err)
	}

	row = s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM work_items WHERE dead_lettered = 1`)
	if err := row.Scan(&stats.DeadLetters); err != nil {
		return stats, fmt.Errorf("count dead letters: %w", err)
	}

	return stats, nil
}

func scanWorkItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id            int64
		documentID    string
		tier          string
		dispatchToken string
		triggerSource sql.NullString
		payload       sql.NullString
		enqueuedRaw   sql.NullString
		availableRaw  sql.NullString
		leasedRaw     sql.NullString
		attempts      sql.NullInt64
		maxAttempts   sql.NullInt64
		deadLettered  sql.NullInt64
		lastError     sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&documentID,
		&tier,
		&dispatchToken,
		&triggerSource,
		&payload,
		&enqueuedRaw,
		&availableRaw,
		&leasedRaw,
		&attempts,
		&maxAttempts,
		&deadLettered,
		&lastError,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:            id,
		DocumentID:    documentID,
		Tier:          tier,
		DispatchToken: dispatchToken,
		TriggerSource: TriggerSource(triggerSource.String),
		PayloadJSON:   payload.String,
		Attempts:      int(attempts.Int64),
		MaxAttempts:   int(maxAttempts.Int64),
		LastError:     lastError.String,
	}
	if deadLettered.Valid {
		item.DeadLettered = deadLettered.Int64 != 0
	}

	if enqueued, err := parseTimeString(enqueuedRaw.String); err == nil {
		item.EnqueuedAt = enqueued
	}
	if available, err := parseTimeString(availableRaw.String); err == nil {
		item.AvailableAt = available
	}
	if leasedRaw.Valid {
		if leased, err := parseTimeString(leasedRaw.String); err == nil {
			item.LeasedUntil = &leased
		}
	}
	return item, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
