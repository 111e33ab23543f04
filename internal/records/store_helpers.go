package records

import (
	"database/sql"
	"errors"
	"time"
)

const documentColumns = "document_id, created_at, updated_at, tier, status, status_generation, status_changed_at, revision, source_bucket, source_key, content_type, size_bytes, page_count, metadata_json, result_json, original_result_json, user_edited, last_edited_at, edit_history_json, last_error, retry_count, dispatch_token, last_heartbeat, deleted_at, expires_at"

func scanDocument(scanner interface{ Scan(dest ...any) error }) (*Document, error) {
	var (
		documentID       string
		createdRaw       sql.NullString
		updatedRaw       sql.NullString
		tierStr          string
		statusStr        string
		statusGeneration int64
		statusChangedRaw sql.NullString
		revision         int64
		sourceBucket     string
		sourceKey        string
		contentType      sql.NullString
		sizeBytes        sql.NullInt64
		pageCount        sql.NullInt64
		metadata         sql.NullString
		result           sql.NullString
		originalResult   sql.NullString
		userEdited       sql.NullInt64
		lastEditedRaw    sql.NullString
		editHistory      sql.NullString
		lastError        sql.NullString
		retryCount       sql.NullInt64
		dispatchToken    sql.NullString
		lastHeartbeatRaw sql.NullString
		deletedRaw       sql.NullString
		expiresRaw       sql.NullString
	)

	if err := scanner.Scan(
		&documentID,
		&createdRaw,
		&updatedRaw,
		&tierStr,
		&statusStr,
		&statusGeneration,
		&statusChangedRaw,
		&revision,
		&sourceBucket,
		&sourceKey,
		&contentType,
		&sizeBytes,
		&pageCount,
		&metadata,
		&result,
		&originalResult,
		&userEdited,
		&lastEditedRaw,
		&editHistory,
		&lastError,
		&retryCount,
		&dispatchToken,
		&lastHeartbeatRaw,
		&deletedRaw,
		&expiresRaw,
	); err != nil {
		return nil, err
	}

	doc := &Document{
		DocumentID:         documentID,
		Tier:               Tier(tierStr),
		Status:             Status(statusStr),
		StatusGeneration:   statusGeneration,
		Revision:           revision,
		SourceBucket:       sourceBucket,
		SourceKey:          sourceKey,
		ContentType:        contentType.String,
		SizeBytes:          sizeBytes.Int64,
		PageCount:          int(pageCount.Int64),
		MetadataJSON:       metadata.String,
		ResultJSON:         result.String,
		OriginalResultJSON: originalResult.String,
		EditHistoryJSON:    editHistory.String,
		LastError:          lastError.String,
		RetryCount:         int(retryCount.Int64),
		DispatchToken:      dispatchToken.String,
	}
	if userEdited.Valid {
		doc.UserEdited = userEdited.Int64 != 0
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		doc.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		doc.UpdatedAt = updated
	}
	if changed, err := parseTimeString(statusChangedRaw.String); err == nil {
		doc.StatusChangedAt = changed
	}
	doc.LastEditedAt = parseNullableTime(lastEditedRaw)
	doc.LastHeartbeat = parseNullableTime(lastHeartbeatRaw)
	doc.DeletedAt = parseNullableTime(deletedRaw)
	doc.ExpiresAt = parseNullableTime(expiresRaw)
	return doc, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseNullableTime(raw sql.NullString) *time.Time {
	if !raw.Valid {
		return nil
	}
	t, err := parseTimeString(raw.String)
	if err != nil {
		return nil
	}
	return &t
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
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

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
