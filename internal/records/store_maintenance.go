package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Stats returns aggregate record counts for status reporting.
func (s *Store) Stats(ctx context.Context) (StoreStats, error) {
	stats := StoreStats{}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT status, COUNT(1) FROM documents WHERE deleted_at IS NULL GROUP BY status`,
	)
	if err != nil {
		return stats, fmt.Errorf("records stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return stats, err
		}
		stats.Total += count
		switch {
		case status == StatusUploaded:
			stats.Uploaded += count
		case status == StatusQueued:
			stats.Queued += count
		case status.InFlight():
			stats.InFlight += count
		case status.TerminalSuccess():
			stats.Processed += count
		case status == StatusFailed:
			stats.Failed += count
		}
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM documents WHERE deleted_at IS NOT NULL`)
	if err := row.Scan(&stats.Recycled); err != nil {
		return stats, fmt.Errorf("count recycled: %w", err)
	}

	row = s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM documents WHERE deleted_at IS NULL AND user_edited = 1`)
	if err := row.Scan(&stats.UserEdited); err != nil {
		return stats, fmt.Errorf("count edited: %w", err)
	}

	return stats, nil
}

// CheckHealth returns diagnostic information about the records database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{
		DBPath:        s.path,
		SchemaVersion: "current",
	}

	if s.path == "" {
		return health, errors.New("records database path is unknown")
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			health.DatabaseExists = false
			return health, nil
		}
		return health, fmt.Errorf("stat records database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("records database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	if s.db == nil {
		return health, errors.New("records database connection unavailable")
	}

	connCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping records database: %w", err)
	}
	health.DatabaseReadable = true

	var tableName string
	row := s.db.QueryRowContext(connCtx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'documents'")
	if err := row.Scan(&tableName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			health.TableExists = false
		} else {
			health.Error = err.Error()
			return health, fmt.Errorf("query table info: %w", err)
		}
	} else {
		health.TableExists = true
	}

	if health.TableExists {
		colsRows, err := s.db.QueryContext(connCtx, "PRAGMA table_info(documents)")
		if err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("table info: %w", err)
		}
		defer colsRows.Close()

		var columns []string
		for colsRows.Next() {
			var (
				cid     int
				name    string
				typeStr string
				notNull int
				dflt    any
				pk      int
			)
			if err := colsRows.Scan(&cid, &name, &typeStr, &notNull, &dflt, &pk); err != nil {
				health.Error = err.Error()
				return health, fmt.Errorf("scan table info: %w", err)
			}
			columns = append(columns, name)
		}
		if err := colsRows.Err(); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("iterate table info: %w", err)
		}

		expected := strings.Split(documentColumns, ", ")
		missingMap := make(map[string]struct{}, len(expected))
		for _, col := range expected {
			missingMap[col] = struct{}{}
		}
		for _, col := range columns {
			delete(missingMap, col)
		}
		for col := range missingMap {
			health.MissingColumns = append(health.MissingColumns, col)
		}

		row = s.db.QueryRowContext(connCtx, "SELECT COUNT(*) FROM documents")
		if err := row.Scan(&health.TotalDocuments); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("count documents: %w", err)
		}
	}

	row = s.db.QueryRowContext(connCtx, "PRAGMA integrity_check")
	var integrityResult string
	if err := row.Scan(&integrityResult); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrityResult, "ok")

	return health, nil
}
