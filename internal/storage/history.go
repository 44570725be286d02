package storage

import (
	"context"
	"fmt"
	"time"
)

// DefaultHistoryLimit is used when ListSearchHistory is called without a limit
const DefaultHistoryLimit = 20

// RecordSearch appends a search to the history table
func (s *SQLiteStorage) RecordSearch(ctx context.Context, entry *HistoryEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO search_history (query, mode, project_id, result_count, took_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		entry.Query, entry.Mode, entry.ProjectID, entry.ResultCount, entry.TookMs, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record search: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	entry.ID = id
	return nil
}

// ListSearchHistory returns the most recent searches first
func (s *SQLiteStorage) ListSearchHistory(ctx context.Context, limit int) ([]*HistoryEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	query := `
		SELECT id, query, mode, project_id, result_count, took_ms, created_at
		FROM search_history
		ORDER BY id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list search history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]*HistoryEntry, 0, limit)
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ID, &e.Query, &e.Mode, &e.ProjectID, &e.ResultCount, &e.TookMs, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan search history: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
