package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// GetFileState returns the stored state of a file, or ErrNotFound
func (s *SQLiteStorage) GetFileState(ctx context.Context, projectID, filePath string) (*FileState, error) {
	query := `
		SELECT project_id, file_path, content_hash, entity_ids, indexed_at
		FROM file_states
		WHERE project_id = ? AND file_path = ?
	`
	state, err := scanFileState(s.db.QueryRowContext(ctx, query, projectID, filePath))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file state: %w", err)
	}
	return state, nil
}

// PutFileState inserts or replaces the state of a file
func (s *SQLiteStorage) PutFileState(ctx context.Context, state *FileState) error {
	ids := state.EntityIDs
	if ids == nil {
		ids = []string{}
	}
	encoded, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to encode entity ids: %w", err)
	}
	if state.IndexedAt.IsZero() {
		state.IndexedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO file_states (project_id, file_path, content_hash, entity_ids, indexed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(project_id, file_path) DO UPDATE SET
			content_hash = excluded.content_hash,
			entity_ids = excluded.entity_ids,
			indexed_at = excluded.indexed_at
	`
	_, err = s.db.ExecContext(ctx, query,
		state.ProjectID, state.FilePath, state.ContentHash[:], string(encoded), state.IndexedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert file state: %w", err)
	}
	return nil
}

// ListFileStates returns all file states of a project ordered by path
func (s *SQLiteStorage) ListFileStates(ctx context.Context, projectID string) ([]*FileState, error) {
	query := `
		SELECT project_id, file_path, content_hash, entity_ids, indexed_at
		FROM file_states
		WHERE project_id = ?
		ORDER BY file_path
	`
	rows, err := s.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list file states: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var states []*FileState
	for rows.Next() {
		state, err := scanFileState(rows)
		if err != nil {
			return nil, err
		}
		states = append(states, state)
	}
	return states, rows.Err()
}

// DeleteFileState removes the state of one file. A missing row is not an error.
func (s *SQLiteStorage) DeleteFileState(ctx context.Context, projectID, filePath string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM file_states WHERE project_id = ? AND file_path = ?", projectID, filePath)
	if err != nil {
		return fmt.Errorf("failed to delete file state: %w", err)
	}
	return nil
}

// DeleteFileStates removes every file state of a project
func (s *SQLiteStorage) DeleteFileStates(ctx context.Context, projectID string) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM file_states WHERE project_id = ?", projectID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete file states: %w", err)
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFileState(row rowScanner) (*FileState, error) {
	var state FileState
	var hash []byte
	var ids string
	if err := row.Scan(&state.ProjectID, &state.FilePath, &hash, &ids, &state.IndexedAt); err != nil {
		return nil, err
	}
	copy(state.ContentHash[:], hash)
	if err := json.Unmarshal([]byte(ids), &state.EntityIDs); err != nil {
		return nil, fmt.Errorf("failed to decode entity ids: %w", err)
	}
	return &state, nil
}
