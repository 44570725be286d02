package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"
)

// UpsertVectors inserts or replaces points in a single transaction
func (s *SQLiteStorage) UpsertVectors(ctx context.Context, points []VectorPoint) error {
	if len(points) == 0 {
		return nil
	}

	query := `
		INSERT INTO vector_points (point_id, entity_id, project_id, entity_type, vector, dimension, payload, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(point_id) DO UPDATE SET
			entity_id = excluded.entity_id,
			project_id = excluded.project_id,
			entity_type = excluded.entity_type,
			vector = excluded.vector,
			dimension = excluded.dimension,
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`
	now := time.Now().UTC()
	return s.withTx(ctx, func(q querier) error {
		for _, p := range points {
			payload, err := encodeJSON(p.Payload)
			if err != nil {
				return fmt.Errorf("failed to encode payload for %s: %w", p.EntityID, err)
			}
			if _, err := q.ExecContext(ctx, query,
				int64(p.ID), p.EntityID, p.ProjectID, p.EntityType,
				serializeVector(p.Vector), len(p.Vector), payload, now); err != nil {
				return fmt.Errorf("failed to upsert vector %s: %w", p.EntityID, err)
			}
		}
		return nil
	})
}

// SearchVectors ranks stored vectors by cosine similarity to query.
// Candidates below minScore are dropped; limit <= 0 returns all matches.
func (s *SQLiteStorage) SearchVectors(ctx context.Context, query []float32, filter VectorFilter, limit int, minScore float64) ([]VectorMatch, error) {
	sqlQuery := `SELECT point_id, vector, payload FROM vector_points WHERE dimension = ?`
	args := []interface{}{len(query)}
	sqlQuery, args = applyVectorFilter(sqlQuery, args, filter)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	candidates, err := computeSimilarityScores(rows, query, minScore)
	if err != nil {
		return nil, err
	}

	sortCandidates(candidates)
	return buildVectorMatches(candidates, limit)
}

// ListVectorIDs returns up to limit point ids matching filter, ordered by id
func (s *SQLiteStorage) ListVectorIDs(ctx context.Context, filter VectorFilter, limit int) ([]uint64, error) {
	sqlQuery := `SELECT point_id FROM vector_points WHERE 1 = 1`
	var args []interface{}
	sqlQuery, args = applyVectorFilter(sqlQuery, args, filter)
	sqlQuery += " ORDER BY point_id LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list vector ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []uint64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, uint64(id))
	}
	return ids, rows.Err()
}

// DeleteVectors removes points by id
func (s *SQLiteStorage) DeleteVectors(ctx context.Context, pointIDs []uint64) (int64, error) {
	if len(pointIDs) == 0 {
		return 0, nil
	}
	args := make([]interface{}, len(pointIDs))
	for i, id := range pointIDs {
		args[i] = int64(id)
	}
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM vector_points WHERE point_id IN ("+placeholders(len(args))+")", args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete vectors: %w", err)
	}
	return result.RowsAffected()
}

// applyVectorFilter adds WHERE clause filters for vector queries
func applyVectorFilter(query string, args []interface{}, filter VectorFilter) (string, []interface{}) {
	if filter.ProjectID != "" {
		query += " AND project_id = ?"
		args = append(args, filter.ProjectID)
	}
	if filter.EntityType != "" {
		query += " AND entity_type = ?"
		args = append(args, filter.EntityType)
	}
	return query, args
}

// computeSimilarityScores processes rows and computes cosine similarity
func computeSimilarityScores(rows *sql.Rows, queryVector []float32, minScore float64) ([]candidate, error) {
	candidates := make([]candidate, 0, 256)

	for rows.Next() {
		var pointID int64
		var vectorBlob []byte
		var payload string
		if err := rows.Scan(&pointID, &vectorBlob, &payload); err != nil {
			return nil, err
		}

		vector := deserializeVector(vectorBlob)
		if len(vector) != len(queryVector) {
			continue
		}

		similarity := cosineSimilarity(queryVector, vector)
		if similarity < minScore {
			continue
		}

		candidates = append(candidates, candidate{pointID: uint64(pointID), score: similarity, payload: payload})
	}

	return candidates, rows.Err()
}

// buildVectorMatches decodes the payloads of the top candidates
func buildVectorMatches(candidates []candidate, limit int) ([]VectorMatch, error) {
	if limit <= 0 || limit > len(candidates) {
		limit = len(candidates)
	}

	matches := make([]VectorMatch, limit)
	for i := 0; i < limit; i++ {
		payload := map[string]any{}
		if err := json.Unmarshal([]byte(candidates[i].payload), &payload); err != nil {
			return nil, fmt.Errorf("failed to decode payload of point %d: %w", candidates[i].pointID, err)
		}
		matches[i] = VectorMatch{
			ID:      candidates[i].pointID,
			Score:   candidates[i].score,
			Payload: payload,
		}
	}
	return matches, nil
}

// serializeVector converts a float32 slice to a byte blob (little-endian)
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// cosineSimilarity computes the cosine similarity between two vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// candidate represents a point with its similarity score
type candidate struct {
	pointID uint64
	score   float64
	payload string
}

// sortCandidates sorts candidates by score in descending order, breaking ties by id
func sortCandidates(candidates []candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].pointID < candidates[j].pointID
	})
}

// CosineSimilarity is an exported helper for backends that score in Go
func CosineSimilarity(a, b []float32) float64 {
	return cosineSimilarity(a, b)
}
