package indexer

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ViktoriyaGonchar/AetherNexus/internal/embedder"
	"github.com/ViktoriyaGonchar/AetherNexus/internal/graphstore"
	"github.com/ViktoriyaGonchar/AetherNexus/internal/parser"
	"github.com/ViktoriyaGonchar/AetherNexus/internal/storage"
	"github.com/ViktoriyaGonchar/AetherNexus/internal/vectorstore"
	"github.com/ViktoriyaGonchar/AetherNexus/pkg/types"
)

// PayloadContentLimit bounds the content copied into vector payloads
const PayloadContentLimit = 1000

// skipDirs are never descended into
var skipDirs = map[string]bool{
	".git":         true,
	"__pycache__":  true,
	"node_modules": true,
	".venv":        true,
	"venv":         true,
	"build":        true,
	"dist":         true,
}

// Indexer coordinates the indexing pipeline: extract -> embed -> vector + graph
type Indexer struct {
	parser   *parser.Parser
	embedder *embedder.Gateway
	vectors  *vectorstore.Gateway
	graph    *graphstore.Gateway
	states   storage.FileStateStore
	logger   *slog.Logger
	locks    IndexLock
}

// Options controls a single indexing run
type Options struct {
	Force      bool // Re-process files whose content is unchanged
	Workers    int  // Concurrent files (default: runtime.NumCPU())
	OnProgress func(processed, total int)
}

// Statistics contains statistics about the indexing operation
type Statistics struct {
	ProjectID     string        `json:"project_id"`
	TotalFiles    int           `json:"total_files"`
	IndexedFiles  int           `json:"indexed_files"`
	SkippedFiles  int           `json:"skipped_files"`
	FailedFiles   int           `json:"failed_files"`
	IgnoredFiles  int           `json:"ignored_files"` // Not decodable as text
	RemovedFiles  int           `json:"removed_files"` // Gone from disk since the last run
	TotalEntities int           `json:"total_entities"`
	Errors        []string      `json:"errors"`
	StartedAt     time.Time     `json:"started_at"`
	CompletedAt   time.Time     `json:"completed_at"`
	Duration      time.Duration `json:"duration_ns"`
}

// ProcessedFiles counts files that were indexed, skipped or failed.
// Ignored files are not part of it.
func (s *Statistics) ProcessedFiles() int {
	return s.IndexedFiles + s.SkippedFiles + s.FailedFiles
}

// DeleteResult reports what DeleteIndex removed
type DeleteResult struct {
	ProjectID      string `json:"project_id"`
	VectorsDeleted int    `json:"vectors_deleted"`
	FilesForgotten int64  `json:"files_forgotten"`
}

// New creates a new Indexer instance
func New(emb *embedder.Gateway, vectors *vectorstore.Gateway, graph *graphstore.Gateway, states storage.FileStateStore, logger *slog.Logger) *Indexer {
	return &Indexer{
		parser:   parser.New(),
		embedder: emb,
		vectors:  vectors,
		graph:    graph,
		states:   states,
		logger:   logger,
	}
}

// Indexing reports whether a run or delete holds projectID
func (idx *Indexer) Indexing(projectID string) bool {
	return idx.locks.Held(projectID)
}

// IndexProject indexes every supported file under projectPath.
// Per-file problems are collected in Statistics.Errors; only a bad path, a
// concurrent run or cancellation fail the whole run.
func (idx *Indexer) IndexProject(ctx context.Context, projectPath, projectID string, opts *Options) (*Statistics, error) {
	if opts == nil {
		opts = &Options{}
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	root, err := filepath.Abs(projectPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", types.ErrPathNotFound, projectPath)
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", types.ErrPathNotFound, projectPath)
	}

	if !idx.locks.TryAcquire(projectID) {
		return nil, fmt.Errorf("%w: %s", types.ErrJobRunning, projectID)
	}
	defer idx.locks.Release(projectID)

	stats := &Statistics{
		ProjectID: projectID,
		Errors:    make([]string, 0),
		StartedAt: time.Now(),
	}
	idx.logger.Info("indexing started", "project_id", projectID, "path", root, "force", opts.Force, "workers", workers)

	files, err := discoverFiles(root)
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}
	stats.TotalFiles = len(files)

	if err := idx.indexFiles(ctx, root, projectID, files, workers, opts, stats); err != nil {
		idx.logger.Warn("indexing aborted", "project_id", projectID, "error", err)
		return stats, err
	}
	stats.RemovedFiles = idx.removeVanished(ctx, root, projectID, files)

	stats.CompletedAt = time.Now()
	stats.Duration = stats.CompletedAt.Sub(stats.StartedAt)
	idx.logger.Info("indexing completed",
		"project_id", projectID,
		"total_files", stats.TotalFiles,
		"indexed_files", stats.IndexedFiles,
		"skipped_files", stats.SkippedFiles,
		"failed_files", stats.FailedFiles,
		"removed_files", stats.RemovedFiles,
		"total_entities", stats.TotalEntities,
		"duration", stats.Duration)
	return stats, nil
}

// removeVanished drops the entities and file state of every previously
// indexed file that is no longer on disk, and returns how many were dropped
func (idx *Indexer) removeVanished(ctx context.Context, root, projectID string, files []string) int {
	states, err := idx.states.ListFileStates(ctx, projectID)
	if err != nil {
		idx.logger.Warn("failed to list file states", "project_id", projectID, "error", err)
		return 0
	}

	present := make(map[string]struct{}, len(files))
	for _, path := range files {
		if rel, err := filepath.Rel(root, path); err == nil {
			present[filepath.ToSlash(rel)] = struct{}{}
		}
	}

	removed := 0
	for _, state := range states {
		if _, ok := present[state.FilePath]; ok {
			continue
		}
		idx.vectors.DeleteEntities(ctx, state.EntityIDs)
		idx.graph.DeleteEntities(ctx, state.EntityIDs)
		if err := idx.states.DeleteFileState(ctx, projectID, state.FilePath); err != nil {
			idx.logger.Warn("failed to forget file state", "file", state.FilePath, "error", err)
			continue
		}
		idx.logger.Debug("removed vanished file", "file", state.FilePath, "entities", len(state.EntityIDs))
		removed++
	}
	return removed
}

// discoverFiles lists supported files in lexical walk order
func discoverFiles(root string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			// Unreadable subtrees are skipped
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != root && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type().IsRegular() && parser.IsSupported(path) {
			files = append(files, path)
		}
		return nil
	})

	return files, err
}

type fileStatus int

const (
	statusIndexed fileStatus = iota
	statusSkipped
	statusFailed
	statusIgnored
)

type fileOutcome struct {
	status   fileStatus
	entities int
	err      string
}

// indexFiles processes files concurrently, bounded by a semaphore
func (idx *Indexer) indexFiles(ctx context.Context, root, projectID string, files []string, workers int, opts *Options, stats *Statistics) error {
	semaphore := make(chan struct{}, workers)
	g, gctx := errgroup.WithContext(ctx)

	var (
		mu        sync.Mutex
		processed int
	)
	record := func(out fileOutcome) {
		mu.Lock()
		defer mu.Unlock()
		switch out.status {
		case statusIndexed:
			stats.IndexedFiles++
		case statusSkipped:
			stats.SkippedFiles++
		case statusFailed:
			stats.FailedFiles++
		case statusIgnored:
			stats.IgnoredFiles++
			return
		}
		if out.err != "" {
			stats.Errors = append(stats.Errors, out.err)
		}
		stats.TotalEntities += out.entities
		processed++
		if opts.OnProgress != nil {
			opts.OnProgress(processed, len(files))
		}
	}

dispatch:
	for _, path := range files {
		select {
		case <-gctx.Done():
			break dispatch
		case semaphore <- struct{}{}:
		}

		g.Go(func() error {
			defer func() { <-semaphore }()
			out, err := idx.indexFile(gctx, root, projectID, path, opts.Force)
			if err != nil {
				return err
			}
			record(out)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	slices.Sort(stats.Errors)
	return nil
}

// indexFile indexes a single file. Only cancellation is returned as an error.
func (idx *Indexer) indexFile(ctx context.Context, root, projectID, path string, force bool) (fileOutcome, error) {
	if err := ctx.Err(); err != nil {
		return fileOutcome{}, err
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		return fileOutcome{status: statusFailed, err: fmt.Sprintf("%s: %v", path, err)}, nil
	}
	rel = filepath.ToSlash(rel)

	content, err := os.ReadFile(path)
	if err != nil {
		return fileOutcome{status: statusFailed, err: fmt.Sprintf("%s: %v", rel, err)}, nil
	}
	hash := sha256.Sum256(content)

	prev, err := idx.states.GetFileState(ctx, projectID, rel)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			idx.logger.Warn("failed to read file state", "file", rel, "error", err)
		}
		prev = nil
	}
	if !force && prev != nil && prev.ContentHash == hash {
		return fileOutcome{status: statusSkipped}, nil
	}

	res, err := idx.parser.Extract(ctx, path, content, root, projectID)
	if err != nil {
		if errors.Is(err, parser.ErrNotText) {
			idx.logger.Debug("skipping undecodable file", "file", rel)
			return fileOutcome{status: statusIgnored}, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fileOutcome{}, ctxErr
		}
		return fileOutcome{status: statusFailed, err: fmt.Sprintf("%s: %v", rel, err)}, nil
	}

	entities := res.All()
	dropped := idx.persist(ctx, res.File, entities)
	if err := ctx.Err(); err != nil {
		return fileOutcome{}, err
	}

	out := fileOutcome{status: statusIndexed, entities: len(entities)}
	if res.ParseError != nil {
		idx.logger.Warn("syntax error, indexed whole file only", "file", rel, "error", res.ParseError)
		out.status = statusFailed
		out.err = parseErrorText(rel, res.ParseError)
		return out, nil
	}
	if dropped {
		idx.logger.Warn("writes dropped, file will be retried", "file", rel)
		return out, nil
	}

	ids := make([]string, len(entities))
	for i, e := range entities {
		ids[i] = e.ID
	}
	if err := idx.states.PutFileState(ctx, &storage.FileState{
		ProjectID:   projectID,
		FilePath:    rel,
		ContentHash: hash,
		EntityIDs:   ids,
		IndexedAt:   time.Now(),
	}); err != nil {
		idx.logger.Warn("failed to store file state", "file", rel, "error", err)
	}

	if prev != nil {
		idx.deleteStale(ctx, prev.EntityIDs, ids)
	}
	return out, nil
}

// parseErrorText prefixes err with the file path unless it already carries one
func parseErrorText(rel string, err error) string {
	var pe *types.ParseError
	if errors.As(err, &pe) && pe.File != "" {
		return pe.Error()
	}
	return fmt.Sprintf("%s: %v", rel, err)
}

// persist embeds and writes every entity, vector first then graph, and links
// structural entities to their file. It reports whether any write was dropped.
func (idx *Indexer) persist(ctx context.Context, file types.Entity, entities []types.Entity) bool {
	texts := make([]string, len(entities))
	for i := range entities {
		texts[i] = entities[i].EmbeddingText()
	}
	vectors := idx.embedder.EmbedBatch(ctx, texts)

	dropped := false
	for i := range entities {
		e := &entities[i]
		if err := idx.vectors.Upsert(ctx, e.ID, vectors[i], vectorPayload(e)); err != nil {
			dropped = true
		}
		if err := idx.graph.CreateNode(ctx, e.ID, string(e.Kind), nodeProperties(e)); err != nil {
			dropped = true
		}
	}

	for i := range entities {
		e := &entities[i]
		if e.ID == file.ID {
			continue
		}
		if err := idx.graph.CreateRelationship(ctx, e.ID, file.ID, types.RelationDefinedIn, e.ProjectID, nil); err != nil {
			dropped = true
		}
	}
	return dropped
}

// deleteStale removes entities that disappeared from a re-indexed file
func (idx *Indexer) deleteStale(ctx context.Context, previous, current []string) {
	var stale []string
	for _, id := range previous {
		if !slices.Contains(current, id) {
			stale = append(stale, id)
		}
	}
	if len(stale) == 0 {
		return
	}
	idx.vectors.DeleteEntities(ctx, stale)
	idx.graph.DeleteEntities(ctx, stale)
	idx.logger.Debug("deleted stale entities", "count", len(stale))
}

// DeleteIndex removes a project from both stores and forgets its file states.
// Store deletions are best effort.
func (idx *Indexer) DeleteIndex(ctx context.Context, projectID string) (*DeleteResult, error) {
	if !idx.locks.TryAcquire(projectID) {
		return nil, fmt.Errorf("%w: %s", types.ErrJobRunning, projectID)
	}
	defer idx.locks.Release(projectID)

	result := &DeleteResult{ProjectID: projectID}
	result.VectorsDeleted = idx.vectors.DeleteByProject(ctx, projectID)
	idx.graph.DeleteProject(ctx, projectID)

	n, err := idx.states.DeleteFileStates(ctx, projectID)
	if err != nil {
		return result, fmt.Errorf("failed to delete file states: %w", err)
	}
	result.FilesForgotten = n

	idx.logger.Info("index deleted", "project_id", projectID, "vectors", result.VectorsDeleted, "files", n)
	return result, nil
}

func vectorPayload(e *types.Entity) map[string]any {
	return map[string]any{
		vectorstore.PayloadName:      e.Name,
		vectorstore.PayloadType:      string(e.Kind),
		vectorstore.PayloadFilePath:  e.FilePath,
		vectorstore.PayloadProjectID: e.ProjectID,
		vectorstore.PayloadContent:   types.Truncate(e.Content, PayloadContentLimit),
		vectorstore.PayloadLineStart: e.LineStart,
		vectorstore.PayloadLineEnd:   e.LineEnd,
	}
}

func nodeProperties(e *types.Entity) map[string]any {
	props := map[string]any{
		"name":       e.Name,
		"file_path":  e.FilePath,
		"project_id": e.ProjectID,
	}
	if e.LineEnd > 0 {
		props["line_start"] = e.LineStart
		props["line_end"] = e.LineEnd
	}
	if lang, ok := e.Metadata["language"]; ok {
		props["language"] = lang
	}
	return props
}
