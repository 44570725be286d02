// Package indexer coordinates the indexing pipeline for a project tree.
//
// # Basic Usage
//
//	idx := indexer.New(embedGateway, vectorGateway, graphGateway, stateDB, logger)
//
//	stats, err := idx.IndexProject(ctx, "/path/to/project", "proj", &indexer.Options{
//	    Force:   false,
//	    Workers: 4,
//	})
//
//	fmt.Printf("Indexed %d of %d files in %v\n", stats.IndexedFiles, stats.TotalFiles, stats.Duration)
//
// # Pipeline
//
// For every supported file found by a lexical walk:
//
//  1. Hash the content and skip the file if it matches the last durable state
//  2. Extract the whole-file entity and its declarations
//  3. Embed every entity (content, or name when the content is blank)
//  4. Upsert the vector, then the graph node
//  5. Link each declaration to its file with a defined_in edge
//  6. Record the file state and drop entities that no longer exist
//
// Files are processed by a bounded worker pool. Workers: 1 processes them
// strictly in walk order.
//
// # Failures
//
// A file that cannot be read or parsed is counted as failed and reported in
// Statistics.Errors; the run continues. A syntax error still indexes the
// whole-file entity. Writes dropped by an unavailable store leave the file
// state untouched so the next run retries the file. Only an invalid path, a
// concurrent run for the same project and context cancellation abort the run.
//
// # Directories
//
// .git, __pycache__, node_modules, .venv, venv, build and dist are never
// entered.
package indexer
