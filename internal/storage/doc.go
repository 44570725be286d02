// Package storage provides the embedded SQLite state database.
//
// The database holds:
//   - file_states: the last durable indexing state of every file (hash and entity ids)
//   - vector_points: the embedded vector backend (little-endian float32 blobs, JSON payload)
//   - graph_nodes / graph_edges: the embedded graph backend
//   - search_history: executed searches, most recent first
//
// # Build Modes
//
// The default build uses modernc.org/sqlite and needs no C compiler. Building
// with the sqlite_cgo tag switches to github.com/mattn/go-sqlite3:
//
//	CGO_ENABLED=1 go build -tags sqlite_cgo ./...
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage(ctx, "~/.aethernexus/state.db")
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	state, err := db.GetFileState(ctx, projectID, "pkg/a.py")
//	if errors.Is(err, storage.ErrNotFound) {
//	    // first time this file is indexed
//	}
//
// Schema changes are applied as ordered semver migrations on open.
package storage
