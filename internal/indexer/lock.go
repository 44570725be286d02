package indexer

import "sync"

// IndexLock provides non-blocking per-project lock semantics.
// Different projects never contend.
type IndexLock struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// TryAcquire attempts to acquire the lock for projectID without blocking.
// Returns true if the lock was successfully acquired, false otherwise.
func (l *IndexLock) TryAcquire(projectID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = make(map[string]struct{})
	}
	if _, ok := l.held[projectID]; ok {
		return false
	}
	l.held[projectID] = struct{}{}
	return true
}

// Release releases the lock for projectID.
// Must only be called by the goroutine that successfully acquired it.
func (l *IndexLock) Release(projectID string) {
	l.mu.Lock()
	delete(l.held, projectID)
	l.mu.Unlock()
}

// Held reports whether projectID is currently locked
func (l *IndexLock) Held(projectID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.held[projectID]
	return ok
}
