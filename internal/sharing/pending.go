package sharing

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"sharesync/internal/metrics"
)

// DefaultPendingCapacity bounds the number of deletions awaiting their
// post-delete event.
const DefaultPendingCapacity = 1024

// PendingDeletions correlates pre-delete and post-delete events by path.
// Entries are held in an LRU of fixed capacity so a post-delete event that
// never arrives cannot grow the set without bound.
type PendingDeletions struct {
	mu       sync.Mutex
	cache    *lru.Cache
	capacity int
	logger   Logger
	clock    Clock
	idgen    IDGenerator
}

// NewPendingDeletions returns an empty set holding at most capacity entries.
// A capacity <= 0 selects DefaultPendingCapacity.
func NewPendingDeletions(capacity int, logger Logger, clock Clock, idgen IDGenerator) *PendingDeletions {
	if capacity <= 0 {
		capacity = DefaultPendingCapacity
	}
	if logger == nil {
		logger = NewNopLogger()
	}
	if clock == nil {
		clock = RealClock{}
	}
	if idgen == nil {
		idgen = UUIDGenerator{}
	}
	cache, err := lru.New(capacity)
	if err != nil {
		panic(err) // Only returns an error for non-positive sizes.
	}
	return &PendingDeletions{
		cache:    cache,
		capacity: capacity,
		logger:   logger,
		clock:    clock,
		idgen:    idgen,
	}
}

// Record marks path as about to be deleted, remembering fileID. An existing
// entry for path is overwritten.
func (p *PendingDeletions) Record(path string, fileID int64) PendingDeletion {
	entry := PendingDeletion{
		Token:     p.idgen.New(),
		Path:      path,
		FileID:    fileID,
		CreatedAt: p.clock.Now(),
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if prev, ok := p.cache.Peek(path); ok {
		p.logger.Warn("overwriting pending deletion",
			"path", path,
			"previous_fileid", prev.(PendingDeletion).FileID,
			"fileid", fileID)
	} else if p.cache.Len() >= p.capacity {
		if _, oldest, ok := p.cache.GetOldest(); ok {
			dropped := oldest.(PendingDeletion)
			p.logger.Warn("dropping pending deletion without post-delete event",
				"path", dropped.Path,
				"fileid", dropped.FileID,
				"age", p.clock.Now().Sub(dropped.CreatedAt).String())
		}
	}

	if evicted := p.cache.Add(path, entry); evicted {
		metrics.PendingDeletionsDroppedTotal.Inc()
	}
	return entry
}

// Take returns the entry recorded for path without removing it. It returns
// an error wrapping ErrNotFound when path has no entry.
func (p *PendingDeletions) Take(path string) (PendingDeletion, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	v, ok := p.cache.Peek(path)
	if !ok {
		return PendingDeletion{}, fmt.Errorf("pending deletion for %q: %w", path, ErrNotFound)
	}
	return v.(PendingDeletion), nil
}

// Evict removes the entry for path, if any.
func (p *PendingDeletions) Evict(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache.Remove(path)
}

// Len returns the number of entries awaiting a post-delete event.
func (p *PendingDeletions) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cache.Len()
}
