package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryOptions configures a MemoryStore.
type MemoryOptions struct {
	// TTL bounds the age of a cached report. Zero keeps reports until evicted.
	TTL time.Duration

	// MaxEntries caps the number of cached reports. When full, the report
	// closest to expiry is evicted. Zero means no cap.
	MaxEntries int

	// CleanupInterval is how often expired reports are swept (default 1m).
	// Ignored without a TTL.
	CleanupInterval time.Duration
}

type memoryEntry struct {
	snapshot  Snapshot
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryStore keeps reports in process. It is safe for concurrent use; use
// RedisStore to share the cache between analyst replicas.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	opts    MemoryOptions
	now     func() time.Time

	cancel   context.CancelFunc
	sweeper  sync.WaitGroup
	stopOnce sync.Once
}

// NewMemoryStore creates a store. With a TTL it starts a sweeper goroutine;
// call Stop when done.
func NewMemoryStore(opts MemoryOptions) *MemoryStore {
	if opts.TTL < 0 {
		opts.TTL = 0
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = time.Minute
	}

	s := &MemoryStore{
		entries: make(map[string]memoryEntry),
		opts:    opts,
		now:     time.Now,
	}

	if opts.TTL > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		s.sweeper.Add(1)
		go s.sweep(ctx)
	}
	return s
}

// Stop ends the sweeper. It is safe to call more than once.
func (s *MemoryStore) Stop() {
	s.stopOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		s.sweeper.Wait()
	})
}

func (s *MemoryStore) sweep(ctx context.Context) {
	defer s.sweeper.Done()

	ticker := time.NewTicker(s.opts.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.removeExpired()
		}
	}
}

func (s *MemoryStore) removeExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Put caches snapshot under snapshot.Key, replacing any earlier report.
func (s *MemoryStore) Put(ctx context.Context, snapshot Snapshot) error {
	if err := checkKey(snapshot.Key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e := memoryEntry{snapshot: snapshot}
	if s.opts.TTL > 0 {
		e.expiresAt = s.now().Add(s.opts.TTL)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[snapshot.Key]; !exists && s.opts.MaxEntries > 0 && len(s.entries) >= s.opts.MaxEntries {
		s.evictLocked()
	}
	s.entries[snapshot.Key] = e
	return nil
}

// evictLocked drops expired reports, or the one expiring soonest when none
// has expired yet.
func (s *MemoryStore) evictLocked() {
	now := s.now()
	victim := ""
	var oldest time.Time
	for key, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, key)
			continue
		}
		stamp := e.expiresAt
		if stamp.IsZero() {
			stamp = e.snapshot.GeneratedAt
		}
		if victim == "" || stamp.Before(oldest) {
			victim, oldest = key, stamp
		}
	}
	if len(s.entries) >= s.opts.MaxEntries && victim != "" {
		delete(s.entries, victim)
	}
}

func (s *MemoryStore) GetLatest(ctx context.Context, key string) (Snapshot, bool, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, false, err
	}

	s.mu.RLock()
	e, found := s.entries[key]
	s.mu.RUnlock()

	if !found || e.expired(s.now()) {
		return Snapshot{}, false, nil
	}
	return e.snapshot, true, nil
}

func (s *MemoryStore) Invalidate(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Len returns the number of cached reports, including expired ones not yet swept.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }
