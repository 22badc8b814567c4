package supervisor

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// SnapshotOptions configures the TaskSnapshotService's refresh policy.
type SnapshotOptions struct {
	// TTL is how long a cached snapshot is served before a refresh is
	// triggered. Zero or negative selects the default of 250ms.
	TTL time.Duration
}

func (o *SnapshotOptions) setDefaults() {
	if o.TTL <= 0 {
		o.TTL = 250 * time.Millisecond
	}
}

// SnapshotResult is one read of the task table, annotated with whether it
// came from cache and when it was generated.
type SnapshotResult struct {
	Tasks       []snapshot
	CacheHit    bool
	GeneratedAt time.Time
}

// TaskSnapshotService is a TTL-cached, singleflight-coalesced read-through
// view over a Supervisor's task table. The supervisor's own task table is
// cheap to copy (a slice of small structs), but under a bursty HTTP
// introspection load (§4.I) many concurrent GETs would otherwise each pay
// the full RLock-and-copy cost and race to do so the instant the cache
// goes stale; this collapses them into one.
type TaskSnapshotService struct {
	sup  *Supervisor
	opts SnapshotOptions

	mu     sync.RWMutex
	cache  []snapshot
	genAt  time.Time
	expiry time.Time

	now func() time.Time
	sg  singleflight.Group
}

// NewTaskSnapshotService builds a service over sup.
func NewTaskSnapshotService(sup *Supervisor, opts SnapshotOptions) *TaskSnapshotService {
	opts.setDefaults()
	return &TaskSnapshotService{
		sup:  sup,
		opts: opts,
		now:  time.Now,
	}
}

// Get returns the current task table, refreshing it at most once per TTL
// regardless of how many callers ask concurrently.
func (s *TaskSnapshotService) Get(ctx context.Context) (SnapshotResult, error) {
	now := s.now()

	s.mu.RLock()
	if now.Before(s.expiry) {
		cached := s.cache
		genAt := s.genAt
		s.mu.RUnlock()
		return SnapshotResult{Tasks: cached, CacheHit: true, GeneratedAt: genAt}, nil
	}
	s.mu.RUnlock()

	v, err, _ := s.sg.Do("snapshot-refresh", func() (interface{}, error) {
		s.mu.RLock()
		stillStale := !s.now().Before(s.expiry)
		s.mu.RUnlock()
		if !stillStale {
			s.mu.RLock()
			defer s.mu.RUnlock()
			return s.cache, nil
		}

		fresh := s.sup.Snapshot()
		genAt := s.now()

		s.mu.Lock()
		s.cache = fresh
		s.genAt = genAt
		s.expiry = genAt.Add(s.opts.TTL)
		s.mu.Unlock()

		return fresh, nil
	})
	if err != nil {
		return SnapshotResult{}, err
	}

	s.mu.RLock()
	genAt := s.genAt
	s.mu.RUnlock()

	return SnapshotResult{Tasks: v.([]snapshot), CacheHit: false, GeneratedAt: genAt}, nil
}
