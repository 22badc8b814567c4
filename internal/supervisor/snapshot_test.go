package supervisor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// TestTaskSnapshotServiceRefreshesAfterTTLExpires drives the TTL cache
// with an injected clock instead of a real sleep, so expiry is exercised
// deterministically (§4.H / SPEC_FULL.md §8).
func TestTaskSnapshotServiceRefreshesAfterTTLExpires(t *testing.T) {
	sup := New(zap.NewNop())
	sup.tasks = append(sup.tasks, newTask(0, []string{"/bin/true"}))

	svc := NewTaskSnapshotService(sup, SnapshotOptions{TTL: 10 * time.Millisecond})

	var mu sync.Mutex
	clock := time.Unix(0, 0)
	svc.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return clock
	}
	advance := func(d time.Duration) {
		mu.Lock()
		clock = clock.Add(d)
		mu.Unlock()
	}

	first, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, first.CacheHit, "the very first read can't be a cache hit")
	require.Len(t, first.Tasks, 1)

	second, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, second.CacheHit, "a read within the TTL window should be served from cache")
	assert.Equal(t, first.GeneratedAt, second.GeneratedAt)

	advance(20 * time.Millisecond)

	third, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, third.CacheHit, "a read after the TTL has elapsed must trigger a fresh walk")
	assert.True(t, third.GeneratedAt.After(first.GeneratedAt))
}

// TestTaskSnapshotServiceCoalescesConcurrentRefreshes fires many
// concurrent Get calls against a stale cache and checks they all observe
// the same generation: singleflight.Group must collapse them onto one
// underlying walk rather than each paying the full cost (and each racing
// to populate the cache) independently.
func TestTaskSnapshotServiceCoalescesConcurrentRefreshes(t *testing.T) {
	sup := New(zap.NewNop())
	sup.tasksMu.Lock()
	for i := 0; i < 20000; i++ {
		sup.tasks = append(sup.tasks, newTask(i, []string{"/bin/true"}))
	}
	sup.tasksMu.Unlock()

	svc := NewTaskSnapshotService(sup, SnapshotOptions{TTL: time.Hour})

	const n = 64
	var wg sync.WaitGroup
	results := make([]SnapshotResult, n)
	errs := make([]error, n)

	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			results[i], errs[i] = svc.Get(context.Background())
		}()
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
	}
	generation := results[0].GeneratedAt
	for i := 1; i < n; i++ {
		assert.Equal(t, generation, results[i].GeneratedAt, "concurrent callers racing a stale cache must share one refresh")
	}
}
