package tablebase

import (
	"context"
	"sync"

	"github.com/hailam/blackbit/internal/board"
)

// CachedProber wraps another prober with a bounded cache of Probe results.
// Failed probes are not cached.
type CachedProber struct {
	inner   Prober
	cache   map[uint64]ProbeResult
	mu      sync.RWMutex
	maxSize int
	hits    uint64
	misses  uint64
}

// NewCachedProber creates a cached prober wrapping the given prober.
func NewCachedProber(inner Prober, cacheSize int) *CachedProber {
	return &CachedProber{
		inner:   inner,
		cache:   make(map[uint64]ProbeResult, cacheSize),
		maxSize: cacheSize,
	}
}

func (cp *CachedProber) Probe(ctx context.Context, pos *board.Position) (ProbeResult, error) {
	cp.mu.RLock()
	result, ok := cp.cache[pos.Hash]
	cp.mu.RUnlock()
	if ok {
		cp.mu.Lock()
		cp.hits++
		cp.mu.Unlock()
		return result, nil
	}

	result, err := cp.inner.Probe(ctx, pos)

	cp.mu.Lock()
	defer cp.mu.Unlock()
	cp.misses++
	if err != nil {
		return result, err
	}

	if len(cp.cache) >= cp.maxSize {
		// Simple eviction: drop half the cache
		i := 0
		for k := range cp.cache {
			if i >= cp.maxSize/2 {
				break
			}
			delete(cp.cache, k)
			i++
		}
	}
	cp.cache[pos.Hash] = result
	return result, nil
}

// ProbeRoot is not cached since callers need a move for the exact position.
func (cp *CachedProber) ProbeRoot(ctx context.Context, pos *board.Position) (RootResult, error) {
	return cp.inner.ProbeRoot(ctx, pos)
}

func (cp *CachedProber) MaxPieces() int {
	return cp.inner.MaxPieces()
}

func (cp *CachedProber) Available() bool {
	return cp.inner.Available()
}

// HitRate returns the cache hit rate as a percentage.
func (cp *CachedProber) HitRate() float64 {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	total := cp.hits + cp.misses
	if total == 0 {
		return 0
	}
	return float64(cp.hits) / float64(total) * 100
}

// CacheSize returns the current number of cached entries.
func (cp *CachedProber) CacheSize() int {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	return len(cp.cache)
}

// Clear clears the cache.
func (cp *CachedProber) Clear() {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	cp.cache = make(map[uint64]ProbeResult, cp.maxSize)
	cp.hits = 0
	cp.misses = 0
}
