package analytics

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/dvloznov/receipt-ledger/internal/logger"
)

// DefaultCacheTTL is how long a worksheet read is served from memory.
const DefaultCacheTTL = 10 * time.Minute

const datasetKey = "dataset"

// TableReader reads the full worksheet, header row first.
type TableReader interface {
	ReadAll(ctx context.Context) ([][]any, error)
}

// Loader serves the typed dataset from a TTL cache. Concurrent misses share a
// single worksheet read.
type Loader struct {
	reader TableReader
	cache  *cache.Cache
	group  singleflight.Group
	// gen counts invalidations; a read only caches if gen is unchanged.
	gen atomic.Uint64
}

// NewLoader creates a Loader. A non-positive ttl uses DefaultCacheTTL.
func NewLoader(reader TableReader, ttl time.Duration) *Loader {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Loader{
		reader: reader,
		cache:  cache.New(ttl, 2*ttl),
	}
}

// Dataset returns the cached dataset, reading the worksheet on a miss.
func (l *Loader) Dataset(ctx context.Context) (Dataset, error) {
	if v, ok := l.cache.Get(datasetKey); ok {
		return v.(Dataset), nil
	}

	v, err, _ := l.group.Do(datasetKey, func() (any, error) {
		gen := l.gen.Load()
		values, err := l.reader.ReadAll(ctx)
		if err != nil {
			return nil, err
		}
		ds := Load(values)
		if ds.Dropped > 0 {
			log := logger.FromContext(ctx)
			log.Warn().
				Int("dropped_rows", ds.Dropped).
				Msg("Rows without a valid receipt date were skipped")
		}
		if l.gen.Load() == gen {
			l.cache.Set(datasetKey, ds, cache.DefaultExpiration)
		}
		return ds, nil
	})
	if err != nil {
		return Dataset{}, fmt.Errorf("Dataset: reading worksheet: %w", err)
	}
	return v.(Dataset), nil
}

// Invalidate drops the cached dataset so the next read hits the worksheet.
// A read already in flight still returns to its callers but is not cached.
func (l *Loader) Invalidate() {
	l.gen.Add(1)
	l.group.Forget(datasetKey)
	l.cache.Delete(datasetKey)
}
