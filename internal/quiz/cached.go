package quiz

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mind-engage/mindengage-quiz/internal/cache"
	"github.com/mind-engage/mindengage-quiz/internal/logger"
)

// RawSource is a store that can hand out undecoded definitions.
type RawSource interface {
	Repository
	GetRaw(ctx context.Context, id string) ([]byte, error)
}

// CachedRepository is a read-through cache of quiz definitions. Cache errors
// degrade to reading the underlying store.
//
// Each Put bumps a per-quiz generation. A fill only writes the cache if the
// generation it started under is still current, so a read that raced an
// update never re-caches the old definition. This holds within one process;
// across processes the TTL bounds staleness.
type CachedRepository struct {
	inner RawSource
	cache cache.Cache
	ttl   time.Duration
	log   *logger.Logger
	group singleflight.Group

	mu  sync.Mutex
	gen map[string]uint64
}

func NewCachedRepository(inner RawSource, c cache.Cache, ttl time.Duration, log *logger.Logger) *CachedRepository {
	return &CachedRepository{
		inner: inner,
		cache: c,
		ttl:   ttl,
		log:   log.With("repo", "CachedQuizRepository"),
		gen:   map[string]uint64{},
	}
}

func (r *CachedRepository) generation(id string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gen[id]
}

func cacheKey(id string) string { return "quiz:def:" + id }

func (r *CachedRepository) Get(ctx context.Context, id string) (Quiz, error) {
	raw, hit, err := r.cache.Get(ctx, cacheKey(id))
	if err != nil {
		r.log.Warn("quiz cache read failed", "quiz_id", id, "error", err)
	}
	if !hit {
		gen := r.generation(id)
		// Readers arriving after a Put must not join a fill started before it.
		v, err, _ := r.group.Do(id+"@"+strconv.FormatUint(gen, 10), func() (interface{}, error) {
			b, err := r.inner.GetRaw(ctx, id)
			if err != nil {
				return nil, err
			}
			r.mu.Lock()
			defer r.mu.Unlock()
			if r.gen[id] != gen {
				return b, nil
			}
			if err := r.cache.Set(ctx, cacheKey(id), b, r.ttl); err != nil {
				r.log.Warn("quiz cache write failed", "quiz_id", id, "error", err)
			}
			return b, nil
		})
		if err != nil {
			return Quiz{}, err
		}
		raw = v.([]byte)
	}
	return Decode(raw, r.log)
}

func (r *CachedRepository) Put(ctx context.Context, q Quiz) error {
	if err := r.inner.Put(ctx, q); err != nil {
		return err
	}
	r.mu.Lock()
	r.gen[q.ID]++
	r.mu.Unlock()
	if err := r.cache.Delete(ctx, cacheKey(q.ID)); err != nil {
		r.log.Warn("quiz cache invalidation failed", "quiz_id", q.ID, "error", err)
	}
	return nil
}
