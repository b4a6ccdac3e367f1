package kb

import (
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/syllog-ai/syllog/internal/domain"
)

// cachedAnswer is one resolved query result.
type cachedAnswer struct {
	value      domain.TruthValue
	confidence float64
}

// queryCache caches query results keyed by (name, time, context). Writes
// invalidate by proposition name: every key whose name component matches is
// dropped, whatever its time or context. The LRU bound is an eviction
// backstop only; correctness comes from explicit invalidation.
type queryCache struct {
	entries *lru.Cache[string, cachedAnswer]
}

func newQueryCache(size int) *queryCache {
	c, err := lru.New[string, cachedAnswer](size)
	if err != nil {
		// lru.New only fails on a non-positive size.
		panic(err)
	}
	return &queryCache{entries: c}
}

func cacheKey(name string, at *time.Time, context string) string {
	ts := ""
	if at != nil {
		ts = at.UTC().Format(time.RFC3339Nano)
	}
	return fmt.Sprintf("%s\x00%s\x00%s", name, ts, context)
}

func (c *queryCache) get(key string) (cachedAnswer, bool) {
	return c.entries.Get(key)
}

func (c *queryCache) put(key string, ans cachedAnswer) {
	c.entries.Add(key, ans)
}

// invalidate drops every entry whose proposition name is in names.
func (c *queryCache) invalidate(names map[string]struct{}) {
	for _, key := range c.entries.Keys() {
		name, _, _ := strings.Cut(key, "\x00")
		if _, hit := names[name]; hit {
			c.entries.Remove(key)
		}
	}
}

func (c *queryCache) purge() {
	c.entries.Purge()
}
