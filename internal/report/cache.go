package report

import (
	"container/list"
	"sync"
	"time"

	"guadagni/internal/core"
)

// LRU cache with TTL and size-based eviction for computed day reports.
// Reports are pure functions of the snapshot, so the cache is purged
// whenever the snapshot is replaced.
type lruCache[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*list.Element
	lru     *list.List
}

type cacheItem[T any] struct {
	key       string
	data      T
	expiresAt time.Time
}

func newLRUCache[T any](maxSize int, ttl time.Duration) *lruCache[T] {
	return &lruCache[T]{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
	}
}

func (c *lruCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	elem, exists := c.items[key]
	if !exists {
		return zero, false
	}

	item := elem.Value.(*cacheItem[T])
	if time.Now().After(item.expiresAt) {
		c.removeElement(elem)
		return zero, false
	}

	c.lru.MoveToFront(elem)
	return item.data, true
}

func (c *lruCache[T]) Set(key string, data T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item := &cacheItem[T]{
		key:       key,
		data:      data,
		expiresAt: time.Now().Add(c.ttl),
	}

	if elem, exists := c.items[key]; exists {
		elem.Value = item
		c.lru.MoveToFront(elem)
		return
	}

	elem := c.lru.PushFront(item)
	c.items[key] = elem

	if c.lru.Len() > c.maxSize {
		if oldest := c.lru.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}
}

func (c *lruCache[T]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.lru = list.New()
}

func (c *lruCache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func (c *lruCache[T]) removeElement(elem *list.Element) {
	item := elem.Value.(*cacheItem[T])
	delete(c.items, item.key)
	c.lru.Remove(elem)
}

// Service computes day reports against the current snapshot with a small
// cache in front. The owner must call Invalidate on every snapshot
// replacement.
type Service struct {
	cache *lruCache[DayReport]
}

func NewService() *Service {
	return &Service{cache: newLRUCache[DayReport](64, 5*time.Minute)}
}

// DayReport returns the report for the record on the given date, if one
// exists in the snapshot.
func (s *Service) DayReport(state core.AppState, date core.Date) (DayReport, bool) {
	key := date.String()
	if cached, ok := s.cache.Get(key); ok {
		return cached, true
	}

	record, ok := state.RecordFor(date)
	if !ok {
		return DayReport{}, false
	}
	rep := BuildDayReport(record, state.FixedCosts)
	s.cache.Set(key, rep)
	return rep, true
}

// Summary returns the aggregate over the whole snapshot history.
func (s *Service) Summary(state core.AppState) PeriodSummary {
	return BuildPeriodSummary(state.DailyRecords, state.FixedCosts)
}

// Invalidate drops all cached reports.
func (s *Service) Invalidate() {
	s.cache.Purge()
}
