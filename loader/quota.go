package loader

import (
	"sync"
	"sync/atomic"

	"jaytaylor.com/wikigraph/domain"
)

// LanguageQuotaTracker caps the number of records accepted per language.
// Acquisition is an exact compare-and-swap, so the count never exceeds the
// limit regardless of how many workers race on it.
type LanguageQuotaTracker struct {
	limit  int64
	counts sync.Map // domain.Language -> *atomic.Int64
}

// NewLanguageQuotaTracker returns a tracker allowing limit records per
// language.  A limit <= 0 means unlimited.
func NewLanguageQuotaTracker(limit int64) *LanguageQuotaTracker {
	return &LanguageQuotaTracker{limit: limit}
}

func (q *LanguageQuotaTracker) counter(lang domain.Language) *atomic.Int64 {
	if c, ok := q.counts.Load(lang); ok {
		return c.(*atomic.Int64)
	}
	c, _ := q.counts.LoadOrStore(lang, &atomic.Int64{})
	return c.(*atomic.Int64)
}

// Limit returns the configured per-language cap.
func (q *LanguageQuotaTracker) Limit() int64 {
	return q.limit
}

// TryAcquire claims one slot for lang, reporting false when the quota is
// already met.
func (q *LanguageQuotaTracker) TryAcquire(lang domain.Language) bool {
	c := q.counter(lang)
	if q.limit <= 0 {
		c.Add(1)
		return true
	}
	for {
		n := c.Load()
		if n >= q.limit {
			return false
		}
		if c.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Count returns the number of slots claimed for lang.
func (q *LanguageQuotaTracker) Count(lang domain.Language) int64 {
	return q.counter(lang).Load()
}

// Exhausted reports whether lang has no slots left.
func (q *LanguageQuotaTracker) Exhausted(lang domain.Language) bool {
	return q.limit > 0 && q.Count(lang) >= q.limit
}
