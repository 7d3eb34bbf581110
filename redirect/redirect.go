// Package redirect flattens a language's redirect chains into a
// source → final target mapping.
package redirect

import (
	"context"
	"fmt"
	"slices"

	log "github.com/sirupsen/logrus"

	"jaytaylor.com/wikigraph/db"
	"jaytaylor.com/wikigraph/domain"
)

var (
	DefaultMaxHops       = 4
	DefaultSaveBatchSize = 25000
)

// Map holds source → target page ids.  Absent keys read as Unresolved.
type Map map[int]int

// Get returns the target of src, or domain.Unresolved.
func (m Map) Get(src int) int {
	if dst, ok := m[src]; ok {
		return dst
	}
	return domain.Unresolved
}

type Pages interface {
	Each(filter db.RawPageFilter, fn func(page *domain.RawPage) bool) error
}

type Titles interface {
	IDByTitle(title string, lang domain.Language, ns domain.Namespace) (int, error)
	SetFollowRedirects(follow bool) bool
}

type Store interface {
	Save(lang domain.Language, src int, dst int) error
	SaveAll(lang domain.Language, pairs []db.Redirect) error
}

type Counters interface {
	IncrementRecords(entity domain.EntityType, lang domain.Language, n int)
	IncrementErrorsQuietly(entity domain.EntityType, lang domain.Language)
}

// Stats summarizes a resolver run.
type Stats struct {
	Loaded     int
	Unresolved int
	Unstable   int
	Saved      int
	Failed     int
}

// ResolveStats reports on the resolve phase.
type ResolveStats struct {
	Chains   int // Sources whose target was itself a redirect.
	Unstable int // Chains still pointing at a redirect when the hop budget ran out.
}

type Resolver struct {
	Pages     Pages
	Titles    Titles
	Redirects Store
	Counters  Counters

	MaxHops       int
	SaveBatchSize int
}

func (r *Resolver) maxHops() int {
	if r.MaxHops > 0 {
		return r.MaxHops
	}
	return DefaultMaxHops
}

// Load reads every redirect page of the language and looks up the literal
// target of each.  Redirect following is disabled for the duration.
// Targets which cannot be found are recorded as domain.Unresolved.
func (r *Resolver) Load(lang domain.Language) (Map, int, error) {
	prev := r.Titles.SetFollowRedirects(false)
	defer r.Titles.SetFollowRedirects(prev)

	var (
		m          = Map{}
		unresolved = 0
		logger     = log.WithField("lang", lang)
	)
	err := r.Pages.Each(db.RawPageFilter{Language: lang, RedirectsOnly: true}, func(page *domain.RawPage) bool {
		ns, title := domain.SplitTitle(page.RedirectTarget)
		id, err := r.Titles.IDByTitle(title, lang, ns)
		if err != nil {
			logger.WithField("title", page.Title).WithField("target", page.RedirectTarget).Warnf("Looking up redirect target: %s", err)
			id = domain.Unresolved
		}
		if id == domain.Unresolved {
			unresolved++
		}
		m[page.PageID] = id
		return true
	})
	if err != nil {
		return nil, 0, fmt.Errorf("scanning %v redirect pages: %w", lang, err)
	}
	logger.WithField("redirects", len(m)).WithField("unresolved", unresolved).Info("Loaded redirects")
	return m, unresolved, nil
}

// Resolve rewrites each entry of m to the end of its chain, following at most
// MaxHops further redirects.  Cycles are not detected; an entry which has not
// settled when the budget runs out keeps the id it reached.
func (r *Resolver) Resolve(m Map) ResolveStats {
	var (
		stats   ResolveStats
		maxHops = r.maxHops()
		srcs    = make([]int, 0, len(m))
	)
	for src := range m {
		srcs = append(srcs, src)
	}
	slices.Sort(srcs)

	for _, src := range srcs {
		var (
			dst     = m[src]
			settled = false
		)
		for hop := 0; hop < maxHops; hop++ {
			next := m.Get(dst)
			if next == domain.Unresolved {
				settled = true
				break
			}
			if hop == 0 {
				stats.Chains++
			}
			dst = next
		}
		if !settled && m.Get(dst) != domain.Unresolved {
			stats.Unstable++
			log.WithField("src", src).WithField("dst", dst).Debug("Redirect chain did not settle within hop budget")
		}
		m[src] = dst
	}
	return stats
}

// Persist writes every pair, including unresolved ones, in batches.  When a
// batch fails its pairs are retried one at a time so that only the pairs
// which genuinely fail are counted as errors.
func (r *Resolver) Persist(lang domain.Language, m Map) (saved int, failed int) {
	size := r.SaveBatchSize
	if size <= 0 {
		size = DefaultSaveBatchSize
	}

	srcs := make([]int, 0, len(m))
	for src := range m {
		srcs = append(srcs, src)
	}
	slices.Sort(srcs)

	logger := log.WithField("lang", lang)
	for start := 0; start < len(srcs); start += size {
		end := min(start+size, len(srcs))
		batch := make([]db.Redirect, 0, end-start)
		for _, src := range srcs[start:end] {
			batch = append(batch, db.Redirect{Src: src, Dst: m[src]})
		}

		err := r.Redirects.SaveAll(lang, batch)
		if err == nil {
			saved += len(batch)
			r.Counters.IncrementRecords(domain.EntityRedirect, lang, len(batch))
			logger.WithField("saved", saved).Debug("Persisted redirect batch")
			continue
		}
		logger.Warnf("Redirect batch of %v failed, retrying individually: %s", len(batch), err)

		for _, pair := range batch {
			if err := r.Redirects.Save(lang, pair.Src, pair.Dst); err != nil {
				failed++
				r.Counters.IncrementErrorsQuietly(domain.EntityRedirect, lang)
				logger.WithField("src", pair.Src).Errorf("Saving redirect: %s", err)
				continue
			}
			saved++
			r.Counters.IncrementRecords(domain.EntityRedirect, lang, 1)
		}
	}
	return
}

// Run loads, resolves and persists the redirects of one language.
func (r *Resolver) Run(ctx context.Context, lang domain.Language) (*Stats, error) {
	m, unresolved, err := r.Load(lang)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rs := r.Resolve(m)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	saved, failed := r.Persist(lang, m)
	stats := &Stats{
		Loaded:     len(m),
		Unresolved: unresolved,
		Unstable:   rs.Unstable,
		Saved:      saved,
		Failed:     failed,
	}
	log.WithField("lang", lang).
		WithField("loaded", stats.Loaded).
		WithField("unresolved", stats.Unresolved).
		WithField("unstable", stats.Unstable).
		WithField("saved", stats.Saved).
		WithField("failed", stats.Failed).
		Info("Resolved redirects")
	return stats, nil
}
