package links

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"jaytaylor.com/wikigraph/domain"
	"jaytaylor.com/wikigraph/parallel"
	"jaytaylor.com/wikigraph/spillset"
)

// ReconcileStats reports both passes of a reconciliation.
type ReconcileStats struct {
	Wikitext  *Stats
	Secondary *Stats
	Distinct  int // Distinct links seen in the wikitext pass.
}

// Reconciler merges a secondary link source into the links parsed from
// wikitext.  The wikitext edges are collected into a spill set so that the
// secondary pass can skip edges already present without holding them in
// memory.
type Reconciler struct {
	Wikitext *WikitextLoader
	Spill    spillset.Config

	Workers     int
	MaxInFlight int
}

// Run loads the wikitext links of lang, then inserts each secondary row
// whose link was not already seen.  Red links are matched by source and
// destination title.
func (r *Reconciler) Run(ctx context.Context, lang domain.Language, secondary RowSource) (*ReconcileStats, error) {
	set, err := spillset.New(r.Spill)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := set.Close(); closeErr != nil {
			log.WithField("lang", lang).Warnf("Closing spill set: %s", closeErr)
		}
	}()

	wl := *r.Wikitext
	wl.Sink = set
	wikitextStats, err := wl.Load(ctx, lang)
	if err != nil {
		return &ReconcileStats{Wikitext: wikitextStats}, err
	}
	if err := set.Finish(); err != nil {
		return &ReconcileStats{Wikitext: wikitextStats}, fmt.Errorf("finishing spill set: %w", err)
	}

	var (
		st     = &stats{}
		logger = log.WithField("lang", lang)
		opts   = parallel.Options{
			Name:        fmt.Sprintf("secondary links %v", lang),
			Workers:     r.Workers,
			MaxInFlight: r.MaxInFlight,
			Logger:      logger,
		}
	)
	_, err = parallel.ForEach(ctx, secondary.Rows(), opts, func(_ context.Context, row Row) error {
		dst, err := wl.Titles.IDByTitle(row.Title, lang, row.Namespace)
		if err != nil {
			st.failed.Add(1)
			wl.Counters.IncrementErrorsQuietly(domain.EntityLocalLink, lang)
			return fmt.Errorf("resolving %v: %w", row.Title, err)
		}
		link := &domain.LocalLink{
			Language:  lang,
			SourceID:  row.SourceID,
			DestID:    dst,
			DestTitle: Link{Namespace: row.Namespace, Title: row.Title}.FullTitle(),
			Type:      domain.LinkInternal,
			Location:  -1,
		}
		present, err := set.Contains(link.DedupKey())
		if err != nil {
			st.failed.Add(1)
			return fmt.Errorf("membership test: %w", err)
		}
		if present {
			st.duplicate.Add(1)
			return nil
		}
		return save(wl.Links, wl.Counters, st, link)
	})

	result := &ReconcileStats{
		Wikitext:  wikitextStats,
		Secondary: st.snapshot(),
		Distinct:  set.Len(),
	}
	logger.
		WithField("distinct", result.Distinct).
		WithField("inserted", result.Secondary.Saved).
		WithField("duplicate", result.Secondary.Duplicate).
		WithField("red-links", result.Secondary.RedLinks).
		WithField("failed", result.Secondary.Failed).
		Info("Reconciled secondary links")

	if err != nil {
		return result, err
	}
	if err := secondary.Err(); err != nil {
		return result, fmt.Errorf("reading secondary links: %w", err)
	}
	return result, nil
}
