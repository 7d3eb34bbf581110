package links

import (
	"context"
	"fmt"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"jaytaylor.com/wikigraph/db"
	"jaytaylor.com/wikigraph/domain"
	"jaytaylor.com/wikigraph/parallel"
)

type Pages interface {
	Scan(filter db.RawPageFilter) *db.Scan[*domain.RawPage]
}

type Titles interface {
	IDByTitle(title string, lang domain.Language, ns domain.Namespace) (int, error)
}

type LinkSaver interface {
	Save(link *domain.LocalLink) error
}

type Counters interface {
	IncrementRecords(entity domain.EntityType, lang domain.Language, n int)
	IncrementErrorsQuietly(entity domain.EntityType, lang domain.Language)
}

// FingerprintSink receives the DedupKey of every link saved.
type FingerprintSink interface {
	Add(fp uint64) error
}

// Stats counts link outcomes.
type Stats struct {
	Pages     int64
	Saved     int64
	RedLinks  int64
	Failed    int64
	Duplicate int64
}

type stats struct {
	pages     atomic.Int64
	saved     atomic.Int64
	redLinks  atomic.Int64
	failed    atomic.Int64
	duplicate atomic.Int64
}

func (s *stats) snapshot() *Stats {
	return &Stats{
		Pages:     s.pages.Load(),
		Saved:     s.saved.Load(),
		RedLinks:  s.redLinks.Load(),
		Failed:    s.failed.Load(),
		Duplicate: s.duplicate.Load(),
	}
}

// WikitextLoader parses the links out of every non-redirect raw page of a
// language and saves them with resolved destinations.
type WikitextLoader struct {
	Pages    Pages
	Titles   Titles
	Links    LinkSaver
	Counters Counters
	Sink     FingerprintSink // Optional.

	Workers     int
	MaxInFlight int
}

func (l *WikitextLoader) Load(ctx context.Context, lang domain.Language) (*Stats, error) {
	var (
		st     = &stats{}
		scan   = l.Pages.Scan(db.RawPageFilter{Language: lang, SkipRedirects: true})
		logger = log.WithField("lang", lang)
		opts   = parallel.Options{
			Name:        fmt.Sprintf("wikitext links %v", lang),
			Workers:     l.Workers,
			MaxInFlight: l.MaxInFlight,
			Logger:      logger,
		}
	)

	_, err := parallel.ForEach(ctx, scan.All(), opts, func(_ context.Context, page *domain.RawPage) error {
		st.pages.Add(1)
		for _, extracted := range ExtractLinks(page.Body) {
			dst, err := l.Titles.IDByTitle(extracted.Title, lang, extracted.Namespace)
			if err != nil {
				st.failed.Add(1)
				l.Counters.IncrementErrorsQuietly(domain.EntityLocalLink, lang)
				logger.WithField("title", page.Title).WithField("target", extracted.FullTitle()).Errorf("Resolving link: %s", err)
				continue
			}
			link := &domain.LocalLink{
				Language:   lang,
				SourceID:   page.PageID,
				DestID:     dst,
				DestTitle:  extracted.FullTitle(),
				Type:       extracted.Type,
				AnchorText: extracted.Anchor,
				Location:   extracted.Location,
				Parseable:  true,
			}
			if err := save(l.Links, l.Counters, st, link); err != nil {
				logger.WithField("title", page.Title).WithField("target", link.DestTitle).Errorf("Saving link: %s", err)
				continue
			}
			if l.Sink != nil {
				if err := l.Sink.Add(link.DedupKey()); err != nil {
					return fmt.Errorf("recording fingerprint: %w", err)
				}
			}
		}
		return nil
	})
	result := st.snapshot()
	logger.WithField("pages", result.Pages).WithField("saved", result.Saved).WithField("red-links", result.RedLinks).Info("Loaded wikitext links")

	if err != nil {
		return result, err
	}
	if err := scan.Err(); err != nil {
		return result, fmt.Errorf("scanning %v raw pages: %w", lang, err)
	}
	return result, nil
}

// save persists one link and tallies the outcome.
func save(links LinkSaver, counters Counters, st *stats, link *domain.LocalLink) error {
	if err := links.Save(link); err != nil {
		st.failed.Add(1)
		counters.IncrementErrorsQuietly(domain.EntityLocalLink, link.Language)
		return err
	}
	st.saved.Add(1)
	if link.IsRedLink() {
		st.redLinks.Add(1)
	}
	counters.IncrementRecords(domain.EntityLocalLink, link.Language, 1)
	return nil
}
