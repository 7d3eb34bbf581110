// Package loader ingests dump files into the raw page and page metadata
// stores.
package loader

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"jaytaylor.com/wikigraph/domain"
	"jaytaylor.com/wikigraph/dump"
	"jaytaylor.com/wikigraph/parallel"
)

// DefaultProgressEvery is the number of processed records between progress
// log lines.
var DefaultProgressEvery int64 = 10000

type RawPageSaver interface {
	Save(page *domain.RawPage) error
}

type LocalPageSaver interface {
	Save(page *domain.LocalPage) error
}

// Counters receives per entity type and language tallies.
type Counters interface {
	IncrementRecords(entity domain.EntityType, lang domain.Language, n int)
	IncrementErrorsQuietly(entity domain.EntityType, lang domain.Language)
}

// Stats summarizes one or more loads.
type Stats struct {
	Processed   int64
	Accepted    int64
	Rejected    int64
	ParseErrors int64
	RawSaved    int64
	RawFailed   int64
	LocalSaved  int64
	LocalFailed int64
}

func (s *Stats) add(other *Stats) {
	s.Processed += other.Processed
	s.Accepted += other.Accepted
	s.Rejected += other.Rejected
	s.ParseErrors += other.ParseErrors
	s.RawSaved += other.RawSaved
	s.RawFailed += other.RawFailed
	s.LocalSaved += other.LocalSaved
	s.LocalFailed += other.LocalFailed
}

type stats struct {
	processed   atomic.Int64
	accepted    atomic.Int64
	rejected    atomic.Int64
	parseErrors atomic.Int64
	rawSaved    atomic.Int64
	rawFailed   atomic.Int64
	localSaved  atomic.Int64
	localFailed atomic.Int64
}

func (s *stats) snapshot() *Stats {
	return &Stats{
		Processed:   s.processed.Load(),
		Accepted:    s.accepted.Load(),
		Rejected:    s.rejected.Load(),
		ParseErrors: s.parseErrors.Load(),
		RawSaved:    s.rawSaved.Load(),
		RawFailed:   s.rawFailed.Load(),
		LocalSaved:  s.localSaved.Load(),
		LocalFailed: s.localFailed.Load(),
	}
}

// DumpLoader writes every accepted page of a dump in both raw and metadata
// form.  The two writes are independent of one another.
type DumpLoader struct {
	Raw      RawPageSaver
	Local    LocalPageSaver
	Counters Counters
	Filter   *Filter

	Workers       int
	MaxInFlight   int
	ProgressEvery int64

	// DisambiguationTemplates overrides dump.DefaultDisambiguationTemplates.
	DisambiguationTemplates []string
}

// Load drives the dispatcher over every record in src.  Individual record
// failures are logged and counted; the returned error reports only
// cancellation or a failure reading src.
func (l *DumpLoader) Load(ctx context.Context, src dump.Source, lang domain.Language, file string) (*Stats, error) {
	var (
		parser = dump.NewParser(lang)
		every  = l.ProgressEvery
		st     = &stats{}
		filter = l.Filter
	)
	if len(l.DisambiguationTemplates) > 0 {
		parser.DisambiguationTemplates = l.DisambiguationTemplates
	}
	if every <= 0 {
		every = DefaultProgressEvery
	}
	if filter == nil {
		filter = &Filter{}
	}

	logger := log.WithField("file", file).WithField("lang", lang)
	logger.Info("Loading dump")

	opts := parallel.Options{
		Name:        "load " + file,
		Workers:     l.Workers,
		MaxInFlight: l.MaxInFlight,
		Logger:      logger,
		Describe:    describeRecord,
	}

	_, err := parallel.ForEach(ctx, src.Records(), opts, func(_ context.Context, record string) error {
		if n := st.processed.Add(1); n%every == 0 {
			logger.Infof("Processed %v records, accepted %v", n, st.accepted.Load())
		}

		page, err := parser.Parse(record)
		if err != nil {
			st.parseErrors.Add(1)
			return fmt.Errorf("parsing record: %w", err)
		}

		if decision := filter.Accept(page); decision != Accepted {
			st.rejected.Add(1)
			logger.WithField("title", page.Title).WithField("decision", decision).Debug("Skipping page")
			return nil
		}
		st.accepted.Add(1)

		l.saveRaw(logger, st, page)
		l.saveLocal(logger, st, page)
		return nil
	})

	result := st.snapshot()
	logger.WithField("processed", result.Processed).WithField("accepted", result.Accepted).Info("Finished loading dump")

	if err != nil {
		return result, err
	}
	if err := src.Err(); err != nil {
		return result, fmt.Errorf("reading %v: %w", file, err)
	}
	return result, nil
}

func (l *DumpLoader) saveRaw(logger log.FieldLogger, st *stats, page *domain.RawPage) {
	if err := l.Raw.Save(page); err != nil {
		st.rawFailed.Add(1)
		l.Counters.IncrementErrorsQuietly(domain.EntityRawPage, page.Language)
		logger.WithField("title", page.Title).Errorf("Saving raw page: %s", err)
		return
	}
	st.rawSaved.Add(1)
	l.Counters.IncrementRecords(domain.EntityRawPage, page.Language, 1)
}

func (l *DumpLoader) saveLocal(logger log.FieldLogger, st *stats, page *domain.RawPage) {
	if err := l.Local.Save(page.ToLocalPage()); err != nil {
		st.localFailed.Add(1)
		l.Counters.IncrementErrorsQuietly(domain.EntityLocalPage, page.Language)
		logger.WithField("title", page.Title).Errorf("Saving local page: %s", err)
		return
	}
	st.localSaved.Add(1)
	l.Counters.IncrementRecords(domain.EntityLocalPage, page.Language, 1)
}

// describeRecord pulls the title out of a raw record for log lines.
func describeRecord(item interface{}) string {
	record, ok := item.(string)
	if !ok {
		return fmt.Sprint(item)
	}
	i := strings.Index(record, "<title>")
	if i < 0 {
		return fmt.Sprintf("record(%d bytes)", len(record))
	}
	rest := record[i+len("<title>"):]
	if j := strings.Index(rest, "</title>"); j >= 0 {
		return rest[:j]
	}
	return fmt.Sprintf("record(%d bytes)", len(record))
}
