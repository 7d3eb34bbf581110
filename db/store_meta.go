package db

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"jaytaylor.com/wikigraph/domain"
)

// MetaInfo is the persisted tally for one (entity type, language) pair.
type MetaInfo struct {
	Entity     domain.EntityType `msgpack:"entity" json:"entity"`
	Language   domain.Language   `msgpack:"lang" json:"lang"`
	Records    int64             `msgpack:"records" json:"records"`
	Errors     int64             `msgpack:"errors" json:"errors"`
	LastLoaded time.Time         `msgpack:"last_loaded" json:"last_loaded"`
}

type tally struct {
	records atomic.Int64
	errors  atomic.Int64
}

type tallyKey struct {
	entity domain.EntityType
	lang   domain.Language
}

// MetaInfoStore counts records and errors per entity type and language.
// Increments are lock-free; counts are persisted by EndLoad.
type MetaInfoStore struct {
	be         Backend
	tallies    sync.Map // tallyKey -> *tally
	lastLoaded sync.Map // tallyKey -> time.Time
	records    *prometheus.CounterVec
	errs       *prometheus.CounterVec
}

// NewMetaInfoStore returns a counter store which mirrors increments into
// prometheus counters registered with reg, when non-nil.
func NewMetaInfoStore(be Backend, reg prometheus.Registerer) (*MetaInfoStore, error) {
	s := &MetaInfoStore{be: be}
	if reg == nil {
		return s, nil
	}
	var err error
	if s.records, err = registerCounterVec(reg, prometheus.CounterOpts{
		Namespace: "wikigraph",
		Name:      "records_total",
		Help:      "Records successfully saved, by entity type and language.",
	}); err != nil {
		return nil, err
	}
	if s.errs, err = registerCounterVec(reg, prometheus.CounterOpts{
		Namespace: "wikigraph",
		Name:      "errors_total",
		Help:      "Records which failed to save, by entity type and language.",
	}); err != nil {
		return nil, err
	}
	return s, nil
}

func registerCounterVec(reg prometheus.Registerer, opts prometheus.CounterOpts) (*prometheus.CounterVec, error) {
	vec := prometheus.NewCounterVec(opts, []string{"entity", "lang"})
	if err := reg.Register(vec); err != nil {
		are := prometheus.AlreadyRegisteredError{}
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("registering %v: %w", opts.Name, err)
	}
	return vec, nil
}

func (s *MetaInfoStore) tally(entity domain.EntityType, lang domain.Language) *tally {
	key := tallyKey{entity: entity, lang: lang}
	if t, ok := s.tallies.Load(key); ok {
		return t.(*tally)
	}
	t, _ := s.tallies.LoadOrStore(key, &tally{})
	return t.(*tally)
}

func (s *MetaInfoStore) IncrementRecords(entity domain.EntityType, lang domain.Language, n int) {
	s.tally(entity, lang).records.Add(int64(n))
	if s.records != nil {
		s.records.WithLabelValues(string(entity), string(lang)).Add(float64(n))
	}
}

// IncrementErrorsQuietly bumps the error tally.  It never fails.
func (s *MetaInfoStore) IncrementErrorsQuietly(entity domain.EntityType, lang domain.Language) {
	s.tally(entity, lang).errors.Add(1)
	if s.errs != nil {
		s.errs.WithLabelValues(string(entity), string(lang)).Inc()
	}
}

// Count returns the current tally for a single pair.
func (s *MetaInfoStore) Count(entity domain.EntityType, lang domain.Language) MetaInfo {
	key := tallyKey{entity: entity, lang: lang}
	info := MetaInfo{Entity: entity, Language: lang}
	if t, ok := s.tallies.Load(key); ok {
		info.Records = t.(*tally).records.Load()
		info.Errors = t.(*tally).errors.Load()
	}
	if ts, ok := s.lastLoaded.Load(key); ok {
		info.LastLoaded = ts.(time.Time)
	}
	return info
}

// Counts returns every tally sorted by entity type then language.
func (s *MetaInfoStore) Counts() []MetaInfo {
	infos := []MetaInfo{}
	s.tallies.Range(func(k, _ interface{}) bool {
		key := k.(tallyKey)
		infos = append(infos, s.Count(key.entity, key.lang))
		return true
	})
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Entity != infos[j].Entity {
			return infos[i].Entity < infos[j].Entity
		}
		return infos[i].Language < infos[j].Language
	})
	return infos
}

// BeginLoad marks the start of a load session.  Sessions nest.
func (s *MetaInfoStore) BeginLoad() error {
	return s.be.BeginBulk()
}

// EndLoad persists the current tallies.
func (s *MetaInfoStore) EndLoad() error {
	if err := s.persist(); err != nil {
		if bulkErr := s.be.EndBulk(); bulkErr != nil {
			log.Errorf("Also failed leaving bulk mode: %s", bulkErr)
		}
		return err
	}
	return s.be.EndBulk()
}

func (s *MetaInfoStore) persist() error {
	var (
		now     = time.Now().UTC()
		entries = []Entry{}
	)
	for _, info := range s.Counts() {
		key := tallyKey{entity: info.Entity, lang: info.Language}
		s.lastLoaded.Store(key, now)
		info.LastLoaded = now
		v, err := encode(&info)
		if err != nil {
			return fmt.Errorf("encoding meta info %v/%v: %w", info.Entity, info.Language, err)
		}
		entries = append(entries, Entry{Table: TableMetaInfo, Key: metaKey(info.Entity, info.Language), Value: v})
	}
	log.WithField("rows", len(entries)).Debug("Persisting meta info")
	return s.be.PutBatch(entries)
}

// load merges previously persisted tallies into memory.
func (s *MetaInfoStore) load() error {
	var err error
	if scanErr := s.be.EachRow(TableMetaInfo, nil, func(k []byte, v []byte) bool {
		info := MetaInfo{}
		if err = decode(v, &info); err != nil {
			err = fmt.Errorf("decoding meta info key=%q: %w", k, err)
			return false
		}
		t := s.tally(info.Entity, info.Language)
		t.records.Add(info.Records)
		t.errors.Add(info.Errors)
		if !info.LastLoaded.IsZero() {
			s.lastLoaded.Store(tallyKey{entity: info.Entity, lang: info.Language}, info.LastLoaded)
		}
		return true
	}); scanErr != nil {
		return scanErr
	}
	return err
}

func (s *MetaInfoStore) reset() {
	s.tallies.Range(func(k, _ interface{}) bool {
		s.tallies.Delete(k)
		s.lastLoaded.Delete(k)
		return true
	})
}

// Clear resets every tally and removes the persisted rows.
func (s *MetaInfoStore) Clear() error {
	s.reset()
	return s.be.Drop(TableMetaInfo)
}

func metaKey(entity domain.EntityType, lang domain.Language) []byte {
	return []byte(strings.Join([]string{string(entity), string(lang)}, "/"))
}
