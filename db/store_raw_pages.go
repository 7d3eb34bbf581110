package db

import (
	"fmt"

	"jaytaylor.com/wikigraph/domain"
)

// RawPageFilter selects raw pages during a scan.  Zero values match
// everything.
type RawPageFilter struct {
	Language      domain.Language
	Namespaces    []domain.Namespace
	RedirectsOnly bool
	SkipRedirects bool
}

func (f RawPageFilter) match(page *domain.RawPage) bool {
	if f.RedirectsOnly && !page.IsRedirect {
		return false
	}
	if f.SkipRedirects && page.IsRedirect {
		return false
	}
	if len(f.Namespaces) == 0 {
		return true
	}
	for _, ns := range f.Namespaces {
		if ns == page.Namespace {
			return true
		}
	}
	return false
}

// RawPageStore persists pages in the form they were parsed.
type RawPageStore struct {
	be Backend
}

func NewRawPageStore(be Backend) *RawPageStore {
	return &RawPageStore{be: be}
}

func (s *RawPageStore) Save(page *domain.RawPage) error {
	v, err := encode(page)
	if err != nil {
		return fmt.Errorf("encoding raw page %v: %w", page, err)
	}
	return s.be.Put(TableRawPages, pageKey(page.Language, page.PageID), v)
}

func (s *RawPageStore) Get(lang domain.Language, id int) (*domain.RawPage, error) {
	v, err := s.be.Get(TableRawPages, pageKey(lang, id))
	if err != nil {
		return nil, err
	}
	page := &domain.RawPage{}
	if err := decode(v, page); err != nil {
		return nil, fmt.Errorf("decoding raw page %v:%v: %w", lang, id, err)
	}
	return page, nil
}

// Scan lazily yields every page matching the filter in (language, id) order.
func (s *RawPageStore) Scan(filter RawPageFilter) *Scan[*domain.RawPage] {
	var prefix []byte
	if filter.Language != "" {
		prefix = langPrefix(filter.Language)
	}
	return newScan(func(yield func(*domain.RawPage) bool) error {
		var err error
		if scanErr := s.be.EachRow(TableRawPages, prefix, func(k []byte, v []byte) bool {
			page := &domain.RawPage{}
			if err = decode(v, page); err != nil {
				err = fmt.Errorf("decoding raw page key=%q: %w", k, err)
				return false
			}
			if !filter.match(page) {
				return true
			}
			return yield(page)
		}); scanErr != nil {
			return scanErr
		}
		return err
	})
}

// Each invokes fn for every matching page until fn returns false.
func (s *RawPageStore) Each(filter RawPageFilter, fn func(page *domain.RawPage) bool) error {
	scan := s.Scan(filter)
	for page := range scan.All() {
		if !fn(page) {
			break
		}
	}
	return scan.Err()
}

func (s *RawPageStore) Len() (int, error) {
	return s.be.Len(TableRawPages)
}

func (s *RawPageStore) Clear() error {
	return s.be.Drop(TableRawPages)
}

func (s *RawPageStore) BeginLoad() error {
	return s.be.BeginBulk()
}

func (s *RawPageStore) EndLoad() error {
	return s.be.EndBulk()
}
