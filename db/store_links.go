package db

import (
	"fmt"

	"jaytaylor.com/wikigraph/domain"
)

// LinkFilter selects links during a scan.  Zero values match everything
// within the language.
type LinkFilter struct {
	Language     domain.Language
	Sources      []int
	Types        []domain.LinkType
	RedLinksOnly bool
}

func (f LinkFilter) match(link *domain.LocalLink) bool {
	if f.RedLinksOnly && !link.IsRedLink() {
		return false
	}
	if len(f.Types) == 0 {
		return true
	}
	for _, typ := range f.Types {
		if typ == link.Type {
			return true
		}
	}
	return false
}

func (f LinkFilter) prefixes() [][]byte {
	if len(f.Sources) == 0 {
		if f.Language == "" {
			return [][]byte{nil}
		}
		return [][]byte{langPrefix(f.Language)}
	}
	prefixes := make([][]byte, 0, len(f.Sources))
	for _, src := range f.Sources {
		prefixes = append(prefixes, linkPrefix(f.Language, src))
	}
	return prefixes
}

// LocalLinkStore persists links keyed by (language, source, fingerprint), so
// saving the same edge twice stores it once.
type LocalLinkStore struct {
	be Backend
}

func NewLocalLinkStore(be Backend) *LocalLinkStore {
	return &LocalLinkStore{be: be}
}

func (s *LocalLinkStore) Save(link *domain.LocalLink) error {
	v, err := encode(link)
	if err != nil {
		return fmt.Errorf("encoding link %v:%v->%v: %w", link.Language, link.SourceID, link.DestID, err)
	}
	return s.be.Put(TableLocalLinks, linkKey(link), v)
}

func (s *LocalLinkStore) Scan(filter LinkFilter) *Scan[*domain.LocalLink] {
	return newScan(func(yield func(*domain.LocalLink) bool) error {
		for _, prefix := range filter.prefixes() {
			var (
				err     error
				stopped bool
			)
			if scanErr := s.be.EachRow(TableLocalLinks, prefix, func(k []byte, v []byte) bool {
				link := &domain.LocalLink{}
				if err = decode(v, link); err != nil {
					err = fmt.Errorf("decoding link key=%q: %w", k, err)
					return false
				}
				if !filter.match(link) {
					return true
				}
				if !yield(link) {
					stopped = true
					return false
				}
				return true
			}); scanErr != nil {
				return scanErr
			}
			if err != nil {
				return err
			}
			if stopped {
				return nil
			}
		}
		return nil
	})
}

func (s *LocalLinkStore) Each(filter LinkFilter, fn func(link *domain.LocalLink) bool) error {
	scan := s.Scan(filter)
	for link := range scan.All() {
		if !fn(link) {
			break
		}
	}
	return scan.Err()
}

// Count returns the number of links matching the filter.
func (s *LocalLinkStore) Count(filter LinkFilter) (int, error) {
	n := 0
	err := s.Each(filter, func(_ *domain.LocalLink) bool {
		n++
		return true
	})
	return n, err
}

func (s *LocalLinkStore) Len() (int, error) {
	return s.be.Len(TableLocalLinks)
}

func (s *LocalLinkStore) Clear() error {
	return s.be.Drop(TableLocalLinks)
}

func (s *LocalLinkStore) BeginLoad() error {
	return s.be.BeginBulk()
}

func (s *LocalLinkStore) EndLoad() error {
	return s.be.EndBulk()
}
