package db

import (
	"errors"
	"fmt"
	"sync/atomic"

	"jaytaylor.com/wikigraph/domain"
)

// LocalPageStore keeps page metadata along with a title index.
type LocalPageStore struct {
	be              Backend
	redirects       *RedirectStore
	followRedirects atomic.Bool
}

// NewLocalPageStore returns a store which follows redirects on title lookups
// by default.
func NewLocalPageStore(be Backend, redirects *RedirectStore) *LocalPageStore {
	s := &LocalPageStore{
		be:        be,
		redirects: redirects,
	}
	s.followRedirects.Store(true)
	return s
}

func (s *LocalPageStore) Save(page *domain.LocalPage) error {
	v, err := encode(page)
	if err != nil {
		return fmt.Errorf("encoding local page %v:%v: %w", page.Language, page.PageID, err)
	}
	return s.be.PutBatch([]Entry{
		{Table: TableLocalPages, Key: pageKey(page.Language, page.PageID), Value: v},
		{Table: TableLocalPageTitles, Key: titleKey(page.Language, page.Namespace, page.Title), Value: encodeID(page.PageID)},
	})
}

func (s *LocalPageStore) Get(lang domain.Language, id int) (*domain.LocalPage, error) {
	v, err := s.be.Get(TableLocalPages, pageKey(lang, id))
	if err != nil {
		return nil, err
	}
	page := &domain.LocalPage{}
	if err := decode(v, page); err != nil {
		return nil, fmt.Errorf("decoding local page %v:%v: %w", lang, id, err)
	}
	return page, nil
}

// SetFollowRedirects toggles whether IDByTitle resolves redirect pages to
// their targets.  It returns the previous setting.
func (s *LocalPageStore) SetFollowRedirects(follow bool) bool {
	return s.followRedirects.Swap(follow)
}

func (s *LocalPageStore) FollowRedirects() bool {
	return s.followRedirects.Load()
}

// IDByTitle returns the id of the titled page, or domain.Unresolved when no
// such page exists.  When following redirects and the page is a redirect with
// a resolved target, the target id is returned instead.
func (s *LocalPageStore) IDByTitle(title string, lang domain.Language, ns domain.Namespace) (int, error) {
	v, err := s.be.Get(TableLocalPageTitles, titleKey(lang, ns, title))
	if errors.Is(err, ErrKeyNotFound) {
		return domain.Unresolved, nil
	} else if err != nil {
		return domain.Unresolved, err
	}
	id, err := decodeID(v)
	if err != nil {
		return domain.Unresolved, err
	}
	if !s.FollowRedirects() || s.redirects == nil {
		return id, nil
	}
	dst, err := s.redirects.Resolve(lang, id)
	if err != nil {
		return domain.Unresolved, err
	}
	if dst == domain.Unresolved {
		return id, nil
	}
	return dst, nil
}

// Scan lazily yields every page of the language in id order.
func (s *LocalPageStore) Scan(lang domain.Language) *Scan[*domain.LocalPage] {
	return newScan(func(yield func(*domain.LocalPage) bool) error {
		var err error
		if scanErr := s.be.EachRow(TableLocalPages, langPrefix(lang), func(k []byte, v []byte) bool {
			page := &domain.LocalPage{}
			if err = decode(v, page); err != nil {
				err = fmt.Errorf("decoding local page key=%q: %w", k, err)
				return false
			}
			return yield(page)
		}); scanErr != nil {
			return scanErr
		}
		return err
	})
}

func (s *LocalPageStore) Len() (int, error) {
	return s.be.Len(TableLocalPages)
}

func (s *LocalPageStore) Clear() error {
	return s.be.Drop(TableLocalPages, TableLocalPageTitles)
}

func (s *LocalPageStore) BeginLoad() error {
	return s.be.BeginBulk()
}

func (s *LocalPageStore) EndLoad() error {
	return s.be.EndBulk()
}
