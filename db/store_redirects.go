package db

import (
	"errors"
	"fmt"

	"jaytaylor.com/wikigraph/domain"
)

// Redirect is a single source → destination pair.  Dst may be
// domain.Unresolved.
type Redirect struct {
	Src int
	Dst int
}

// RedirectStore persists resolved redirect pairs per language.
type RedirectStore struct {
	be Backend
}

func NewRedirectStore(be Backend) *RedirectStore {
	return &RedirectStore{be: be}
}

func (s *RedirectStore) Save(lang domain.Language, src int, dst int) error {
	return s.be.Put(TableRedirects, pageKey(lang, src), encodeID(dst))
}

// SaveAll writes the pairs in a single batch.
func (s *RedirectStore) SaveAll(lang domain.Language, pairs []Redirect) error {
	entries := make([]Entry, 0, len(pairs))
	for _, pair := range pairs {
		entries = append(entries, Entry{
			Table: TableRedirects,
			Key:   pageKey(lang, pair.Src),
			Value: encodeID(pair.Dst),
		})
	}
	return s.be.PutBatch(entries)
}

// Resolve returns the stored destination for src, or domain.Unresolved when
// src is not a known redirect.
func (s *RedirectStore) Resolve(lang domain.Language, src int) (int, error) {
	v, err := s.be.Get(TableRedirects, pageKey(lang, src))
	if errors.Is(err, ErrKeyNotFound) {
		return domain.Unresolved, nil
	} else if err != nil {
		return domain.Unresolved, err
	}
	return decodeID(v)
}

// Each invokes fn for every stored redirect of the language.
func (s *RedirectStore) Each(lang domain.Language, fn func(pair Redirect) bool) error {
	var err error
	if scanErr := s.be.EachRow(TableRedirects, langPrefix(lang), func(k []byte, v []byte) bool {
		var pair Redirect
		if _, pair.Src, err = pageKeyID(k); err != nil {
			return false
		}
		if pair.Dst, err = decodeID(v); err != nil {
			err = fmt.Errorf("decoding redirect key=%q: %w", k, err)
			return false
		}
		return fn(pair)
	}); scanErr != nil {
		return scanErr
	}
	return err
}

func (s *RedirectStore) Len() (int, error) {
	return s.be.Len(TableRedirects)
}

func (s *RedirectStore) Clear() error {
	return s.be.Drop(TableRedirects)
}

func (s *RedirectStore) BeginLoad() error {
	return s.be.BeginBulk()
}

func (s *RedirectStore) EndLoad() error {
	return s.be.EndBulk()
}
