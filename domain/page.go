package domain

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Unresolved is the reserved id meaning "no known page".
const Unresolved = -1

// RawPage is a single page as parsed out of a dump.  It is immutable once
// parsed.
type RawPage struct {
	PageID           int       `msgpack:"id"`
	RevisionID       int       `msgpack:"rev"`
	Title            string    `msgpack:"title"`
	Body             string    `msgpack:"body"`
	Language         Language  `msgpack:"lang"`
	Namespace        Namespace `msgpack:"ns"`
	IsRedirect       bool      `msgpack:"redirect"`
	IsDisambiguation bool      `msgpack:"disambig"`
	RedirectTarget   string    `msgpack:"target,omitempty"`
}

// LocalPage is the metadata record derived from a RawPage.
type LocalPage struct {
	Language         Language  `msgpack:"lang"`
	PageID           int       `msgpack:"id"`
	Title            string    `msgpack:"title"`
	Namespace        Namespace `msgpack:"ns"`
	IsRedirect       bool      `msgpack:"redirect"`
	IsDisambiguation bool      `msgpack:"disambig"`
}

// ToLocalPage derives the metadata form of the page.
func (p *RawPage) ToLocalPage() *LocalPage {
	_, title := SplitTitle(p.Title)
	return &LocalPage{
		Language:         p.Language,
		PageID:           p.PageID,
		Title:            CanonicalTitle(title),
		Namespace:        p.Namespace,
		IsRedirect:       p.IsRedirect,
		IsDisambiguation: p.IsDisambiguation,
	}
}

func (p *RawPage) String() string {
	return fmt.Sprintf("%v:%v(%v)", p.Language, p.Title, p.PageID)
}

// CanonicalTitle normalizes a title the way MediaWiki does: underscores become
// spaces, runs of whitespace collapse, and the first letter is upper-cased.
func CanonicalTitle(s string) string {
	s = strings.Join(strings.Fields(strings.ReplaceAll(s, "_", " ")), " ")
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	if unicode.IsUpper(r) || !unicode.IsLetter(r) {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
