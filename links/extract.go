// Package links extracts page links from wikitext and reconciles them with a
// secondary link table.
package links

import (
	"regexp"
	"strings"

	"jaytaylor.com/wikigraph/domain"
)

var linkExpr = regexp.MustCompile(`\[\[([^\[\]\|]+)(?:\|([^\[\]]*))?\]\]`)

// Link is one wikitext link before its destination is resolved.
type Link struct {
	Namespace domain.Namespace
	Title     string // Without namespace prefix or #fragment.
	Anchor    string
	Location  int // Byte offset of the opening brackets.
	Type      domain.LinkType
}

// FullTitle returns the destination with its namespace prefix.
func (l Link) FullTitle() string {
	if l.Namespace == domain.NamespaceArticle {
		return l.Title
	}
	return l.Namespace.String() + ":" + l.Title
}

// ExtractLinks returns the internal and category links in body, in order of
// appearance.  Interlanguage, file and media links are dropped, as are links
// to a section of the same page.
func ExtractLinks(body string) []Link {
	var (
		matches = linkExpr.FindAllStringSubmatchIndex(body, -1)
		links   = make([]Link, 0, len(matches))
	)
	for _, m := range matches {
		target := strings.TrimSpace(body[m[2]:m[3]])
		anchor := ""
		if m[4] >= 0 {
			anchor = strings.TrimSpace(body[m[4]:m[5]])
		}

		// A leading colon links to the page rather than transcluding or
		// categorizing: [[:Category:Foo]].
		escaped := strings.HasPrefix(target, ":")
		target = strings.TrimSpace(strings.TrimPrefix(target, ":"))

		if i := strings.IndexByte(target, '#'); i >= 0 {
			target = strings.TrimSpace(target[:i])
		}
		if target == "" {
			continue
		}

		if i := strings.IndexByte(target, ':'); i > 0 && domain.IsInterlanguagePrefix(strings.TrimSpace(target[:i])) {
			continue
		}

		ns, title := domain.SplitTitle(target)
		if title == "" {
			continue
		}
		link := Link{
			Namespace: ns,
			Title:     domain.CanonicalTitle(title),
			Anchor:    anchor,
			Location:  m[0],
			Type:      domain.LinkInternal,
		}
		switch ns {
		case domain.NamespaceFile, domain.NamespaceMedia:
			if !escaped {
				continue
			}
		case domain.NamespaceCategory:
			if !escaped {
				link.Type = domain.LinkCategory
			}
		}
		if link.Anchor == "" && link.Type == domain.LinkInternal {
			link.Anchor = title
		}
		links = append(links, link)
	}
	return links
}
