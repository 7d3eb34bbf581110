package dump

import (
	"encoding/xml"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"jaytaylor.com/wikigraph/domain"
)

var (
	ErrMissingID    = errors.New("page record has no id")
	ErrMissingTitle = errors.New("page record has no title")

	DefaultDisambiguationTemplates = []string{
		"disambig",
		"disambiguation",
		"dab",
		"disamb",
		"hndis",
		"geodis",
		"set index",
	}

	redirectExpr = regexp.MustCompile(`(?i)^\s*#redirect\s*:?\s*\[\[([^\]\|]+)`)
)

type xmlPage struct {
	Title    string       `xml:"title"`
	NS       string       `xml:"ns"`
	ID       int          `xml:"id"`
	Redirect *xmlRedirect `xml:"redirect"`
	Revision struct {
		ID   int    `xml:"id"`
		Text string `xml:"text"`
	} `xml:"revision"`
}

type xmlRedirect struct {
	Title string `xml:"title,attr"`
}

// Parser turns serialized <page> records into RawPages for one language.
type Parser struct {
	Language                domain.Language
	DisambiguationTemplates []string

	once       sync.Once
	disambigRe *regexp.Regexp
}

func NewParser(lang domain.Language) *Parser {
	p := &Parser{
		Language:                lang,
		DisambiguationTemplates: DefaultDisambiguationTemplates,
	}
	return p
}

func (p *Parser) compile() {
	names := make([]string, 0, len(p.DisambiguationTemplates))
	for _, name := range p.DisambiguationTemplates {
		names = append(names, strings.ReplaceAll(regexp.QuoteMeta(name), " ", `[ _]`))
	}
	if len(names) == 0 {
		return
	}
	p.disambigRe = regexp.MustCompile(`(?i)\{\{\s*(?:` + strings.Join(names, "|") + `)\s*(?:\|[^}]*)?\}\}`)
}

// Parse decodes one record.  Records lacking an id or title are errors; a
// namespace number that is not recognised yields domain.NamespaceUnknown.
func (p *Parser) Parse(record string) (*domain.RawPage, error) {
	p.once.Do(p.compile)

	var x xmlPage
	if err := xml.Unmarshal([]byte(record), &x); err != nil {
		return nil, fmt.Errorf("decoding page record: %w", err)
	}
	if x.ID == 0 {
		return nil, ErrMissingID
	}
	title := strings.TrimSpace(x.Title)
	if title == "" {
		return nil, ErrMissingTitle
	}

	page := &domain.RawPage{
		PageID:     x.ID,
		RevisionID: x.Revision.ID,
		Title:      title,
		Body:       x.Revision.Text,
		Language:   p.Language,
		Namespace:  namespaceOf(x.NS, title),
	}

	if x.Redirect != nil && strings.TrimSpace(x.Redirect.Title) != "" {
		page.IsRedirect = true
		page.RedirectTarget = cleanTarget(x.Redirect.Title)
	} else if m := redirectExpr.FindStringSubmatch(page.Body); m != nil {
		page.IsRedirect = true
		page.RedirectTarget = cleanTarget(m[1])
	}

	if !page.IsRedirect && p.disambigRe != nil && p.disambigRe.MatchString(page.Body) {
		page.IsDisambiguation = true
	}
	return page, nil
}

func namespaceOf(raw string, title string) domain.Namespace {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		ns, _ := domain.SplitTitle(title)
		return ns
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return domain.NamespaceUnknown
	}
	ns, ok := domain.NamespaceFromID(n)
	if !ok {
		return domain.NamespaceUnknown
	}
	return ns
}

// cleanTarget drops any #section fragment from a redirect target.
func cleanTarget(target string) string {
	if i := strings.IndexByte(target, '#'); i >= 0 {
		target = target[:i]
	}
	return strings.TrimSpace(target)
}
