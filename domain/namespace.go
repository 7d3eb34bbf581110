package domain

import (
	"strconv"
	"strings"
)

// Namespace is a MediaWiki namespace number.
type Namespace int

const (
	NamespaceMedia        Namespace = -2
	NamespaceSpecial      Namespace = -1
	NamespaceArticle      Namespace = 0
	NamespaceTalk         Namespace = 1
	NamespaceUser         Namespace = 2
	NamespaceUserTalk     Namespace = 3
	NamespaceProject      Namespace = 4
	NamespaceProjectTalk  Namespace = 5
	NamespaceFile         Namespace = 6
	NamespaceFileTalk     Namespace = 7
	NamespaceMediaWiki    Namespace = 8
	NamespaceTemplate     Namespace = 10
	NamespaceHelp         Namespace = 12
	NamespaceCategory     Namespace = 14
	NamespaceCategoryTalk Namespace = 15
	NamespacePortal       Namespace = 100
	NamespaceDraft        Namespace = 118
	NamespaceModule       Namespace = 828

	// NamespaceUnknown marks a page whose namespace could not be resolved.
	NamespaceUnknown Namespace = -1000
)

var namespaceNames = map[Namespace]string{
	NamespaceMedia:        "Media",
	NamespaceSpecial:      "Special",
	NamespaceArticle:      "Article",
	NamespaceTalk:         "Talk",
	NamespaceUser:         "User",
	NamespaceUserTalk:     "User talk",
	NamespaceProject:      "Wikipedia",
	NamespaceProjectTalk:  "Wikipedia talk",
	NamespaceFile:         "File",
	NamespaceFileTalk:     "File talk",
	NamespaceMediaWiki:    "MediaWiki",
	NamespaceTemplate:     "Template",
	NamespaceHelp:         "Help",
	NamespaceCategory:     "Category",
	NamespaceCategoryTalk: "Category talk",
	NamespacePortal:       "Portal",
	NamespaceDraft:        "Draft",
	NamespaceModule:       "Module",
}

// titlePrefixes maps lower-cased title prefixes to namespaces.  Article has no
// prefix and is handled by SplitTitle.
var titlePrefixes = func() map[string]Namespace {
	m := map[string]Namespace{
		"image":   NamespaceFile,
		"project": NamespaceProject,
	}
	for ns, name := range namespaceNames {
		if ns == NamespaceArticle {
			continue
		}
		m[strings.ToLower(name)] = ns
	}
	return m
}()

// NamespaceFromID resolves a numeric namespace, reporting false for numbers
// outside of the known set.
func NamespaceFromID(id int) (Namespace, bool) {
	ns := Namespace(id)
	if _, ok := namespaceNames[ns]; !ok {
		return NamespaceUnknown, false
	}
	return ns, true
}

// ParseNamespace accepts a namespace name ("article", "Category", "user_talk")
// or number.
func ParseNamespace(s string) (Namespace, bool) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return NamespaceFromID(n)
	}
	key := strings.ToLower(strings.ReplaceAll(s, "_", " "))
	if key == "article" || key == "main" {
		return NamespaceArticle, true
	}
	if ns, ok := titlePrefixes[key]; ok {
		return ns, true
	}
	return NamespaceUnknown, false
}

// SplitTitle strips a recognized namespace prefix from a title.  Titles
// without a recognized prefix belong to the article namespace.
func SplitTitle(title string) (Namespace, string) {
	i := strings.IndexByte(title, ':')
	if i <= 0 {
		return NamespaceArticle, title
	}
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(title[:i]), "_", " "))
	if ns, ok := titlePrefixes[key]; ok {
		return ns, strings.TrimSpace(title[i+1:])
	}
	return NamespaceArticle, title
}

// IsTalk reports whether the namespace is one of the discussion namespaces.
func (ns Namespace) IsTalk() bool {
	return ns > 0 && ns%2 == 1
}

func (ns Namespace) String() string {
	if name, ok := namespaceNames[ns]; ok {
		return name
	}
	return "Unknown(" + strconv.Itoa(int(ns)) + ")"
}
