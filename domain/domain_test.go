package domain

import (
	"testing"
)

func TestParseLanguages(t *testing.T) {
	langs, err := ParseLanguages("en, simple,EN,,de")
	if err != nil {
		t.Fatal(err)
	}
	if expected, actual := 3, len(langs); actual != expected {
		t.Fatalf("Expected len(langs)=%v but actual=%v (%v)", expected, actual, langs)
	}
	for i, expected := range []Language{"en", "simple", "de"} {
		if actual := langs[i]; actual != expected {
			t.Errorf("[i=%v] Expected lang=%v but actual=%v", i, expected, actual)
		}
	}

	if _, err := ParseLanguages("en,klingon"); err == nil {
		t.Errorf("Expected error for unknown language but got nil")
	}
}

func TestLanguageFromDumpName(t *testing.T) {
	testCases := []struct {
		input    string
		expected Language
		err      bool
	}{
		{input: "enwiki-20240101-pages-articles.xml.bz2", expected: "en"},
		{input: "/data/dumps/simplewiki-latest-pages-articles.xml", expected: "simple"},
		{input: "pages-articles.xml", err: true},
		{input: "xxwiki-2024.xml", err: true},
	}
	for i, testCase := range testCases {
		actual, err := LanguageFromDumpName(testCase.input)
		if testCase.err {
			if err == nil {
				t.Errorf("[i=%v] Expected error for input=%q but got lang=%v", i, testCase.input, actual)
			}
			continue
		}
		if err != nil {
			t.Errorf("[i=%v] %s", i, err)
			continue
		}
		if actual != testCase.expected {
			t.Errorf("[i=%v] Expected lang=%v but actual=%v", i, testCase.expected, actual)
		}
	}
}

func TestIsInterlanguagePrefix(t *testing.T) {
	testCases := []struct {
		prefix   string
		expected bool
	}{
		{"de", true},
		{"ms", true}, // Not a loadable edition.
		{"TH", true},
		{"zh-min-nan", true},
		{"wikt", true},
		{"commons", true},
		{"Category", false},
		{"Wikipedia", false},
		{"Help", false},
		{"Star Wars", false},
	}
	for i, testCase := range testCases {
		if expected, actual := testCase.expected, IsInterlanguagePrefix(testCase.prefix); actual != expected {
			t.Errorf("[i=%v] Expected IsInterlanguagePrefix(%q)=%v but actual=%v", i, testCase.prefix, expected, actual)
		}
	}
	if _, err := ParseLanguage("ms"); err == nil {
		t.Error("Expected ms to remain outside of the loadable editions")
	}
}

func TestSplitTitle(t *testing.T) {
	type tuple struct {
		ns    Namespace
		title string
	}
	testCases := []struct {
		input    string
		expected tuple
	}{
		{input: "Berlin", expected: tuple{NamespaceArticle, "Berlin"}},
		{input: "Talk:Berlin", expected: tuple{NamespaceTalk, "Berlin"}},
		{input: "category:Cities in Germany", expected: tuple{NamespaceCategory, "Cities in Germany"}},
		{input: "User_talk:Someone", expected: tuple{NamespaceUserTalk, "Someone"}},
		{input: "Star Wars: A New Hope", expected: tuple{NamespaceArticle, "Star Wars: A New Hope"}},
		{input: ":Leading", expected: tuple{NamespaceArticle, ":Leading"}},
	}
	for i, testCase := range testCases {
		ns, title := SplitTitle(testCase.input)
		if actual := (tuple{ns, title}); actual != testCase.expected {
			t.Errorf("[i=%v] Expected %+v but actual=%+v", i, testCase.expected, actual)
		}
	}
}

func TestNamespaceFromID(t *testing.T) {
	if ns, ok := NamespaceFromID(14); !ok || ns != NamespaceCategory {
		t.Errorf("Expected Category but actual=%v ok=%v", ns, ok)
	}
	if ns, ok := NamespaceFromID(9999); ok || ns != NamespaceUnknown {
		t.Errorf("Expected Unknown but actual=%v ok=%v", ns, ok)
	}
	if ns, ok := ParseNamespace("article"); !ok || ns != NamespaceArticle {
		t.Errorf("Expected Article but actual=%v ok=%v", ns, ok)
	}
	if ns, ok := ParseNamespace("Category"); !ok || ns != NamespaceCategory {
		t.Errorf("Expected Category but actual=%v ok=%v", ns, ok)
	}
	if !NamespaceTalk.IsTalk() || NamespaceArticle.IsTalk() {
		t.Errorf("IsTalk returned unexpected results")
	}
}

func TestCanonicalTitle(t *testing.T) {
	testCases := map[string]string{
		"berlin":               "Berlin",
		"new_york   city":      "New york city",
		"  Already Canonical ": "Already Canonical",
		"élan":                 "Élan",
		"9 to 5":               "9 to 5",
		"":                     "",
	}
	for input, expected := range testCases {
		if actual := CanonicalTitle(input); actual != expected {
			t.Errorf("Expected CanonicalTitle(%q)=%q but actual=%q", input, expected, actual)
		}
	}
}

func TestEdgeFingerprint(t *testing.T) {
	a := &LocalLink{Language: "en", SourceID: 1, DestID: 2, Type: LinkInternal, AnchorText: "x", Location: 10}
	b := &LocalLink{Language: "en", SourceID: 1, DestID: 2, Type: LinkInternal, Parseable: true}
	if a.Fingerprint() != b.Fingerprint() {
		t.Errorf("Expected equal fingerprints for the same edge from different sources")
	}

	others := []*LocalLink{
		{Language: "de", SourceID: 1, DestID: 2},
		{Language: "en", SourceID: 2, DestID: 1},
		{Language: "en", SourceID: 1, DestID: 2, Type: LinkCategory},
	}
	for i, other := range others {
		if a.Fingerprint() == other.Fingerprint() {
			t.Errorf("[i=%v] Expected distinct fingerprint for %+v", i, other)
		}
	}
}

func TestDedupKey(t *testing.T) {
	resolved := &LocalLink{Language: "en", SourceID: 1, DestID: 2}
	if expected, actual := resolved.Fingerprint(), resolved.DedupKey(); actual != expected {
		t.Errorf("Expected DedupKey=%v but actual=%v", expected, actual)
	}

	var (
		red       = &LocalLink{Language: "en", SourceID: 1, DestID: Unresolved, DestTitle: "missing_page"}
		same      = &LocalLink{Language: "en", SourceID: 1, DestID: Unresolved, DestTitle: "Missing page", Location: -1}
		elsewhere = &LocalLink{Language: "en", SourceID: 1, DestID: Unresolved, DestTitle: "Other page"}
	)
	if red.DedupKey() != same.DedupKey() {
		t.Errorf("Expected equal keys for red links to the same canonical title")
	}
	if red.DedupKey() == elsewhere.DedupKey() {
		t.Errorf("Expected distinct keys for red links to different titles")
	}
	if red.DedupKey() == red.Fingerprint() {
		t.Errorf("Expected red link key to include the destination title")
	}
}

func TestToLocalPage(t *testing.T) {
	raw := &RawPage{
		PageID:     42,
		Title:      "Category:european_capitals",
		Language:   "en",
		Namespace:  NamespaceCategory,
		IsRedirect: true,
	}
	local := raw.ToLocalPage()
	if expected, actual := "European capitals", local.Title; actual != expected {
		t.Errorf("Expected title=%q but actual=%q", expected, actual)
	}
	if local.PageID != 42 || local.Namespace != NamespaceCategory || !local.IsRedirect {
		t.Errorf("Unexpected local page %+v", local)
	}
}
