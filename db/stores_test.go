package db

import (
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jaytaylor.com/wikigraph/domain"
)

func newTestClient(t *testing.T, reg prometheus.Registerer) *Client {
	t.Helper()
	c, err := NewClient(NewBoltConfig(filepath.Join(t.TempDir(), "stores.bolt")), reg)
	require.NoError(t, err)
	require.NoError(t, c.Open())
	t.Cleanup(func() {
		assert.NoError(t, c.Close())
	})
	return c
}

func TestRawPageStore(t *testing.T) {
	c := newTestClient(t, nil)

	pages := []*domain.RawPage{
		{Language: "en", PageID: 3, Title: "Gamma", Namespace: domain.NamespaceArticle},
		{Language: "en", PageID: 1, Title: "Alpha", Namespace: domain.NamespaceArticle, IsRedirect: true, RedirectTarget: "Gamma"},
		{Language: "en", PageID: 2, Title: "Category:Letters", Namespace: domain.NamespaceCategory},
		{Language: "de", PageID: 1, Title: "Alpha", Namespace: domain.NamespaceArticle},
	}
	for _, page := range pages {
		require.NoError(t, c.RawPages.Save(page))
	}

	got, err := c.RawPages.Get("en", 1)
	require.NoError(t, err)
	assert.Equal(t, "Gamma", got.RedirectTarget)
	assert.True(t, got.IsRedirect)

	_, err = c.RawPages.Get("fr", 1)
	assert.ErrorIs(t, err, ErrKeyNotFound)

	ids := func(filter RawPageFilter) []int {
		out := []int{}
		require.NoError(t, c.RawPages.Each(filter, func(page *domain.RawPage) bool {
			out = append(out, page.PageID)
			return true
		}))
		return out
	}

	assert.Equal(t, []int{1, 2, 3}, ids(RawPageFilter{Language: "en"}))
	assert.Equal(t, []int{1}, ids(RawPageFilter{Language: "en", RedirectsOnly: true}))
	assert.Equal(t, []int{2, 3}, ids(RawPageFilter{Language: "en", SkipRedirects: true}))
	assert.Equal(t, []int{2}, ids(RawPageFilter{Language: "en", Namespaces: []domain.Namespace{domain.NamespaceCategory}}))
	assert.Equal(t, []int{1}, ids(RawPageFilter{Language: "de"}))

	n, err := c.RawPages.Len()
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	require.NoError(t, c.RawPages.Clear())
	n, err = c.RawPages.Len()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestLocalPageStoreIDByTitle(t *testing.T) {
	c := newTestClient(t, nil)

	for _, page := range []*domain.LocalPage{
		{Language: "en", PageID: 10, Title: "United States", Namespace: domain.NamespaceArticle},
		{Language: "en", PageID: 11, Title: "USA", Namespace: domain.NamespaceArticle, IsRedirect: true},
		{Language: "en", PageID: 12, Title: "Dangling", Namespace: domain.NamespaceArticle, IsRedirect: true},
		{Language: "en", PageID: 20, Title: "Physics", Namespace: domain.NamespaceCategory},
	} {
		require.NoError(t, c.LocalPages.Save(page))
	}
	require.NoError(t, c.Redirects.SaveAll("en", []Redirect{{Src: 11, Dst: 10}, {Src: 12, Dst: domain.Unresolved}}))

	testCases := []struct {
		title    string
		ns       domain.Namespace
		follow   bool
		expected int
	}{
		{"United States", domain.NamespaceArticle, true, 10},
		{"united_States", domain.NamespaceArticle, true, 10},
		{"USA", domain.NamespaceArticle, true, 10},
		{"USA", domain.NamespaceArticle, false, 11},
		{"Dangling", domain.NamespaceArticle, true, 12},
		{"Physics", domain.NamespaceCategory, true, 20},
		{"Physics", domain.NamespaceArticle, true, domain.Unresolved},
		{"Nowhere", domain.NamespaceArticle, true, domain.Unresolved},
	}

	for i, testCase := range testCases {
		prev := c.LocalPages.SetFollowRedirects(testCase.follow)
		id, err := c.LocalPages.IDByTitle(testCase.title, "en", testCase.ns)
		c.LocalPages.SetFollowRedirects(prev)
		if err != nil {
			t.Errorf("[i=%v] %q: %s", i, testCase.title, err)
			continue
		}
		if expected, actual := testCase.expected, id; actual != expected {
			t.Errorf("[i=%v] %q follow=%v: expected id=%v but actual=%v", i, testCase.title, testCase.follow, expected, actual)
		}
	}

	assert.True(t, c.LocalPages.FollowRedirects())
}

func TestLocalLinkStore(t *testing.T) {
	c := newTestClient(t, nil)

	links := []*domain.LocalLink{
		{Language: "en", SourceID: 1, DestID: 2, Type: domain.LinkInternal, AnchorText: "two"},
		{Language: "en", SourceID: 1, DestID: 2, Type: domain.LinkInternal, AnchorText: "again"},
		{Language: "en", SourceID: 1, DestID: domain.Unresolved, DestTitle: "Nowhere", Type: domain.LinkInternal},
		{Language: "en", SourceID: 1, DestID: domain.Unresolved, DestTitle: "nowhere", Type: domain.LinkInternal},
		{Language: "en", SourceID: 1, DestID: domain.Unresolved, DestTitle: "Elsewhere", Type: domain.LinkInternal},
		{Language: "en", SourceID: 2, DestID: 5, Type: domain.LinkCategory},
		{Language: "de", SourceID: 1, DestID: 2, Type: domain.LinkInternal},
	}
	for _, link := range links {
		require.NoError(t, c.Links.Save(link))
	}

	count := func(filter LinkFilter) int {
		n, err := c.Links.Count(filter)
		require.NoError(t, err)
		return n
	}

	assert.Equal(t, 4, count(LinkFilter{Language: "en"}), "duplicate edges should be stored once")
	assert.Equal(t, 3, count(LinkFilter{Language: "en", Sources: []int{1}}))
	assert.Equal(t, 2, count(LinkFilter{Language: "en", RedLinksOnly: true}), "red links are distinct per title")
	assert.Equal(t, 1, count(LinkFilter{Language: "en", Types: []domain.LinkType{domain.LinkCategory}}))
	assert.Equal(t, 4, count(LinkFilter{Language: "en", Sources: []int{1, 2}}))
	assert.Equal(t, 5, count(LinkFilter{}))

	n := 0
	scan := c.Links.Scan(LinkFilter{Language: "en", Sources: []int{1, 2}})
	for range scan.All() {
		n++
		break
	}
	require.NoError(t, scan.Err())
	assert.Equal(t, 1, n)
}

func TestRedirectStore(t *testing.T) {
	c := newTestClient(t, nil)

	require.NoError(t, c.Redirects.Save("en", 4, 9))
	require.NoError(t, c.Redirects.SaveAll("en", []Redirect{{Src: 5, Dst: domain.Unresolved}, {Src: 6, Dst: 4}}))

	for src, expected := range map[int]int{4: 9, 5: domain.Unresolved, 6: 4, 7: domain.Unresolved} {
		actual, err := c.Redirects.Resolve("en", src)
		require.NoError(t, err)
		assert.Equal(t, expected, actual, "src=%v", src)
	}

	pairs := []Redirect{}
	require.NoError(t, c.Redirects.Each("en", func(pair Redirect) bool {
		pairs = append(pairs, pair)
		return true
	}))
	assert.Equal(t, []Redirect{{4, 9}, {5, domain.Unresolved}, {6, 4}}, pairs)

	require.NoError(t, c.Redirects.Clear())
	n, err := c.Redirects.Len()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMetaInfoStore(t *testing.T) {
	var (
		reg  = prometheus.NewRegistry()
		path = filepath.Join(t.TempDir(), "meta.bolt")
	)

	c, err := NewClient(NewBoltConfig(path), reg)
	require.NoError(t, err)
	require.NoError(t, c.Open())

	require.NoError(t, c.Meta.BeginLoad())
	c.Meta.IncrementRecords(domain.EntityRawPage, "en", 3)
	c.Meta.IncrementRecords(domain.EntityRawPage, "en", 2)
	c.Meta.IncrementErrorsQuietly(domain.EntityRawPage, "en")
	c.Meta.IncrementRecords(domain.EntityLocalPage, "de", 1)
	require.NoError(t, c.Meta.EndLoad())

	info := c.Meta.Count(domain.EntityRawPage, "en")
	assert.Equal(t, int64(5), info.Records)
	assert.Equal(t, int64(1), info.Errors)
	assert.False(t, info.LastLoaded.IsZero())

	assert.Equal(t, 5.0, testutil.ToFloat64(c.Meta.records.WithLabelValues("raw-page", "en")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Meta.errs.WithLabelValues("raw-page", "en")))

	counts := c.Meta.Counts()
	require.Len(t, counts, 2)
	assert.Equal(t, domain.EntityLocalPage, counts[0].Entity)
	require.NoError(t, c.Close())

	// Persisted tallies are picked up again on reopen, and a second client
	// against the same registerer shares its counters.
	c, err = NewClient(NewBoltConfig(path), reg)
	require.NoError(t, err)
	require.NoError(t, c.Open())
	defer c.Close()
	assert.Equal(t, int64(5), c.Meta.Count(domain.EntityRawPage, "en").Records)

	require.NoError(t, c.Drop(TableMetaInfo))
	assert.Empty(t, c.Meta.Counts())
}

func TestNewConfig(t *testing.T) {
	testCases := []struct {
		driver   string
		expected Type
		err      bool
	}{
		{"bolt", Bolt, false},
		{"postgres", Postgres, false},
		{"pg", Postgres, false},
		{"rocksdb", 0, true},
	}

	for i, testCase := range testCases {
		cfg, err := NewConfig(testCase.driver, "x")
		if testCase.err {
			if err == nil {
				t.Errorf("[i=%v] Expected error for driver=%q", i, testCase.driver)
			}
			continue
		}
		if err != nil {
			t.Errorf("[i=%v] %s", i, err)
			continue
		}
		if expected, actual := testCase.expected, cfg.Type(); actual != expected {
			t.Errorf("[i=%v] Expected type=%v but actual=%v", i, expected, actual)
		}
	}
}
