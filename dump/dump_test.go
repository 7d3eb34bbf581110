package dump

import (
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"

	"jaytaylor.com/wikigraph/domain"
)

const testDump = `<mediawiki xmlns="http://www.mediawiki.org/xml/export-0.10/" version="0.10">
  <siteinfo>
    <sitename>Wikipedia</sitename>
  </siteinfo>
  <page>
    <title>Anarchism</title>
    <ns>0</ns>
    <id>12</id>
    <revision>
      <id>1001</id>
      <text xml:space="preserve">'''Anarchism''' is a [[political philosophy]].
See [[Category:Politics]].</text>
    </revision>
  </page>
  <page>
    <title>AccessibleComputing</title>
    <ns>0</ns>
    <id>10</id>
    <redirect title="Computer accessibility" />
    <revision>
      <id>1002</id>
      <text xml:space="preserve">#REDIRECT [[Computer accessibility]]</text>
    </revision>
  </page>
  <page><title>Talk:Anarchism</title><ns>1</ns><id>13</id><revision><id>1003</id><text>chatter</text></revision></page>
</mediawiki>
`

func writeCompressed(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	var w io.WriteCloser
	switch filepath.Ext(name) {
	case ".bz2":
		w, err = bzip2.NewWriter(f, &bzip2.WriterConfig{})
	case ".gz":
		w = gzip.NewWriter(f)
	case ".xz":
		w, err = xz.NewWriter(f)
	default:
		w = f
	}
	require.NoError(t, err)
	_, err = io.WriteString(w, testDump)
	require.NoError(t, err)
	if w != f {
		require.NoError(t, w.Close())
	}
	return path
}

func TestFileSourceCodecs(t *testing.T) {
	for _, name := range []string{"enwiki-pages-articles.xml", "enwiki.xml.bz2", "enwiki.xml.gz", "enwiki.xml.xz"} {
		t.Run(name, func(t *testing.T) {
			src := NewFileSource(writeCompressed(t, name))
			records := slices.Collect(src.Records())
			require.NoError(t, src.Err())
			require.Len(t, records, 3)
			for _, record := range records {
				assert.True(t, strings.HasPrefix(record, "<page>"), "record=%q", record)
				assert.True(t, strings.HasSuffix(record, "</page>"), "record=%q", record)
			}
		})
	}
}

func TestFileSourceSeveralPagesPerLine(t *testing.T) {
	const content = `<mediawiki><page><title>A</title><id>1</id></page><page><title>B</title>
<id>2</id></page>  <page><title>C</title><id>3</id></page><page><title>D</title>
<id>4</id>
</page></mediawiki>
`
	path := filepath.Join(t.TempDir(), "oneline.xml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	src := NewFileSource(path)
	records := slices.Collect(src.Records())
	require.NoError(t, src.Err())
	require.Len(t, records, 4)

	parser := NewParser("en")
	for i, title := range []string{"A", "B", "C", "D"} {
		page, err := parser.Parse(records[i])
		require.NoError(t, err)
		assert.Equal(t, title, page.Title)
		assert.Equal(t, i+1, page.PageID)
	}
}

func TestFileSourceMissingFile(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "nope.xml"))
	records := slices.Collect(src.Records())
	assert.Empty(t, records)
	assert.Error(t, src.Err())
}

func TestFileSourceEarlyStop(t *testing.T) {
	src := NewFileSource(writeCompressed(t, "stop.xml"))
	n := 0
	for range src.Records() {
		n++
		break
	}
	assert.Equal(t, 1, n)
	assert.NoError(t, src.Err())
}

func TestParser(t *testing.T) {
	var (
		src    = NewFileSource(writeCompressed(t, "parse.xml"))
		parser = NewParser("en")
		pages  []*domain.RawPage
	)
	for record := range src.Records() {
		page, err := parser.Parse(record)
		require.NoError(t, err)
		pages = append(pages, page)
	}
	require.NoError(t, src.Err())
	require.Len(t, pages, 3)

	assert.Equal(t, 12, pages[0].PageID)
	assert.Equal(t, 1001, pages[0].RevisionID)
	assert.Equal(t, domain.NamespaceArticle, pages[0].Namespace)
	assert.Equal(t, domain.Language("en"), pages[0].Language)
	assert.False(t, pages[0].IsRedirect)
	assert.Contains(t, pages[0].Body, "[[political philosophy]]")

	assert.True(t, pages[1].IsRedirect)
	assert.Equal(t, "Computer accessibility", pages[1].RedirectTarget)

	assert.Equal(t, domain.NamespaceTalk, pages[2].Namespace)
}

func TestParserEdgeCases(t *testing.T) {
	parser := NewParser("simple")

	testCases := []struct {
		record   string
		ns       domain.Namespace
		redirect string
		disambig bool
		err      bool
	}{
		{
			record:   `<page><title>Foo</title><id>1</id><revision><text>#redirect [[Bar#History|bar]]</text></revision></page>`,
			ns:       domain.NamespaceArticle,
			redirect: "Bar",
		},
		{
			record: `<page><title>Category:Things</title><id>2</id><revision><text>x</text></revision></page>`,
			ns:     domain.NamespaceCategory,
		},
		{
			record: `<page><title>Weird</title><ns>4242</ns><id>3</id></page>`,
			ns:     domain.NamespaceUnknown,
		},
		{
			record:   `<page><title>Mercury</title><ns>0</ns><id>4</id><revision><text>'''Mercury''' may be: {{Disambiguation|planet}}</text></revision></page>`,
			ns:       domain.NamespaceArticle,
			disambig: true,
		},
		{
			record:   `<page><title>Mars (disambiguation)</title><ns>0</ns><id>5</id><revision><text>{{set_index}}</text></revision></page>`,
			ns:       domain.NamespaceArticle,
			disambig: true,
		},
		{
			record: `<page><title>No id</title></page>`,
			err:    true,
		},
		{
			record: `<page><id>6</id></page>`,
			err:    true,
		},
		{
			record: `<page><title>Broken`,
			err:    true,
		},
	}

	for i, testCase := range testCases {
		page, err := parser.Parse(testCase.record)
		if testCase.err {
			if err == nil {
				t.Errorf("[i=%v] Expected parse error but got page=%v", i, page)
			}
			continue
		}
		if err != nil {
			t.Errorf("[i=%v] Unexpected error: %s", i, err)
			continue
		}
		if expected, actual := testCase.ns, page.Namespace; actual != expected {
			t.Errorf("[i=%v] Expected namespace=%v but actual=%v", i, expected, actual)
		}
		if expected, actual := testCase.redirect != "", page.IsRedirect; actual != expected {
			t.Errorf("[i=%v] Expected redirect=%v but actual=%v", i, expected, actual)
		}
		if expected, actual := testCase.redirect, page.RedirectTarget; actual != expected {
			t.Errorf("[i=%v] Expected redirect target=%q but actual=%q", i, expected, actual)
		}
		if expected, actual := testCase.disambig, page.IsDisambiguation; actual != expected {
			t.Errorf("[i=%v] Expected disambiguation=%v but actual=%v", i, expected, actual)
		}
	}
}

func TestSortLargestFirst(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for name, size := range map[string]int{"small": 1, "large": 100, "medium": 10} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, make([]byte, size), 0600))
		paths = append(paths, path)
	}
	paths = append(paths, filepath.Join(dir, "missing"))

	sorted := SortLargestFirst(paths)
	names := make([]string, 0, len(sorted))
	for _, path := range sorted {
		names = append(names, filepath.Base(path))
	}
	assert.Equal(t, []string{"large", "medium", "small", "missing"}, names)
}
