package links

import (
	"bufio"
	"iter"
	"strconv"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"jaytaylor.com/wikigraph/domain"
	"jaytaylor.com/wikigraph/dump"
)

// Row is one secondary link: a source page id and a destination title.
type Row struct {
	SourceID  int
	Namespace domain.Namespace
	Title     string
}

// RowSource is a lazy sequence of secondary links.
type RowSource interface {
	Rows() iter.Seq[Row]
	Err() error
}

// PagelinksSource reads "source_id<TAB>namespace<TAB>title" lines, the shape
// of a MediaWiki pagelinks table export.  Compressed files are handled by
// dump.Open.  Malformed lines are skipped.
type PagelinksSource struct {
	Path string

	skipped int
	err     error
	mu      sync.Mutex
}

func NewPagelinksSource(path string) *PagelinksSource {
	return &PagelinksSource{Path: path}
}

func (src *PagelinksSource) Rows() iter.Seq[Row] {
	return func(yield func(Row) bool) {
		err := src.each(yield)
		src.mu.Lock()
		src.err = err
		src.mu.Unlock()
	}
}

func (src *PagelinksSource) each(yield func(Row) bool) error {
	r, err := dump.Open(src.Path)
	if err != nil {
		return err
	}
	defer r.Close()

	var (
		scanner = bufio.NewScanner(r)
		lineNo  int
		skipped int
	)
	defer func() {
		src.mu.Lock()
		src.skipped = skipped
		src.mu.Unlock()
	}()
	for scanner.Scan() {
		lineNo++
		row, ok := parseRow(scanner.Text())
		if !ok {
			skipped++
			log.WithField("file", src.Path).WithField("line", lineNo).Debug("Skipping malformed pagelinks row")
			continue
		}
		if !yield(row) {
			return nil
		}
	}
	return scanner.Err()
}

func parseRow(line string) (Row, bool) {
	fields := strings.SplitN(line, "\t", 3)
	if len(fields) != 3 {
		return Row{}, false
	}
	src, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return Row{}, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil {
		return Row{}, false
	}
	ns, ok := domain.NamespaceFromID(n)
	if !ok {
		return Row{}, false
	}
	title := domain.CanonicalTitle(fields[2])
	if title == "" {
		return Row{}, false
	}
	return Row{SourceID: src, Namespace: ns, Title: title}, true
}

func (src *PagelinksSource) Err() error {
	src.mu.Lock()
	defer src.mu.Unlock()
	return src.err
}

// Skipped returns how many malformed lines the last pass skipped.
func (src *PagelinksSource) Skipped() int {
	src.mu.Lock()
	defer src.mu.Unlock()
	return src.skipped
}

// SliceRows serves in-memory rows.
type SliceRows []Row

func (rows SliceRows) Rows() iter.Seq[Row] {
	return func(yield func(Row) bool) {
		for _, row := range rows {
			if !yield(row) {
				return
			}
		}
	}
}

func (rows SliceRows) Err() error {
	return nil
}
