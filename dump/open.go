package dump

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
	log "github.com/sirupsen/logrus"
	"github.com/ulikunitz/xz"
)

// Open returns a reader over the named file, transparently decompressing
// .bz2, .gz and .xz content.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	br := bufio.NewReaderSize(f, 1<<20)

	var r io.Reader
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bz2":
		bz, err := bzip2.NewReader(br, &bzip2.ReaderConfig{})
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("opening bzip2 stream %q: %w", path, err)
		}
		return &readCloser{Reader: bz, closers: []io.Closer{bz, f}}, nil

	case ".gz", ".gzip":
		gz, err := gzip.NewReader(br)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("opening gzip stream %q: %w", path, err)
		}
		return &readCloser{Reader: gz, closers: []io.Closer{gz, f}}, nil

	case ".xz":
		if r, err = xz.NewReader(br); err != nil {
			f.Close()
			return nil, fmt.Errorf("opening xz stream %q: %w", path, err)
		}

	default:
		r = br
	}
	return &readCloser{Reader: r, closers: []io.Closer{f}}, nil
}

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (rc *readCloser) Close() error {
	var first error
	for _, c := range rc.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// SortLargestFirst orders paths by on-disk size, descending.  Files which
// cannot be stat'd sort last.
func SortLargestFirst(paths []string) []string {
	sizes := make(map[string]int64, len(paths))
	for _, path := range paths {
		fi, err := os.Stat(path)
		if err != nil {
			log.WithField("file", path).Warnf("Unable to stat dump file: %s", err)
			sizes[path] = -1
			continue
		}
		sizes[path] = fi.Size()
	}
	sorted := make([]string, len(paths))
	copy(sorted, paths)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sizes[sorted[i]] > sizes[sorted[j]]
	})
	return sorted
}
