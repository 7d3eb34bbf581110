package dump

import (
	"bufio"
	"iter"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
)

// MaxLineSize bounds a single line of dump input.
var MaxLineSize = 64 * 1024 * 1024

// Source is a lazy sequence of serialized page records.  Err reports any
// failure which cut the sequence short; it is meaningful once the sequence
// has been fully consumed.
type Source interface {
	Records() iter.Seq[string]
	Err() error
}

// FileSource splits a (possibly compressed) dump file into <page> records.
type FileSource struct {
	Path string

	err error
	mu  sync.Mutex
}

func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (src *FileSource) Records() iter.Seq[string] {
	return func(yield func(string) bool) {
		src.setErr(src.each(yield))
	}
}

func (src *FileSource) each(yield func(string) bool) error {
	r, err := Open(src.Path)
	if err != nil {
		return err
	}
	defer r.Close()

	var (
		scanner = bufio.NewScanner(r)
		buf     strings.Builder
		inPage  bool
		n       int
	)
	scanner.Buffer(make([]byte, 0, 1024*1024), MaxLineSize)
	for scanner.Scan() {
		line := scanner.Text()
		for {
			if !inPage {
				i := strings.Index(line, "<page>")
				if i < 0 {
					break
				}
				inPage = true
				line = line[i:]
			}
			j := strings.Index(line, "</page>")
			if j < 0 {
				buf.WriteString(line)
				buf.WriteByte('\n')
				break
			}
			buf.WriteString(line[:j+len("</page>")])
			inPage = false
			n++
			if !yield(buf.String()) {
				return nil
			}
			buf.Reset()
			// Further records may follow on the same line.
			line = line[j+len("</page>"):]
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if inPage {
		log.WithField("file", src.Path).Warn("Dump ended inside an unterminated <page> record")
	}
	log.WithField("file", src.Path).WithField("records", n).Debug("Finished reading dump")
	return nil
}

func (src *FileSource) setErr(err error) {
	src.mu.Lock()
	src.err = err
	src.mu.Unlock()
}

func (src *FileSource) Err() error {
	src.mu.Lock()
	defer src.mu.Unlock()
	return src.err
}

// SliceSource serves in-memory records.
type SliceSource []string

func (src SliceSource) Records() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, record := range src {
			if !yield(record) {
				return
			}
		}
	}
}

func (src SliceSource) Err() error {
	return nil
}
