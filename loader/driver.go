package loader

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"jaytaylor.com/wikigraph/domain"
	"jaytaylor.com/wikigraph/dump"
)

// Session is implemented by stores which want to bracket a bulk load.
type Session interface {
	BeginLoad() error
	EndLoad() error
}

// DumpFile names a dump and the language it holds.  An empty Language is
// derived from the file name.
type DumpFile struct {
	Path     string
	Language domain.Language
}

// LoadAll loads each file in turn, largest first, so the longest job is not
// left until last.  Stores and counters which implement Session are bracketed
// by BeginLoad/EndLoad around the whole run.
func (l *DumpLoader) LoadAll(ctx context.Context, files []DumpFile) (total *Stats, err error) {
	var (
		byPath = map[string]DumpFile{}
		paths  = make([]string, 0, len(files))
	)
	for _, file := range files {
		if file.Language == "" {
			lang, err := domain.LanguageFromDumpName(filepath.Base(file.Path))
			if err != nil {
				return nil, fmt.Errorf("no language given for %v: %w", file.Path, err)
			}
			file.Language = lang
		}
		if _, ok := byPath[file.Path]; ok {
			log.WithField("file", file.Path).Warn("Skipping dump listed more than once")
			continue
		}
		byPath[file.Path] = file
		paths = append(paths, file.Path)
	}

	sessions := l.sessions()
	for i, s := range sessions {
		if err := s.BeginLoad(); err != nil {
			for _, started := range sessions[:i] {
				if endErr := started.EndLoad(); endErr != nil {
					log.Errorf("Ending load after failed start: %s", endErr)
				}
			}
			return nil, fmt.Errorf("beginning load: %w", err)
		}
	}
	defer func() {
		for _, s := range sessions {
			if endErr := s.EndLoad(); endErr != nil {
				err = multierror.Append(err, fmt.Errorf("ending load: %w", endErr))
			}
		}
	}()

	total = &Stats{}
	for _, path := range dump.SortLargestFirst(paths) {
		file := byPath[path]
		st, loadErr := l.Load(ctx, dump.NewFileSource(file.Path), file.Language, file.Path)
		if st != nil {
			total.add(st)
		}
		if loadErr != nil {
			err = loadErr
			return
		}
	}
	return
}

func (l *DumpLoader) sessions() []Session {
	var (
		out  = []Session{}
		seen = map[Session]struct{}{}
	)
	for _, candidate := range []interface{}{l.Raw, l.Local, l.Counters} {
		s, ok := candidate.(Session)
		if !ok {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
