package main

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"jaytaylor.com/wikigraph/db"
	"jaytaylor.com/wikigraph/domain"
	"jaytaylor.com/wikigraph/loader"
)

var (
	MaxPerLang    int64
	ValidIDsFile  string
	NamespaceList = []string{"article", "category"}
	ProgressEvery = int64(loader.DefaultProgressEvery)
)

func newLoadCmd() *cobra.Command {
	loadCmd := &cobra.Command{
		Use:   "load [dump-files...]",
		Short: "Load page dumps into the raw and local page stores",
		Long:  "Load page dumps into the raw and local page stores.  The language of each file is derived from its name (<lang>wiki-<date>-...), or from --lang when exactly one language is given",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := runLoad(args); err != nil {
				log.Fatalf("main: %s", err)
			}
		},
	}

	loadCmd.Flags().StringVarP(&Languages, "lang", "l", "", "Comma separated language set; files of other languages are skipped")
	loadCmd.Flags().BoolVarP(&Drop, "drop", "d", false, "Drop existing page tables and counters before loading")
	loadCmd.Flags().Int64VarP(&MaxPerLang, "max-per-lang", "", MaxPerLang, "Maximum number of pages accepted per language (<=0 signifies unlimited)")
	loadCmd.Flags().StringVarP(&ValidIDsFile, "valid-ids", "", ValidIDsFile, "File of page ids, one per line; pages with other ids are rejected")
	loadCmd.Flags().StringSliceVarP(&NamespaceList, "namespaces", "n", NamespaceList, "Accepted namespaces, by name or number")
	loadCmd.Flags().Int64VarP(&ProgressEvery, "progress-every", "", ProgressEvery, "Emit a progress line every N records")

	return loadCmd
}

func runLoad(paths []string) error {
	files, err := dumpFiles(paths, Languages)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no dump files match language set %q", Languages)
	}

	namespaces, err := parseNamespaces(NamespaceList)
	if err != nil {
		return err
	}
	filter := &loader.Filter{
		Namespaces: namespaces,
		Quota:      loader.NewLanguageQuotaTracker(MaxPerLang),
	}
	if ValidIDsFile != "" {
		if filter.ValidIDs, err = loader.LoadValidIDs(ValidIDsFile); err != nil {
			return err
		}
		log.WithField("ids", filter.ValidIDs.GetCardinality()).Info("Loaded valid page ids")
	}

	return withJob(func(ctx context.Context, client *db.Client) error {
		if Drop {
			if err := client.Drop(db.TableRawPages, db.TableLocalPages, db.TableLocalPageTitles, db.TableMetaInfo); err != nil {
				return err
			}
		}
		l := &loader.DumpLoader{
			Raw:           client.RawPages,
			Local:         client.LocalPages,
			Counters:      client.Meta,
			Filter:        filter,
			Workers:       Workers,
			MaxInFlight:   MaxInFlight,
			ProgressEvery: ProgressEvery,
		}
		stats, err := l.LoadAll(ctx, files)
		if stats != nil {
			if jsonErr := emitJSON(stats); jsonErr != nil && err == nil {
				err = jsonErr
			}
		}
		return err
	})
}

// dumpFiles pairs each path with its language.  With a language set given,
// files of other languages are skipped; a file whose name carries no language
// takes the only member of a single-language set.
func dumpFiles(paths []string, langSpec string) ([]loader.DumpFile, error) {
	var langs []domain.Language
	if strings.TrimSpace(langSpec) != "" {
		var err error
		if langs, err = domain.ParseLanguages(langSpec); err != nil {
			return nil, err
		}
	}

	files := make([]loader.DumpFile, 0, len(paths))
	for _, path := range paths {
		lang, err := domain.LanguageFromDumpName(filepath.Base(path))
		if err != nil {
			if len(langs) != 1 {
				return nil, err
			}
			lang = langs[0]
		}
		if len(langs) > 0 && !slices.Contains(langs, lang) {
			log.WithField("file", path).WithField("lang", lang).Info("Skipping dump outside of language set")
			continue
		}
		files = append(files, loader.DumpFile{Path: path, Language: lang})
	}
	return files, nil
}
