package main

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"jaytaylor.com/wikigraph/db"
	"jaytaylor.com/wikigraph/domain"
	"jaytaylor.com/wikigraph/links"
	"jaytaylor.com/wikigraph/loader"
	"jaytaylor.com/wikigraph/spillset"
)

var (
	PagelinksFile string
	SpillDir      string
	SpillBuffer   int64
)

var errPagelinksLanguages = errors.New("a pagelinks file holds a single language; --lang must name exactly one")

func newLinksCmd() *cobra.Command {
	linksCmd := &cobra.Command{
		Use:   "links",
		Short: "Extract page links and reconcile them with an optional pagelinks dump",
		Long:  "Extract page links from raw page wikitext.  When a pagelinks dump is given, its edges are inserted unless the same edge was already parsed from wikitext",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if err := runLinks(); err != nil {
				log.Fatalf("main: %s", err)
			}
		},
	}

	linksCmd.Flags().StringVarP(&Languages, "lang", "l", "", "Comma separated language set")
	linksCmd.Flags().BoolVarP(&Drop, "drop", "d", false, "Drop existing links before extracting")
	linksCmd.Flags().StringVarP(&PagelinksFile, "pagelinks", "p", PagelinksFile, "Tab separated pagelinks file (source id, namespace, title); requires a single language")
	linksCmd.Flags().StringVarP(&SpillDir, "spill-dir", "", SpillDir, "Parent directory for spill set scratch files (defaults to the system temp dir)")
	linksCmd.Flags().Int64VarP(&SpillBuffer, "spill-buffer", "", SpillBuffer, "Spill set in-memory buffer size in bytes (<=0 signifies derive from available memory)")

	return linksCmd
}

func runLinks() error {
	langs, err := requireLanguages(Languages)
	if err != nil {
		return err
	}
	if PagelinksFile != "" && len(langs) != 1 {
		return errPagelinksLanguages
	}

	return withJob(func(ctx context.Context, client *db.Client) error {
		if Drop {
			if err := client.Links.Clear(); err != nil {
				return err
			}
		}
		wl := &links.WikitextLoader{
			Pages:       client.RawPages,
			Titles:      client.LocalPages,
			Links:       client.Links,
			Counters:    client.Meta,
			Workers:     Workers,
			MaxInFlight: MaxInFlight,
		}
		all := map[domain.Language]interface{}{}
		err := bracket([]loader.Session{client.Links, client.Meta}, func() error {
			for _, lang := range langs {
				if PagelinksFile == "" {
					stats, err := wl.Load(ctx, lang)
					if err != nil {
						return err
					}
					all[lang] = stats
					continue
				}
				r := &links.Reconciler{
					Wikitext: wl,
					Spill: spillset.Config{
						Dir:         SpillDir,
						BufferBytes: SpillBuffer,
					},
					Workers:     Workers,
					MaxInFlight: MaxInFlight,
				}
				src := links.NewPagelinksSource(PagelinksFile)
				stats, err := r.Run(ctx, lang, src)
				if err != nil {
					return err
				}
				if skipped := src.Skipped(); skipped > 0 {
					log.WithField("file", PagelinksFile).Warnf("Skipped %v malformed pagelinks rows", skipped)
				}
				all[lang] = stats
			}
			return nil
		})
		if err != nil {
			return err
		}
		return emitJSON(all)
	})
}
