package main

import (
	"context"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"jaytaylor.com/wikigraph/db"
	"jaytaylor.com/wikigraph/domain"
	"jaytaylor.com/wikigraph/loader"
	"jaytaylor.com/wikigraph/redirect"
)

var MaxHops = redirect.DefaultMaxHops

func newRedirectsCmd() *cobra.Command {
	redirectsCmd := &cobra.Command{
		Use:   "redirects",
		Short: "Resolve redirect pages to their final targets",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if err := runRedirects(); err != nil {
				log.Fatalf("main: %s", err)
			}
		},
	}

	redirectsCmd.Flags().StringVarP(&Languages, "lang", "l", "", "Comma separated language set")
	redirectsCmd.Flags().BoolVarP(&Drop, "drop", "d", false, "Drop existing redirects before resolving")
	redirectsCmd.Flags().IntVarP(&MaxHops, "max-hops", "", MaxHops, "Maximum number of redirect hops followed per chain")

	return redirectsCmd
}

func runRedirects() error {
	langs, err := requireLanguages(Languages)
	if err != nil {
		return err
	}

	return withJob(func(ctx context.Context, client *db.Client) error {
		if Drop {
			if err := client.Redirects.Clear(); err != nil {
				return err
			}
		}
		r := &redirect.Resolver{
			Pages:     client.RawPages,
			Titles:    client.LocalPages,
			Redirects: client.Redirects,
			Counters:  client.Meta,
			MaxHops:   MaxHops,
		}
		all := map[domain.Language]*redirect.Stats{}
		err := bracket([]loader.Session{client.Redirects, client.Meta}, func() error {
			for _, lang := range langs {
				stats, err := r.Run(ctx, lang)
				if err != nil {
					return err
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
