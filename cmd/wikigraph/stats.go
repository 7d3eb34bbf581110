package main

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"jaytaylor.com/wikigraph/db"
)

type statsReport struct {
	Counters []db.MetaInfo  `json:"counters"`
	Tables   map[string]int `json:"tables"`
}

func newStatsCmd() *cobra.Command {
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Emit load counters and table sizes as JSON",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if err := runStats(); err != nil {
				log.Fatalf("main: %s", err)
			}
		},
	}
	return statsCmd
}

func runStats() error {
	return withJob(func(_ context.Context, client *db.Client) error {
		started := time.Now()
		report := statsReport{
			Counters: client.Meta.Counts(),
			Tables:   map[string]int{},
		}
		for _, table := range db.Tables() {
			n, err := client.Backend.Len(table)
			if err != nil {
				return err
			}
			report.Tables[table] = n
		}
		log.WithField("duration", time.Since(started)).Debug("Collected stats")
		return emitJSON(report)
	})
}
