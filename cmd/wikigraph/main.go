package main

import (
	"encoding/json"
	"fmt"
	"runtime"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	DBDriver    = "bolt"
	DBFile      = "wikigraph.bolt"
	Quiet       bool
	Verbose     bool
	Workers     = runtime.NumCPU()
	MaxInFlight int
	MetricsAddr string

	Languages string
	Drop      bool
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "wikigraph",
		Short: "Wiki dump ingestion pipeline",
		Long:  "Loads wiki page dumps, resolves redirects and reconciles page links into a key/value store",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			initLogging()
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&Quiet, "quiet", "q", Quiet, "Activate quiet log output")
	rootCmd.PersistentFlags().BoolVarP(&Verbose, "verbose", "v", Verbose, "Activate verbose log output")
	rootCmd.PersistentFlags().StringVarP(&DBDriver, "driver", "D", DBDriver, "DB driver backend, one of: bolt, postgres")
	rootCmd.PersistentFlags().StringVarP(&DBFile, "db", "b", DBFile, "Path to BoltDB file or postgres connection string")
	rootCmd.PersistentFlags().IntVarP(&Workers, "workers", "w", Workers, "Number of worker goroutines")
	rootCmd.PersistentFlags().IntVarP(&MaxInFlight, "max-in-flight", "m", MaxInFlight, "Maximum items in flight at once (<=0 signifies 4 per worker)")
	rootCmd.PersistentFlags().StringVarP(&MetricsAddr, "metrics-addr", "", MetricsAddr, "Bind address (host:port) serving prometheus metrics while a job runs")

	rootCmd.AddCommand(
		newLoadCmd(),
		newRedirectsCmd(),
		newLinksCmd(),
		newStatsCmd(),
	)

	return rootCmd
}

func main() {
	if err := doConfig(); err != nil {
		log.Fatal(err)
	}
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func initLogging() {
	level := log.InfoLevel
	if Verbose {
		log.SetReportCaller(true)
		level = log.DebugLevel
	}
	if Quiet {
		level = log.ErrorLevel
	}
	log.SetLevel(level)
}

func emitJSON(x interface{}) error {
	bs, err := json.MarshalIndent(x, "", "    ")
	if err != nil {
		return err
	}
	fmt.Printf("%v\n", string(bs))
	return nil
}
