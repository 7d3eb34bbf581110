package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"jaytaylor.com/wikigraph/db"
	"jaytaylor.com/wikigraph/domain"
	"jaytaylor.com/wikigraph/loader"
	"jaytaylor.com/wikigraph/pkg/unique"
)

// withJob validates the DB configuration, opens a client and runs fn with a
// context which is cancelled on SIGINT or SIGTERM.  When MetricsAddr is set
// the registry is served over HTTP for the duration of the job.
func withJob(fn func(ctx context.Context, client *db.Client) error) error {
	cfg, err := db.NewConfig(DBDriver, DBFile)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if MetricsAddr != "" {
		srv := serveMetrics(MetricsAddr, reg)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Warnf("Shutting down metrics server: %s", err)
			}
		}()
	}

	return db.WithClient(cfg, reg, func(client *db.Client) error {
		return fn(ctx, client)
	})
}

func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.WithField("addr", addr).Info("Serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("Metrics server: %s", err)
		}
	}()
	return srv
}

// requireLanguages parses the --lang flag value, which jobs other than load
// cannot run without.
func requireLanguages(s string) ([]domain.Language, error) {
	if s == "" {
		return nil, fmt.Errorf("at least one language must be given with --lang")
	}
	return domain.ParseLanguages(s)
}

// parseNamespaces parses namespace names or numbers, dropping repeats.
func parseNamespaces(names []string) ([]domain.Namespace, error) {
	namespaces := make([]domain.Namespace, 0, len(names))
	for _, name := range names {
		ns, ok := domain.ParseNamespace(name)
		if !ok {
			return nil, fmt.Errorf("unrecognized namespace %q", name)
		}
		namespaces = append(namespaces, ns)
	}
	return unique.Slice(namespaces), nil
}

// bracket runs fn between BeginLoad and EndLoad of every session, merging
// the EndLoad errors into the result.
func bracket(sessions []loader.Session, fn func() error) (err error) {
	begun := 0
	defer func() {
		for i := begun - 1; i >= 0; i-- {
			if endErr := sessions[i].EndLoad(); endErr != nil {
				if err == nil {
					err = endErr
				} else {
					log.Errorf("Ending load session: %s", endErr)
				}
			}
		}
	}()
	for _, s := range sessions {
		if err = s.BeginLoad(); err != nil {
			return
		}
		begun++
	}
	err = fn()
	return
}
