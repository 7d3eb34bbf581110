package db

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

const (
	TableRawPages        = "raw-pages"
	TableLocalPages      = "local-pages"
	TableLocalPageTitles = "local-page-titles"
	TableLocalLinks      = "local-links"
	TableRedirects       = "redirects"
	TableMetaInfo        = "meta-info"
)

var (
	tables = []string{
		TableRawPages,
		TableLocalPages,
		TableLocalPageTitles,
		TableLocalLinks,
		TableRedirects,
		TableMetaInfo,
	}
)

// Tables returns the names of every table managed by the stores.
func Tables() []string {
	out := make([]string, len(tables))
	copy(out, tables)
	return out
}

// Client bundles an opened backend with the stores layered on top of it.
type Client struct {
	Backend    Backend
	RawPages   *RawPageStore
	LocalPages *LocalPageStore
	Links      *LocalLinkStore
	Redirects  *RedirectStore
	Meta       *MetaInfoStore
}

// NewClient constructs the stores over an unopened backend.  reg may be nil,
// in which case counters are not exported to prometheus.
func NewClient(config Config, reg prometheus.Registerer) (*Client, error) {
	be, err := NewBackend(config)
	if err != nil {
		return nil, err
	}
	meta, err := NewMetaInfoStore(be, reg)
	if err != nil {
		return nil, err
	}
	redirects := NewRedirectStore(be)
	c := &Client{
		Backend:    be,
		RawPages:   NewRawPageStore(be),
		LocalPages: NewLocalPageStore(be, redirects),
		Links:      NewLocalLinkStore(be),
		Redirects:  redirects,
		Meta:       meta,
	}
	return c, nil
}

func (c *Client) Open() error {
	if err := c.Backend.Open(); err != nil {
		return err
	}
	if err := c.Meta.load(); err != nil {
		return fmt.Errorf("loading persisted counters: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.Backend.Close()
}

// Drop empties the named tables, or every table when none are given.
func (c *Client) Drop(names ...string) error {
	if len(names) == 0 {
		names = tables
	}
	for _, name := range names {
		if name == TableMetaInfo {
			c.Meta.reset()
		}
	}
	return c.Backend.Drop(names...)
}

// WithClient is a convenience utility which handles client construction,
// open, and close.
func WithClient(config Config, reg prometheus.Registerer, fn func(c *Client) error) (err error) {
	c, err := NewClient(config, reg)
	if err != nil {
		return err
	}

	if err = c.Open(); err != nil {
		return fmt.Errorf("opening %v client: %w", config.Type(), err)
	}
	defer func() {
		if closeErr := c.Close(); closeErr != nil {
			if err == nil {
				err = fmt.Errorf("closing %v client: %w", config.Type(), closeErr)
			} else {
				log.Errorf("Also encountered problem closing %v client: %s", config.Type(), closeErr)
				err = multierror.Append(err, closeErr)
			}
		}
	}()

	err = fn(c)
	return
}
