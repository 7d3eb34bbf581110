package db

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
)

type Type int

const (
	Bolt Type = iota
	Postgres
)

func (t Type) String() string {
	switch t {
	case Bolt:
		return "bolt"
	case Postgres:
		return "postgres"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

type Config interface {
	Type() Type // Configuration type specifier.
}

// NewConfig builds the configuration for a named driver.  For bolt the
// location is a file path, for postgres a connection string.
func NewConfig(driver string, location string) (Config, error) {
	switch driver {
	case "bolt", "boltdb":
		return NewBoltConfig(location), nil

	case "postgres", "postgresql", "pg":
		return NewPostgresConfig(location), nil

	default:
		return nil, fmt.Errorf("unrecognized or unsupported DB driver %q", driver)
	}
}

// NewBackend constructs an unopened backend for the configuration.
func NewBackend(config Config) (Backend, error) {
	switch typ := config.Type(); typ {
	case Bolt:
		return NewBoltBackend(config.(*BoltConfig)), nil

	case Postgres:
		return NewPostgresBackend(config.(*PostgresConfig)), nil

	default:
		return nil, fmt.Errorf("no backend constructor available for db configuration type: %v", typ)
	}
}

// WithBackend is a convenience utility which handles backend construction,
// open, and close.
func WithBackend(config Config, fn func(be Backend) error) (err error) {
	be, err := NewBackend(config)
	if err != nil {
		return err
	}

	if err = be.Open(); err != nil {
		return fmt.Errorf("opening %v backend: %w", config.Type(), err)
	}
	defer func() {
		if closeErr := be.Close(); closeErr != nil {
			if err == nil {
				err = fmt.Errorf("closing %v backend: %w", config.Type(), closeErr)
			} else {
				log.Errorf("Also encountered problem closing %v backend: %s", config.Type(), closeErr)
				err = multierror.Append(err, closeErr)
			}
		}
	}()

	err = fn(be)
	return
}
