package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	log "github.com/sirupsen/logrus"
)

// ConfigEnvVar names an explicit configuration file, taking precedence over
// the search paths.
const ConfigEnvVar = "WIKIGRAPH_CONFIG"

var DefaultConfigSearchPaths = []string{
	filepath.Join(os.Getenv("HOME"), ".wikigraph.toml"),
	filepath.Join(os.Getenv("HOME"), ".config", "wikigraph.toml"),
}

// Config is the TOML configuration struct.  When a ~/.wikigraph.toml or
// ~/.config/wikigraph.toml file exists, the values contained therein will
// override the compiled-in defaults.
type Config struct {
	Driver      string `toml:"driver"`
	DB          string `toml:"db"`
	Workers     int    `toml:"workers"`
	MaxInFlight int    `toml:"max-in-flight"`
	MetricsAddr string `toml:"metrics-addr"`
	Quiet       bool   `toml:"quiet"`
	Verbose     bool   `toml:"verbose"`

	File string `toml:"-"` // Location the configuration was read from.
}

func NewConfig() *Config {
	return &Config{}
}

// Do locates, parses and applies a configuration file if one exists.
func (config *Config) Do() error {
	file, err := findConfigFile()
	if err != nil {
		return fmt.Errorf("locating wikigraph TOML configuration: %w", err)
	}

	if len(file) == 0 {
		// No configuration file found.
		return nil
	}

	if _, err := toml.DecodeFile(file, config); err != nil {
		return fmt.Errorf("parsing wikigraph TOML configuration file %q: %w", file, err)
	}
	config.File = file

	log.WithField("file", file).Debug("Applying configuration")
	config.Apply()
	return nil
}

func (config *Config) Apply() {
	if len(config.Driver) > 0 {
		DBDriver = config.Driver
	}
	if len(config.DB) > 0 {
		DBFile = config.DB
	}
	if config.Workers > 0 {
		Workers = config.Workers
	}
	if config.MaxInFlight > 0 {
		MaxInFlight = config.MaxInFlight
	}
	if len(config.MetricsAddr) > 0 {
		MetricsAddr = config.MetricsAddr
	}
	if config.Quiet {
		Quiet = true
	}
	if config.Verbose {
		Verbose = true
	}
}

// doConfig handles initialization and application of new default values if a
// configuration file is found.
func doConfig() error {
	return NewConfig().Do()
}

// findConfigFile returns $WIKIGRAPH_CONFIG when set, otherwise the first of
// DefaultConfigSearchPaths which exists.
//
// If no config file is found, ("", nil) is returned.
func findConfigFile() (string, error) {
	if explicit := os.Getenv(ConfigEnvVar); explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", err
		}
		return explicit, nil
	}
	for _, path := range DefaultConfigSearchPaths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		} else if os.IsNotExist(err) {
			continue
		} else if err != nil {
			return "", err
		}
	}
	return "", nil
}
