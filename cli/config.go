package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the optional YAML configuration file. Unset keys keep the flag
// defaults; flags given on the command line win over the file.
//
//	data_file: data/books.tsv
//	log_level: warn
//	format: text
//	atomic_save: false
type Config struct {
	DataFile   string `yaml:"data_file"`
	LogLevel   string `yaml:"log_level"`
	Format     string `yaml:"format"`
	AtomicSave *bool  `yaml:"atomic_save"`
}

// LoadConfig reads and strictly decodes the file at path. An empty or
// comment-only file yields an empty Config.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	var cfg Config
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	return &cfg, nil
}

// apply copies the file values into opts unless the matching flag was set.
func (c *Config) apply(opts *RootOptions, changed func(flag string) bool) {
	if c.DataFile != "" && !changed("data") {
		opts.DataFile = c.DataFile
	}
	if c.LogLevel != "" && !changed("log-level") {
		opts.LogLevel = c.LogLevel
	}
	if c.Format != "" && !changed("format") {
		opts.Format = c.Format
	}
	if c.AtomicSave != nil && !changed("atomic") {
		opts.Atomic = *c.AtomicSave
	}
}
