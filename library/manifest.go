package library

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// ManifestEntry is one book of an import manifest.
type ManifestEntry struct {
	Title  string `yaml:"title"`
	Author string `yaml:"author"`
	Year   int    `yaml:"year"`
}

// Manifest is the YAML document read by the bulk importer:
//
//	books:
//	  - title: War and Peace
//	    author: Leo Tolstoy
//	    year: 1869
type Manifest struct {
	Books []ManifestEntry `yaml:"books"`
}

// ReadManifest decodes a manifest. Unknown keys are rejected.
func ReadManifest(r io.Reader) ([]ManifestEntry, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var m Manifest
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return m.Books, nil
}

// Validate reports why an entry cannot be imported.
func (e ManifestEntry) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("title cannot be empty")
	}
	return nil
}
