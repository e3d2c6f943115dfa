package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"ytcollect/storage"
)

// categoryFile is the on-disk shape of the category list. JSON files parse
// as YAML.
type categoryFile struct {
	Categories []storage.Category `yaml:"categories"`
}

// LoadCategories reads the category list at path.
func LoadCategories(path string) ([]storage.Category, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read categories: %w", err)
	}
	cats, err := ParseCategories(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cats, nil
}

// ParseCategories decodes and validates a category list. IDs and names are
// trimmed; order is preserved.
func ParseCategories(data []byte) ([]storage.Category, error) {
	var f categoryFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse categories: %w", err)
	}
	if len(f.Categories) == 0 {
		return nil, fmt.Errorf("no categories configured")
	}

	seen := make(map[string]bool, len(f.Categories))
	out := make([]storage.Category, 0, len(f.Categories))
	for i, c := range f.Categories {
		c.ID = strings.TrimSpace(c.ID)
		c.Name = strings.TrimSpace(c.Name)
		if c.ID == "" {
			return nil, fmt.Errorf("category %d: empty id", i)
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("category %d: duplicate id %q", i, c.ID)
		}
		seen[c.ID] = true
		out = append(out, c)
	}
	return out, nil
}
