// Package classify assigns bookmarks to categories by keyword overlap
// against a YAML taxonomy.
package classify

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default_taxonomy.yaml
var defaultTaxonomy []byte

// Category is one taxonomy entry.
type Category struct {
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Keywords    []string `yaml:"keywords" json:"keywords"`
}

// Taxonomy is the ordered category list.
type Taxonomy struct {
	Categories []Category `yaml:"categories"`
}

// LoadTaxonomy reads a taxonomy file; an empty path loads the built-in
// default set.
func LoadTaxonomy(filePath string) (*Taxonomy, error) {
	data := defaultTaxonomy
	if filePath != "" {
		var err error
		data, err = os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read taxonomy file: %w", err)
		}
	}

	var t Taxonomy
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse taxonomy yaml: %w", err)
	}
	if len(t.Categories) == 0 {
		return nil, fmt.Errorf("taxonomy has no categories")
	}
	return &t, nil
}
