package file

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/casemap/internal/core/domain"
	"github.com/custodia-labs/casemap/internal/core/ports/driven"
)

// Ensure TaxonomyStore implements the interface.
var _ driven.TaxonomyStore = (*TaxonomyStore)(nil)

// TaxonomyStore reads the category set from a YAML file:
//
//	categories:
//	  - name: Antitrust
//	    definition: market competition and monopolisation
//	  - name: Unrelated
//	    definition: no meaningful connection to automated systems
//	    default: true
//
// An empty path yields the built-in taxonomy.
type TaxonomyStore struct {
	path string
}

type taxonomyFile struct {
	Categories []domain.Category `yaml:"categories"`
}

// NewTaxonomyStore creates a store reading path.
func NewTaxonomyStore(path string) *TaxonomyStore {
	return &TaxonomyStore{path: path}
}

// Load parses and validates the taxonomy file.
func (s *TaxonomyStore) Load() (*domain.Taxonomy, error) {
	if s.path == "" {
		return domain.DefaultTaxonomy(), nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("taxonomy %s: %w", s.path, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("read taxonomy: %w", err)
	}

	var f taxonomyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse taxonomy %s: %w: %w", s.path, domain.ErrInvalidSettings, err)
	}

	taxonomy, err := domain.NewTaxonomy(f.Categories)
	if err != nil {
		return nil, fmt.Errorf("taxonomy %s: %w", s.path, err)
	}
	return taxonomy, nil
}

// WriteTaxonomy writes t to path in the format Load reads.
func WriteTaxonomy(path string, t *domain.Taxonomy) error {
	data, err := yaml.Marshal(taxonomyFile{Categories: t.Categories})
	if err != nil {
		return fmt.Errorf("encode taxonomy: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}
