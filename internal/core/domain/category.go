package domain

import (
	"fmt"
	"strings"
)

// DefaultCategoryName is the conservative fallback category.
const DefaultCategoryName = "Unrelated"

// Category is one label of the closed taxonomy.
type Category struct {
	// ID is the position of the category in its taxonomy.
	ID int `json:"id" yaml:"-"`

	// Name is the key the annotator must answer with.
	Name string `json:"name" yaml:"name"`

	// Definition is the guidance shown to the annotator.
	Definition string `json:"definition,omitempty" yaml:"definition"`

	// Default marks the category used on ambiguity and on failure.
	Default bool `json:"default,omitempty" yaml:"default"`
}

// Taxonomy is a fixed, ordered set of categories with exactly one default.
type Taxonomy struct {
	Categories []Category
}

// NewTaxonomy numbers the categories by position and validates the set.
func NewTaxonomy(categories []Category) (*Taxonomy, error) {
	t := &Taxonomy{Categories: make([]Category, len(categories))}
	for i, c := range categories {
		c.ID = i
		c.Name = strings.TrimSpace(c.Name)
		t.Categories[i] = c
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks that names are unique and non-empty and that exactly one
// category is the default.
func (t *Taxonomy) Validate() error {
	if len(t.Categories) == 0 {
		return fmt.Errorf("%w: empty taxonomy", ErrInvalidSettings)
	}
	seen := make(map[string]struct{}, len(t.Categories))
	defaults := 0
	for _, c := range t.Categories {
		if c.Name == "" {
			return fmt.Errorf("%w: category without name", ErrInvalidSettings)
		}
		key := strings.ToLower(c.Name)
		if _, ok := seen[key]; ok {
			return fmt.Errorf("%w: duplicate category %q", ErrInvalidSettings, c.Name)
		}
		seen[key] = struct{}{}
		if c.Default {
			defaults++
		}
	}
	if defaults != 1 {
		return fmt.Errorf("%w: taxonomy needs exactly one default category, found %d", ErrInvalidSettings, defaults)
	}
	return nil
}

// Len returns the number of categories.
func (t *Taxonomy) Len() int {
	return len(t.Categories)
}

// Default returns the default category.
func (t *Taxonomy) Default() Category {
	for _, c := range t.Categories {
		if c.Default {
			return c
		}
	}
	return t.Categories[len(t.Categories)-1]
}

// Lookup finds a category by name, ignoring case and surrounding whitespace.
func (t *Taxonomy) Lookup(name string) (Category, bool) {
	name = strings.TrimSpace(name)
	for _, c := range t.Categories {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Category{}, false
}

// Resolve maps a name to its category, falling back to the default.
func (t *Taxonomy) Resolve(name string) Category {
	if c, ok := t.Lookup(name); ok {
		return c
	}
	return t.Default()
}

// Names returns the category names in order.
func (t *Taxonomy) Names() []string {
	out := make([]string, len(t.Categories))
	for i, c := range t.Categories {
		out[i] = c.Name
	}
	return out
}

// DefaultTaxonomy returns the eight legal categories for AI-related case law.
//
//nolint:lll // Definitions are prompt content.
func DefaultTaxonomy() *Taxonomy {
	t, _ := NewTaxonomy([]Category{
		{Name: "Antitrust", Definition: "Market competition, monopolisation or anti-competitive practices involving tech platforms or AI companies."},
		{Name: "IP Law", Definition: "Patents, copyrights or trademarks for AI models or tech, training data disputes, ownership of AI-generated content."},
		{Name: "Privacy and Data Protection", Definition: "Data breaches, unauthorised data collection by automated systems, privacy violations involving algorithms or data processing."},
		{Name: "Tort", Definition: "Physical harm, emotional distress, negligence or defamation involving automated systems or algorithms."},
		{Name: "Justice and Equity", Definition: "Discrimination or bias caused by AI, automated systems or algorithms (hiring, lending, search). Not for discrimination without automation."},
		{Name: "Consumer Protection", Definition: "Deceptive or unfair practices with tech or automated systems, misleading marketing of tech products or AI capabilities."},
		{Name: "AI in Legal Proceedings", Definition: "AI tools used in court processes, case management or litigation where the dispute itself is not about AI."},
		{Name: DefaultCategoryName, Definition: "No meaningful connection to AI, machine learning or automated systems.", Default: true},
	})
	return t
}
