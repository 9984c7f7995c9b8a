// Package template maintains the catalog of document templates a job can
// reference by TemplateID. The catalog holds descriptive metadata only; the
// template content itself lives with whichever renderer interprets the ID.
package template

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/docugen/docugen/pkg/engine"
)

// Info describes one registered template.
type Info struct {
	// ID is the unique template identifier referenced by job settings (slug).
	ID string `yaml:"id"`

	// Name is the human-readable template name.
	Name string `yaml:"name"`

	// Version of the template definition.
	Version string `yaml:"version"`

	// Author of the template.
	Author string `yaml:"author,omitempty"`

	// Description summarizes the template's layout.
	Description string `yaml:"description,omitempty"`

	// DocumentTypes lists the document kinds the template can lay out.
	// Empty means all kinds.
	DocumentTypes []string `yaml:"document_types,omitempty"`

	// BuiltIn marks templates shipped with the binary.
	BuiltIn bool `yaml:"-"`
}

// Supports reports whether the template can lay out the given document type.
func (i *Info) Supports(docType engine.DocumentType) bool {
	if len(i.DocumentTypes) == 0 {
		return true
	}
	for _, dt := range i.DocumentTypes {
		if dt == docType.String() {
			return true
		}
	}
	return false
}

// validate checks the manifest fields.
func (i *Info) validate() error {
	if i.ID == "" {
		return fmt.Errorf("template ID cannot be empty")
	}
	if i.Name == "" {
		return fmt.Errorf("template name cannot be empty")
	}
	for _, dt := range i.DocumentTypes {
		if _, err := engine.ParseDocumentType(dt); err != nil {
			return fmt.Errorf("template %q: %w", i.ID, err)
		}
	}
	return nil
}

// Catalog is the set of known templates, keyed by ID.
type Catalog struct {
	templates map[string]*Info
}

// NewCatalog creates a catalog pre-populated with the built-in templates.
func NewCatalog() *Catalog {
	c := &Catalog{templates: make(map[string]*Info)}
	for _, info := range builtins() {
		c.templates[info.ID] = info
	}
	return c
}

// builtins returns the templates shipped with the binary.
func builtins() []*Info {
	return []*Info{
		{
			ID:          "default",
			Name:        "Default",
			Version:     "1.0",
			Description: "Plain layout accepting any document type",
			BuiltIn:     true,
		},
		{
			ID:            "invoice-a4",
			Name:          "Invoice A4",
			Version:       "1.0",
			Description:   "Single-page A4 invoice",
			DocumentTypes: []string{"invoice"},
			BuiltIn:       true,
		},
		{
			ID:            "quote-letter",
			Name:          "Quote Letter",
			Version:       "1.0",
			Description:   "Quotation in letter form",
			DocumentTypes: []string{"quote"},
			BuiltIn:       true,
		},
		{
			ID:            "receipt-compact",
			Name:          "Receipt Compact",
			Version:       "1.0",
			Description:   "Compact payment receipt",
			DocumentTypes: []string{"receipt"},
			BuiltIn:       true,
		},
		{
			ID:            "statement-a4",
			Name:          "Statement A4",
			Version:       "1.0",
			Description:   "Account statement, A4 portrait",
			DocumentTypes: []string{"statement"},
			BuiltIn:       true,
		},
	}
}

// Register adds a template to the catalog, replacing any existing entry with
// the same ID.
func (c *Catalog) Register(info *Info) error {
	if info == nil {
		return fmt.Errorf("template info cannot be nil")
	}
	if err := info.validate(); err != nil {
		return err
	}
	c.templates[info.ID] = info
	return nil
}

// Get retrieves a template by ID.
func (c *Catalog) Get(id string) (*Info, bool) {
	info, ok := c.templates[id]
	return info, ok
}

// Has reports whether a template with the given ID is registered.
func (c *Catalog) Has(id string) bool {
	_, ok := c.templates[id]
	return ok
}

// List returns all registered templates, sorted by ID.
func (c *Catalog) List() []*Info {
	infos := make([]*Info, 0, len(c.templates))
	for _, info := range c.templates {
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].ID < infos[j].ID
	})
	return infos
}

// Count returns the number of registered templates.
func (c *Catalog) Count() int {
	return len(c.templates)
}

// LoadDir merges template manifests (*.yaml, *.yml) from a directory into the
// catalog. A manifest with the same ID as a built-in overrides it.
func (c *Catalog) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read templates directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read manifest %s: %w", entry.Name(), err)
		}

		var info Info
		if err := yaml.Unmarshal(data, &info); err != nil {
			return fmt.Errorf("failed to parse manifest %s: %w", entry.Name(), err)
		}
		if err := c.Register(&info); err != nil {
			return fmt.Errorf("manifest %s: %w", entry.Name(), err)
		}
	}

	return nil
}
