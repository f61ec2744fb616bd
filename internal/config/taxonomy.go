package config

import (
	"fmt"
	"os"

	"github.com/jengzang/crime-lisa-go/internal/models"
	"gopkg.in/yaml.v3"
)

// CrimeCategory groups crime types for display
type CrimeCategory struct {
	Name   string             `yaml:"name" json:"name"`
	Crimes []models.CrimeType `yaml:"crimes" json:"crimes"`
}

// Catalog is the crime taxonomy. It is built once at start-up and never
// modified afterwards, so it is safe to share between goroutines.
type Catalog struct {
	categories []CrimeCategory
	byCode     map[string]models.CrimeType
}

type catalogFile struct {
	Categories []CrimeCategory `yaml:"categories"`
}

// LoadCatalog reads a taxonomy YAML file. A missing file yields an empty catalog.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return ParseCatalog(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read taxonomy: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a taxonomy document
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode taxonomy: %w", err)
	}

	c := &Catalog{byCode: make(map[string]models.CrimeType)}
	for _, cat := range file.Categories {
		crimes := make([]models.CrimeType, 0, len(cat.Crimes))
		for _, ct := range cat.Crimes {
			if ct.Code == "" {
				return nil, fmt.Errorf("taxonomy category %q has a crime without code", cat.Name)
			}
			if _, dup := c.byCode[ct.Code]; dup {
				return nil, fmt.Errorf("taxonomy lists crime %q twice", ct.Code)
			}
			ct.Category = cat.Name
			if ct.Name == "" {
				ct.Name = ct.Code
			}
			c.byCode[ct.Code] = ct
			crimes = append(crimes, ct)
		}
		c.categories = append(c.categories, CrimeCategory{Name: cat.Name, Crimes: crimes})
	}
	return c, nil
}

// Categories returns a copy of the categories in file order
func (c *Catalog) Categories() []CrimeCategory {
	out := make([]CrimeCategory, len(c.categories))
	for i, cat := range c.categories {
		out[i] = CrimeCategory{Name: cat.Name, Crimes: append([]models.CrimeType(nil), cat.Crimes...)}
	}
	return out
}

// CrimeTypes returns every crime type in file order
func (c *Catalog) CrimeTypes() []models.CrimeType {
	var out []models.CrimeType
	for _, cat := range c.categories {
		out = append(out, cat.Crimes...)
	}
	return out
}

// Lookup returns the taxonomy entry of a crime code
func (c *Catalog) Lookup(code string) (models.CrimeType, bool) {
	ct, ok := c.byCode[code]
	return ct, ok
}

// Name returns the display name of a crime code, or the code itself
func (c *Catalog) Name(code string) string {
	if ct, ok := c.byCode[code]; ok {
		return ct.Name
	}
	return code
}

// Len returns the number of crime types
func (c *Catalog) Len() int {
	return len(c.byCode)
}
