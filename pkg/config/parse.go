package config

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed default_catalog.yaml
var defaultCatalogYAML []byte

// DefaultCatalog returns a fresh copy of the built-in catalog.
func DefaultCatalog() *Catalog {
	cat, err := ParseCatalogYAML(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("built-in catalog is invalid: %v", err))
	}
	return cat
}

// DefaultCatalogYAML returns the raw YAML of the built-in catalog
func DefaultCatalogYAML() []byte {
	out := make([]byte, len(defaultCatalogYAML))
	copy(out, defaultCatalogYAML)
	return out
}

// ParseCatalogYAML parses a Catalog from YAML bytes and validates it.
// This is used for APIs where the catalog is provided as payload (not via filesystem).
func ParseCatalogYAML(data []byte) (*Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("failed to parse catalog yaml: %w", err)
	}

	if err := ValidateCatalog(&cat); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	cat.sortScenarios()

	return &cat, nil
}

// ParseCatalogYAMLString parses a Catalog from a YAML string and validates it.
func ParseCatalogYAMLString(yamlText string) (*Catalog, error) {
	return ParseCatalogYAML([]byte(yamlText))
}

// MarshalCatalogYAML renders a catalog back to YAML
func MarshalCatalogYAML(cat *Catalog) ([]byte, error) {
	out, err := yaml.Marshal(cat)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal catalog: %w", err)
	}
	return out, nil
}
