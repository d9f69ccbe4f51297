package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"smf/internal/core"
)

// CatalogTable is one entry of the optional catalog YAML used to seed the
// schema registry before extraction.
type CatalogTable struct {
	Namespace string          `yaml:"namespace"`
	Name      string          `yaml:"name"`
	Columns   []CatalogColumn `yaml:"columns"`
}

type CatalogColumn struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Nullable *bool  `yaml:"nullable"`
	Ordinal  *int   `yaml:"ordinal"`
}

type catalogFile struct {
	Tables []CatalogTable `yaml:"tables"`
}

// LoadCatalog parses a catalog YAML file into TableSchema values, keyed by
// the namespace the caller should register them under (defaultNamespace
// when a table entry omits its own).
func LoadCatalog(path, defaultNamespace string) ([]core.TableSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	var cf catalogFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parsing catalog %s: %w", path, err)
	}
	out := make([]core.TableSchema, 0, len(cf.Tables))
	for _, t := range cf.Tables {
		ns := t.Namespace
		if ns == "" {
			ns = defaultNamespace
		}
		cols := make([]core.ColumnSchema, len(t.Columns))
		for i, c := range t.Columns {
			nullable := true
			if c.Nullable != nil {
				nullable = *c.Nullable
			}
			ordinal := i
			if c.Ordinal != nil {
				ordinal = *c.Ordinal
			}
			dataType := c.Type
			if dataType == "" {
				dataType = "unknown"
			}
			cols[i] = core.ColumnSchema{Name: c.Name, DataType: dataType, Nullable: nullable, Ordinal: ordinal}
		}
		out = append(out, core.TableSchema{Namespace: ns, QualifiedName: t.Name, Columns: cols})
	}
	return out, nil
}
