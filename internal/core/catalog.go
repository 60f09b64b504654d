package core

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog is the YAML document declaring the served tables.
//
//	tables:
//	  - key: customers
//	    label: Customers
//	    group: CRM
//	    keyColumn: id
//	    editable: true
//	    pageSize: 20
//	    columns:
//	      - title: Name
//	        dataIndex: name
//	        valueType: string
//	        filterable: true
//	        editable: true
//	      - title: Email
//	        dataIndex: email
//	        valueType: string
//	        editable: true
//	        optional: true
type Catalog struct {
	Tables []CatalogTable `yaml:"tables"`
}

// CatalogTable is one table entry of a Catalog.
type CatalogTable struct {
	TableInfo `yaml:",inline"`
	Editable  bool        `yaml:"editable"`
	PageSize  int         `yaml:"pageSize,omitempty"`
	Columns   []FieldSpec `yaml:"columns"`
}

// Definition converts the entry to a TableDefinition.
func (t CatalogTable) Definition() TableDefinition {
	return TableDefinition{
		Info:     t.TableInfo,
		Fields:   t.Columns,
		Editable: t.Editable,
		PageSize: t.PageSize,
	}
}

// ParseCatalog decodes a catalog, rejecting unknown keys.
func ParseCatalog(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var c Catalog
	if err := dec.Decode(&c); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse catalog: empty document")
		}
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(c.Tables) == 0 {
		return nil, fmt.Errorf("parse catalog: no tables declared")
	}
	return &c, nil
}

// LoadCatalog reads and parses the catalog file at path.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(bytes.NewReader(data))
}

// Register adds every table of the catalog to the registry. All
// entries are checked before any is registered.
func (c *Catalog) Register() error {
	seen := make(map[string]bool, len(c.Tables))
	var errs []error
	for _, t := range c.Tables {
		if seen[t.Key] {
			errs = append(errs, fmt.Errorf("table %s declared twice", t.Key))
		}
		seen[t.Key] = true
		if _, exists := Get(t.Key); exists {
			errs = append(errs, fmt.Errorf("table already registered: %s", t.Key))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	for _, t := range c.Tables {
		if err := register(t.Definition()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Encode writes the catalog back as YAML.
func (c *Catalog) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	return enc.Close()
}
