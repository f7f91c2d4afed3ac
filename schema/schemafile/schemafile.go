// Package schemafile loads a schema.Registry from a YAML document.
//
//	entities:
//	  - name: Cake
//	    columns:
//	      - {name: id, type: int}
//	      - {name: bakery_id, type: int, nullable: true}
//	    relations:
//	      - {kind: belongs_to, to: Bakery}
package schemafile

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/relkit/relkit/schema"
)

// File is the YAML document layout.
type File struct {
	Entities []Entity `yaml:"entities"`
}

// Entity declares one entity.
type Entity struct {
	Name       string     `yaml:"name"`
	Table      string     `yaml:"table,omitempty"`
	Schema     string     `yaml:"schema,omitempty"`
	Columns    []Column   `yaml:"columns"`
	PrimaryKey []string   `yaml:"primary_key,omitempty"`
	Relations  []Relation `yaml:"relations,omitempty"`
}

// Column declares one column.
type Column struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Nullable bool   `yaml:"nullable,omitempty"`
}

// Relation declares one relation.
type Relation struct {
	Name        string   `yaml:"name,omitempty"`
	Kind        string   `yaml:"kind"`
	To          string   `yaml:"to"`
	FromColumns []string `yaml:"from_columns,omitempty"`
	ToColumns   []string `yaml:"to_columns,omitempty"`
	Through     *Through `yaml:"through,omitempty"`
}

// Through declares the join entity of a many-to-many relation.
type Through struct {
	Entity      string   `yaml:"entity"`
	FromColumns []string `yaml:"from_columns,omitempty"`
	ToColumns   []string `yaml:"to_columns,omitempty"`
}

// Load reads and parses the registry file at path.
func Load(path string) (*schema.Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schemafile: read %s: %w", path, err)
	}
	return Parse(bytes.NewReader(data))
}

// Parse decodes a registry document from r.
func Parse(r io.Reader) (*schema.Registry, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("schemafile: decode: %w", err)
	}
	defs, err := f.Defs()
	if err != nil {
		return nil, err
	}
	return schema.NewRegistry(defs...)
}

// Defs converts the document into registry declarations.
func (f *File) Defs() ([]schema.Def, error) {
	defs := make([]schema.Def, 0, len(f.Entities))
	for _, e := range f.Entities {
		d := schema.Def{
			Name:       e.Name,
			Table:      e.Table,
			Schema:     e.Schema,
			PrimaryKey: e.PrimaryKey,
		}
		for _, c := range e.Columns {
			typ, err := schema.ParseColumnType(c.Type)
			if err != nil {
				return nil, fmt.Errorf("schemafile: column %s.%s: %w", e.Name, c.Name, err)
			}
			d.Columns = append(d.Columns, schema.Column{Name: c.Name, Type: typ, Nullable: c.Nullable})
		}
		for _, r := range e.Relations {
			kind, err := schema.ParseRelationKind(r.Kind)
			if err != nil {
				return nil, fmt.Errorf("schemafile: relation %s.%s: %w", e.Name, r.Name, err)
			}
			rd := schema.RelationDef{
				Name:        r.Name,
				Kind:        kind,
				To:          r.To,
				FromColumns: r.FromColumns,
				ToColumns:   r.ToColumns,
			}
			if r.Through != nil {
				rd.Through = &schema.ThroughDef{
					Entity:      r.Through.Entity,
					FromColumns: r.Through.FromColumns,
					ToColumns:   r.Through.ToColumns,
				}
			}
			d.Relations = append(d.Relations, rd)
		}
		defs = append(defs, d)
	}
	return defs, nil
}
