package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/relkit/relkit/dialect/sql/sqlgraph"
	"github.com/relkit/relkit/internal/cli"
	"github.com/relkit/relkit/model"
	"github.com/relkit/relkit/schema"
	"github.com/relkit/relkit/schema/schemafile"
)

// loadOptions are the flags shared by the commands that build a loader.
type loadOptions struct {
	with  []string
	ids   []string
	limit int
	desc  bool
}

func (o *loadOptions) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringSliceVarP(&o.with, "with", "w", nil, "relation to load (repeatable)")
	flags.StringSliceVar(&o.ids, "id", nil, "primary key value, one per key column")
	flags.IntVar(&o.limit, "limit", 0, "maximum number of entities (0 for no limit)")
	flags.BoolVar(&o.desc, "desc", false, "order by primary key descending")
}

func (o *rootOptions) registry() (*schema.Registry, error) {
	if o.cfg.Schema == "" {
		return nil, cli.ConfigError("no schema configured", nil)
	}
	reg, err := schemafile.Load(o.cfg.Schema)
	if err != nil {
		return nil, cli.SchemaParseError("loading schema", err)
	}
	return reg, nil
}

// newLoader builds the loader for the named entity from the flags.
func (o *loadOptions) newLoader(reg *schema.Registry, name string) (*sqlgraph.Loader, error) {
	e, ok := reg.Lookup(name)
	if !ok {
		names := make([]string, 0, len(reg.Entities()))
		for _, e := range reg.Entities() {
			names = append(names, e.Name)
		}
		return nil, cli.GeneralError(fmt.Sprintf("unknown entity %q (have %s)", name, strings.Join(names, ", ")), nil)
	}
	l := sqlgraph.NewLoader(reg, e)
	for _, rel := range o.with {
		if e.Relation(rel) == nil {
			return nil, cli.GeneralError(fmt.Sprintf("entity %s has no relation %q", e.Name, rel), nil)
		}
		l = l.WithRelation(rel)
	}
	if len(o.ids) > 0 {
		pk, err := keyValues(e, o.ids)
		if err != nil {
			return nil, cli.GeneralError("parsing --id", err)
		}
		l = l.FilterByID(pk...)
	}
	if o.desc {
		l = l.OrderByIDDesc()
	}
	if o.limit > 0 {
		l = l.Limit(o.limit)
	}
	return l, nil
}

// keyValues converts the textual key values to the primary key column types.
func keyValues(e *schema.Entity, values []string) ([]any, error) {
	if len(values) != len(e.PrimaryKey) {
		return nil, fmt.Errorf("%s has a %d-column primary key, got %d values", e.Name, len(e.PrimaryKey), len(values))
	}
	pk := make([]any, len(values))
	for i, name := range e.PrimaryKey {
		col, _ := e.Column(name)
		v, err := model.Convert(col, values[i])
		if err != nil {
			return nil, err
		}
		pk[i] = v
	}
	return pk, nil
}
