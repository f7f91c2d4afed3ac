// Package sqlgraph composes queries over related entities and splits
// their result rows back into models.
//
// A Select joins 1..N entities along declared relations. Each entity
// occupies a slot whose table alias is a letter (A, B, ... Z, AA, ...)
// and whose columns are projected as "<alias>_<column>", so entities
// sharing column names, or the same table, never collide:
//
//	sel := sqlgraph.NewSelect(reg, cake).FindAlso(bakery)
//	tuples, err := sel.All(ctx, drv)
//	// tuples[i][0] is the cake, tuples[i][1] its bakery or nil
//
// A Loader builds on Select to load models with their relations:
// to-one relations are folded into the main query, and every to-many
// relation is loaded with one batched query over all parents.
package sqlgraph
