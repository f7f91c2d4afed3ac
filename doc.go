// Package relkit is a relational object-mapping toolkit built around a
// query composition and row demultiplexing engine.
//
// Entities and their relations are declared once in a schema.Registry.
// sqlgraph.Select composes a single statement over 1..N joined entities,
// projecting each slot's columns under its own alias prefix, and
// sqlgraph.Loader folds has-one relations into that statement while
// batch-loading has-many relations in one follow-up query per relation.
// Results are returned as model.ModelEx graphs whose relation slots tell
// "not loaded" apart from "not found".
//
// This package holds the error types shared by all sub-packages.
package relkit
