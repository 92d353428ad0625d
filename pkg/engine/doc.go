// Package engine is an in-memory structure engine.
//
// An [Engine] owns structures and hands out opaque [structure.Handle]
// values for them. All operations address atoms by their index within a
// handle; atom sets are sorted index slices returned by [Engine.Select].
//
// Deletion is expressed only through keep marks: atoms are never removed
// from a live structure, and [Engine.Save] writes kept atoms only.
//
// # Selections
//
// [Engine.Select] evaluates a [sel.Expr] against every atom of a structure,
// kept or not. Callers that want kept atoms only add [sel.IsKept] to the
// expression. Distance queries (sel.Within) run on a cell-list grid whose
// bins are at least the query distance wide, and use minimum-image
// distances once all three cell lengths of the structure are set.
//
// # Analytics
//
// The engine also implements the aggregate queries the builder needs:
// dimensions, periodic replication, net charges and ion counts.
package engine
