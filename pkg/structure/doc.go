// Package structure is the atom-level data model shared by the structure
// engine, the file codecs and the builder.
//
// A [Structure] is a flat slice of [Atom] values plus an optional periodic
// cell. Atoms are never removed in place: each carries a Keep mark, and
// [Structure.Compact] produces the physically trimmed copy at output time.
// Atom indices are therefore stable for the lifetime of a structure.
//
// Residues are identified by a [Atom.Residue] serial that is unique within
// a structure, independent of the (chain, resid) pair read from file, which
// is frequently reused across chains and across tiled copies of a patch.
package structure
