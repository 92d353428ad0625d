// Package sel defines atom selection predicates.
//
// An [Expr] is an opaque boolean expression over atom attributes,
// coordinates and spatial neighbourhoods. Expressions are built from a
// small closed set of node types:
//
//   - [Match], [Ints], [Range]: attribute comparison
//   - [Coord]: coordinate comparison, optionally on the absolute value
//   - [Within], [SameResidue]: spatial and residue expansion
//   - [Conj], [Disj], [Neg], [Const], [Kept]: boolean structure
//
// The builder composes expressions with the constructor functions and hands
// them to a structure engine for evaluation; it never inspects them.
//
// [Parse] turns the textual form accepted on the command line and in
// configuration files into an Expr:
//
//	e, err := sel.Parse("resname POPC POPE and noh and abs(z) < 15")
//	e, err := sel.Parse("water and not within 5 of protein")
//
// String renders an Expr back into the same grammar, so Parse(e.String())
// yields an equivalent expression.
package sel
