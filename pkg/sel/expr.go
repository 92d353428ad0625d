package sel

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/matzehuels/dabble/pkg/geom"
)

// Expr is a selection predicate. Only the types declared in this package
// implement it.
type Expr interface {
	fmt.Stringer
	expr()
}

// Field is an atom attribute addressable in a selection.
type Field int

const (
	Name Field = iota
	ResName
	Element
	Chain
	Segment
	ResID
	Index
	Residue
)

var fieldNames = map[Field]string{
	Name:    "name",
	ResName: "resname",
	Element: "element",
	Chain:   "chain",
	Segment: "segname",
	ResID:   "resid",
	Index:   "index",
	Residue: "residue",
}

func (f Field) String() string { return fieldNames[f] }

// IsNumeric reports whether the field holds an integer.
func (f Field) IsNumeric() bool { return f == ResID || f == Index || f == Residue }

// Op is a coordinate comparison operator.
type Op int

const (
	Less Op = iota
	LessEq
	Greater
	GreaterEq
)

var opNames = map[Op]string{Less: "<", LessEq: "<=", Greater: ">", GreaterEq: ">="}

func (o Op) String() string { return opNames[o] }

// Eval applies the comparison.
func (o Op) Eval(a, b float64) bool {
	switch o {
	case Less:
		return a < b
	case LessEq:
		return a <= b
	case Greater:
		return a > b
	case GreaterEq:
		return a >= b
	}
	return false
}

// Match selects atoms whose string attribute equals any of Values.
type Match struct {
	Field  Field
	Values []string
}

// Ints selects atoms whose integer attribute equals any of Values.
type Ints struct {
	Field  Field
	Values []int
}

// Range selects atoms whose integer attribute lies in [Lo, Hi].
type Range struct {
	Field  Field
	Lo, Hi int
}

// Coord compares one coordinate (or its absolute value) against Value.
type Coord struct {
	Axis  geom.Axis
	Abs   bool
	Op    Op
	Value float64
}

// Within selects atoms closer than Dist to any atom matching Of. Engines
// use minimum-image distances once a periodic cell is defined.
type Within struct {
	Dist float64
	Of   Expr
}

// SameResidue expands a selection to whole residues.
type SameResidue struct {
	Of Expr
}

// Kept selects atoms whose keep mark is set.
type Kept struct{}

// Const is the constant predicate (all or none).
type Const bool

// Conj is a logical and of all terms.
type Conj []Expr

// Disj is a logical or of all terms.
type Disj []Expr

// Neg negates X.
type Neg struct {
	X Expr
}

func (Match) expr()       {}
func (Ints) expr()        {}
func (Range) expr()       {}
func (Coord) expr()       {}
func (Within) expr()      {}
func (SameResidue) expr() {}
func (Kept) expr()        {}
func (Const) expr()       {}
func (Conj) expr()        {}
func (Disj) expr()        {}
func (Neg) expr()         {}

func (m Match) String() string {
	return m.Field.String() + " " + strings.Join(m.Values, " ")
}

func (m Ints) String() string {
	parts := make([]string, len(m.Values))
	for i, v := range m.Values {
		parts[i] = strconv.Itoa(v)
	}
	return m.Field.String() + " " + strings.Join(parts, " ")
}

func (r Range) String() string {
	return fmt.Sprintf("%s %d to %d", r.Field, r.Lo, r.Hi)
}

func (c Coord) String() string {
	v := strconv.FormatFloat(c.Value, 'f', -1, 64)
	if c.Abs {
		return fmt.Sprintf("abs(%s) %s %s", c.Axis, c.Op, v)
	}
	return fmt.Sprintf("%s %s %s", c.Axis, c.Op, v)
}

func (w Within) String() string {
	return fmt.Sprintf("within %s of (%s)", strconv.FormatFloat(w.Dist, 'f', -1, 64), w.Of)
}

func (s SameResidue) String() string { return fmt.Sprintf("same residue as (%s)", s.Of) }

func (Kept) String() string { return "kept" }

func (c Const) String() string {
	if c {
		return "all"
	}
	return "none"
}

func (c Conj) String() string { return join(c, " and ") }
func (d Disj) String() string { return join(d, " or ") }
func (n Neg) String() string  { return "not (" + n.X.String() + ")" }

func join(terms []Expr, sep string) string {
	parts := make([]string, len(terms))
	for i, t := range terms {
		parts[i] = "(" + t.String() + ")"
	}
	return strings.Join(parts, sep)
}
