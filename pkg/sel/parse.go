package sel

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/matzehuels/dabble/pkg/geom"
)

// keywords maps single-word predicates to their expansion.
var keywords = map[string]func() Expr{
	"all":      All,
	"none":     None,
	"water":    Water,
	"protein":  Protein,
	"lipid":    Lipid,
	"ion":      Ion,
	"backbone": Backbone,
	"hydrogen": Hydrogen,
	"noh":      Heavy,
	"heavy":    Heavy,
	"kept":     IsKept,
}

var fieldsByName = map[string]Field{
	"name":    Name,
	"resname": ResName,
	"element": Element,
	"chain":   Chain,
	"segname": Segment,
	"resid":   ResID,
	"index":   Index,
	"residue": Residue,
}

var axesByName = map[string]geom.Axis{"x": geom.X, "y": geom.Y, "z": geom.Z}

var opsByName = map[string]Op{"<": Less, "<=": LessEq, ">": Greater, ">=": GreaterEq}

// reserved tokens terminate attribute value lists.
var reserved = map[string]bool{
	"and": true, "or": true, "not": true, "(": true, ")": true,
	"within": true, "of": true, "same": true, "to": true,
}

// SyntaxError reports a malformed selection string.
type SyntaxError struct {
	Input string
	Pos   int // token index
	Msg   string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("selection %q: token %d: %s", e.Input, e.Pos, e.Msg)
}

// Parse converts a textual selection into an Expr.
//
// Grammar (lowest precedence first):
//
//	expr    = term { "or" term }
//	term    = factor { "and" factor }
//	factor  = "not" factor | "within" NUM "of" factor
//	        | "same" "residue" "as" factor | primary
//	primary = "(" expr ")" | keyword | field value { value }
//	        | field INT "to" INT | coord op NUM
//	coord   = x | y | z | "abs" "(" x|y|z ")"
func Parse(s string) (Expr, error) {
	p := &parser{input: s, toks: tokenize(s)}
	if len(p.toks) == 0 {
		return nil, p.errorf("empty selection")
	}
	e, err := p.expr()
	if err != nil {
		return nil, err
	}
	if !p.done() {
		return nil, p.errorf("unexpected %q", p.peek())
	}
	return e, nil
}

// MustParse is like Parse but panics on error. Intended for constants.
func MustParse(s string) Expr {
	e, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return e
}

func tokenize(s string) []string {
	var toks []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			toks = append(toks, cur.String())
			cur.Reset()
		}
	}
	rs := []rune(s)
	for i := 0; i < len(rs); i++ {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			flush()
		case r == '(' || r == ')':
			flush()
			toks = append(toks, string(r))
		case r == '<' || r == '>':
			flush()
			if i+1 < len(rs) && rs[i+1] == '=' {
				toks = append(toks, string(r)+"=")
				i++
			} else {
				toks = append(toks, string(r))
			}
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return toks
}

type parser struct {
	input string
	toks  []string
	pos   int
}

func (p *parser) done() bool { return p.pos >= len(p.toks) }

func (p *parser) peek() string {
	if p.done() {
		return ""
	}
	return p.toks[p.pos]
}

func (p *parser) next() string {
	t := p.peek()
	p.pos++
	return t
}

func (p *parser) expect(tok string) error {
	if got := p.next(); got != tok {
		return p.errorf("expected %q, got %q", tok, got)
	}
	return nil
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Input: p.input, Pos: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) expr() (Expr, error) {
	first, err := p.term()
	if err != nil {
		return nil, err
	}
	terms := []Expr{first}
	for p.peek() == "or" {
		p.next()
		t, err := p.term()
		if err != nil {
			return nil, err
		}
		terms = append(terms, t)
	}
	return Or(terms...), nil
}

func (p *parser) term() (Expr, error) {
	first, err := p.factor()
	if err != nil {
		return nil, err
	}
	factors := []Expr{first}
	for p.peek() == "and" {
		p.next()
		f, err := p.factor()
		if err != nil {
			return nil, err
		}
		factors = append(factors, f)
	}
	return And(factors...), nil
}

func (p *parser) factor() (Expr, error) {
	switch p.peek() {
	case "not":
		p.next()
		f, err := p.factor()
		if err != nil {
			return nil, err
		}
		return Not(f), nil
	case "within":
		p.next()
		d, err := p.number()
		if err != nil {
			return nil, err
		}
		if err := p.expect("of"); err != nil {
			return nil, err
		}
		f, err := p.factor()
		if err != nil {
			return nil, err
		}
		return WithinOf(d, f), nil
	case "same":
		p.next()
		if err := p.expect("residue"); err != nil {
			return nil, err
		}
		if err := p.expect("as"); err != nil {
			return nil, err
		}
		f, err := p.factor()
		if err != nil {
			return nil, err
		}
		return SameResidueAs(f), nil
	}
	return p.primary()
}

func (p *parser) primary() (Expr, error) {
	if p.done() {
		return nil, p.errorf("unexpected end of selection")
	}
	tok := p.next()

	if tok == "(" {
		e, err := p.expr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		return e, nil
	}
	if kw, ok := keywords[tok]; ok {
		return kw(), nil
	}
	if axis, ok := axesByName[tok]; ok {
		return p.coord(axis, false)
	}
	if tok == "abs" {
		if err := p.expect("("); err != nil {
			return nil, err
		}
		axis, ok := axesByName[p.next()]
		if !ok {
			return nil, p.errorf("abs() takes x, y or z")
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		return p.coord(axis, true)
	}
	if f, ok := fieldsByName[tok]; ok {
		return p.values(f)
	}
	return nil, p.errorf("unknown keyword %q", tok)
}

func (p *parser) coord(axis geom.Axis, abs bool) (Expr, error) {
	op, ok := opsByName[p.next()]
	if !ok {
		return nil, p.errorf("expected comparison operator after %s", axis)
	}
	v, err := p.number()
	if err != nil {
		return nil, err
	}
	return Coord{Axis: axis, Abs: abs, Op: op, Value: v}, nil
}

func (p *parser) values(f Field) (Expr, error) {
	var vals []string
	for !p.done() && !reserved[p.peek()] {
		vals = append(vals, p.next())
	}
	if len(vals) == 0 {
		return nil, p.errorf("%s needs at least one value", f)
	}
	if !f.IsNumeric() {
		return Match{Field: f, Values: vals}, nil
	}

	ints := make([]int, len(vals))
	for i, v := range vals {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, p.errorf("%s value %q is not an integer", f, v)
		}
		ints[i] = n
	}
	if p.peek() == "to" && len(ints) == 1 {
		p.next()
		hi, err := strconv.Atoi(p.next())
		if err != nil {
			return nil, p.errorf("range end must be an integer")
		}
		return Range{Field: f, Lo: ints[0], Hi: hi}, nil
	}
	return Ints{Field: f, Values: ints}, nil
}

func (p *parser) number() (float64, error) {
	tok := p.next()
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, p.errorf("expected number, got %q", tok)
	}
	return v, nil
}
