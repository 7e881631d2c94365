package policy

import (
	"strconv"
	"strings"
)

// FieldSource resolves a named metric field to a float64. Unknown fields
// must resolve to 0, per the grammar's contract.
type FieldSource interface {
	Field(name string) float64
}

// eqTolerance is the tolerance "==" uses.
const eqTolerance = 1e-9

// Evaluate evaluates a `when` predicate of the form `ATOM`, `ATOM && ATOM`,
// or `ATOM || ATOM` against src, where an ATOM is `<field> OP <number>`
// with OP in {>, <, >=, <=, ==}. Whitespace is trimmed; unparseable atoms
// return false.
func Evaluate(when string, src FieldSource) bool {
	if idx := strings.Index(when, "&&"); idx >= 0 {
		return evalAtom(when[:idx], src) && evalAtom(when[idx+2:], src)
	}
	if idx := strings.Index(when, "||"); idx >= 0 {
		return evalAtom(when[:idx], src) || evalAtom(when[idx+2:], src)
	}
	return evalAtom(when, src)
}

// ops is checked in this order so ">=" and "<=" are matched before the
// single-character ">" and "<", matching the reference's scan order.
var ops = []string{">=", "<=", "==", ">", "<"}

func evalAtom(expr string, src FieldSource) bool {
	expr = strings.TrimSpace(expr)

	var op string
	pos := -1
	for _, o := range ops {
		if i := strings.Index(expr, o); i >= 0 {
			op = o
			pos = i
			break
		}
	}
	if pos < 0 {
		return false
	}

	lhs := strings.TrimSpace(expr[:pos])
	rhs := strings.TrimSpace(expr[pos+len(op):])

	l := src.Field(lhs)
	r, err := strconv.ParseFloat(rhs, 64)
	if err != nil {
		return false
	}

	switch op {
	case ">":
		return l > r
	case "<":
		return l < r
	case ">=":
		return l >= r
	case "<=":
		return l <= r
	case "==":
		d := l - r
		if d < 0 {
			d = -d
		}
		return d < eqTolerance
	default:
		return false
	}
}
