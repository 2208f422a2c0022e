package schema

import (
	"regexp"
	"strings"
)

// Normalizer maps dialect type names and default expressions to comparable forms.
type Normalizer interface {
	NormalizeType(name string) string
	ClassifyType(name string) TypeClass
	// NormalizeDefault canonicalizes a default, typically NormalizeExpr followed by
	// the dialect's own spellings (e.g. getdate() for current_timestamp).
	NormalizeDefault(expr string) string
}

// EffectiveLength is the length a column is rendered and compared with.
// Text columns without a length are unbounded.
func EffectiveLength(c Column, class TypeClass) *int {
	if c.Length != nil {
		if *c.Length <= 0 {
			u := Unbounded
			return &u
		}
		return c.Length
	}
	if class.IsText {
		u := Unbounded
		return &u
	}
	return nil
}

// EffectivePrecision returns precision and scale for decimal columns, applying defaults.
// ok is false when the column carries no precision clause.
func EffectivePrecision(c Column, class TypeClass) (precision, scale int, ok bool) {
	if c.Precision == nil && !class.IsDecimal {
		return 0, 0, false
	}
	precision, scale = DefaultPrecision, DefaultScale
	if c.Precision != nil {
		precision = *c.Precision
	}
	if c.Scale != nil {
		scale = *c.Scale
	}
	return precision, scale, true
}

// SameColumn compares type, length, precision, nullability and default. Names are
// not compared.
func SameColumn(live *LiveColumn, target *TargetColumn, n Normalizer) bool {
	if n.NormalizeType(live.Type) != n.NormalizeType(target.Type) {
		return false
	}
	class := n.ClassifyType(target.Type)

	if class.IsText || target.Length != nil {
		if !sameLength(EffectiveLength(live.Column, class), EffectiveLength(target.Column, class)) {
			return false
		}
	}
	if class.IsDecimal {
		lp, ls, _ := EffectivePrecision(live.Column, class)
		tp, ts, _ := EffectivePrecision(target.Column, class)
		if lp != tp || ls != ts {
			return false
		}
	}
	if live.Nullable != target.Nullable {
		return false
	}
	return n.NormalizeDefault(live.Default) == n.NormalizeDefault(target.Default)
}

func sameLength(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

var (
	castRe = regexp.MustCompile(`::(character varying|double precision|timestamp with(out)? time zone|[a-zA-Z_][a-zA-Z0-9_]*)(\(\d+(,\s*\d+)?\))?(\[\])?`)
	// a constant the catalog wrapped in its own parentheses: (0), (-1.5), ('x'),
	// but not a call argument such as round(0)
	wrappedConstRe = regexp.MustCompile(`(^|[^\w])\((-?\d+(?:\.\d+)?|'(?:[^']|'')*')\)`)
	quotedNumberRe = regexp.MustCompile(`^'(-?\d+(?:\.\d+)?)'$`)
)

// NormalizeExpr canonicalizes a default or filter expression as reported by a catalog,
// for comparison only. Type casts, identifier quoting, spaces around comparison
// operators and redundant parentheses are dropped, a quoted number becomes a number
// and case is folded. Spacing inside string literals is kept.
func NormalizeExpr(expr string) string {
	s := castRe.ReplaceAllString(strings.TrimSpace(expr), "")
	s = unquoteIdentifiers(s)
	for {
		next := wrappedConstRe.ReplaceAllString(s, "${1}${2}")
		if next == s {
			break
		}
		s = next
	}
	for wrapped(s) {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	s = strings.ToLower(s)
	return quotedNumberRe.ReplaceAllString(s, "$1")
}

// unquoteIdentifiers removes [] and "" identifier quoting, collapses whitespace and
// removes it around comparison operators. Text inside '...' literals is copied as is.
func unquoteIdentifiers(s string) string {
	var sb strings.Builder
	pendingSpace := false
	lastOp := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\'':
			j := i + 1
			for j < len(s) {
				if s[j] == '\'' {
					if j+1 < len(s) && s[j+1] == '\'' {
						j += 2
						continue
					}
					break
				}
				j++
			}
			if j >= len(s) {
				j = len(s) - 1
			}
			if pendingSpace && !lastOp && sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(s[i : j+1])
			i = j
			pendingSpace, lastOp = false, false
		case c == '[' || c == ']' || c == '"':
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			pendingSpace = true
		default:
			op := isOperator(c)
			if pendingSpace && !op && !lastOp && sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteByte(c)
			pendingSpace, lastOp = false, op
		}
	}
	return sb.String()
}

func isOperator(c byte) bool {
	return c == '=' || c == '<' || c == '>' || c == '!'
}

// wrapped reports whether s is fully enclosed by one pair of parentheses.
func wrapped(s string) bool {
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return false
	}
	depth := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && i != len(s)-1 {
				return false
			}
		}
	}
	return depth == 0
}
