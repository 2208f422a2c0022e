// Package sqlfrag composes SQL statements out of literal text and bound values.
//
// A Query is an ordered list of fragments. Literal fragments are copied into the
// statement text verbatim and must only carry identifiers or trusted SQL. Every
// other value becomes a driver placeholder and is returned in the argument list.
package sqlfrag

import (
	"strconv"
	"strings"
)

// Kind tags a fragment.
type Kind int

const (
	KindLiteral Kind = iota
	KindParam
	KindParams
)

// Fragment is one piece of a statement.
type Fragment struct {
	kind   Kind
	text   string
	value  any
	values []any
}

// Lit marks text as trusted SQL.
func Lit(text string) Fragment {
	return Fragment{kind: KindLiteral, text: text}
}

// Param binds a single value.
func Param(v any) Fragment {
	return Fragment{kind: KindParam, value: v}
}

// Params binds every element of vs, rendered as a comma separated placeholder list.
func Params[T any](vs []T) Fragment {
	values := make([]any, len(vs))
	for i, v := range vs {
		values[i] = v
	}
	return Fragment{kind: KindParams, values: values}
}

// Part is anything that can be spliced into a Query: a Fragment or another Query.
type Part interface {
	appendTo(dst []Fragment) []Fragment
}

func (f Fragment) appendTo(dst []Fragment) []Fragment {
	if f.kind == KindLiteral && f.text == "" {
		return dst
	}
	return append(dst, f)
}

// Query is an immutable ordered fragment list.
type Query struct {
	frags []Fragment
}

func (q Query) appendTo(dst []Fragment) []Fragment {
	return append(dst, q.frags...)
}

// New builds a query from parts. Embedded queries are flattened in place.
func New(parts ...Part) Query {
	var frags []Fragment
	for _, p := range parts {
		frags = p.appendTo(frags)
	}
	return Query{frags: frags}
}

// Literal is shorthand for a query made of one trusted text fragment.
func Literal(text string) Query {
	return New(Lit(text))
}

// Append returns a new query with parts added at the end.
func (q Query) Append(parts ...Part) Query {
	frags := make([]Fragment, len(q.frags), len(q.frags)+len(parts))
	copy(frags, q.frags)
	for _, p := range parts {
		frags = p.appendTo(frags)
	}
	return Query{frags: frags}
}

// Join renders parts separated by sep, preceded by prefix when prefix is non-empty.
// The prefix is emitted even when parts is empty.
func Join(prefix, sep string, parts ...Query) Query {
	var frags []Fragment
	if prefix != "" {
		frags = append(frags, Lit(prefix))
	}
	for i, p := range parts {
		if i > 0 && sep != "" {
			frags = append(frags, Lit(sep))
		}
		frags = append(frags, p.frags...)
	}
	return Query{frags: frags}
}

// Build renders the statement text with placeholder(i) for the i-th bound value
// (zero based) and returns the matching argument list.
func (q Query) Build(placeholder func(int) string) (string, []any) {
	var (
		sb   strings.Builder
		args []any
	)
	bind := func(v any) {
		sb.WriteString(placeholder(len(args)))
		args = append(args, v)
	}
	for _, f := range q.frags {
		switch f.kind {
		case KindLiteral:
			sb.WriteString(f.text)
		case KindParam:
			bind(f.value)
		case KindParams:
			for i, v := range f.values {
				if i > 0 {
					sb.WriteString(",")
				}
				bind(v)
			}
		}
	}
	return sb.String(), args
}

// String renders the query with {N} markers in place of bound values.
func (q Query) String() string {
	text, _ := q.Build(func(i int) string { return "{" + strconv.Itoa(i) + "}" })
	return text
}
