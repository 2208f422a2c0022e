package sqlfrag

// List accumulates queries that are rendered together with a separator,
// e.g. a column list or a set of WHERE conditions.
type List struct {
	prefix string
	sep    string
	parts  []Query
}

// NewList creates an empty list.
func NewList(sep, prefix string) *List {
	return &List{sep: sep, prefix: prefix}
}

// Add appends one entry made of parts.
func (l *List) Add(parts ...Part) {
	l.parts = append(l.parts, New(parts...))
}

// Len returns the number of entries.
func (l *List) Len() int { return len(l.parts) }

// Query joins all entries.
func (l *List) Query() Query {
	return Join(l.prefix, l.sep, l.parts...)
}

func (l *List) appendTo(dst []Fragment) []Fragment {
	return l.Query().appendTo(dst)
}
