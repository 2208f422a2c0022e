package schema

import (
	"encoding/hex"
	"strings"

	"github.com/zeebo/blake3"
)

// MaxIdentifierLength is the shortest identifier limit of the supported databases.
const MaxIdentifierLength = 63

// IndexName derives the index name from the table, the ordered columns and uniqueness.
// The same inputs always produce the same name.
func IndexName(table string, columns []string, unique bool) string {
	prefix := "IX_"
	if unique {
		prefix = "UX_"
	}
	return ShortenIdentifier(prefix + table + "_" + strings.Join(columns, "_"))
}

// ShortenIdentifier returns name unchanged when it fits MaxIdentifierLength.
// Longer names are cut and end in a digest of the full name, so distinct
// names stay distinct.
func ShortenIdentifier(name string) string {
	if len(name) <= MaxIdentifierLength {
		return name
	}
	sum := blake3.Sum256([]byte(name))
	digest := hex.EncodeToString(sum[:6])
	return name[:MaxIdentifierLength-len(digest)-1] + "_" + digest
}

// SameIndex reports whether live matches target structurally: same columns in the
// same order, same uniqueness and the same filter.
func SameIndex(live *LiveIndex, target *TargetIndex) bool {
	if live.Unique != target.Unique || len(live.Columns) != len(target.Columns) {
		return false
	}
	for i := range live.Columns {
		if !strings.EqualFold(live.Columns[i], target.Columns[i]) {
			return false
		}
	}
	return NormalizeExpr(live.Filter) == NormalizeExpr(target.Filter)
}
