// Package search derives the filtered person view from the cached list and
// a live query.
package search

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/mesh-intelligence/roster/pkg/types"
)

var fold = cases.Fold()

// Blank reports whether query holds only white space and so filters nothing.
func Blank(query string) bool {
	return strings.TrimSpace(query) == ""
}

// Filter returns every person whose name or email contains query after
// Unicode case folding. The query is matched as typed, surrounding space
// included. A blank query returns persons unchanged. The input slice is
// never modified.
func Filter(persons []types.Person, query string) []types.Person {
	if Blank(query) {
		return persons
	}
	q := fold.String(query)

	out := make([]types.Person, 0, len(persons))
	for _, p := range persons {
		if strings.Contains(fold.String(p.Name), q) || strings.Contains(fold.String(p.Email), q) {
			out = append(out, p)
		}
	}
	return out
}
