package query

import (
	"github.com/ThatForkyDev/membase/index"
	"github.com/ThatForkyDev/membase/pkg/linkedset"
	"github.com/ThatForkyDev/membase/reference"
)

// NoLimit disables result truncation.
const NoLimit = -1

// Indexes resolves an index by name. *index.Manager satisfies it.
type Indexes[V any] interface {
	Get(name string) (index.ReferenceIndex[V], bool)
}

// Evaluate runs q against indexes and returns the matching references.
// Clauses naming an unknown index match nothing. A negative limit returns
// every match.
func Evaluate[V any](q Query, indexes Indexes[V], limit int) []*reference.Reference[V] {
	if q == nil || limit == 0 {
		return nil
	}

	results := linkedset.New[*reference.Reference[V]]()
	for _, section := range q.Sections() {
		results.AddAll(evaluateSection(section, indexes))
	}

	matched := results.Values()
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched
}

func evaluateSection[V any](section Section, indexes Indexes[V]) *linkedset.Set[*reference.Reference[V]] {
	local := linkedset.New[*reference.Reference[V]]()

	for i, part := range section.parts {
		matches := linkedset.New(resolve(part, indexes)...)

		if i == 0 || section.operator == SectionOr {
			local.AddAll(matches)
			continue
		}
		local.RetainIf(matches.Contains)
	}
	return local
}

func resolve[V any](part Part, indexes Indexes[V]) []*reference.Reference[V] {
	ix, ok := indexes.Get(part.Index)
	if !ok {
		return nil
	}
	// Equals and Contains both resolve to an exact match on the normalized key.
	return ix.References(part.Key)
}
