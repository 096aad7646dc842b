package main

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"

	"github.com/ThatForkyDev/membase/errors"
	"github.com/ThatForkyDev/membase/index"
	"github.com/ThatForkyDev/membase/query"
)

// indexSpec is a parsed --index flag:
//
//	[name=]field[,modifier...]
//
// Modifiers: ci (case-insensitive keys), min:FIELD and max:FIELD (keep the
// record with the smallest or largest numeric FIELD per key), newest:N and
// oldest:N (keep at most N records per key).
type indexSpec struct {
	name       string
	field      string
	ignoreCase bool
	reducers   []index.Reducer[string, record]
}

func parseIndexSpec(raw string) (indexSpec, error) {
	parts := strings.Split(raw, ",")
	head := strings.TrimSpace(parts[0])

	spec := indexSpec{name: head, field: head}
	if name, field, ok := strings.Cut(head, "="); ok {
		spec.name, spec.field = strings.TrimSpace(name), strings.TrimSpace(field)
	}
	if spec.name == "" || spec.field == "" {
		return indexSpec{}, invalidExpr("ParseIndex", "index %q needs a field", raw)
	}

	for _, mod := range parts[1:] {
		mod = strings.TrimSpace(mod)
		kind, arg, _ := strings.Cut(mod, ":")

		switch kind {
		case "ci":
			spec.ignoreCase = true
		case "min", "max":
			if arg == "" {
				return indexSpec{}, invalidExpr("ParseIndex", "modifier %q needs a field", mod)
			}
			project := numericField(arg)
			if kind == "min" {
				spec.reducers = append(spec.reducers, index.MinBy[string](project, cmp.Compare[float64], true))
			} else {
				spec.reducers = append(spec.reducers, index.MaxBy[string](project, cmp.Compare[float64], false))
			}
		case "newest", "oldest":
			n, err := strconv.Atoi(arg)
			if err != nil || n < 0 {
				return indexSpec{}, invalidExpr("ParseIndex", "modifier %q needs a non-negative count", mod)
			}
			retain := index.RetainNewest
			if kind == "oldest" {
				retain = index.RetainOldest
			}
			spec.reducers = append(spec.reducers, index.Limit[string, record](n, retain))
		default:
			return indexSpec{}, invalidExpr("ParseIndex", "unknown index modifier %q", mod)
		}
	}
	return spec, nil
}

// definition builds the index definition. Scalar fields map to one key and
// list fields to one key per element; object fields fail to index.
func (s indexSpec) definition() *index.Definition[string, record] {
	field := s.field
	def := index.FallibleKeyMappings(func(r record) ([]string, error) {
		switch v := r[field].(type) {
		case nil:
			return nil, nil
		case []any:
			keys := make([]string, 0, len(v))
			for _, item := range v {
				if item != nil {
					keys = append(keys, fmt.Sprint(item))
				}
			}
			return keys, nil
		case map[string]any:
			return nil, fmt.Errorf("field %q holds an object", field)
		default:
			return []string{fmt.Sprint(v)}, nil
		}
	})

	if s.ignoreCase {
		def = def.WithComparisonPolicy(index.CaseInsensitive[string]())
	}
	switch len(s.reducers) {
	case 0:
	case 1:
		def = def.WithReducer(s.reducers[0])
	default:
		def = def.WithReducer(index.Chain(s.reducers...))
	}
	return def
}

func numericField(field string) index.Projection[record, float64] {
	return func(r record) (float64, bool) {
		switch v := r[field].(type) {
		case int:
			return float64(v), true
		case int64:
			return float64(v), true
		case float64:
			return v, true
		case string:
			f, err := strconv.ParseFloat(v, 64)
			return f, err == nil
		default:
			return 0, false
		}
	}
}

// parseQuery parses a query expression and returns it with the index names
// it references. Sections are separated by '|' and match when any section
// matches; clauses inside a section are separated by '&' and must all
// match. A clause is index=key or index~key (contains).
//
//	last=Doe & age=21 | tags~admin
func parseQuery(expr string) (query.Query, []string, error) {
	q := query.Advanced()
	var names []string
	seen := make(map[string]bool)

	for _, rawSection := range strings.Split(expr, "|") {
		var clauses []*query.Simple
		for _, rawClause := range strings.Split(rawSection, "&") {
			clause, name, err := parseClause(strings.TrimSpace(rawClause))
			if err != nil {
				return nil, nil, err
			}
			clauses = append(clauses, clause)
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
		q.And(clauses...)
	}
	return q, names, nil
}

func parseClause(clause string) (*query.Simple, string, error) {
	i := strings.IndexAny(clause, "=~")
	if i <= 0 {
		return nil, "", invalidExpr("ParseQuery", "clause %q must be index=key or index~key", clause)
	}

	name := strings.TrimSpace(clause[:i])
	key := strings.TrimSpace(clause[i+1:])
	if clause[i] == '~' {
		return query.Contains(name, key), name, nil
	}
	return query.Where(name, key), name, nil
}

func invalidExpr(method, format string, args ...any) error {
	return errors.WrapInvalid(errors.ErrInvalidData, "expression", method, fmt.Sprintf(format, args...))
}
