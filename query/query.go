// Package query describes lookups against a store's indexes and evaluates
// them.
//
// A query is a list of sections. Each section combines its clauses with AND
// or OR; the sections themselves are always combined with OR. Results keep
// the order in which clauses first matched them and never repeat a value.
//
//	q := query.Advanced().
//		And(query.Where("first", "John"), query.Where("last", "Doe")).
//		Or(query.Where("age", 25))
package query

import (
	"fmt"
	"strings"
)

// Operator compares a clause key against an index.
type Operator int

const (
	// OperatorEquals matches members stored under the key.
	OperatorEquals Operator = iota
	// OperatorContains matches members stored under the key. For indexes that
	// store each element of a collection as its own key it reads as
	// membership.
	OperatorContains
)

func (o Operator) String() string {
	switch o {
	case OperatorEquals:
		return "EQUALS"
	case OperatorContains:
		return "CONTAINS"
	default:
		return "UNKNOWN"
	}
}

// SectionOperator combines the clauses of one section.
type SectionOperator int

const (
	// SectionAnd intersects clause results.
	SectionAnd SectionOperator = iota
	// SectionOr unions clause results.
	SectionOr
)

func (o SectionOperator) String() string {
	switch o {
	case SectionAnd:
		return "AND"
	case SectionOr:
		return "OR"
	default:
		return "UNKNOWN"
	}
}

// Part is one clause: the index to consult, how, and with which key.
type Part struct {
	Index    string
	Operator Operator
	Key      any
}

// Section is an immutable group of parts combined by one operator.
type Section struct {
	parts    []Part
	operator SectionOperator
}

// NewSection creates a section over a copy of parts.
func NewSection(operator SectionOperator, parts ...Part) Section {
	return Section{
		parts:    append([]Part(nil), parts...),
		operator: operator,
	}
}

// Parts returns a copy of the section's clauses.
func (s Section) Parts() []Part {
	return append([]Part(nil), s.parts...)
}

// Operator returns how the clauses are combined.
func (s Section) Operator() SectionOperator {
	return s.operator
}

// String renders each clause as "index should OPERATOR key OP".
func (s Section) String() string {
	clauses := make([]string, len(s.parts))
	for i, p := range s.parts {
		clauses[i] = fmt.Sprintf("%s should %s %v %s", p.Index, p.Operator, p.Key, s.operator)
	}
	return strings.Join(clauses, " ")
}

// Query is anything that yields sections.
type Query interface {
	Sections() []Section
}

// Simple is a single-clause query.
type Simple struct {
	part Part
}

// Where matches members whose key in index equals key.
func Where(index string, key any) *Simple {
	return &Simple{part: Part{Index: index, Operator: OperatorEquals, Key: key}}
}

// Contains matches members indexed under key in index.
func Contains(index string, key any) *Simple {
	return &Simple{part: Part{Index: index, Operator: OperatorContains, Key: key}}
}

// Part returns the clause.
func (q *Simple) Part() Part {
	return q.part
}

// Sections returns one AND section holding the clause.
func (q *Simple) Sections() []Section {
	return []Section{NewSection(SectionAnd, q.part)}
}

func (q *Simple) String() string {
	return NewSection(SectionAnd, q.part).String()
}

// AdvancedQuery accumulates sections in call order.
type AdvancedQuery struct {
	sections []Section
}

// Advanced starts an empty multi-section query.
func Advanced() *AdvancedQuery {
	return &AdvancedQuery{}
}

// And appends a section intersecting the given clauses.
func (q *AdvancedQuery) And(clauses ...*Simple) *AdvancedQuery {
	return q.add(SectionAnd, clauses)
}

// Or appends a section uniting the given clauses.
func (q *AdvancedQuery) Or(clauses ...*Simple) *AdvancedQuery {
	return q.add(SectionOr, clauses)
}

func (q *AdvancedQuery) add(op SectionOperator, clauses []*Simple) *AdvancedQuery {
	parts := make([]Part, 0, len(clauses))
	for _, c := range clauses {
		if c != nil {
			parts = append(parts, c.part)
		}
	}
	q.sections = append(q.sections, NewSection(op, parts...))
	return q
}

// Sections returns the sections in call order.
func (q *AdvancedQuery) Sections() []Section {
	return append([]Section(nil), q.sections...)
}

func (q *AdvancedQuery) String() string {
	rendered := make([]string, len(q.sections))
	for i, s := range q.sections {
		rendered[i] = "(" + s.String() + ")"
	}
	return strings.Join(rendered, " OR ")
}
