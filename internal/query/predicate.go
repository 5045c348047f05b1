// Package query provides a small tagged-variant predicate tree evaluated
// against flat records. It replaces ad-hoc any-typed filter helpers with an
// interpreter that can be unit-tested independent of storage.
package query

import (
	"fmt"
	"strings"
	"time"
)

// Op is a comparison operator applied to a single field.
type Op string

const (
	OpEq       Op = "eq"
	OpNeq      Op = "neq"
	OpGt       Op = "gt"
	OpGte      Op = "gte"
	OpLt       Op = "lt"
	OpLte      Op = "lte"
	OpContains Op = "contains" // case-insensitive substring, string fields only
)

// Connector joins child predicates in a group.
type Connector string

const (
	And Connector = "and"
	Or  Connector = "or"
)

// Record is the evaluation input: a field-name to value mapping. Supported
// value types are string, bool, int, int64, float64 and time.Time.
type Record map[string]any

// Predicate is one node of the expression tree: either a leaf comparison
// (Field/Op/Value set) or a group (Connector/Children set).
type Predicate struct {
	Field string
	Op    Op
	Value any

	Connector Connector
	Children  []Predicate
}

// Eval evaluates the predicate against a record. Unknown fields and type
// mismatches evaluate to false rather than erroring; the tree is advisory
// filtering, not schema validation.
func (p Predicate) Eval(rec Record) bool {
	if len(p.Children) > 0 {
		return p.evalGroup(rec)
	}
	val, ok := rec[p.Field]
	if !ok {
		return false
	}
	return compare(val, p.Op, p.Value)
}

func (p Predicate) evalGroup(rec Record) bool {
	if p.Connector == Or {
		for _, child := range p.Children {
			if child.Eval(rec) {
				return true
			}
		}
		return false
	}
	// Default connector is And.
	for _, child := range p.Children {
		if !child.Eval(rec) {
			return false
		}
	}
	return true
}

// Field builds a leaf comparison.
func Field(name string, op Op, value any) Predicate {
	return Predicate{Field: name, Op: op, Value: value}
}

// AllOf groups predicates with And.
func AllOf(children ...Predicate) Predicate {
	return Predicate{Connector: And, Children: children}
}

// AnyOf groups predicates with Or.
func AnyOf(children ...Predicate) Predicate {
	return Predicate{Connector: Or, Children: children}
}

// Filter returns the records matching the predicate, preserving input order.
func Filter(recs []Record, p Predicate) []Record {
	var out []Record
	for _, rec := range recs {
		if p.Eval(rec) {
			out = append(out, rec)
		}
	}
	return out
}

func compare(got any, op Op, want any) bool {
	if op == OpContains {
		gs, ok1 := got.(string)
		ws, ok2 := want.(string)
		if !ok1 || !ok2 {
			return false
		}
		return strings.Contains(strings.ToLower(gs), strings.ToLower(ws))
	}

	if gt, ok := got.(time.Time); ok {
		wt, ok := want.(time.Time)
		if !ok {
			return false
		}
		return compareOrdered(op, timeCmp(gt, wt))
	}

	if gn, ok := toFloat(got); ok {
		wn, ok := toFloat(want)
		if !ok {
			return false
		}
		return compareOrdered(op, floatCmp(gn, wn))
	}

	switch op {
	case OpEq:
		return fmt.Sprintf("%v", got) == fmt.Sprintf("%v", want)
	case OpNeq:
		return fmt.Sprintf("%v", got) != fmt.Sprintf("%v", want)
	}

	gs, ok1 := got.(string)
	ws, ok2 := want.(string)
	if !ok1 || !ok2 {
		return false
	}
	return compareOrdered(op, strings.Compare(gs, ws))
}

func compareOrdered(op Op, cmp int) bool {
	switch op {
	case OpEq:
		return cmp == 0
	case OpNeq:
		return cmp != 0
	case OpGt:
		return cmp > 0
	case OpGte:
		return cmp >= 0
	case OpLt:
		return cmp < 0
	case OpLte:
		return cmp <= 0
	}
	return false
}

func timeCmp(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func floatCmp(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
