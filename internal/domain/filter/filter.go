// Package filter provides structured metadata filters: field predicates
// combined with AND/OR/NOT connectives, evaluated against a document's
// metadata mapping. A predicate on a field the document does not carry
// evaluates to false, never to an error.
package filter

import (
	"fmt"
	"time"
)

// Expression is a boolean predicate tree evaluated against document metadata.
type Expression interface {
	Matches(meta map[string]any) bool
	Validate() error
}

// And matches when every child expression matches.
func And(exprs ...Expression) Expression { return conjunction{exprs} }

// Or matches when at least one child expression matches.
func Or(exprs ...Expression) Expression { return disjunction{exprs} }

// Not inverts an expression.
func Not(expr Expression) Expression { return negation{expr} }

// Eq matches when the field equals value. For list-valued fields it matches
// when any element equals value.
func Eq(field string, value any) Expression {
	return predicate{field: field, op: opEq, values: []any{value}}
}

// In matches when the field equals any of the given values.
func In(field string, values ...any) Expression {
	return predicate{field: field, op: opIn, values: values}
}

// Gt matches when the field is strictly greater than value (number or date).
func Gt(field string, value any) Expression {
	return predicate{field: field, op: opGt, values: []any{value}}
}

// Gte matches when the field is greater than or equal to value.
func Gte(field string, value any) Expression {
	return predicate{field: field, op: opGte, values: []any{value}}
}

// Lt matches when the field is strictly less than value.
func Lt(field string, value any) Expression {
	return predicate{field: field, op: opLt, values: []any{value}}
}

// Lte matches when the field is less than or equal to value.
func Lte(field string, value any) Expression {
	return predicate{field: field, op: opLte, values: []any{value}}
}

type conjunction struct{ children []Expression }

func (c conjunction) Matches(meta map[string]any) bool {
	for _, child := range c.children {
		if !child.Matches(meta) {
			return false
		}
	}
	return true
}

func (c conjunction) Validate() error { return validateChildren("and", c.children) }

type disjunction struct{ children []Expression }

func (d disjunction) Matches(meta map[string]any) bool {
	for _, child := range d.children {
		if child.Matches(meta) {
			return true
		}
	}
	return false
}

func (d disjunction) Validate() error { return validateChildren("or", d.children) }

type negation struct{ child Expression }

func (n negation) Matches(meta map[string]any) bool {
	return !n.child.Matches(meta)
}

func (n negation) Validate() error {
	if n.child == nil {
		return fmt.Errorf("not: missing operand")
	}
	return n.child.Validate()
}

func validateChildren(op string, children []Expression) error {
	if len(children) == 0 {
		return fmt.Errorf("%s: requires at least one operand", op)
	}
	for _, child := range children {
		if child == nil {
			return fmt.Errorf("%s: nil operand", op)
		}
		if err := child.Validate(); err != nil {
			return err
		}
	}
	return nil
}

type operator int

const (
	opEq operator = iota
	opIn
	opGt
	opGte
	opLt
	opLte
)

type predicate struct {
	field  string
	op     operator
	values []any
}

func (p predicate) Matches(meta map[string]any) bool {
	got, ok := meta[p.field]
	if !ok || got == nil {
		return false
	}

	switch p.op {
	case opEq, opIn:
		for _, want := range p.values {
			if valueEquals(got, want) {
				return true
			}
		}
		return false
	default:
		cmp, ok := compareValues(got, p.values[0])
		if !ok {
			return false
		}
		switch p.op {
		case opGt:
			return cmp > 0
		case opGte:
			return cmp >= 0
		case opLt:
			return cmp < 0
		case opLte:
			return cmp <= 0
		}
		return false
	}
}

func (p predicate) Validate() error {
	if p.field == "" {
		return fmt.Errorf("predicate: field name is required")
	}
	if len(p.values) == 0 {
		return fmt.Errorf("predicate on %q: requires at least one value", p.field)
	}
	for _, v := range p.values {
		if v == nil {
			return fmt.Errorf("predicate on %q: nil value", p.field)
		}
		if !supportedValue(v) {
			return fmt.Errorf("predicate on %q: unsupported value type %T", p.field, v)
		}
	}
	if p.op != opEq && p.op != opIn {
		v := p.values[0]
		if _, isNum := asFloat(v); !isNum {
			if _, isDate := asTime(v); !isDate {
				return fmt.Errorf("predicate on %q: range bound must be a number or date, got %T", p.field, v)
			}
		}
	}
	return nil
}

func supportedValue(v any) bool {
	switch v.(type) {
	case string, bool, int, int32, int64, float32, float64, time.Time:
		return true
	}
	return false
}

// valueEquals compares a metadata value against a filter value. List-valued
// metadata matches when any element matches.
func valueEquals(got, want any) bool {
	switch list := got.(type) {
	case []any:
		for _, elem := range list {
			if valueEquals(elem, want) {
				return true
			}
		}
		return false
	case []string:
		for _, elem := range list {
			if valueEquals(elem, want) {
				return true
			}
		}
		return false
	}

	if gf, ok := asFloat(got); ok {
		if wf, ok := asFloat(want); ok {
			return gf == wf
		}
		return false
	}
	if gt, ok := asTime(got); ok {
		if wt, ok := asTime(want); ok {
			return gt.Equal(wt)
		}
		return false
	}
	return got == want
}

// compareValues orders two values as numbers or dates. Returns false when
// the values are not comparable.
func compareValues(got, want any) (int, bool) {
	if gf, ok := asFloat(got); ok {
		wf, ok := asFloat(want)
		if !ok {
			return 0, false
		}
		switch {
		case gf < wf:
			return -1, true
		case gf > wf:
			return 1, true
		}
		return 0, true
	}

	gt, ok := asTime(got)
	if !ok {
		return 0, false
	}
	wt, ok := asTime(want)
	if !ok {
		return 0, false
	}
	switch {
	case gt.Before(wt):
		return -1, true
	case gt.After(wt):
		return 1, true
	}
	return 0, true
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// asTime accepts time.Time directly and RFC 3339 or YYYY-MM-DD strings, so
// dates survive a JSON round trip through a persistent store.
func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed, true
		}
		if parsed, err := time.Parse("2006-01-02", t); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}
