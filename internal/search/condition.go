// Package search holds the declarative condition tree that clients submit
// as JSON. Conditions compile against a table's schema into engine-native
// queries; compile errors always surface to the caller, so a malformed
// condition never degrades into a silent match-nothing query.
package search

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/kailas-cloud/rowdex/internal/domain"
	"github.com/kailas-cloud/rowdex/internal/schema"
)

// DefaultBoost is the score multiplier used when a condition sets none.
const DefaultBoost = 1.0

// Condition is one node of a boolean query tree.
type Condition interface {
	Compile(s *schema.Schema) (query.Query, error)
}

// resolveBoost validates an optional boost, defaulting to 1.0.
func resolveBoost(b *float64) (float64, error) {
	if b == nil {
		return DefaultBoost, nil
	}
	if *b < 0 {
		return 0, fmt.Errorf("%w: boost must be >= 0, got %v", domain.ErrInvalidArgument, *b)
	}
	return *b, nil
}

// resolveMapper validates the field name and looks up its mapper.
func resolveMapper(s *schema.Schema, field string) (schema.Mapper, error) {
	if strings.TrimSpace(field) == "" {
		return nil, fmt.Errorf("%w: field name required", domain.ErrInvalidArgument)
	}
	m, ok := s.Mapper(field)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownField, field)
	}
	return m, nil
}

// RangeCondition matches documents whose field value lies between Lower
// and Upper. A nil bound leaves that side unconstrained regardless of its
// include flag; both include flags default to exclusive. Bounds may be
// supplied in any representation the field's mapper accepts, including
// string-encoded numbers (use strings for int64 bounds beyond float64
// precision).
type RangeCondition struct {
	Field        string
	Lower        any
	Upper        any
	IncludeLower bool
	IncludeUpper bool
	Boost        *float64
}

// Compile dispatches on the mapper's base class: a lexicographic term
// range for text (bounds routed through the field analyzer), a numeric
// range for each of the four numeric bases. Any other base fails with the
// mapper's type name.
func (c *RangeCondition) Compile(s *schema.Schema) (query.Query, error) {
	boost, err := resolveBoost(c.Boost)
	if err != nil {
		return nil, err
	}
	m, err := resolveMapper(s, c.Field)
	if err != nil {
		return nil, err
	}

	var q query.BoostableQuery
	switch m.Base() {
	case schema.BaseText:
		q, err = c.textRange(m)
	case schema.BaseInt32:
		q, err = c.numericRange(m, func(v any) float64 { return float64(v.(int32)) })
	case schema.BaseInt64:
		q, err = c.numericRange(m, func(v any) float64 { return float64(v.(int64)) })
	case schema.BaseFloat32:
		q, err = c.numericRange(m, func(v any) float64 { return float64(v.(float32)) })
	case schema.BaseFloat64:
		q, err = c.numericRange(m, func(v any) float64 { return v.(float64) })
	default:
		return nil, fmt.Errorf("field %q: range: %w", c.Field, domain.NewUnsupportedType(m.Type()))
	}
	if err != nil {
		return nil, err
	}

	// Boost lands on the constructed query, after the type dispatch, so
	// scoring semantics are identical across all five branches.
	q.SetBoost(boost)
	return q, nil
}

func (c *RangeCondition) textRange(m schema.Mapper) (query.BoostableQuery, error) {
	lower, err := c.textBound(m, c.Lower, "lower")
	if err != nil {
		return nil, err
	}
	upper, err := c.textBound(m, c.Upper, "upper")
	if err != nil {
		return nil, err
	}
	inclLower, inclUpper := c.IncludeLower, c.IncludeUpper
	q := bleve.NewTermRangeInclusiveQuery(lower, upper, &inclLower, &inclUpper)
	q.SetField(c.Field)
	return q, nil
}

// textBound coerces and analyzes one term-range bound so it compares
// against the same terms the indexer wrote. The empty string is the
// engine's open-bound marker.
func (c *RangeCondition) textBound(m schema.Mapper, v any, side string) (string, error) {
	if v == nil {
		return "", nil
	}
	raw, err := m.QueryValue(c.Field, v)
	if err != nil {
		return "", fmt.Errorf("range %s bound: %w", side, err)
	}
	analyzed, err := m.Analyze(c.Field, raw.(string))
	if err != nil {
		return "", fmt.Errorf("range %s bound: %w", side, err)
	}
	return analyzed, nil
}

func (c *RangeCondition) numericRange(m schema.Mapper, widen func(any) float64) (query.BoostableQuery, error) {
	var min, max *float64
	if c.Lower != nil {
		v, err := m.QueryValue(c.Field, c.Lower)
		if err != nil {
			return nil, fmt.Errorf("range lower bound: %w", err)
		}
		f := widen(v)
		min = &f
	}
	if c.Upper != nil {
		v, err := m.QueryValue(c.Field, c.Upper)
		if err != nil {
			return nil, fmt.Errorf("range upper bound: %w", err)
		}
		f := widen(v)
		max = &f
	}
	inclLower, inclUpper := c.IncludeLower, c.IncludeUpper
	q := bleve.NewNumericRangeInclusiveQuery(min, max, &inclLower, &inclUpper)
	q.SetField(c.Field)
	return q, nil
}

// BooleanCondition combines child conditions: all of Must, at least one
// of Should, none of Not.
type BooleanCondition struct {
	Must   []Condition
	Should []Condition
	Not    []Condition
	Boost  *float64
}

// Compile compiles children independently and fail-fast: the first child
// error propagates and no partial tree is built.
func (c *BooleanCondition) Compile(s *schema.Schema) (query.Query, error) {
	boost, err := resolveBoost(c.Boost)
	if err != nil {
		return nil, err
	}
	if len(c.Must)+len(c.Should)+len(c.Not) == 0 {
		return nil, fmt.Errorf("%w: boolean condition requires at least one clause", domain.ErrInvalidArgument)
	}

	q := bleve.NewBooleanQuery()
	for i, child := range c.Must {
		cq, err := child.Compile(s)
		if err != nil {
			return nil, fmt.Errorf("must[%d]: %w", i, err)
		}
		q.AddMust(cq)
	}
	for i, child := range c.Should {
		cq, err := child.Compile(s)
		if err != nil {
			return nil, fmt.Errorf("should[%d]: %w", i, err)
		}
		q.AddShould(cq)
	}
	for i, child := range c.Not {
		cq, err := child.Compile(s)
		if err != nil {
			return nil, fmt.Errorf("not[%d]: %w", i, err)
		}
		q.AddMustNot(cq)
	}
	// Pure negation needs a positive clause to subtract from.
	if len(c.Must)+len(c.Should) == 0 {
		q.AddMust(bleve.NewMatchAllQuery())
	}

	q.SetBoost(boost)
	return q, nil
}

// AllCondition matches every document.
type AllCondition struct {
	Boost *float64
}

// Compile returns the engine match-all query.
func (c *AllCondition) Compile(_ *schema.Schema) (query.Query, error) {
	boost, err := resolveBoost(c.Boost)
	if err != nil {
		return nil, err
	}
	q := bleve.NewMatchAllQuery()
	q.SetBoost(boost)
	return q, nil
}

// NoneCondition matches no document.
type NoneCondition struct{}

// Compile returns the engine match-none query.
func (c *NoneCondition) Compile(_ *schema.Schema) (query.Query, error) {
	return bleve.NewMatchNoneQuery(), nil
}
