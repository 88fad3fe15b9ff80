package search

import (
	"fmt"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/kailas-cloud/rowdex/internal/domain"
	"github.com/kailas-cloud/rowdex/internal/schema"
)

// MatchCondition matches documents whose field equals Value. Analyzed text
// fields match by analyzed token, keyword fields by exact term, numeric
// and date fields by exact value, boolean fields by truth value.
type MatchCondition struct {
	Field string
	Value any
	Boost *float64
}

// Compile builds the equality query for the field's base class.
func (c *MatchCondition) Compile(s *schema.Schema) (query.Query, error) {
	boost, err := resolveBoost(c.Boost)
	if err != nil {
		return nil, err
	}
	m, err := resolveMapper(s, c.Field)
	if err != nil {
		return nil, err
	}
	if c.Value == nil {
		return nil, fmt.Errorf("%w: match value required", domain.ErrInvalidArgument)
	}

	v, err := m.QueryValue(c.Field, c.Value)
	if err != nil {
		return nil, fmt.Errorf("match value: %w", err)
	}

	var q query.BoostableQuery
	switch m.Base() {
	case schema.BaseText:
		if m.Analyzed() {
			mq := bleve.NewMatchQuery(v.(string))
			mq.SetField(c.Field)
			q = mq
		} else {
			tq := bleve.NewTermQuery(v.(string))
			tq.SetField(c.Field)
			q = tq
		}
	case schema.BaseInt32:
		q = exactNumeric(c.Field, float64(v.(int32)))
	case schema.BaseInt64:
		q = exactNumeric(c.Field, float64(v.(int64)))
	case schema.BaseFloat32:
		q = exactNumeric(c.Field, float64(v.(float32)))
	case schema.BaseFloat64:
		q = exactNumeric(c.Field, v.(float64))
	case schema.BaseBool:
		bq := bleve.NewBoolFieldQuery(v.(bool))
		bq.SetField(c.Field)
		q = bq
	case schema.BaseDate:
		t := v.(time.Time)
		incl := true
		dq := bleve.NewDateRangeInclusiveQuery(t, t, &incl, &incl)
		dq.SetField(c.Field)
		q = dq
	default:
		return nil, fmt.Errorf("field %q: match: %w", c.Field, domain.NewUnsupportedType(m.Type()))
	}

	q.SetBoost(boost)
	return q, nil
}

func exactNumeric(field string, f float64) query.BoostableQuery {
	incl := true
	q := bleve.NewNumericRangeInclusiveQuery(&f, &f, &incl, &incl)
	q.SetField(field)
	return q
}

// PhraseCondition matches analyzed text fields containing the phrase's
// tokens in order.
type PhraseCondition struct {
	Field string
	Value string
	Boost *float64
}

// Compile builds a match-phrase query. Only analyzed text fields carry
// positions, so any other mapper fails with its type name.
func (c *PhraseCondition) Compile(s *schema.Schema) (query.Query, error) {
	boost, err := resolveBoost(c.Boost)
	if err != nil {
		return nil, err
	}
	m, err := resolveMapper(s, c.Field)
	if err != nil {
		return nil, err
	}
	if c.Value == "" {
		return nil, fmt.Errorf("%w: phrase value required", domain.ErrInvalidArgument)
	}
	if m.Base() != schema.BaseText || !m.Analyzed() {
		return nil, fmt.Errorf("field %q: phrase: %w", c.Field, domain.NewUnsupportedType(m.Type()))
	}

	q := bleve.NewMatchPhraseQuery(c.Value)
	q.SetField(c.Field)
	q.SetBoost(boost)
	return q, nil
}

// PrefixCondition matches text fields whose indexed terms start with
// Value. The value is compared verbatim against indexed terms, it is not
// analyzed first.
type PrefixCondition struct {
	Field string
	Value string
	Boost *float64
}

// Compile builds a term-prefix query for text fields.
func (c *PrefixCondition) Compile(s *schema.Schema) (query.Query, error) {
	boost, err := resolveBoost(c.Boost)
	if err != nil {
		return nil, err
	}
	m, err := resolveMapper(s, c.Field)
	if err != nil {
		return nil, err
	}
	if c.Value == "" {
		return nil, fmt.Errorf("%w: prefix value required", domain.ErrInvalidArgument)
	}
	if m.Base() != schema.BaseText {
		return nil, fmt.Errorf("field %q: prefix: %w", c.Field, domain.NewUnsupportedType(m.Type()))
	}

	q := bleve.NewPrefixQuery(c.Value)
	q.SetField(c.Field)
	q.SetBoost(boost)
	return q, nil
}

// WildcardCondition matches text fields against a pattern where `*` spans
// any run of characters and `?` exactly one. Patterns match indexed terms
// verbatim, they are not analyzed.
type WildcardCondition struct {
	Field string
	Value string
	Boost *float64
}

// Compile builds a wildcard query for text fields.
func (c *WildcardCondition) Compile(s *schema.Schema) (query.Query, error) {
	boost, err := resolveBoost(c.Boost)
	if err != nil {
		return nil, err
	}
	m, err := resolveMapper(s, c.Field)
	if err != nil {
		return nil, err
	}
	if c.Value == "" {
		return nil, fmt.Errorf("%w: wildcard pattern required", domain.ErrInvalidArgument)
	}
	if m.Base() != schema.BaseText {
		return nil, fmt.Errorf("field %q: wildcard: %w", c.Field, domain.NewUnsupportedType(m.Type()))
	}

	q := bleve.NewWildcardQuery(c.Value)
	q.SetField(c.Field)
	q.SetBoost(boost)
	return q, nil
}
