package rowdex

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/rowdex/internal/search"
)

// Hit is a typed search result.
type Hit[T any] struct {
	Item  T
	Score float64
}

// SearchBuilder is a fluent builder for typed search queries. Every
// added predicate must match; richer trees go through Raw.
type SearchBuilder[T any] struct {
	tab *Table[T]

	conds    []search.Condition
	setBoost func(*float64) // boost setter for the last added predicate
	err      error

	sort    search.Sort
	limit   int
	offset  int
	refresh bool
}

func (b *SearchBuilder[T]) add(c search.Condition, setBoost func(*float64)) *SearchBuilder[T] {
	b.conds = append(b.conds, c)
	b.setBoost = setBoost
	return b
}

// Match adds an analyzed full-text match on a field. For non-text
// mappers the value must be an exact term in the field's type.
func (b *SearchBuilder[T]) Match(field string, value any) *SearchBuilder[T] {
	c := &search.MatchCondition{Field: field, Value: value}
	return b.add(c, func(f *float64) { c.Boost = f })
}

// Phrase adds an exact phrase match on a text field.
func (b *SearchBuilder[T]) Phrase(field, value string) *SearchBuilder[T] {
	c := &search.PhraseCondition{Field: field, Value: value}
	return b.add(c, func(f *float64) { c.Boost = f })
}

// Prefix adds a term prefix match on a text field.
func (b *SearchBuilder[T]) Prefix(field, value string) *SearchBuilder[T] {
	c := &search.PrefixCondition{Field: field, Value: value}
	return b.add(c, func(f *float64) { c.Boost = f })
}

// Wildcard adds a wildcard term match on a text field. * matches any
// run of characters, ? a single one.
func (b *SearchBuilder[T]) Wildcard(field, value string) *SearchBuilder[T] {
	c := &search.WildcardCondition{Field: field, Value: value}
	return b.add(c, func(f *float64) { c.Boost = f })
}

// Gt adds an exclusive lower bound on a field.
func (b *SearchBuilder[T]) Gt(field string, value any) *SearchBuilder[T] {
	c := &search.RangeCondition{Field: field, Lower: value}
	return b.add(c, func(f *float64) { c.Boost = f })
}

// Gte adds an inclusive lower bound on a field.
func (b *SearchBuilder[T]) Gte(field string, value any) *SearchBuilder[T] {
	c := &search.RangeCondition{Field: field, Lower: value, IncludeLower: true}
	return b.add(c, func(f *float64) { c.Boost = f })
}

// Lt adds an exclusive upper bound on a field. Combine with Gte for a
// half-open interval: .Gte("age", 18).Lt("age", 65).
func (b *SearchBuilder[T]) Lt(field string, value any) *SearchBuilder[T] {
	c := &search.RangeCondition{Field: field, Upper: value}
	return b.add(c, func(f *float64) { c.Boost = f })
}

// Lte adds an inclusive upper bound on a field.
func (b *SearchBuilder[T]) Lte(field string, value any) *SearchBuilder[T] {
	c := &search.RangeCondition{Field: field, Upper: value, IncludeUpper: true}
	return b.add(c, func(f *float64) { c.Boost = f })
}

// Raw adds a predicate given as condition JSON, for trees the fluent
// methods cannot express:
//
//	b.Raw(`{"type": "boolean", "should": [
//	    {"type": "match", "field": "city", "value": "berlin"},
//	    {"type": "match", "field": "city", "value": "hamburg"}]}`)
//
// A parse error is reported by Do.
func (b *SearchBuilder[T]) Raw(conditionJSON string) *SearchBuilder[T] {
	c, err := search.ParseCondition([]byte(conditionJSON))
	if err != nil {
		if b.err == nil {
			b.err = err
		}
		return b
	}
	return b.add(c, nil)
}

// Boost multiplies the scoring weight of the most recently added
// predicate.
func (b *SearchBuilder[T]) Boost(factor float64) *SearchBuilder[T] {
	if b.setBoost != nil {
		b.setBoost(&factor)
	}
	return b
}

// SortBy appends an ascending sort on a field, overriding score order.
func (b *SearchBuilder[T]) SortBy(field string) *SearchBuilder[T] {
	b.sort = append(b.sort, search.SortingField{Field: field})
	return b
}

// SortByDesc appends a descending sort on a field.
func (b *SearchBuilder[T]) SortByDesc(field string) *SearchBuilder[T] {
	b.sort = append(b.sort, search.SortingField{Field: field, Reverse: true})
	return b
}

// Limit caps the number of hits. Default 10, maximum 1000.
func (b *SearchBuilder[T]) Limit(n int) *SearchBuilder[T] {
	b.limit = n
	return b
}

// Offset skips the first n hits.
func (b *SearchBuilder[T]) Offset(n int) *SearchBuilder[T] {
	b.offset = n
	return b
}

// Refresh commits buffered index writes before searching, so the
// table's own latest writes are visible to this query.
func (b *SearchBuilder[T]) Refresh() *SearchBuilder[T] {
	b.refresh = true
	return b
}

// Do executes the search and returns typed hits hydrated from the row
// store. No predicates means match-all.
func (b *SearchBuilder[T]) Do(ctx context.Context) ([]Hit[T], error) {
	if b.err != nil {
		return nil, fmt.Errorf("search %q: %w", b.tab.name, b.err)
	}

	var q search.Condition
	switch len(b.conds) {
	case 0:
		q = &search.AllCondition{}
	case 1:
		q = b.conds[0]
	default:
		q = &search.BooleanCondition{Must: b.conds}
	}

	req := search.NewRequest(q, nil, b.sort, b.limit, b.offset, b.refresh)
	resp, err := b.tab.eng.searchSvc.Run(ctx, b.tab.name, &req)
	if err != nil {
		return nil, err
	}

	hits := make([]Hit[T], 0, len(resp.Results))
	for _, res := range resp.Results {
		item, ok := b.tab.meta.fromRow(res.Key, res.Columns).(T)
		if !ok {
			continue
		}
		hits = append(hits, Hit[T]{Item: item, Score: res.Score})
	}
	return hits, nil
}
