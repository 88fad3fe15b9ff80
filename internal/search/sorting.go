package search

import (
	"fmt"
	"strings"

	bsearch "github.com/blevesearch/bleve/v2/search"

	"github.com/kailas-cloud/rowdex/internal/domain"
	"github.com/kailas-cloud/rowdex/internal/schema"
)

// SortingField orders results by one field. Reverse defaults to false
// (ascending).
type SortingField struct {
	Field   string `json:"field"`
	Reverse bool   `json:"reverse,omitempty"`
}

// SortField builds the engine sort directive. With a mapper present the
// construction is type-aware (numeric fields sort numerically). Without
// one it falls back to lexicographic ordering on the raw field name; the
// fallback is deliberate, it keeps store-native metadata fields sortable,
// and is never an unknown-field error.
func (sf SortingField) SortField(s *schema.Schema) (bsearch.SearchSort, error) {
	if strings.TrimSpace(sf.Field) == "" {
		return nil, fmt.Errorf("%w: sort field name required", domain.ErrInvalidArgument)
	}
	if m, ok := s.Mapper(sf.Field); ok {
		return m.SortField(sf.Field, sf.Reverse), nil
	}
	return &bsearch.SortField{
		Field:   sf.Field,
		Desc:    sf.Reverse,
		Type:    bsearch.SortFieldAsString,
		Missing: bsearch.SortFieldMissingLast,
	}, nil
}

// Sort is an ordered list of sorting fields; earlier entries win ties.
type Sort []SortingField

// Compile builds the engine sort order, nil when empty (relevance order).
func (s Sort) Compile(sch *schema.Schema) (bsearch.SortOrder, error) {
	if len(s) == 0 {
		return nil, nil
	}
	order := make(bsearch.SortOrder, 0, len(s))
	for i, sf := range s {
		directive, err := sf.SortField(sch)
		if err != nil {
			return nil, fmt.Errorf("sort[%d]: %w", i, err)
		}
		order = append(order, directive)
	}
	return order, nil
}
