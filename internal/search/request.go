package search

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"

	"github.com/kailas-cloud/rowdex/internal/schema"
)

// Search parameter limits.
const (
	DefaultLimit = 10
	MaxLimit     = 1000
)

// Request is a validated search request: a scoring query, an optional
// extra filter condition, sort directives and paging.
type Request struct {
	query   Condition
	filter  Condition
	sort    Sort
	limit   int
	offset  int
	refresh bool
}

// NewRequest normalizes search parameters.
// Defaults: query=all, limit=10 clamped to 1000, offset >= 0.
func NewRequest(query, filter Condition, sort Sort, limit, offset int, refresh bool) Request {
	if query == nil {
		query = &AllCondition{}
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return Request{query: query, filter: filter, sort: sort, limit: limit, offset: offset, refresh: refresh}
}

// Query returns the scoring condition.
func (r *Request) Query() Condition { return r.query }

// Filter returns the extra must condition, nil when unset.
func (r *Request) Filter() Condition { return r.filter }

// Sort returns the sort directives.
func (r *Request) Sort() Sort { return r.sort }

// Limit returns the maximum results to return.
func (r *Request) Limit() int { return r.limit }

// Offset returns the number of results to skip.
func (r *Request) Offset() int { return r.offset }

// Refresh reports whether buffered writes must be visible to this search.
func (r *Request) Refresh() bool { return r.refresh }

// Compile builds the engine search request. The filter joins the query in
// a conjunction; scores are not relevance-neutral for filtered clauses.
func (r *Request) Compile(s *schema.Schema) (*bleve.SearchRequest, error) {
	q, err := r.query.Compile(s)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	if r.filter != nil {
		fq, err := r.filter.Compile(s)
		if err != nil {
			return nil, fmt.Errorf("filter: %w", err)
		}
		q = bleve.NewConjunctionQuery(q, fq)
	}

	req := bleve.NewSearchRequestOptions(q, r.limit, r.offset, false)
	order, err := r.sort.Compile(s)
	if err != nil {
		return nil, err
	}
	if order != nil {
		req.SortByCustom(order)
	}
	return req, nil
}
