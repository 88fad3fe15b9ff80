package sdk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// SortField orders results by a stored field. Missing values sort last.
type SortField struct {
	Field   string `json:"field"`
	Reverse bool   `json:"reverse,omitempty"`
}

// SearchRequest mirrors the JSON search request accepted by the server.
// Every field is optional; a nil Query means match-all. Filter narrows
// the result set without contributing to scores.
type SearchRequest struct {
	Query   Condition   `json:"query,omitempty"`
	Filter  Condition   `json:"filter,omitempty"`
	Sort    []SortField `json:"sort,omitempty"`
	Limit   int         `json:"limit,omitempty"`
	Offset  int         `json:"offset,omitempty"`
	Refresh bool        `json:"refresh,omitempty"`
}

// Condition is one node of the search condition tree, in the wire
// format understood by the server. Build nodes with Match, Phrase,
// Prefix, Wildcard, Range, Bool, MatchAll and MatchNone; the chainable
// methods only make sense on the node kind they belong to, and the
// server rejects misplaced keys.
type Condition map[string]any

// Match matches a field against a value: analyzed terms for text
// fields, exact points for numeric, date and boolean fields.
func Match(field string, value any) Condition {
	return Condition{"type": "match", "field": field, "value": value}
}

// Phrase matches text fields against an exact term sequence.
func Phrase(field, value string) Condition {
	return Condition{"type": "phrase", "field": field, "value": value}
}

// Prefix matches terms starting with the given string.
func Prefix(field, value string) Condition {
	return Condition{"type": "prefix", "field": field, "value": value}
}

// Wildcard matches terms against a pattern with * and ? placeholders.
func Wildcard(field, value string) Condition {
	return Condition{"type": "wildcard", "field": field, "value": value}
}

// Range starts an open range condition on a field. Bound it with Gt,
// Gte, Lt and Lte. Ranges work on text and numeric fields.
func Range(field string) Condition {
	return Condition{"type": "range", "field": field}
}

// Bool starts a boolean composite. Fill it with Must, Should and Not.
func Bool() Condition {
	return Condition{"type": "boolean"}
}

// MatchAll matches every indexed document.
func MatchAll() Condition {
	return Condition{"type": "all"}
}

// MatchNone matches nothing.
func MatchNone() Condition {
	return Condition{"type": "none"}
}

// Gt bounds a range from below, exclusive.
func (c Condition) Gt(v any) Condition {
	c["lower"] = v
	c["include_lower"] = false
	return c
}

// Gte bounds a range from below, inclusive.
func (c Condition) Gte(v any) Condition {
	c["lower"] = v
	c["include_lower"] = true
	return c
}

// Lt bounds a range from above, exclusive.
func (c Condition) Lt(v any) Condition {
	c["upper"] = v
	c["include_upper"] = false
	return c
}

// Lte bounds a range from above, inclusive.
func (c Condition) Lte(v any) Condition {
	c["upper"] = v
	c["include_upper"] = true
	return c
}

// Must adds clauses that every hit has to satisfy.
func (c Condition) Must(conds ...Condition) Condition {
	c["must"] = appendClause(c["must"], conds)
	return c
}

// Should adds clauses that raise the score when satisfied. With no
// must clauses at least one should clause has to match.
func (c Condition) Should(conds ...Condition) Condition {
	c["should"] = appendClause(c["should"], conds)
	return c
}

// Not adds clauses that exclude matching hits.
func (c Condition) Not(conds ...Condition) Condition {
	c["not"] = appendClause(c["not"], conds)
	return c
}

// Boost scales the node's score contribution.
func (c Condition) Boost(factor float64) Condition {
	c["boost"] = factor
	return c
}

func appendClause(existing any, conds []Condition) []Condition {
	list, _ := existing.([]Condition)
	return append(list, conds...)
}

// SearchService queries one table. Obtain one via Client.Search.
type SearchService struct {
	table string
	c     *Client
}

// Run executes a search request and returns hydrated hits.
func (s *SearchService) Run(ctx context.Context, req *SearchRequest) (*SearchResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("search: encode request: %w", err)
	}
	return s.RunRaw(ctx, body)
}

// RunRaw executes a search request given as raw JSON, for callers that
// build or store request documents themselves.
func (s *SearchService) RunRaw(ctx context.Context, requestJSON []byte) (_ *SearchResponse, err error) {
	start := time.Now()
	defer func() { s.c.obs.observe("search", start, err) }()

	var resp SearchResponse
	if err = s.c.do(ctx, http.MethodPost, tablePath(s.table, "/search"), json.RawMessage(requestJSON), &resp); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return &resp, nil
}
