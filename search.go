package rowdex

import (
	"context"

	searchuc "github.com/kailas-cloud/rowdex/internal/usecase/search"
)

// SearchService runs condition-tree searches against one table. Obtain
// one via Engine.Search. For a typed, fluent alternative see Table and
// SearchBuilder.
type SearchService struct {
	table string
	svc   *searchuc.Service
}

// Search executes a raw JSON search request, for example:
//
//	{"query": {"type": "match", "field": "title", "value": "alpine"}, "limit": 5}
//
// Hits are ranked by the index and hydrated from the row store. A
// condition that cannot be compiled fails the call; it never degrades
// into an empty result.
func (s *SearchService) Search(ctx context.Context, requestJSON []byte) (*SearchResponse, error) {
	resp, err := s.svc.Search(ctx, s.table, requestJSON)
	if err != nil {
		return nil, err
	}
	return fromInternalResponse(resp), nil
}

func fromInternalResponse(resp *searchuc.Response) *SearchResponse {
	results := make([]SearchResult, len(resp.Results))
	for i, res := range resp.Results {
		results[i] = SearchResult{Key: res.Key, Score: res.Score, Columns: res.Columns}
	}
	return &SearchResponse{Results: results, Total: resp.Total, Took: resp.Took}
}
