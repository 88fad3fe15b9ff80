package sdk

import (
	"encoding/json"
	"time"
)

// Row is a partition key plus named column values.
type Row struct {
	Key     string         `json:"key"`
	Columns map[string]any `json:"columns"`
}

// TableInfo represents table metadata as returned by the server.
type TableInfo struct {
	Name      string            `json:"name"`
	Schema    json.RawMessage   `json:"schema"`
	Options   map[string]string `json:"options,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	Version   int               `json:"version"`
	State     string            `json:"state,omitempty"`
}

// TableListResult is a paginated list of tables.
type TableListResult struct {
	Tables     []TableInfo `json:"items"`
	HasMore    bool        `json:"has_more"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

// TableStats describes a table's storage and index footprint.
type TableStats struct {
	Rows      int    `json:"rows"`
	IndexDocs uint64 `json:"index_docs"`
	State     string `json:"state"`
}

// ErrorInfo is the error detail attached to a failed batch item.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// BatchResult is the outcome of one row in a batch operation.
type BatchResult struct {
	Key    string     `json:"key"`
	Status string     `json:"status"`
	Error  *ErrorInfo `json:"error,omitempty"`
}

// OK reports whether the item was applied.
func (r BatchResult) OK() bool { return r.Status == "ok" }

// BatchResponse carries per-row outcomes of a batch upsert.
type BatchResponse struct {
	Items     []BatchResult `json:"items"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
}

// SearchResult is a single search hit hydrated from the row store.
type SearchResult struct {
	Key     string         `json:"key"`
	Score   float64        `json:"score"`
	Columns map[string]any `json:"columns,omitempty"`
}

// SearchResponse carries hydrated hits plus engine totals. Total counts
// every index match; Results holds the requested page.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
	Total   uint64         `json:"total"`
	TookMs  int64          `json:"took_ms"`
}

// HealthStatus represents the aggregated server health.
type HealthStatus struct {
	Status  string            `json:"status"`            // "ok" or "degraded"
	Checks  map[string]string `json:"checks"`            // component → "ok"/"error"
	Indexes map[string]string `json:"indexes,omitempty"` // table → index lifecycle state
}

// tableRequest is the body of PUT /tables/{table}.
type tableRequest struct {
	Schema  json.RawMessage   `json:"schema,omitempty"`
	Options map[string]string `json:"options,omitempty"`
}

// batchRequest is the body of POST /tables/{table}/rows:batch.
type batchRequest struct {
	Rows []Row `json:"rows"`
}

// truncateRequest is the body of POST /tables/{table}/truncate.
type truncateRequest struct {
	Before *time.Time `json:"before,omitempty"`
}
