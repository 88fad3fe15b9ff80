package rowdex

import "time"

// Row is an untyped row for the low-level API: a partition key plus
// named column values.
type Row struct {
	Key     string
	Columns map[string]any
}

// TableInfo represents table metadata.
type TableInfo struct {
	Name      string
	Schema    string // JSON schema definition
	Options   map[string]string
	CreatedAt int64 // unix milliseconds
	Version   int
	State     string // index lifecycle state
}

// TableListResult is a paginated list of tables.
type TableListResult struct {
	Tables     []TableInfo
	NextCursor string
	HasMore    bool
}

// TableStats describes a table's storage and index footprint.
type TableStats struct {
	Rows      int
	IndexDocs uint64
	State     string
}

// BatchResult is the outcome of one row in a batch operation.
type BatchResult struct {
	Key string
	OK  bool
	Err error
}

// SearchResult is a single search hit hydrated from the row store.
type SearchResult struct {
	Key     string
	Score   float64
	Columns map[string]any
}

// SearchResponse carries hydrated hits plus engine totals. Total counts
// every index match; Results holds the requested page, minus hits whose
// rows were deleted after they were indexed.
type SearchResponse struct {
	Results []SearchResult
	Total   uint64
	Took    time.Duration
}

// HealthStatus represents the aggregated engine health.
type HealthStatus struct {
	Status  string            // "ok" or "degraded"
	Checks  map[string]string // component → "ok"/"error"
	Indexes map[string]string // table → index lifecycle state
}
