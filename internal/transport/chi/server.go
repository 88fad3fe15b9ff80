package chi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"time"

	gochi "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/rowdex/internal/domain"
	dombatch "github.com/kailas-cloud/rowdex/internal/domain/batch"
	domrow "github.com/kailas-cloud/rowdex/internal/domain/row"
	domtab "github.com/kailas-cloud/rowdex/internal/domain/table"
	"github.com/kailas-cloud/rowdex/internal/index"
	"github.com/kailas-cloud/rowdex/internal/logger"
	batchuc "github.com/kailas-cloud/rowdex/internal/usecase/batch"
	healthuc "github.com/kailas-cloud/rowdex/internal/usecase/health"
	rowuc "github.com/kailas-cloud/rowdex/internal/usecase/row"
	searchuc "github.com/kailas-cloud/rowdex/internal/usecase/search"
	tableuc "github.com/kailas-cloud/rowdex/internal/usecase/table"
)

// Error codes returned in the JSON error envelope.
const (
	codeBadRequest       = "bad_request"
	codeValidationFailed = "validation_failed"
	codeUnauthorized     = "unauthorized"
	codeTableNotFound    = "table_not_found"
	codeRowNotFound      = "row_not_found"
	codeTableExists      = "table_already_exists"
	codeIndexUnavailable = "index_unavailable"
	codeInternalError    = "internal_error"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// TableRequest is the body of PUT /tables/{table}.
type TableRequest struct {
	Schema  json.RawMessage   `json:"schema,omitempty"`
	Options map[string]string `json:"options,omitempty"`
}

// TableResponse describes a table definition plus its index state.
type TableResponse struct {
	Name      string            `json:"name"`
	Schema    json.RawMessage   `json:"schema"`
	Options   map[string]string `json:"options,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	Version   int               `json:"version"`
	State     string            `json:"state,omitempty"`
}

// TableListResponse is a cursor-paginated table listing.
type TableListResponse struct {
	Items      []TableResponse `json:"items"`
	HasMore    bool            `json:"has_more"`
	NextCursor *string         `json:"next_cursor,omitempty"`
}

// RowResponse is one stored row.
type RowResponse struct {
	Key     string         `json:"key"`
	Columns map[string]any `json:"columns"`
}

// BatchUpsertRequest is the body of POST /tables/{table}/rows:batch.
type BatchUpsertRequest struct {
	Rows []BatchRowItem `json:"rows"`
}

// BatchRowItem is one row in a batch upsert.
type BatchRowItem struct {
	Key     string         `json:"key"`
	Columns map[string]any `json:"columns"`
}

// BatchResultItem reports the outcome for one batch row.
type BatchResultItem struct {
	Key    string         `json:"key"`
	Status string         `json:"status"`
	Error  *ErrorResponse `json:"error,omitempty"`
}

// BatchUpsertResponse summarizes a batch upsert.
type BatchUpsertResponse struct {
	Items     []BatchResultItem `json:"items"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
}

// SearchResultItem is one ranked hit.
type SearchResultItem struct {
	Key     string         `json:"key"`
	Score   float64        `json:"score"`
	Columns map[string]any `json:"columns,omitempty"`
}

// SearchResponse carries hydrated hits plus engine totals.
type SearchResponse struct {
	Results []SearchResultItem `json:"results"`
	Total   uint64             `json:"total"`
	TookMs  int64              `json:"took_ms"`
}

// TruncateRequest is the optional body of POST /tables/{table}/truncate.
// A missing or zero "before" removes every indexed row.
type TruncateRequest struct {
	Before *time.Time `json:"before,omitempty"`
}

// StatsResponse reports a table's storage and index footprint.
type StatsResponse struct {
	Rows      int    `json:"rows"`
	IndexDocs uint64 `json:"index_docs"`
	State     string `json:"state"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Indexes map[string]string `json:"indexes,omitempty"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the table, row and search services over HTTP.
type Server struct {
	tables        *tableuc.Service
	rows          *rowuc.Service
	search        *searchuc.Service
	batch         *batchuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	tables *tableuc.Service,
	rows *rowuc.Service,
	search *searchuc.Service,
	batch *batchuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		tables: tables,
		rows:   rows,
		search: search,
		batch:  batch,
		health: health,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrTableNotFound, http.StatusNotFound, codeTableNotFound),
		sentinelHandler(domain.ErrRowNotFound, http.StatusNotFound, codeRowNotFound),
		sentinelHandler(domain.ErrTableExists, http.StatusConflict, codeTableExists),
		sentinelHandler(domain.ErrInvalidArgument, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrInvalidValue, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrUnknownField, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrUnsupportedType, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrInvalidSchema, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrInvalidOptions, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(index.ErrNotReady, http.StatusServiceUnavailable, codeIndexUnavailable),
		sentinelHandler(domain.ErrIndexRemoved, http.StatusServiceUnavailable, codeIndexUnavailable),
	}
	return s
}

// Routes mounts all API endpoints on the given router.
func (s *Server) Routes(r gochi.Router) {
	r.Get("/healthz", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1/tables", func(r gochi.Router) {
		r.Get("/", s.ListTables)
		r.Route("/{table}", func(r gochi.Router) {
			r.Put("/", s.PutTable)
			r.Get("/", s.GetTable)
			r.Delete("/", s.DropTable)
			r.Get("/stats", s.TableStats)
			r.Post("/search", s.Search)
			r.Post("/commit", s.CommitTable)
			r.Post("/truncate", s.TruncateTable)
			r.Post("/reload", s.ReloadTable)
			r.Post("/rows:batch", s.BatchUpsert)
			r.Route("/rows/{key}", func(r gochi.Router) {
				r.Put("/", s.UpsertRow)
				r.Get("/", s.GetRow)
				r.Delete("/", s.DeleteRow)
			})
		})
	})
}

// PutTable handles PUT /tables/{table}: creates the table, or updates
// its index options when it already exists. The schema is immutable.
func (s *Server) PutTable(w http.ResponseWriter, r *http.Request) {
	name := gochi.URLParam(r, "table")

	var req TableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	existing, err := s.tables.Get(r.Context(), name)
	if errors.Is(err, domain.ErrTableNotFound) {
		tab, err := s.tables.Create(r.Context(), name, string(req.Schema), req.Options)
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		w.Header().Set("Location", "/api/v1/tables/"+tab.Name())
		writeJSON(w, http.StatusCreated, s.tableToResponse(tab))
		return
	}
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	if len(req.Schema) > 0 && !schemaEqual(req.Schema, existing.SchemaJSON()) {
		writeError(w, http.StatusBadRequest, codeValidationFailed,
			"schema cannot be altered; drop and recreate the table")
		return
	}

	tab, err := s.tables.Alter(r.Context(), name, req.Options)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.tableToResponse(tab))
}

// GetTable handles GET /tables/{table}.
func (s *Server) GetTable(w http.ResponseWriter, r *http.Request) {
	name := gochi.URLParam(r, "table")

	tab, err := s.tables.Get(r.Context(), name)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.Header().Set("ETag", strconv.Quote(strconv.Itoa(tab.Version())))
	writeJSON(w, http.StatusOK, s.tableToResponse(tab))
}

// DropTable handles DELETE /tables/{table}.
func (s *Server) DropTable(w http.ResponseWriter, r *http.Request) {
	name := gochi.URLParam(r, "table")

	if err := s.tables.Drop(r.Context(), name); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListTables handles GET /tables.
func (s *Server) ListTables(w http.ResponseWriter, r *http.Request) {
	tabs, err := s.tables.List(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]TableResponse, len(tabs))
	for i, t := range tabs {
		items[i] = s.tableToResponse(t)
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, codeBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	writeJSON(w, http.StatusOK, paginateTables(items, r.URL.Query().Get("cursor"), limit))
}

func paginateTables(items []TableResponse, cursor string, limit int) TableListResponse {
	startIdx := 0
	if cursor != "" {
		for i, item := range items {
			if item.Name == cursor {
				startIdx = i + 1
				break
			}
		}
	}

	if startIdx > len(items) {
		startIdx = len(items)
	}
	end := startIdx + limit
	if end > len(items) {
		end = len(items)
	}

	page := items[startIdx:end]
	hasMore := end < len(items)

	resp := TableListResponse{
		Items:   page,
		HasMore: hasMore,
	}
	if hasMore && len(page) > 0 {
		c := page[len(page)-1].Name
		resp.NextCursor = &c
	}
	return resp
}

// UpsertRow handles PUT /tables/{table}/rows/{key}.
func (s *Server) UpsertRow(w http.ResponseWriter, r *http.Request) {
	table := gochi.URLParam(r, "table")
	key := gochi.URLParam(r, "key")

	columns, err := decodeColumns(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	row, err := domrow.New(key, columns)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	if err := s.rows.Upsert(r.Context(), table, row); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, rowToResponse(row))
}

// GetRow handles GET /tables/{table}/rows/{key}.
func (s *Server) GetRow(w http.ResponseWriter, r *http.Request) {
	table := gochi.URLParam(r, "table")
	key := gochi.URLParam(r, "key")

	row, err := s.rows.Get(r.Context(), table, key)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, rowToResponse(row))
}

// DeleteRow handles DELETE /tables/{table}/rows/{key}.
func (s *Server) DeleteRow(w http.ResponseWriter, r *http.Request) {
	table := gochi.URLParam(r, "table")
	key := gochi.URLParam(r, "key")

	if err := s.rows.Delete(r.Context(), table, key); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// BatchUpsert handles POST /tables/{table}/rows:batch.
func (s *Server) BatchUpsert(w http.ResponseWriter, r *http.Request) {
	table := gochi.URLParam(r, "table")

	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var req BatchUpsertRequest
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if len(req.Rows) == 0 {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "rows must not be empty")
		return
	}

	items := make([]batchuc.Item, len(req.Rows))
	for i, row := range req.Rows {
		items[i] = batchuc.Item{Key: row.Key, Columns: normalizeColumns(row.Columns)}
	}

	results := s.batch.Upsert(r.Context(), table, items)

	succeeded, failed := 0, 0
	out := make([]BatchResultItem, len(results))
	for i, res := range results {
		out[i] = batchResultToResponse(res)
		if res.Status() == dombatch.StatusOK {
			succeeded++
		} else {
			failed++
		}
	}

	writeJSON(w, http.StatusOK, BatchUpsertResponse{
		Items:     out,
		Succeeded: succeeded,
		Failed:    failed,
	})
}

// Search handles POST /tables/{table}/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	table := gochi.URLParam(r, "table")

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	resp, err := s.search.Search(r.Context(), table, raw)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]SearchResultItem, len(resp.Results))
	for i, res := range resp.Results {
		items[i] = SearchResultItem{Key: res.Key, Score: res.Score, Columns: res.Columns}
	}

	writeJSON(w, http.StatusOK, SearchResponse{
		Results: items,
		Total:   resp.Total,
		TookMs:  resp.Took.Milliseconds(),
	})
}

// CommitTable handles POST /tables/{table}/commit.
func (s *Server) CommitTable(w http.ResponseWriter, r *http.Request) {
	name := gochi.URLParam(r, "table")

	if err := s.tables.Commit(r.Context(), name); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// TruncateTable handles POST /tables/{table}/truncate.
func (s *Server) TruncateTable(w http.ResponseWriter, r *http.Request) {
	name := gochi.URLParam(r, "table")

	var req TruncateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	var before time.Time
	if req.Before != nil {
		before = *req.Before
	}

	if err := s.tables.Truncate(r.Context(), name, before); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ReloadTable handles POST /tables/{table}/reload.
func (s *Server) ReloadTable(w http.ResponseWriter, r *http.Request) {
	name := gochi.URLParam(r, "table")

	if err := s.tables.Reload(r.Context(), name); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// TableStats handles GET /tables/{table}/stats.
func (s *Server) TableStats(w http.ResponseWriter, r *http.Request) {
	name := gochi.URLParam(r, "table")

	stats, err := s.rows.Stats(r.Context(), name)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, StatsResponse{
		Rows:      stats.Rows,
		IndexDocs: stats.IndexDocs,
		State:     stats.State,
	})
}

// HealthCheck handles GET /healthz.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:  string(report.Status),
		Checks:  checks,
		Indexes: report.States,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) tableToResponse(t domtab.Table) TableResponse {
	resp := TableResponse{
		Name:      t.Name(),
		Schema:    json.RawMessage(t.SchemaJSON()),
		Options:   t.Options(),
		CreatedAt: time.UnixMilli(t.CreatedAt()).UTC(),
		Version:   t.Version(),
	}
	if ctrl, ok := s.tables.Controller(t.Name()); ok {
		resp.State = ctrl.State().String()
	}
	return resp
}

func rowToResponse(r domrow.Row) RowResponse {
	return RowResponse{Key: r.Key(), Columns: r.Columns()}
}

func batchResultToResponse(r dombatch.Result) BatchResultItem {
	item := BatchResultItem{
		Key:    r.Key(),
		Status: string(r.Status()),
	}
	if r.Err() != nil {
		item.Error = &ErrorResponse{
			Code:    batchErrorCode(r.Err()),
			Message: safeDomainMessage(r.Err()),
		}
	}
	return item
}

func batchErrorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrTableNotFound):
		return codeTableNotFound
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidValue):
		return codeValidationFailed
	default:
		return codeInternalError
	}
}

// schemaEqual compares two schema documents structurally, ignoring
// formatting differences.
func schemaEqual(a json.RawMessage, b string) bool {
	var av, bv any
	if err := json.Unmarshal(a, &av); err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(b), &bv); err != nil {
		return false
	}
	return reflect.DeepEqual(av, bv)
}

// decodeColumns decodes a JSON column object keeping integers intact:
// json.Number becomes int64 where it fits, float64 otherwise.
func decodeColumns(body io.Reader) (map[string]any, error) {
	dec := json.NewDecoder(body)
	dec.UseNumber()
	var columns map[string]any
	if err := dec.Decode(&columns); err != nil {
		return nil, err
	}
	return normalizeColumns(columns), nil
}

func normalizeColumns(columns map[string]any) map[string]any {
	for k, v := range columns {
		columns[k] = normalizeValue(v)
	}
	return columns
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case []any:
		for i := range t {
			t[i] = normalizeValue(t[i])
		}
		return t
	case map[string]any:
		for k := range t {
			t[k] = normalizeValue(t[k])
		}
		return t
	default:
		return v
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage keeps client-caused error detail and hides the rest.
// Validation and lookup failures echo the full message; anything else is
// collapsed so store internals never reach the client.
func safeDomainMessage(err error) string {
	clientSentinels := []error{
		domain.ErrTableNotFound,
		domain.ErrRowNotFound,
		domain.ErrTableExists,
		domain.ErrInvalidArgument,
		domain.ErrInvalidValue,
		domain.ErrUnknownField,
		domain.ErrUnsupportedType,
		domain.ErrInvalidSchema,
		domain.ErrInvalidOptions,
		index.ErrNotReady,
		domain.ErrIndexRemoved,
	}
	for _, s := range clientSentinels {
		if errors.Is(err, s) {
			return err.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// handleDomainError maps a domain error to an HTTP response. Logging goes
// through the request-scoped logger when the middleware installed one, so
// entries carry the request id.
func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContextOr(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
