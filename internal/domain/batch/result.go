package batch

// ItemStatus is the processing outcome of a single batch item.
type ItemStatus string

// Batch item status values.
const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
)

// Result is the outcome of processing one row in a batch operation.
type Result struct {
	key    string
	status ItemStatus
	err    error
}

// NewOK creates a successful batch result.
func NewOK(key string) Result { return Result{key: key, status: StatusOK} }

// NewError creates a failed batch result.
func NewError(key string, err error) Result { return Result{key: key, status: StatusError, err: err} }

// Key returns the row key of the item.
func (r Result) Key() string { return r.key }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }
