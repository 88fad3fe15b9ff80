package sdk

import (
	"errors"
	"fmt"
)

// Sentinel errors mapped from server error codes.
// Use errors.Is() to check.
var (
	ErrBadRequest       = errors.New("bad request")
	ErrValidation       = errors.New("validation failed")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrTableNotFound    = errors.New("table not found")
	ErrTableExists      = errors.New("table already exists")
	ErrRowNotFound      = errors.New("row not found")
	ErrIndexUnavailable = errors.New("index unavailable")
	ErrServer           = errors.New("server error")
)

// Error codes returned in the server's error envelope.
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

// APIError is a structured error response from the server. It unwraps
// to the sentinel matching its Code, so errors.Is(err, sdk.ErrTableNotFound)
// works on any error returned by the client.
type APIError struct {
	StatusCode int    // HTTP status
	Code       string // machine-readable error code
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("rowdex: http %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("rowdex: %s (%s, http %d)", e.Message, e.Code, e.StatusCode)
}

func (e *APIError) Unwrap() error {
	switch e.Code {
	case codeBadRequest:
		return ErrBadRequest
	case codeValidationFailed:
		return ErrValidation
	case codeUnauthorized:
		return ErrUnauthorized
	case codeTableNotFound:
		return ErrTableNotFound
	case codeRowNotFound:
		return ErrRowNotFound
	case codeTableExists:
		return ErrTableExists
	case codeIndexUnavailable:
		return ErrIndexUnavailable
	case codeInternalError:
		return ErrServer
	}
	return nil
}
