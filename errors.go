package rowdex

import (
	"github.com/kailas-cloud/rowdex/internal/domain"
	"github.com/kailas-cloud/rowdex/internal/index"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidArgument = domain.ErrInvalidArgument
	ErrInvalidValue    = domain.ErrInvalidValue
	ErrUnknownField    = domain.ErrUnknownField
	ErrUnsupportedType = domain.ErrUnsupportedType
	ErrInvalidSchema   = domain.ErrInvalidSchema
	ErrInvalidOptions  = domain.ErrInvalidOptions
	ErrTableNotFound   = domain.ErrTableNotFound
	ErrTableExists     = domain.ErrTableExists
	ErrRowNotFound     = domain.ErrRowNotFound
	ErrIndexRemoved    = domain.ErrIndexRemoved
	ErrIndexNotReady   = index.ErrNotReady
)
