// Package schema maps store columns onto engine fields. A Schema is an
// immutable set of per-field Mappers built from a JSON definition; it is
// replaced wholesale on reload and shared by reference across concurrent
// compiles, so nothing here locks.
package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search"

	"github.com/kailas-cloud/rowdex/internal/domain"
)

// Base is the mapper's base value class. The condition compiler dispatches
// query shapes on this tag instead of inspecting mapper implementations.
type Base int

const (
	// BaseText covers analyzed and keyword string fields.
	BaseText Base = iota
	// BaseInt32 is a 32-bit signed integer field.
	BaseInt32
	// BaseInt64 is a 64-bit signed integer field.
	BaseInt64
	// BaseFloat32 is a 32-bit float field.
	BaseFloat32
	// BaseFloat64 is a 64-bit float field.
	BaseFloat64
	// BaseBool is a boolean field.
	BaseBool
	// BaseDate is a timestamp field.
	BaseDate
)

// String returns the base class name.
func (b Base) String() string {
	switch b {
	case BaseText:
		return "text"
	case BaseInt32:
		return "int32"
	case BaseInt64:
		return "int64"
	case BaseFloat32:
		return "float32"
	case BaseFloat64:
		return "float64"
	case BaseBool:
		return "bool"
	case BaseDate:
		return "date"
	default:
		return "unknown"
	}
}

// Mapper adapts one store column to one engine field.
type Mapper interface {
	// Type returns the mapper type name used in schema JSON ("integer", "text", ...).
	Type() string
	// Base returns the base value class for query-shape dispatch.
	Base() Base
	// QueryValue coerces a caller-supplied value into the mapper's native type.
	// It accepts any representation accepted at write time (native numerics,
	// string-encoded numbers) and fails fast on mismatch; integer mappers
	// reject fractional floats rather than truncate.
	QueryValue(field string, v any) (any, error)
	// Analyzed reports whether indexed values pass through a text analyzer.
	Analyzed() bool
	// Analyze runs the field's analyzer over text. Identity for non-analyzed
	// mappers. Range and match compilation route query text through this so
	// matching respects the same tokenization as indexing.
	Analyze(field, text string) (string, error)
	// SortField builds the engine sort directive for this field.
	SortField(field string, reverse bool) search.SearchSort
	// FieldMapping builds the engine index mapping for this field.
	FieldMapping() *mapping.FieldMapping
}

// --- shared coercion helpers ---

func coerceString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case bool:
		return strconv.FormatBool(x), nil
	case int:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case json.Number:
		return x.String(), nil
	default:
		return "", fmt.Errorf("%w: cannot convert %T to string", domain.ErrInvalidValue, v)
	}
}

func coerceInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %d overflows int64", domain.ErrInvalidValue, x)
		}
		return int64(x), nil
	case float32:
		return floatToInt64(float64(x))
	case float64:
		return floatToInt64(x)
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not an integer", domain.ErrInvalidValue, x.String())
		}
		return n, nil
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not an integer", domain.ErrInvalidValue, x)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: cannot convert %T to integer", domain.ErrInvalidValue, v)
	}
}

// floatToInt64 rejects fractional values instead of truncating them.
func floatToInt64(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %v is not an integer", domain.ErrInvalidValue, f)
	}
	if math.Trunc(f) != f {
		return 0, fmt.Errorf("%w: %v has a fractional part", domain.ErrInvalidValue, f)
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: %v overflows int64", domain.ErrInvalidValue, f)
	}
	return int64(f), nil
}

func coerceFloat64(v any) (float64, error) {
	switch x := v.(type) {
	case float32:
		return float64(x), nil
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	case int8:
		return float64(x), nil
	case int16:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint:
		return float64(x), nil
	case uint8:
		return float64(x), nil
	case uint16:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", domain.ErrInvalidValue, x.String())
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", domain.ErrInvalidValue, x)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: cannot convert %T to float", domain.ErrInvalidValue, v)
	}
}
