package schema

import (
	"fmt"
	"math"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search"

	"github.com/kailas-cloud/rowdex/internal/domain"
)

// Mapper type names accepted in schema JSON.
const (
	TypeText    = "text"
	TypeString  = "string"
	TypeInteger = "integer"
	TypeBigint  = "bigint"
	TypeFloat   = "float"
	TypeDouble  = "double"
	TypeBoolean = "boolean"
	TypeDate    = "date"
)

// DefaultDateFormat is the layout used by date mappers unless overridden.
const DefaultDateFormat = time.RFC3339

// --- text (analyzed) ---

type textMapper struct {
	analyzerName string
	analyzer     analysis.Analyzer
}

func (m *textMapper) Type() string   { return TypeText }
func (m *textMapper) Base() Base     { return BaseText }
func (m *textMapper) Analyzed() bool { return true }

func (m *textMapper) QueryValue(field string, v any) (any, error) {
	s, err := coerceString(v)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", field, err)
	}
	return s, nil
}

// Analyze runs the field analyzer and keeps the first token, so a range
// bound like "Foo" compares against the same lowercased term the indexer
// produced.
func (m *textMapper) Analyze(field, text string) (string, error) {
	tokens := m.analyzer.Analyze([]byte(text))
	if len(tokens) == 0 {
		return "", nil
	}
	return string(tokens[0].Term), nil
}

func (m *textMapper) SortField(field string, reverse bool) search.SearchSort {
	return &search.SortField{
		Field:   field,
		Desc:    reverse,
		Type:    search.SortFieldAsString,
		Missing: search.SortFieldMissingLast,
	}
}

func (m *textMapper) FieldMapping() *mapping.FieldMapping {
	fm := bleve.NewTextFieldMapping()
	fm.Analyzer = m.analyzerName
	fm.Store = false
	fm.IncludeInAll = false
	fm.IncludeTermVectors = false
	return fm
}

// --- string (keyword, not analyzed) ---

type stringMapper struct{}

func (m *stringMapper) Type() string   { return TypeString }
func (m *stringMapper) Base() Base     { return BaseText }
func (m *stringMapper) Analyzed() bool { return false }

func (m *stringMapper) QueryValue(field string, v any) (any, error) {
	s, err := coerceString(v)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", field, err)
	}
	return s, nil
}

func (m *stringMapper) Analyze(_, text string) (string, error) { return text, nil }

func (m *stringMapper) SortField(field string, reverse bool) search.SearchSort {
	return &search.SortField{
		Field:   field,
		Desc:    reverse,
		Type:    search.SortFieldAsString,
		Missing: search.SortFieldMissingLast,
	}
}

func (m *stringMapper) FieldMapping() *mapping.FieldMapping {
	fm := bleve.NewTextFieldMapping()
	fm.Analyzer = keyword.Name
	fm.Store = false
	fm.IncludeInAll = false
	fm.IncludeTermVectors = false
	return fm
}

// --- integer (int32) ---

type integerMapper struct{}

func (m *integerMapper) Type() string   { return TypeInteger }
func (m *integerMapper) Base() Base     { return BaseInt32 }
func (m *integerMapper) Analyzed() bool { return false }

func (m *integerMapper) QueryValue(field string, v any) (any, error) {
	n, err := coerceInt64(v)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", field, err)
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return nil, fmt.Errorf("field %q: %w: %d overflows int32", field, domain.ErrInvalidValue, n)
	}
	return int32(n), nil
}

func (m *integerMapper) Analyze(_, text string) (string, error) { return text, nil }

func (m *integerMapper) SortField(field string, reverse bool) search.SearchSort {
	return numericSort(field, reverse)
}

func (m *integerMapper) FieldMapping() *mapping.FieldMapping { return numericFieldMapping() }

// --- bigint (int64) ---

type bigintMapper struct{}

func (m *bigintMapper) Type() string   { return TypeBigint }
func (m *bigintMapper) Base() Base     { return BaseInt64 }
func (m *bigintMapper) Analyzed() bool { return false }

func (m *bigintMapper) QueryValue(field string, v any) (any, error) {
	n, err := coerceInt64(v)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", field, err)
	}
	return n, nil
}

func (m *bigintMapper) Analyze(_, text string) (string, error) { return text, nil }

func (m *bigintMapper) SortField(field string, reverse bool) search.SearchSort {
	return numericSort(field, reverse)
}

func (m *bigintMapper) FieldMapping() *mapping.FieldMapping { return numericFieldMapping() }

// --- float (float32) ---

type floatMapper struct{}

func (m *floatMapper) Type() string   { return TypeFloat }
func (m *floatMapper) Base() Base     { return BaseFloat32 }
func (m *floatMapper) Analyzed() bool { return false }

func (m *floatMapper) QueryValue(field string, v any) (any, error) {
	f, err := coerceFloat64(v)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", field, err)
	}
	if !math.IsInf(f, 0) && math.Abs(f) > math.MaxFloat32 {
		return nil, fmt.Errorf("field %q: %w: %v overflows float32", field, domain.ErrInvalidValue, f)
	}
	return float32(f), nil
}

func (m *floatMapper) Analyze(_, text string) (string, error) { return text, nil }

func (m *floatMapper) SortField(field string, reverse bool) search.SearchSort {
	return numericSort(field, reverse)
}

func (m *floatMapper) FieldMapping() *mapping.FieldMapping { return numericFieldMapping() }

// --- double (float64) ---

type doubleMapper struct{}

func (m *doubleMapper) Type() string   { return TypeDouble }
func (m *doubleMapper) Base() Base     { return BaseFloat64 }
func (m *doubleMapper) Analyzed() bool { return false }

func (m *doubleMapper) QueryValue(field string, v any) (any, error) {
	f, err := coerceFloat64(v)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", field, err)
	}
	return f, nil
}

func (m *doubleMapper) Analyze(_, text string) (string, error) { return text, nil }

func (m *doubleMapper) SortField(field string, reverse bool) search.SearchSort {
	return numericSort(field, reverse)
}

func (m *doubleMapper) FieldMapping() *mapping.FieldMapping { return numericFieldMapping() }

// --- boolean ---

type booleanMapper struct{}

func (m *booleanMapper) Type() string   { return TypeBoolean }
func (m *booleanMapper) Base() Base     { return BaseBool }
func (m *booleanMapper) Analyzed() bool { return false }

func (m *booleanMapper) QueryValue(field string, v any) (any, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		switch x {
		case "true", "TRUE", "True", "1":
			return true, nil
		case "false", "FALSE", "False", "0":
			return false, nil
		}
		return nil, fmt.Errorf("field %q: %w: %q is not a boolean", field, domain.ErrInvalidValue, x)
	default:
		return nil, fmt.Errorf("field %q: %w: cannot convert %T to boolean", field, domain.ErrInvalidValue, v)
	}
}

func (m *booleanMapper) Analyze(_, text string) (string, error) { return text, nil }

func (m *booleanMapper) SortField(field string, reverse bool) search.SearchSort {
	return &search.SortField{
		Field:   field,
		Desc:    reverse,
		Type:    search.SortFieldAsString,
		Missing: search.SortFieldMissingLast,
	}
}

func (m *booleanMapper) FieldMapping() *mapping.FieldMapping {
	fm := bleve.NewBooleanFieldMapping()
	fm.Store = false
	fm.IncludeInAll = false
	return fm
}

// --- date ---

type dateMapper struct {
	format string
}

func (m *dateMapper) Type() string   { return TypeDate }
func (m *dateMapper) Base() Base     { return BaseDate }
func (m *dateMapper) Analyzed() bool { return false }

// QueryValue accepts time.Time, layout-formatted strings and unix
// milliseconds. Everything normalizes to UTC.
func (m *dateMapper) QueryValue(field string, v any) (any, error) {
	switch x := v.(type) {
	case time.Time:
		return x.UTC(), nil
	case string:
		t, err := time.Parse(m.format, x)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w: %q does not match %q", field, domain.ErrInvalidValue, x, m.format)
		}
		return t.UTC(), nil
	default:
		n, err := coerceInt64(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field, err)
		}
		return time.UnixMilli(n).UTC(), nil
	}
}

func (m *dateMapper) Analyze(_, text string) (string, error) { return text, nil }

func (m *dateMapper) SortField(field string, reverse bool) search.SearchSort {
	return &search.SortField{
		Field:   field,
		Desc:    reverse,
		Type:    search.SortFieldAsDate,
		Missing: search.SortFieldMissingLast,
	}
}

func (m *dateMapper) FieldMapping() *mapping.FieldMapping {
	fm := bleve.NewDateTimeFieldMapping()
	fm.Store = false
	fm.IncludeInAll = false
	return fm
}

// --- shared ---

func numericSort(field string, reverse bool) search.SearchSort {
	return &search.SortField{
		Field:   field,
		Desc:    reverse,
		Type:    search.SortFieldAsNumber,
		Missing: search.SortFieldMissingLast,
	}
}

func numericFieldMapping() *mapping.FieldMapping {
	fm := bleve.NewNumericFieldMapping()
	fm.Store = false
	fm.IncludeInAll = false
	return fm
}
