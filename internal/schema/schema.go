package schema

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"

	"github.com/kailas-cloud/rowdex/internal/domain"
)

// TimestampField is the internal engine field recording each document's
// write time in unix milliseconds. Truncation queries range over it.
const TimestampField = "_ts"

// MaxFields is the maximum number of mapped fields per schema.
const MaxFields = 256

var fieldNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Schema is the immutable field name → Mapper set for one table.
type Schema struct {
	defaultAnalyzer string
	mappers         map[string]Mapper
}

type fieldDef struct {
	Type     string `json:"type"`
	Analyzer string `json:"analyzer,omitempty"`
	Format   string `json:"format,omitempty"`
}

type schemaDef struct {
	DefaultAnalyzer string              `json:"default_analyzer,omitempty"`
	Fields          map[string]fieldDef `json:"fields"`
}

// Parse builds a Schema from its JSON definition:
//
//	{"default_analyzer": "standard",
//	 "fields": {"age":  {"type": "integer"},
//	            "name": {"type": "text", "analyzer": "standard"},
//	            "born": {"type": "date", "format": "2006-01-02"}}}
//
// Analyzer names resolve against the engine registry at parse time, so a
// typo fails here instead of at first search.
func Parse(data []byte) (*Schema, error) {
	var def schemaDef
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSchema, err)
	}
	if len(def.Fields) == 0 {
		return nil, fmt.Errorf("%w: no fields defined", domain.ErrInvalidSchema)
	}
	if len(def.Fields) > MaxFields {
		return nil, fmt.Errorf("%w: too many fields (max %d)", domain.ErrInvalidSchema, MaxFields)
	}

	cache := registry.NewCache()
	defaultAnalyzer := def.DefaultAnalyzer
	if defaultAnalyzer == "" {
		defaultAnalyzer = standard.Name
	}
	if _, err := cache.AnalyzerNamed(defaultAnalyzer); err != nil {
		return nil, fmt.Errorf("%w: unknown default analyzer %q", domain.ErrInvalidSchema, defaultAnalyzer)
	}

	mappers := make(map[string]Mapper, len(def.Fields))
	for name, fd := range def.Fields {
		if err := validateFieldName(name); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSchema, err)
		}
		m, err := buildMapper(cache, defaultAnalyzer, name, fd)
		if err != nil {
			return nil, err
		}
		mappers[name] = m
	}
	return &Schema{defaultAnalyzer: defaultAnalyzer, mappers: mappers}, nil
}

func validateFieldName(name string) error {
	if name == "" {
		return fmt.Errorf("field name is required")
	}
	if len(name) > 255 {
		return fmt.Errorf("field name too long (max 255)")
	}
	if strings.HasPrefix(name, "_") {
		return fmt.Errorf("field name %q: leading underscore is reserved", name)
	}
	if !fieldNameRegex.MatchString(name) {
		return fmt.Errorf("field name %q must be alphanumeric with underscores and hyphens", name)
	}
	return nil
}

func buildMapper(cache *registry.Cache, defaultAnalyzer, name string, fd fieldDef) (Mapper, error) {
	if fd.Analyzer != "" && fd.Type != TypeText {
		return nil, fmt.Errorf("%w: field %q: analyzer is only valid for %q mappers",
			domain.ErrInvalidSchema, name, TypeText)
	}
	switch fd.Type {
	case TypeText:
		analyzerName := fd.Analyzer
		if analyzerName == "" {
			analyzerName = defaultAnalyzer
		}
		az, err := cache.AnalyzerNamed(analyzerName)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: unknown analyzer %q", domain.ErrInvalidSchema, name, analyzerName)
		}
		return &textMapper{analyzerName: analyzerName, analyzer: az}, nil
	case TypeString:
		return &stringMapper{}, nil
	case TypeInteger:
		return &integerMapper{}, nil
	case TypeBigint:
		return &bigintMapper{}, nil
	case TypeFloat:
		return &floatMapper{}, nil
	case TypeDouble:
		return &doubleMapper{}, nil
	case TypeBoolean:
		return &booleanMapper{}, nil
	case TypeDate:
		format := fd.Format
		if format == "" {
			format = DefaultDateFormat
		}
		return &dateMapper{format: format}, nil
	case "":
		return nil, fmt.Errorf("%w: field %q: mapper type is required", domain.ErrInvalidSchema, name)
	default:
		return nil, fmt.Errorf("%w: field %q: unknown mapper type %q", domain.ErrInvalidSchema, name, fd.Type)
	}
}

// Mapper returns the mapper for a field and whether one is defined.
func (s *Schema) Mapper(field string) (Mapper, bool) {
	m, ok := s.mappers[field]
	return m, ok
}

// Fields returns the mapped field names, sorted.
func (s *Schema) Fields() []string {
	names := make([]string, 0, len(s.mappers))
	for name := range s.mappers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultAnalyzer returns the schema's default analyzer name.
func (s *Schema) DefaultAnalyzer() string { return s.defaultAnalyzer }

// ValidateColumns checks that every mapped field exists in the given store
// column set. Used by option validation when table metadata is available.
func (s *Schema) ValidateColumns(columns []string) error {
	set := make(map[string]bool, len(columns))
	for _, c := range columns {
		set[c] = true
	}
	for _, name := range s.Fields() {
		if !set[name] {
			return fmt.Errorf("%w: field %q has no column in the table", domain.ErrInvalidSchema, name)
		}
	}
	return nil
}

// IndexMapping builds the engine index mapping for this schema. The
// document mapping is static: columns without a mapper are not indexed.
func (s *Schema) IndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = s.defaultAnalyzer

	doc := bleve.NewDocumentStaticMapping()
	for name, m := range s.mappers {
		doc.AddFieldMappingsAt(name, m.FieldMapping())
	}
	ts := bleve.NewNumericFieldMapping()
	ts.Store = false
	ts.IncludeInAll = false
	doc.AddFieldMappingsAt(TimestampField, ts)

	im.DefaultMapping = doc
	return im
}
