package rowdex

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/kailas-cloud/rowdex/internal/schema"
)

const tagKey = "rowdex"

// schemaMeta holds parsed struct tag metadata, cached per Table.
type schemaMeta struct {
	typ reflect.Type // struct type for reconstruction

	// Field index of the partition key in the struct.
	keyIdx int

	// Mapping from struct field index to column name plus mapper type.
	// An empty mapper type means stored but not indexed.
	fields []fieldMapping
}

type fieldMapping struct {
	structIdx  int
	name       string
	mapperType string
}

type fieldDef struct {
	Type string `json:"type"`
}

type schemaDef struct {
	DefaultAnalyzer string              `json:"default_analyzer,omitempty"`
	Fields          map[string]fieldDef `json:"fields"`
}

// parseSchema reflects on T and extracts rowdex struct tag metadata.
func parseSchema[T any]() (*schemaMeta, error) {
	var zero T
	t := reflect.TypeOf(zero)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("rowdex: type %s is not a struct", t)
	}

	meta := &schemaMeta{typ: t, keyIdx: -1}

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get(tagKey)
		if tag == "" || tag == "-" {
			continue
		}
		if err := applyTag(meta, i, f, tag); err != nil {
			return nil, err
		}
	}

	if meta.keyIdx == -1 {
		return nil, fmt.Errorf("rowdex: no field with `rowdex:\"...,key\"` tag in %s", t)
	}
	return meta, nil
}

// applyTag processes a single struct field's rowdex tag.
func applyTag(meta *schemaMeta, idx int, f reflect.StructField, tag string) error {
	parts := strings.SplitN(tag, ",", 2)
	name := parts[0]
	modifier := ""
	if len(parts) == 2 {
		modifier = parts[1]
	}

	switch modifier {
	case "key":
		if meta.keyIdx != -1 {
			return fmt.Errorf("rowdex: duplicate key tag on field %s", f.Name)
		}
		if f.Type.Kind() != reflect.String {
			return fmt.Errorf("rowdex: key field %s must be a string", f.Name)
		}
		meta.keyIdx = idx
	case "":
		// Колонка без модификатора хранится в строке, но не индексируется.
		meta.fields = append(meta.fields, fieldMapping{structIdx: idx, name: name})
	case schema.TypeText, schema.TypeString, schema.TypeInteger, schema.TypeBigint,
		schema.TypeFloat, schema.TypeDouble, schema.TypeBoolean, schema.TypeDate:
		meta.fields = append(meta.fields, fieldMapping{structIdx: idx, name: name, mapperType: modifier})
	default:
		return fmt.Errorf("rowdex: unknown mapper type %q on field %s", modifier, f.Name)
	}
	return nil
}

// schemaJSON builds the table's JSON schema definition from the parsed
// tags. Columns without a mapper type are left out of the schema.
func (m *schemaMeta) schemaJSON(defaultAnalyzer string) (string, error) {
	fields := make(map[string]fieldDef, len(m.fields))
	for _, fm := range m.fields {
		if fm.mapperType == "" {
			continue
		}
		fields[fm.name] = fieldDef{Type: fm.mapperType}
	}
	if len(fields) == 0 {
		return "", fmt.Errorf("rowdex: no indexed fields in %s", m.typ)
	}

	data, err := json.Marshal(schemaDef{DefaultAnalyzer: defaultAnalyzer, Fields: fields})
	if err != nil {
		return "", fmt.Errorf("rowdex: marshal schema: %w", err)
	}
	return string(data), nil
}

// toRow converts a typed struct to a Row using the parsed tag metadata.
func (m *schemaMeta) toRow(item any) Row {
	v := reflect.ValueOf(item)
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}

	columns := make(map[string]any, len(m.fields))
	for _, fm := range m.fields {
		columns[fm.name] = columnValue(v.Field(fm.structIdx))
	}
	return Row{Key: v.Field(m.keyIdx).String(), Columns: columns}
}

// columnValue normalizes one struct field for storage. Times become
// RFC 3339 strings so the date mapper and the store codec agree on the
// representation.
func columnValue(v reflect.Value) any {
	if t, ok := v.Interface().(time.Time); ok {
		return t.UTC().Format(time.RFC3339)
	}
	return v.Interface()
}

// fromRow reconstructs a typed struct from a stored row. Column values
// arrive as whatever the store codec produced, so numeric kinds are
// converted per field.
func (m *schemaMeta) fromRow(key string, columns map[string]any) any {
	v := reflect.New(m.typ).Elem()
	v.Field(m.keyIdx).SetString(key)

	for _, fm := range m.fields {
		val, ok := columns[fm.name]
		if !ok || val == nil {
			continue
		}
		setColumn(v.Field(fm.structIdx), val)
	}
	return v.Interface()
}

func setColumn(f reflect.Value, val any) {
	if f.Type() == reflect.TypeOf(time.Time{}) {
		if s, ok := val.(string); ok {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				f.Set(reflect.ValueOf(t))
			}
		}
		return
	}

	switch f.Kind() {
	case reflect.String:
		if s, ok := val.(string); ok {
			f.SetString(s)
		}
	case reflect.Bool:
		if b, ok := val.(bool); ok {
			f.SetBool(b)
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if n, ok := toInt64(val); ok {
			f.SetInt(n)
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if n, ok := toInt64(val); ok && n >= 0 {
			f.SetUint(uint64(n))
		}
	case reflect.Float32, reflect.Float64:
		if fv, ok := toFloat64(val); ok {
			f.SetFloat(fv)
		}
	}
}

// toInt64 accepts the integer representations the store codec can
// produce, plus native ints for rows that never left the process.
func toInt64(val any) (int64, bool) {
	switch n := val.(type) {
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

func toFloat64(val any) (float64, bool) {
	switch n := val.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
