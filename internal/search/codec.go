package search

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/rowdex/internal/domain"
)

// Condition type discriminators in the JSON DSL.
const (
	KindRange    = "range"
	KindMatch    = "match"
	KindPhrase   = "phrase"
	KindPrefix   = "prefix"
	KindWildcard = "wildcard"
	KindBoolean  = "boolean"
	KindAll      = "all"
	KindNone     = "none"
)

// ParseCondition decodes one JSON condition node:
//
//	{"type": "range", "field": "age", "lower": 18, "upper": 65,
//	 "include_lower": true, "boost": 2.0}
//	{"type": "boolean", "must": [...], "should": [...], "not": [...]}
//
// Unknown keys and unknown type tags are rejected. Numbers decode via
// json.Number so int64 bounds keep full precision.
func ParseCondition(data []byte) (Condition, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}

	switch head.Type {
	case KindRange:
		var rj struct {
			Type         string   `json:"type"`
			Field        string   `json:"field"`
			Lower        any      `json:"lower"`
			Upper        any      `json:"upper"`
			IncludeLower bool     `json:"include_lower"`
			IncludeUpper bool     `json:"include_upper"`
			Boost        *float64 `json:"boost"`
		}
		if err := decodeStrict(data, &rj); err != nil {
			return nil, fmt.Errorf("%w: range: %v", domain.ErrInvalidArgument, err)
		}
		return &RangeCondition{
			Field:        rj.Field,
			Lower:        rj.Lower,
			Upper:        rj.Upper,
			IncludeLower: rj.IncludeLower,
			IncludeUpper: rj.IncludeUpper,
			Boost:        rj.Boost,
		}, nil

	case KindMatch:
		var mj struct {
			Type  string   `json:"type"`
			Field string   `json:"field"`
			Value any      `json:"value"`
			Boost *float64 `json:"boost"`
		}
		if err := decodeStrict(data, &mj); err != nil {
			return nil, fmt.Errorf("%w: match: %v", domain.ErrInvalidArgument, err)
		}
		return &MatchCondition{Field: mj.Field, Value: mj.Value, Boost: mj.Boost}, nil

	case KindPhrase:
		var pj struct {
			Type  string   `json:"type"`
			Field string   `json:"field"`
			Value string   `json:"value"`
			Boost *float64 `json:"boost"`
		}
		if err := decodeStrict(data, &pj); err != nil {
			return nil, fmt.Errorf("%w: phrase: %v", domain.ErrInvalidArgument, err)
		}
		return &PhraseCondition{Field: pj.Field, Value: pj.Value, Boost: pj.Boost}, nil

	case KindPrefix:
		var pj struct {
			Type  string   `json:"type"`
			Field string   `json:"field"`
			Value string   `json:"value"`
			Boost *float64 `json:"boost"`
		}
		if err := decodeStrict(data, &pj); err != nil {
			return nil, fmt.Errorf("%w: prefix: %v", domain.ErrInvalidArgument, err)
		}
		return &PrefixCondition{Field: pj.Field, Value: pj.Value, Boost: pj.Boost}, nil

	case KindWildcard:
		var wj struct {
			Type  string   `json:"type"`
			Field string   `json:"field"`
			Value string   `json:"value"`
			Boost *float64 `json:"boost"`
		}
		if err := decodeStrict(data, &wj); err != nil {
			return nil, fmt.Errorf("%w: wildcard: %v", domain.ErrInvalidArgument, err)
		}
		return &WildcardCondition{Field: wj.Field, Value: wj.Value, Boost: wj.Boost}, nil

	case KindBoolean:
		var bj struct {
			Type   string            `json:"type"`
			Must   []json.RawMessage `json:"must"`
			Should []json.RawMessage `json:"should"`
			Not    []json.RawMessage `json:"not"`
			Boost  *float64          `json:"boost"`
		}
		if err := decodeStrict(data, &bj); err != nil {
			return nil, fmt.Errorf("%w: boolean: %v", domain.ErrInvalidArgument, err)
		}
		cond := &BooleanCondition{Boost: bj.Boost}
		var err error
		if cond.Must, err = parseChildren(bj.Must, "must"); err != nil {
			return nil, err
		}
		if cond.Should, err = parseChildren(bj.Should, "should"); err != nil {
			return nil, err
		}
		if cond.Not, err = parseChildren(bj.Not, "not"); err != nil {
			return nil, err
		}
		return cond, nil

	case KindAll:
		var aj struct {
			Type  string   `json:"type"`
			Boost *float64 `json:"boost"`
		}
		if err := decodeStrict(data, &aj); err != nil {
			return nil, fmt.Errorf("%w: all: %v", domain.ErrInvalidArgument, err)
		}
		return &AllCondition{Boost: aj.Boost}, nil

	case KindNone:
		return &NoneCondition{}, nil

	case "":
		return nil, fmt.Errorf("%w: condition type is required", domain.ErrInvalidArgument)
	default:
		return nil, fmt.Errorf("%w: unknown condition type %q", domain.ErrInvalidArgument, head.Type)
	}
}

func parseChildren(raw []json.RawMessage, clause string) ([]Condition, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]Condition, len(raw))
	for i, r := range raw {
		c, err := ParseCondition(r)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", clause, i, err)
		}
		out[i] = c
	}
	return out, nil
}

// ParseRequest decodes a JSON search request:
//
//	{"query": {...}, "filter": {...},
//	 "sort": [{"field": "age", "reverse": true}],
//	 "limit": 20, "offset": 0, "refresh": false}
//
// Every key is optional; a missing query means match-all.
func ParseRequest(data []byte) (Request, error) {
	var rj struct {
		Query   json.RawMessage `json:"query"`
		Filter  json.RawMessage `json:"filter"`
		Sort    []SortingField  `json:"sort"`
		Limit   int             `json:"limit"`
		Offset  int             `json:"offset"`
		Refresh bool            `json:"refresh"`
	}
	if err := decodeStrict(data, &rj); err != nil {
		return Request{}, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}

	var q, f Condition
	var err error
	if present(rj.Query) {
		if q, err = ParseCondition(rj.Query); err != nil {
			return Request{}, fmt.Errorf("query: %w", err)
		}
	}
	if present(rj.Filter) {
		if f, err = ParseCondition(rj.Filter); err != nil {
			return Request{}, fmt.Errorf("filter: %w", err)
		}
	}
	return NewRequest(q, f, rj.Sort, rj.Limit, rj.Offset, rj.Refresh), nil
}

func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}
