package sdk

import (
	"encoding/json"
	"testing"
)

// marshal relies on encoding/json sorting map keys, which makes the
// wire form of a condition deterministic.
func marshal(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

// --- Condition builders ---

func TestCondition_Match(t *testing.T) {
	got := marshal(t, Match("name", "smith"))
	want := `{"field":"name","type":"match","value":"smith"}`
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestCondition_MatchNumeric(t *testing.T) {
	got := marshal(t, Match("age", 30))
	want := `{"field":"age","type":"match","value":30}`
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestCondition_TermKinds(t *testing.T) {
	cases := []struct {
		cond Condition
		want string
	}{
		{Phrase("title", "alpine hut"), `{"field":"title","type":"phrase","value":"alpine hut"}`},
		{Prefix("name", "smi"), `{"field":"name","type":"prefix","value":"smi"}`},
		{Wildcard("name", "sm?th*"), `{"field":"name","type":"wildcard","value":"sm?th*"}`},
		{MatchAll(), `{"type":"all"}`},
		{MatchNone(), `{"type":"none"}`},
	}
	for _, tc := range cases {
		if got := marshal(t, tc.cond); got != tc.want {
			t.Errorf("got %s, want %s", got, tc.want)
		}
	}
}

func TestCondition_RangeBounds(t *testing.T) {
	got := marshal(t, Range("age").Gte(18).Lt(65))
	want := `{"field":"age","include_lower":true,"include_upper":false,"lower":18,"type":"range","upper":65}`
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestCondition_RangeHalfOpen(t *testing.T) {
	got := marshal(t, Range("price").Gt(9.5))
	want := `{"field":"price","include_lower":false,"lower":9.5,"type":"range"}`
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestCondition_Bool(t *testing.T) {
	cond := Bool().
		Must(Match("name", "smith"), Range("age").Gte(18)).
		Should(Match("city", "bergen")).
		Not(MatchNone()).
		Boost(2)

	got := marshal(t, cond)
	want := `{"boost":2,` +
		`"must":[{"field":"name","type":"match","value":"smith"},` +
		`{"field":"age","include_lower":true,"lower":18,"type":"range"}],` +
		`"not":[{"type":"none"}],` +
		`"should":[{"field":"city","type":"match","value":"bergen"}],` +
		`"type":"boolean"}`
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestCondition_BoolAccumulatesClauses(t *testing.T) {
	cond := Bool().Must(Match("a", 1)).Must(Match("b", 2))
	must, _ := cond["must"].([]Condition)
	if len(must) != 2 {
		t.Fatalf("len(must) = %d, want 2", len(must))
	}
}

func TestCondition_BoostOnLeaf(t *testing.T) {
	got := marshal(t, Match("name", "smith").Boost(1.5))
	want := `{"boost":1.5,"field":"name","type":"match","value":"smith"}`
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

// --- SearchRequest ---

func TestSearchRequest_Marshal(t *testing.T) {
	req := SearchRequest{
		Query:   Match("name", "smith"),
		Filter:  Range("age").Gte(18),
		Sort:    []SortField{{Field: "age", Reverse: true}, {Field: "name"}},
		Limit:   20,
		Offset:  40,
		Refresh: true,
	}
	got := marshal(t, req)
	want := `{"query":{"field":"name","type":"match","value":"smith"},` +
		`"filter":{"field":"age","include_lower":true,"lower":18,"type":"range"},` +
		`"sort":[{"field":"age","reverse":true},{"field":"name"}],` +
		`"limit":20,"offset":40,"refresh":true}`
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestSearchRequest_OmitsEmpty(t *testing.T) {
	if got := marshal(t, SearchRequest{}); got != `{}` {
		t.Errorf("got %s, want {}", got)
	}
}
