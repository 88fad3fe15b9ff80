package search

import (
	"errors"
	"testing"

	bsearch "github.com/blevesearch/bleve/v2/search"

	"github.com/kailas-cloud/rowdex/internal/domain"
)

func TestSortField_MapperDelegation(t *testing.T) {
	s := testSchema(t)

	sf, err := SortingField{Field: "age", Reverse: true}.SortField(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	directive, ok := sf.(*bsearch.SortField)
	if !ok {
		t.Fatalf("expected *search.SortField, got %T", sf)
	}
	if directive.Type != bsearch.SortFieldAsNumber {
		t.Errorf("Type = %v, want numeric", directive.Type)
	}
	if !directive.Desc {
		t.Error("Desc should be true")
	}
}

func TestSortField_FallbackOnUnmappedField(t *testing.T) {
	s := testSchema(t)

	// No mapper for "ghost": lexicographic fallback, never an error.
	sf, err := SortingField{Field: "ghost"}.SortField(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	directive := sf.(*bsearch.SortField)
	if directive.Field != "ghost" {
		t.Errorf("Field = %q", directive.Field)
	}
	if directive.Type != bsearch.SortFieldAsString {
		t.Errorf("Type = %v, want string", directive.Type)
	}
	if directive.Desc {
		t.Error("Desc should default to false")
	}

	rev, err := SortingField{Field: "ghost", Reverse: true}.SortField(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rev.(*bsearch.SortField).Desc {
		t.Error("Reverse must invert the fallback ordering too")
	}
}

func TestSortField_BlankField(t *testing.T) {
	s := testSchema(t)

	_, err := SortingField{Field: "  "}.SortField(s)
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestSortCompile(t *testing.T) {
	s := testSchema(t)

	order, err := Sort{{Field: "age", Reverse: true}, {Field: "name"}}.Compile(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != 2 {
		t.Fatalf("len(order) = %d, want 2", len(order))
	}

	empty, err := Sort{}.Compile(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if empty != nil {
		t.Error("empty sort should compile to nil (relevance order)")
	}

	_, err = Sort{{Field: ""}}.Compile(s)
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}
