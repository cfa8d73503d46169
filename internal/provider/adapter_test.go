package provider

import (
	"context"
	"testing"

	"github.com/procurehq/sourcedex/internal/domain"
)

func f64(v float64) *float64 { return &v }

func TestBuildQueryString(t *testing.T) {
	tests := []struct {
		name   string
		intent domain.SearchIntent
		want   string
	}{
		{
			"query only",
			domain.SearchIntent{Query: "standing desk"},
			"standing desk",
		},
		{
			"brand and model lead",
			domain.SearchIntent{Query: "laptop", Brand: "Lenovo", Model: "X1"},
			"Lenovo X1 laptop",
		},
		{
			"keywords included",
			domain.SearchIntent{Query: "chair", Keywords: domain.FlexibleList{"ergonomic", "mesh"}},
			"ergonomic mesh chair",
		},
		{
			"case-insensitive dedupe keeps first spelling",
			domain.SearchIntent{Query: "lenovo laptop", Brand: "Lenovo"},
			"Lenovo lenovo laptop",
		},
		{
			"category label follows product name",
			domain.SearchIntent{Query: "desk", ProductName: "Jarvis", Category: "furniture"},
			"Jarvis furniture desk",
		},
		{
			"blank terms skipped",
			domain.SearchIntent{Query: "tv", Keywords: domain.FlexibleList{"  ", "4k"}},
			"4k tv",
		},
		{
			"raw input fallback",
			domain.SearchIntent{RawInput: "something cheap"},
			"something cheap",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := buildQueryString(tc.intent); got != tc.want {
				t.Errorf("buildQueryString = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestBuildQueryString_DedupeAcrossFields(t *testing.T) {
	// Brand identical to the whole query must appear once.
	got := buildQueryString(domain.SearchIntent{Query: "sony", Brand: "Sony"})
	if got != "Sony" {
		t.Errorf("got %q", got)
	}
}

func TestPriceFilters(t *testing.T) {
	filters := map[string]string{}
	priceFilters(domain.SearchIntent{MinPrice: f64(10), MaxPrice: f64(99.5), Condition: "new"}, filters)
	if filters["min_price"] != "10" {
		t.Errorf("min_price = %q", filters["min_price"])
	}
	if filters["max_price"] != "99.5" {
		t.Errorf("max_price = %q", filters["max_price"])
	}
	if filters["condition"] != "new" {
		t.Errorf("condition = %q", filters["condition"])
	}

	filters = map[string]string{}
	priceFilters(domain.SearchIntent{Condition: "any"}, filters)
	if len(filters) != 0 {
		t.Errorf("expected no filters, got %v", filters)
	}
}

func TestNew_UnknownKind(t *testing.T) {
	if _, err := New(Config{ID: "x", Kind: "teleport"}); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestExtractItems(t *testing.T) {
	t.Run("present", func(t *testing.T) {
		items, err := extractItems([]byte(`{"shopping_results":[{"title":"a"},{"title":"b"}]}`), "shopping_results")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(items) != 2 {
			t.Fatalf("expected 2 items, got %d", len(items))
		}
	})

	t.Run("missing key is empty", func(t *testing.T) {
		items, err := extractItems([]byte(`{"search_metadata":{}}`), "shopping_results")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if items != nil {
			t.Errorf("expected nil items, got %v", items)
		}
	})

	t.Run("non-array value fails", func(t *testing.T) {
		if _, err := extractItems([]byte(`{"shopping_results":"oops"}`), "shopping_results"); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("malformed body fails", func(t *testing.T) {
		if _, err := extractItems([]byte(`not json`), "shopping_results"); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestCapItems(t *testing.T) {
	items, _ := extractItems([]byte(`{"r":[1,2,3,4]}`), "r")
	if got := capItems(items, 2); len(got) != 2 {
		t.Errorf("cap 2: got %d", len(got))
	}
	if got := capItems(items, 0); len(got) != 4 {
		t.Errorf("cap 0 disables: got %d", len(got))
	}
	if got := capItems(items, 10); len(got) != 4 {
		t.Errorf("cap above len: got %d", len(got))
	}
}

func TestMockAdapter(t *testing.T) {
	a := newMock(Config{ID: "mock", MaxResults: 10})
	q := a.BuildQuery(domain.SearchIntent{Query: "office chair"})
	if q.ProviderID != "mock" || q.Query != "office chair" {
		t.Fatalf("unexpected query: %+v", q)
	}

	p1, err := a.Execute(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p1.Family != FamilyShopping || p1.ProviderID != "mock" {
		t.Errorf("unexpected payload meta: %+v", p1)
	}
	if len(p1.Items) == 0 {
		t.Fatal("expected fixture items")
	}

	// Same query is deterministic.
	p2, err := a.Execute(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p1.Items) != len(p2.Items) {
		t.Errorf("expected deterministic fixtures: %d vs %d", len(p1.Items), len(p2.Items))
	}
	if string(p1.Items[0]) != string(p2.Items[0]) {
		t.Error("expected identical first fixture item")
	}
}
