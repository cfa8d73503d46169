package normalizer

import (
	"encoding/json"
	"testing"

	"github.com/procurehq/sourcedex/internal/domain"
	"github.com/procurehq/sourcedex/internal/provider"
)

func f64(v float64) *float64 { return &v }

func rawItems(t *testing.T, items ...map[string]any) []json.RawMessage {
	t.Helper()
	out := make([]json.RawMessage, len(items))
	for i, m := range items {
		raw, err := json.Marshal(m)
		if err != nil {
			t.Fatalf("marshal item: %v", err)
		}
		out[i] = raw
	}
	return out
}

func shoppingPayload(t *testing.T, items ...map[string]any) *provider.Payload {
	t.Helper()
	return &provider.Payload{
		ProviderID: "serpapi",
		Family:     provider.FamilyShopping,
		Currency:   "USD",
		Items:      rawItems(t, items...),
	}
}

func TestNormalize_Shopping(t *testing.T) {
	reg := NewRegistry("USD")
	payload := shoppingPayload(t, map[string]any{
		"title":           "Ergonomic Office Chair",
		"extracted_price": 199.99,
		"product_link":    "https://www.example.com/chair?utm_source=google",
		"seller":          "OfficeMart",
		"thumbnail":       "https://img.example.com/chair.jpg",
		"rating":          4.5,
		"reviews":         321,
		"delivery":        "Free delivery",
	})

	results := reg.Normalize(payload, domain.SearchIntent{Query: "office chair"})
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	res := results[0]
	if res.Title != "Ergonomic Office Chair" {
		t.Errorf("title = %q", res.Title)
	}
	if res.Price.Amount != 199.99 || res.Price.Currency != "USD" {
		t.Errorf("price = %+v", res.Price)
	}
	if res.CanonicalURL != "https://example.com/chair" {
		t.Errorf("canonical url = %q", res.CanonicalURL)
	}
	if res.ProviderID != "serpapi" {
		t.Errorf("provider = %q", res.ProviderID)
	}
	if res.MerchantName != "OfficeMart" || res.MerchantDomain != "example.com" {
		t.Errorf("merchant = %q / %q", res.MerchantName, res.MerchantDomain)
	}
	if res.Rating != 4.5 || res.ReviewsCount != 321 {
		t.Errorf("rating = %v reviews = %d", res.Rating, res.ReviewsCount)
	}
	if res.MatchScore <= 0 {
		t.Error("expected positive match score")
	}
	if len(res.Provenance) == 0 {
		t.Error("expected provenance")
	}
}

func TestNormalize_PriceTextFallback(t *testing.T) {
	reg := NewRegistry("USD")
	payload := shoppingPayload(t, map[string]any{
		"title": "Desk Lamp",
		"price": "$24.99",
		"link":  "https://example.com/lamp",
	})

	results := reg.Normalize(payload, domain.SearchIntent{Query: "lamp"})
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Price.Amount != 24.99 {
		t.Errorf("price = %v", results[0].Price.Amount)
	}
}

func TestNormalize_DropsUnpriceable(t *testing.T) {
	reg := NewRegistry("USD")
	payload := shoppingPayload(t,
		map[string]any{"title": "No price", "link": "https://example.com/a"},
		map[string]any{"title": "Quote only", "price": "call for quote", "link": "https://example.com/b"},
		map[string]any{"title": "Zero", "extracted_price": 0.0, "price": "0", "link": "https://example.com/c"},
		map[string]any{"title": "Good", "extracted_price": 10.0, "link": "https://example.com/d"},
	)

	results := reg.Normalize(payload, domain.SearchIntent{Query: "x"})
	if len(results) != 1 {
		t.Fatalf("expected only the priced item, got %d", len(results))
	}
	if results[0].Title != "Good" {
		t.Errorf("kept %q", results[0].Title)
	}
}

func TestNormalize_EnforcesPriceRange(t *testing.T) {
	reg := NewRegistry("USD")
	payload := shoppingPayload(t,
		map[string]any{"title": "Cheap", "extracted_price": 5.0, "link": "https://example.com/a"},
		map[string]any{"title": "Mid", "extracted_price": 50.0, "link": "https://example.com/b"},
		map[string]any{"title": "Expensive", "extracted_price": 500.0, "link": "https://example.com/c"},
	)

	intent := domain.SearchIntent{Query: "x", MinPrice: f64(10), MaxPrice: f64(100)}
	results := reg.Normalize(payload, intent)
	if len(results) != 1 {
		t.Fatalf("expected 1 result in range, got %d", len(results))
	}
	if results[0].Title != "Mid" {
		t.Errorf("kept %q", results[0].Title)
	}
}

func TestNormalize_RangeAppliesToConvertedAmount(t *testing.T) {
	reg := NewRegistry("USD")
	payload := &provider.Payload{
		ProviderID: "euro-shop",
		Family:     provider.FamilyShopping,
		Currency:   "EUR",
		Items: rawItems(t, map[string]any{
			"title": "Import", "extracted_price": 100.0, "link": "https://example.eu/a",
		}),
	}

	// 100 EUR converts to 108 USD, above a 105 USD cap.
	intent := domain.SearchIntent{Query: "x", MaxPrice: f64(105)}
	if results := reg.Normalize(payload, intent); len(results) != 0 {
		t.Fatalf("expected converted price to be filtered, got %d results", len(results))
	}

	intent.MaxPrice = f64(110)
	results := reg.Normalize(payload, intent)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	res := results[0]
	if res.Price.Amount != 108 || res.Price.Currency != "USD" {
		t.Errorf("price = %+v", res.Price)
	}
	if res.PriceOriginal != 100 || res.CurrencyOriginal != "EUR" {
		t.Errorf("original = %v %s", res.PriceOriginal, res.CurrencyOriginal)
	}
}

func TestNormalize_UnknownCurrencyKept(t *testing.T) {
	reg := NewRegistry("USD")
	payload := &provider.Payload{
		ProviderID: "odd-shop",
		Family:     provider.FamilyShopping,
		Currency:   "ZZZ",
		Items: rawItems(t, map[string]any{
			"title": "Mystery", "extracted_price": 40.0, "link": "https://example.com/a",
		}),
	}

	// Unresolvable payload currency falls back to the comparison currency.
	results := reg.Normalize(payload, domain.SearchIntent{Query: "x"})
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Price.Currency != "USD" || results[0].Price.Amount != 40 {
		t.Errorf("price = %+v", results[0].Price)
	}
	if results[0].PriceOriginal != 0 {
		t.Errorf("no conversion happened, original should be empty: %v", results[0].PriceOriginal)
	}
}

func TestNormalize_DedupKeepsFirst(t *testing.T) {
	reg := NewRegistry("USD")
	payload := shoppingPayload(t,
		map[string]any{"title": "First", "extracted_price": 10.0, "link": "https://example.com/same?utm_source=a"},
		map[string]any{"title": "Second", "extracted_price": 12.0, "link": "https://www.example.com/same"},
	)

	results := reg.Normalize(payload, domain.SearchIntent{Query: "x"})
	if len(results) != 1 {
		t.Fatalf("expected dedup to 1, got %d", len(results))
	}
	if results[0].Title != "First" {
		t.Errorf("kept %q, want first occurrence", results[0].Title)
	}
}

func TestNormalize_Rainforest(t *testing.T) {
	reg := NewRegistry("USD")
	payload := &provider.Payload{
		ProviderID: "rainforest",
		Family:     provider.FamilyRainforest,
		Currency:   "USD",
		Items: rawItems(t,
			map[string]any{
				"title":         "Echo Dot",
				"link":          "https://amazon.com/dp/B07XJ8C8F5",
				"image":         "https://m.media-amazon.com/dot.jpg",
				"rating":        4.7,
				"ratings_total": 12000,
				"price":         map[string]any{"value": 49.99, "currency": "USD"},
				"delivery":      map[string]any{"tagline": "FREE delivery Tue"},
			},
			map[string]any{
				"title": "Older payload",
				"link":  "https://amazon.com/dp/B000000001",
				"prices": map[string]any{
					"current_price": map[string]any{"value": 19.99},
				},
			},
		),
	}

	results := reg.Normalize(payload, domain.SearchIntent{Query: "echo dot"})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].MerchantName != "Amazon" {
		t.Errorf("merchant = %q", results[0].MerchantName)
	}
	if results[0].Price.Amount != 49.99 {
		t.Errorf("price = %v", results[0].Price.Amount)
	}
	if results[0].Availability != "FREE delivery Tue" {
		t.Errorf("availability = %q", results[0].Availability)
	}
	if results[1].Price.Amount != 19.99 {
		t.Errorf("prices-map fallback price = %v", results[1].Price.Amount)
	}
}

func TestNormalize_CSE(t *testing.T) {
	reg := NewRegistry("USD")
	payload := &provider.Payload{
		ProviderID: "googlecse",
		Family:     provider.FamilyCSE,
		Items: rawItems(t,
			map[string]any{
				"title": "Office Chair - Store",
				"link":  "https://store.example.com/chair",
				"pagemap": map[string]any{
					"cse_image": []any{map[string]any{"src": "https://img/x.jpg"}},
					"offer":     []any{map[string]any{"price": "89.00", "pricecurrency": "USD"}},
				},
			},
			map[string]any{
				"title":   "Chair review roundup",
				"link":    "https://blog.example.com/chairs",
				"snippet": "The best chairs under $150 we tested this year.",
			},
			map[string]any{
				"title":   "No price anywhere",
				"link":    "https://forum.example.com/thread",
				"snippet": "What chair should I buy?",
			},
		),
	}

	results := reg.Normalize(payload, domain.SearchIntent{Query: "office chair"})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Price.Amount != 89 {
		t.Errorf("offer price = %v", results[0].Price.Amount)
	}
	if results[0].ImageURL != "https://img/x.jpg" {
		t.Errorf("image = %q", results[0].ImageURL)
	}
	if results[1].Price.Amount != 150 {
		t.Errorf("snippet-derived price = %v", results[1].Price.Amount)
	}
}

func TestNormalize_UnknownFamilyFallsBack(t *testing.T) {
	reg := NewRegistry("USD")
	payload := &provider.Payload{
		ProviderID: "custom",
		Family:     provider.Family("inhouse"),
		Currency:   "USD",
		Items: rawItems(t, map[string]any{
			"name":  "Widget",
			"price": 12.5,
			"url":   "https://example.com/widget",
		}),
	}

	results := reg.Normalize(payload, domain.SearchIntent{Query: "widget"})
	if len(results) != 1 {
		t.Fatalf("expected generic fallback to parse, got %d", len(results))
	}
	if results[0].Title != "Widget" || results[0].Price.Amount != 12.5 {
		t.Errorf("result = %+v", results[0])
	}
}

func TestNormalize_EmptyPayload(t *testing.T) {
	reg := NewRegistry("USD")
	if got := reg.Normalize(nil, domain.SearchIntent{}); got != nil {
		t.Errorf("nil payload: %v", got)
	}
	if got := reg.Normalize(&provider.Payload{}, domain.SearchIntent{}); got != nil {
		t.Errorf("empty payload: %v", got)
	}
}
