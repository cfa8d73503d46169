package normalizer

import (
	"encoding/json"
	"fmt"

	"github.com/procurehq/sourcedex/internal/provider"
)

// shoppingParser handles the google_shopping response family shared by the
// SerpAPI-style engines. Prefers the pre-extracted numeric price over the
// display string.
type shoppingParser struct{}

func (shoppingParser) Family() provider.Family { return provider.FamilyShopping }

func (shoppingParser) Parse(raw json.RawMessage) (Item, bool) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return Item{}, false
	}

	it := Item{
		Title:    str(m, "title"),
		URL:      firstStr(m, "product_link", "offers_link", "link"),
		Merchant: firstStr(m, "seller", "source"),
		ImageURL: str(m, "thumbnail"),
		Rating:   num(m, "rating"),
		Reviews:  int(num(m, "reviews")),
		Shipping: str(m, "delivery"),
	}
	if v := num(m, "extracted_price"); v > 0 {
		it.Price, it.PriceSet = v, true
	} else {
		it.PriceText = text(m, "price")
	}
	return it, it.Title != "" && it.URL != ""
}

// rainforestParser handles Amazon search results. The price rides in a
// nested object with a numeric value; older payloads carry a prices map
// with several candidate keys instead.
type rainforestParser struct{}

func (rainforestParser) Family() provider.Family { return provider.FamilyRainforest }

func (rainforestParser) Parse(raw json.RawMessage) (Item, bool) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return Item{}, false
	}

	it := Item{
		Title:    str(m, "title"),
		URL:      str(m, "link"),
		Merchant: "Amazon",
		ImageURL: str(m, "image"),
		Rating:   num(m, "rating"),
		Reviews:  int(num(m, "ratings_total")),
	}
	if delivery, ok := m["delivery"].(map[string]any); ok {
		it.Shipping = str(delivery, "tagline")
	}

	priceObj, _ := m["price"].(map[string]any)
	if priceObj == nil {
		if prices, ok := m["prices"].(map[string]any); ok {
			for _, key := range []string{"current_price", "buybox_price", "price", "current", "main_price", "list_price"} {
				if candidate, ok := prices[key].(map[string]any); ok {
					priceObj = candidate
					break
				}
			}
		}
	}
	if priceObj != nil {
		if v := num(priceObj, "value"); v > 0 {
			it.Price, it.PriceSet = v, true
			it.Currency = str(priceObj, "currency")
		} else {
			it.PriceText = str(priceObj, "raw")
		}
	}
	return it, it.Title != "" && it.URL != ""
}

// cseParser handles Google Custom Search items. CSE has no structured price
// field; pagemap offers are the only reliable source, with the snippet as a
// last resort. Items without either get dropped downstream.
type cseParser struct{}

func (cseParser) Family() provider.Family { return provider.FamilyCSE }

func (cseParser) Parse(raw json.RawMessage) (Item, bool) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return Item{}, false
	}

	it := Item{
		Title: str(m, "title"),
		URL:   str(m, "link"),
	}

	pagemap, _ := m["pagemap"].(map[string]any)
	if pagemap != nil {
		if src := pagemapFirst(pagemap, "cse_image", "src"); src != "" {
			it.ImageURL = src
		} else {
			it.ImageURL = pagemapFirst(pagemap, "cse_thumbnail", "src")
		}
		if price := pagemapFirst(pagemap, "offer", "price"); price != "" {
			it.PriceText = price
			it.Currency = pagemapFirst(pagemap, "offer", "pricecurrency")
		}
	}
	if it.PriceText == "" {
		it.PriceText = str(m, "snippet")
	}
	return it, it.Title != "" && it.URL != ""
}

// genericParser is the fallback for payload families without a dedicated
// parser. It probes the common field spellings seen across engines.
type genericParser struct{}

func (genericParser) Family() provider.Family { return provider.Family("generic") }

func (genericParser) Parse(raw json.RawMessage) (Item, bool) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return Item{}, false
	}

	it := Item{
		Title:    firstStr(m, "title", "name"),
		URL:      firstStr(m, "url", "link", "product_link"),
		Merchant: firstStr(m, "merchant", "seller", "source"),
		Currency: str(m, "currency"),
		ImageURL: firstStr(m, "image_url", "image", "thumbnail"),
		Rating:   num(m, "rating"),
		Shipping: firstStr(m, "shipping_info", "delivery"),
	}
	it.Reviews = int(numFirst(m, "reviews_count", "reviews"))
	if v := numFirst(m, "price", "extracted_price"); v > 0 {
		it.Price, it.PriceSet = v, true
	} else {
		it.PriceText = text(m, "price")
	}
	return it, it.Title != "" && it.URL != ""
}

func str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func firstStr(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := str(m, key); s != "" {
			return s
		}
	}
	return ""
}

func num(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case string:
		var f float64
		if _, err := fmt.Sscanf(v, "%f", &f); err == nil {
			return f
		}
	}
	return 0
}

func numFirst(m map[string]any, keys ...string) float64 {
	for _, key := range keys {
		if v := num(m, key); v > 0 {
			return v
		}
	}
	return 0
}

// text renders a value that may be a string or a number as display text.
func text(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%g", v)
	}
	return ""
}

func pagemapFirst(pagemap map[string]any, listKey, field string) string {
	list, _ := pagemap[listKey].([]any)
	if len(list) == 0 {
		return ""
	}
	entry, _ := list[0].(map[string]any)
	if entry == nil {
		return ""
	}
	return str(entry, field)
}
