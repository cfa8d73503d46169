package sourcedex

import "github.com/procurehq/sourcedex/internal/domain"

// IntentBuilder constructs a SearchIntent fluently.
//
//	intent := sourcedex.NewIntent("standing desk").
//		Brand("Fully").
//		PriceRange(200, 600).
//		Feature("width", "60 inch").
//		Build()
type IntentBuilder struct {
	intent domain.SearchIntent
}

// NewIntent starts an intent for the given search query.
func NewIntent(query string) *IntentBuilder {
	return &IntentBuilder{intent: domain.SearchIntent{Query: query}}
}

// Category sets the product category.
func (b *IntentBuilder) Category(category string, path ...string) *IntentBuilder {
	b.intent.Category = category
	b.intent.CategoryPath = path
	return b
}

// Product sets the specific product name.
func (b *IntentBuilder) Product(name string) *IntentBuilder {
	b.intent.ProductName = name
	return b
}

// Brand sets the desired brand.
func (b *IntentBuilder) Brand(brand string) *IntentBuilder {
	b.intent.Brand = brand
	return b
}

// Model sets the desired model.
func (b *IntentBuilder) Model(model string) *IntentBuilder {
	b.intent.Model = model
	return b
}

// PriceRange bounds acceptable prices in the comparison currency. Pass a
// negative value to leave that side unbounded.
func (b *IntentBuilder) PriceRange(min, max float64) *IntentBuilder {
	if min >= 0 {
		b.intent.MinPrice = &min
	}
	if max >= 0 {
		b.intent.MaxPrice = &max
	}
	return b
}

// MinPrice bounds acceptable prices from below.
func (b *IntentBuilder) MinPrice(min float64) *IntentBuilder {
	b.intent.MinPrice = &min
	return b
}

// MaxPrice bounds acceptable prices from above.
func (b *IntentBuilder) MaxPrice(max float64) *IntentBuilder {
	b.intent.MaxPrice = &max
	return b
}

// Condition sets the desired condition, e.g. "new" or "refurbished".
func (b *IntentBuilder) Condition(condition string) *IntentBuilder {
	b.intent.Condition = condition
	return b
}

// Feature adds one structured constraint, e.g. ("color", "black").
func (b *IntentBuilder) Feature(name string, values ...string) *IntentBuilder {
	if b.intent.Features == nil {
		b.intent.Features = domain.FeatureMap{}
	}
	b.intent.Features[name] = append(b.intent.Features[name], values...)
	return b
}

// Keywords adds terms that sharpen provider queries.
func (b *IntentBuilder) Keywords(words ...string) *IntentBuilder {
	b.intent.Keywords = append(b.intent.Keywords, words...)
	return b
}

// Exclude adds terms results must not match.
func (b *IntentBuilder) Exclude(words ...string) *IntentBuilder {
	b.intent.ExcludeKeywords = append(b.intent.ExcludeKeywords, words...)
	return b
}

// Build returns the assembled intent.
func (b *IntentBuilder) Build() SearchIntent {
	return b.intent
}
