// Package listing persists normalized listings keyed by request, canonical
// URL, and provider. Upserts are idempotent: replaying a batch rewrites the
// same keys with fresh data while keeping each listing's first_seen_at.
package listing

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/procurehq/sourcedex/internal/db"
	"github.com/procurehq/sourcedex/internal/domain"
)

// store is the consumer interface for listings (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

const retryDelay = 150 * time.Millisecond

// Repo implements usecase/search.ListingStore.
type Repo struct {
	store  store
	prefix string
	now    func() time.Time
}

// New creates a listing repository. prefix namespaces all keys.
func New(s store, prefix string) *Repo {
	return &Repo{store: s, prefix: prefix, now: time.Now}
}

// WithClock overrides the timestamp source.
func (r *Repo) WithClock(now func() time.Time) *Repo {
	r.now = now
	return r
}

// UpsertBatch writes one provider batch. Last write wins per listing except
// first_seen_at, which survives from the earliest upsert. A transient store
// failure is retried once before reporting the batch as failed.
func (r *Repo) UpsertBatch(ctx context.Context, requestID string, results []domain.NormalizedResult) error {
	if len(results) == 0 {
		return nil
	}

	keys := make([]string, len(results))
	for i, res := range results {
		keys[i] = r.key(requestID, res.CanonicalURL, res.ProviderID)
	}

	existing, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		// Treat unknown prior state as a fresh write rather than failing
		// the batch.
		existing = make([]map[string]string, len(keys))
	}

	now := r.now().UTC().Format(time.RFC3339Nano)
	items := make([]db.HashSetItem, len(results))
	for i, res := range results {
		fields := listingToHash(res, now)
		if len(existing) > i && existing[i]["first_seen_at"] != "" {
			fields["first_seen_at"] = existing[i]["first_seen_at"]
		}
		items[i] = db.HashSetItem{Key: keys[i], Fields: fields}
	}

	if err := r.store.HSetMulti(ctx, items); err == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(retryDelay):
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert listings for request %s: %w", requestID, err)
	}
	return nil
}

// ListByRequest returns all persisted listings for a request, unordered.
func (r *Repo) ListByRequest(ctx context.Context, requestID string) ([]domain.NormalizedResult, error) {
	keys, err := r.store.Scan(ctx, r.prefix+"listing:"+requestID+":*")
	if err != nil {
		return nil, fmt.Errorf("scan listings for request %s: %w", requestID, err)
	}
	if len(keys) == 0 {
		return []domain.NormalizedResult{}, nil
	}

	hashes, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("load listings for request %s: %w", requestID, err)
	}

	out := make([]domain.NormalizedResult, 0, len(hashes))
	for _, m := range hashes {
		if len(m) == 0 {
			continue
		}
		out = append(out, listingFromHash(m))
	}
	return out, nil
}

func (r *Repo) key(requestID, canonicalURL, providerID string) string {
	sum := sha1.Sum([]byte(canonicalURL))
	return r.prefix + "listing:" + requestID + ":" + hex.EncodeToString(sum[:]) + ":" + providerID
}

func listingToHash(res domain.NormalizedResult, now string) map[string]string {
	fields := map[string]string{
		"title":          res.Title,
		"price_amount":   strconv.FormatFloat(res.Price.Amount, 'f', -1, 64),
		"price_currency": res.Price.Currency,
		"canonical_url":  res.CanonicalURL,
		"url":            res.RawURL,
		"provider_id":    res.ProviderID,
		"match_score":    strconv.FormatFloat(res.MatchScore, 'f', -1, 64),
		"first_seen_at":  now,
		"updated_at":     now,
	}
	if res.PriceOriginal > 0 {
		fields["price_original"] = strconv.FormatFloat(res.PriceOriginal, 'f', -1, 64)
		fields["currency_original"] = res.CurrencyOriginal
	}
	if res.MerchantName != "" {
		fields["merchant_name"] = res.MerchantName
	}
	if res.MerchantDomain != "" {
		fields["merchant_domain"] = res.MerchantDomain
	}
	if res.Availability != "" {
		fields["availability"] = res.Availability
	}
	if res.Rating > 0 {
		fields["rating"] = strconv.FormatFloat(res.Rating, 'f', -1, 64)
	}
	if res.ReviewsCount > 0 {
		fields["reviews_count"] = strconv.Itoa(res.ReviewsCount)
	}
	if res.ImageURL != "" {
		fields["image_url"] = res.ImageURL
	}
	if len(res.Provenance) > 0 {
		fields["provenance"] = string(res.Provenance)
	}
	return fields
}

func listingFromHash(m map[string]string) domain.NormalizedResult {
	res := domain.NormalizedResult{
		Title:            m["title"],
		CanonicalURL:     m["canonical_url"],
		RawURL:           m["url"],
		ProviderID:       m["provider_id"],
		MerchantName:     m["merchant_name"],
		MerchantDomain:   m["merchant_domain"],
		Availability:     m["availability"],
		ImageURL:         m["image_url"],
		CurrencyOriginal: m["currency_original"],
	}
	res.Price.Currency = m["price_currency"]
	res.Price.Amount, _ = strconv.ParseFloat(m["price_amount"], 64)
	res.PriceOriginal, _ = strconv.ParseFloat(m["price_original"], 64)
	res.MatchScore, _ = strconv.ParseFloat(m["match_score"], 64)
	res.Rating, _ = strconv.ParseFloat(m["rating"], 64)
	res.ReviewsCount, _ = strconv.Atoi(m["reviews_count"])
	if p := m["provenance"]; p != "" {
		res.Provenance = []byte(p)
	}
	return res
}
