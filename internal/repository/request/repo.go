// Package request persists the audit record of a search: the intent and
// the per-provider query plan produced from it.
package request

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/procurehq/sourcedex/internal/domain"
)

// store is the consumer interface for request records (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
}

// Repo implements usecase/search.RequestStore.
type Repo struct {
	store  store
	prefix string
	now    func() time.Time
}

// New creates a request repository. prefix namespaces all keys.
func New(s store, prefix string) *Repo {
	return &Repo{store: s, prefix: prefix, now: time.Now}
}

// WithClock overrides the timestamp source.
func (r *Repo) WithClock(now func() time.Time) *Repo {
	r.now = now
	return r
}

// SaveQueryPlan overwrites the request's intent and query plan. Repeat
// searches on the same request replace the previous plan wholesale.
func (r *Repo) SaveQueryPlan(
	ctx context.Context, requestID string, intent domain.SearchIntent, queries domain.QueryMap,
) error {
	intentJSON, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("marshal intent: %w", err)
	}
	queriesJSON, err := json.Marshal(queries)
	if err != nil {
		return fmt.Errorf("marshal query map: %w", err)
	}

	fields := map[string]string{
		"search_intent":      string(intentJSON),
		"provider_query_map": string(queriesJSON),
		"updated_at":         r.now().UTC().Format(time.RFC3339Nano),
	}
	if err := r.store.HSet(ctx, r.key(requestID), fields); err != nil {
		return fmt.Errorf("save query plan for request %s: %w", requestID, err)
	}
	return nil
}

// Get loads a request's recorded intent and query plan.
func (r *Repo) Get(ctx context.Context, requestID string) (domain.SearchIntent, domain.QueryMap, error) {
	m, err := r.store.HGetAll(ctx, r.key(requestID))
	if err != nil {
		return domain.SearchIntent{}, nil, fmt.Errorf("load request %s: %w", requestID, err)
	}
	if len(m) == 0 {
		return domain.SearchIntent{}, nil, domain.ErrRequestNotFound
	}

	var intent domain.SearchIntent
	if err := json.Unmarshal([]byte(m["search_intent"]), &intent); err != nil {
		return domain.SearchIntent{}, nil, fmt.Errorf("decode intent for request %s: %w", requestID, err)
	}
	queries := domain.QueryMap{}
	if raw := m["provider_query_map"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &queries); err != nil {
			return domain.SearchIntent{}, nil, fmt.Errorf("decode query map for request %s: %w", requestID, err)
		}
	}
	return intent, queries, nil
}

// Delete removes a request record.
func (r *Repo) Delete(ctx context.Context, requestID string) error {
	if err := r.store.Del(ctx, r.key(requestID)); err != nil {
		return fmt.Errorf("delete request %s: %w", requestID, err)
	}
	return nil
}

func (r *Repo) key(requestID string) string {
	return r.prefix + "request:" + requestID
}
