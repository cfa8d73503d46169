package listing

import (
	"context"
	"testing"
	"time"

	"github.com/procurehq/sourcedex/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hsetMultiFn    func(ctx context.Context, items []db.HashSetItem) error
	hgetAllMultiFn func(ctx context.Context, keys []string) ([]map[string]string, error)
	scanFn         func(ctx context.Context, pattern string) ([]string, error)
}

func (m *mockStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if m.hsetMultiFn != nil {
		return m.hsetMultiFn(ctx, items)
	}
	return nil
}

func (m *mockStore) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if m.hgetAllMultiFn != nil {
		return m.hgetAllMultiFn(ctx, keys)
	}
	return make([]map[string]string, len(keys)), nil
}

func (m *mockStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	if m.scanFn != nil {
		return m.scanFn(ctx, pattern)
	}
	return nil, nil
}

var testNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	repo := New(ms, "sourcedex:").WithClock(func() time.Time { return testNow })
	return repo, ms
}
