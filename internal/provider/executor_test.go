package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/procurehq/sourcedex/internal/domain"
)

// fakeAdapter is a scriptable adapter for executor tests.
type fakeAdapter struct {
	id      string
	payload *Payload
	err     error
	delay   time.Duration
	panicV  any
}

func (f *fakeAdapter) ID() string { return f.id }

func (f *fakeAdapter) BuildQuery(intent domain.SearchIntent) domain.ProviderQuery {
	return domain.ProviderQuery{ProviderID: f.id, Query: intent.Query}
}

func (f *fakeAdapter) Execute(ctx context.Context, _ domain.ProviderQuery) (*Payload, error) {
	if f.panicV != nil {
		panic(f.panicV)
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.payload, f.err
}

func testPayload(id string, n int) *Payload {
	items := make([]json.RawMessage, n)
	for i := range items {
		items[i] = json.RawMessage(`{"title":"x"}`)
	}
	return &Payload{ProviderID: id, Family: FamilyShopping, Items: items}
}

func TestRun_Success(t *testing.T) {
	a := &fakeAdapter{id: "serpapi", payload: testPayload("serpapi", 3)}

	out := Run(context.Background(), a, domain.ProviderQuery{}, time.Second)
	if out.Status.State != domain.StateSuccess {
		t.Fatalf("state = %s", out.Status.State)
	}
	if out.Status.ProviderID != "serpapi" {
		t.Errorf("provider = %s", out.Status.ProviderID)
	}
	if out.Status.ResultCount != 3 {
		t.Errorf("result count = %d", out.Status.ResultCount)
	}
	if out.Payload == nil || len(out.Payload.Items) != 3 {
		t.Error("expected payload to pass through")
	}
}

func TestRun_Timeout(t *testing.T) {
	a := &fakeAdapter{id: "slow", delay: time.Second, payload: testPayload("slow", 1)}

	out := Run(context.Background(), a, domain.ProviderQuery{}, 20*time.Millisecond)
	if out.Status.State != domain.StateTimeout {
		t.Fatalf("state = %s", out.Status.State)
	}
	if out.Status.Message != "search timed out" {
		t.Errorf("message = %q", out.Status.Message)
	}
	if out.Payload != nil {
		t.Error("timed out provider must not return a payload")
	}
}

func TestRun_ParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := &fakeAdapter{id: "slow", delay: time.Second}
	out := Run(ctx, a, domain.ProviderQuery{}, time.Second)
	if out.Status.State != domain.StateTimeout {
		t.Fatalf("state = %s", out.Status.State)
	}
	if out.Status.Message != "search cancelled" {
		t.Errorf("message = %q", out.Status.Message)
	}
}

func TestRun_Panic(t *testing.T) {
	a := &fakeAdapter{id: "broken", panicV: "nil map write"}

	out := Run(context.Background(), a, domain.ProviderQuery{}, time.Second)
	if out.Status.State != domain.StateError {
		t.Fatalf("state = %s", out.Status.State)
	}
	if !strings.Contains(out.Status.Message, "provider panic") {
		t.Errorf("message = %q", out.Status.Message)
	}
}

func TestRun_QuotaExhausted(t *testing.T) {
	a := &fakeAdapter{
		id:  "serpapi",
		err: fmt.Errorf("serpapi: %w", &StatusError{Code: 402, Snippet: "payment required"}),
	}

	out := Run(context.Background(), a, domain.ProviderQuery{}, time.Second)
	if out.Status.State != domain.StateExhausted {
		t.Fatalf("state = %s", out.Status.State)
	}
	if out.Status.Message != "API quota exhausted" {
		t.Errorf("message = %q", out.Status.Message)
	}
}

func TestRun_RateLimited(t *testing.T) {
	a := &fakeAdapter{
		id:  "searchapi",
		err: fmt.Errorf("searchapi: %w", &StatusError{Code: 429, Snippet: "slow down"}),
	}

	out := Run(context.Background(), a, domain.ProviderQuery{}, time.Second)
	if out.Status.State != domain.StateRateLimited {
		t.Fatalf("state = %s", out.Status.State)
	}
	if out.Status.Message != "Rate limit exceeded" {
		t.Errorf("message = %q", out.Status.Message)
	}
}

func TestRun_GenericError(t *testing.T) {
	a := &fakeAdapter{id: "cse", err: errors.New("connection refused")}

	out := Run(context.Background(), a, domain.ProviderQuery{}, time.Second)
	if out.Status.State != domain.StateError {
		t.Fatalf("state = %s", out.Status.State)
	}
	if !strings.HasPrefix(out.Status.Message, "search failed: ") {
		t.Errorf("message = %q", out.Status.Message)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		state   domain.ProviderState
		message string
	}{
		{"status 402", &StatusError{Code: 402}, domain.StateExhausted, "API quota exhausted"},
		{"status 429", &StatusError{Code: 429}, domain.StateRateLimited, "Rate limit exceeded"},
		{"text 402", errors.New("upstream said 402"), domain.StateExhausted, "API quota exhausted"},
		{"text payment required", errors.New("Payment Required"), domain.StateExhausted, "API quota exhausted"},
		{"text 429", errors.New("got 429 from upstream"), domain.StateRateLimited, "Rate limit exceeded"},
		{"text too many requests", errors.New("Too Many Requests"), domain.StateRateLimited, "Rate limit exceeded"},
		{"other", errors.New("boom"), domain.StateError, "search failed: boom"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			state, msg := classifyError(tc.err)
			if state != tc.state {
				t.Errorf("state = %s, want %s", state, tc.state)
			}
			if msg != tc.message {
				t.Errorf("message = %q, want %q", msg, tc.message)
			}
		})
	}
}

func TestClassifyError_TruncatesLongMessages(t *testing.T) {
	long := strings.Repeat("z", 300)
	_, msg := classifyError(errors.New(long))
	if len(msg) != len("search failed: ")+100 {
		t.Errorf("message length = %d", len(msg))
	}
}

func TestClassifyError_TruncatesOnRuneBoundary(t *testing.T) {
	// Byte 100 lands in the middle of a three-byte rune; the cut must back
	// off instead of leaving a broken sequence.
	long := strings.Repeat("z", 99) + strings.Repeat("日", 40)
	_, msg := classifyError(errors.New(long))

	detail := strings.TrimPrefix(msg, "search failed: ")
	if !utf8.ValidString(detail) {
		t.Fatalf("truncated message is not valid UTF-8: %q", detail)
	}
	if len(detail) != 99 {
		t.Errorf("truncated length = %d, want 99 (the last full rune boundary)", len(detail))
	}
}
