package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/procurehq/sourcedex/internal/domain"
)

// Outcome is the settled result of one executor invocation. Payload is nil
// unless State is success.
type Outcome struct {
	Status  domain.ProviderStatus
	Payload *Payload
}

// Run invokes one adapter's Execute under a bounded deadline and converts
// every possible outcome into an Outcome. No error or panic escapes: a
// provider that fails is excluded from the call, never retried here.
//
// On deadline the in-flight call is abandoned, not awaited: the adapter
// goroutine writes into its own buffered channel and can never touch
// shared state after Run returns.
func Run(ctx context.Context, adapter Adapter, query domain.ProviderQuery, timeout time.Duration) Outcome {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()

	type result struct {
		payload *Payload
		err     error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("provider panic: %v", r)}
			}
		}()
		payload, err := adapter.Execute(ctx, query)
		done <- result{payload: payload, err: err}
	}()

	select {
	case res := <-done:
		return settle(adapter.ID(), res.payload, res.err, time.Since(start))
	case <-ctx.Done():
		return settle(adapter.ID(), nil, ctx.Err(), time.Since(start))
	}
}

func settle(providerID string, payload *Payload, err error, latency time.Duration) Outcome {
	status := domain.ProviderStatus{
		ProviderID: providerID,
		Latency:    latency,
		LatencyMS:  latency.Milliseconds(),
	}

	switch {
	case err == nil:
		status.State = domain.StateSuccess
		if payload != nil {
			status.ResultCount = len(payload.Items)
		}
		return Outcome{Status: status, Payload: payload}
	case errors.Is(err, context.DeadlineExceeded):
		status.State = domain.StateTimeout
		status.Message = "search timed out"
		return Outcome{Status: status}
	case errors.Is(err, context.Canceled):
		status.State = domain.StateTimeout
		status.Message = "search cancelled"
		return Outcome{Status: status}
	default:
		status.State, status.Message = classifyError(err)
		return Outcome{Status: status}
	}
}

// classifyError refines provider failures so the caller can tell "provider
// is broken" from "provider is out of budget" or "provider is throttling".
func classifyError(err error) (domain.ProviderState, string) {
	var se *StatusError
	if errors.As(err, &se) {
		switch se.Code {
		case 402:
			return domain.StateExhausted, "API quota exhausted"
		case 429:
			return domain.StateRateLimited, "Rate limit exceeded"
		}
	}
	msg := err.Error()
	if strings.Contains(msg, "402") || strings.Contains(msg, "Payment Required") {
		return domain.StateExhausted, "API quota exhausted"
	}
	if strings.Contains(msg, "429") || strings.Contains(msg, "Too Many Requests") {
		return domain.StateRateLimited, "Rate limit exceeded"
	}
	if len(msg) > 100 {
		cut := 100
		// Back off to a rune boundary so the cut never splits a character.
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut]
	}
	return domain.StateError, "search failed: " + msg
}
