// Package analytics is the injected reporting seam for conversion and usage
// events. Core logic depends on the Sink contract only; nothing in the
// service pushes into an ambient global.
package analytics

import (
	"context"
	"errors"
	"time"
)

// Event is one analytics signal. ValueMinor is in minor currency units.
type Event struct {
	Name       string    `json:"name"`
	OrderNo    string    `json:"order_no,omitempty"`
	ValueMinor int64     `json:"value_minor,omitempty"`
	Currency   string    `json:"currency,omitempty"`
	Country    string    `json:"country,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Canonical event names.
const (
	EventConversion      = "conversion"
	EventSubmission      = "generation_submitted"
	EventCallbackApplied = "callback_applied"
)

// Sink receives events best-effort. Callers treat a returned error as a
// dropped signal, never as a request failure.
type Sink interface {
	Report(ctx context.Context, event Event) error
}

// NopSink drops every event.
type NopSink struct{}

func (NopSink) Report(ctx context.Context, event Event) error { return nil }

// MultiSink fans one event out to several sinks. Every sink sees the event
// even when an earlier one fails.
type MultiSink []Sink

func (m MultiSink) Report(ctx context.Context, event Event) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Report(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
