// Package providers defines the adapter contract between internal generation
// requests and third-party generation services. One adapter exists per
// provider; each translates submissions into the provider's wire shape and
// normalizes callback payloads into domain.CallbackEvent.
package providers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"genbridge/internal/domain"
)

// SubmitOptions carries the per-kind generation knobs. Fields a provider
// does not understand are ignored by that provider.
type SubmitOptions struct {
	AspectRatio     string
	DurationSeconds int
	SourceImageURL  string
}

// SubmitRequest is the internal shape of one generation submission.
type SubmitRequest struct {
	JobID   string
	OwnerID string
	Kind    domain.JobKind
	Prompt  string
	Options SubmitOptions
}

// Adapter is implemented once per provider. Submit returns the provider-side
// job identifier; ParseCallback authenticates and normalizes an inbound
// callback body. Parse failures are terminal for that request and map to
// domain.ErrInvalidSignature or domain.ErrMalformedPayload.
type Adapter interface {
	Name() string
	Submit(ctx context.Context, req SubmitRequest) (providerJobID string, err error)
	ParseCallback(body []byte, signature string) (domain.CallbackEvent, error)
}

// Registry resolves adapters by the provider identifier carried in the
// webhook route.
type Registry map[string]Adapter

// Lookup returns the adapter registered under name.
func (r Registry) Lookup(name string) (Adapter, error) {
	adapter, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("provider %q not configured", name)
	}
	return adapter, nil
}

// PayloadDigest hashes raw callback bytes for idempotency detection. The
// digest of the last accepted payload is stored on the job, so redelivery of
// the same payload is recognizable without comparing bodies.
func PayloadDigest(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
