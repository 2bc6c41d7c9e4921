package domain

// CallbackOutcome is the normalized result code carried by a provider
// callback, independent of the provider's own wire vocabulary.
type CallbackOutcome string

const (
	CallbackOutcomeProcessing CallbackOutcome = "processing"
	CallbackOutcomeSucceeded  CallbackOutcome = "succeeded"
	CallbackOutcomeFailed     CallbackOutcome = "failed"
)

// JobStatus maps the outcome onto the job state machine.
func (o CallbackOutcome) JobStatus() JobStatus {
	switch o {
	case CallbackOutcomeProcessing:
		return JobStatusProcessing
	case CallbackOutcomeSucceeded:
		return JobStatusSucceeded
	default:
		return JobStatusFailed
	}
}

// CallbackEvent is the internal shape every provider callback is normalized
// into before it touches any state. ProviderJobID identifies the job on the
// provider side; PayloadDigest is the hash of the raw payload bytes the
// event was parsed from.
type CallbackEvent struct {
	Provider      string
	ProviderJobID string
	Outcome       CallbackOutcome
	ResultRef     string
	FailureReason string
	PayloadDigest string
}
