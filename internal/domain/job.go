package domain

import "time"

// JobKind enumerates supported generation job categories.
type JobKind string

const (
	JobKindImageEdit   JobKind = "image_edit"
	JobKindTextToVideo JobKind = "text_to_video"
)

// Valid reports whether the kind is one this service accepts.
func (k JobKind) Valid() bool {
	return k == JobKindImageEdit || k == JobKindTextToVideo
}

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusSucceeded  JobStatus = "succeeded"
	JobStatusFailed     JobStatus = "failed"
	JobStatusExpired    JobStatus = "expired"
)

// Terminal reports whether the status is final. Terminal jobs are immutable
// except for bookkeeping fields.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusFailed, JobStatusExpired:
		return true
	}
	return false
}

// CanTransition reports whether moving from s to next respects the monotone
// lifecycle: pending -> processing -> {succeeded, failed}, with expired
// reachable only from the two non-terminal states.
func (s JobStatus) CanTransition(next JobStatus) bool {
	switch s {
	case JobStatusPending:
		return next == JobStatusProcessing || next == JobStatusSucceeded ||
			next == JobStatusFailed || next == JobStatusExpired
	case JobStatusProcessing:
		return next == JobStatusSucceeded || next == JobStatusFailed ||
			next == JobStatusExpired
	}
	return false
}

// Job encapsulates the lifecycle of one asynchronous generation request.
// The provider executes the work out-of-band and reports the outcome via a
// webhook callback; rows are never deleted so terminal jobs stay available
// for audit and support.
type Job struct {
	ID            string
	OwnerID       string
	Kind          JobKind
	Status        JobStatus
	Provider      string
	ProviderJobID string
	Prompt        string
	OptionsJSON   []byte
	Cost          int64
	ResultRef     string
	FailureReason string
	// PayloadDigest is the hash of the last accepted callback payload,
	// used to detect idempotent redelivery.
	PayloadDigest string
	NotifyEmail   string
	SubmittedAt   time.Time
	UpdatedAt     time.Time
}
