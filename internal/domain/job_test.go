package domain

import "testing"

func TestCanTransitionMonotone(t *testing.T) {
	cases := []struct {
		from, to JobStatus
		want     bool
	}{
		{JobStatusPending, JobStatusProcessing, true},
		{JobStatusPending, JobStatusSucceeded, true},
		{JobStatusPending, JobStatusFailed, true},
		{JobStatusPending, JobStatusExpired, true},
		{JobStatusProcessing, JobStatusSucceeded, true},
		{JobStatusProcessing, JobStatusFailed, true},
		{JobStatusProcessing, JobStatusExpired, true},
		{JobStatusProcessing, JobStatusPending, false},
		{JobStatusSucceeded, JobStatusProcessing, false},
		{JobStatusSucceeded, JobStatusFailed, false},
		{JobStatusFailed, JobStatusSucceeded, false},
		{JobStatusFailed, JobStatusExpired, false},
		{JobStatusExpired, JobStatusSucceeded, false},
		{JobStatusExpired, JobStatusProcessing, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.want {
			t.Fatalf("CanTransition(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, s := range []JobStatus{JobStatusSucceeded, JobStatusFailed, JobStatusExpired} {
		if !s.Terminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
	for _, s := range []JobStatus{JobStatusPending, JobStatusProcessing} {
		if s.Terminal() {
			t.Fatalf("%s should not be terminal", s)
		}
	}
}

func TestCallbackOutcomeJobStatus(t *testing.T) {
	if got := CallbackOutcomeProcessing.JobStatus(); got != JobStatusProcessing {
		t.Fatalf("processing outcome mapped to %s", got)
	}
	if got := CallbackOutcomeSucceeded.JobStatus(); got != JobStatusSucceeded {
		t.Fatalf("succeeded outcome mapped to %s", got)
	}
	if got := CallbackOutcomeFailed.JobStatus(); got != JobStatusFailed {
		t.Fatalf("failed outcome mapped to %s", got)
	}
}
