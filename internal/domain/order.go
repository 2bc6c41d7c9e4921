package domain

import "time"

// Order is a purchase record correlated with a job for conversion tracking.
// Creation happens at checkout time, outside this service; the tracking
// redirect only ever reads it and flips ConversionReported once.
type Order struct {
	OrderNo            string
	JobID              *string
	AmountMinor        int64
	Currency           string
	ConversionReported bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
