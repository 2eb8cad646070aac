package destination

import (
	"fmt"
	"net/http"
)

// OutboundFailure describes a failed insert into the destination store.
// StatusCode is 0 when no response was received at all.
type OutboundFailure struct {
	// Err is the transport error, nil when the destination answered
	Err error

	// Message is the human readable reason passed back to the device
	Message string

	// Body is the raw upstream response body, if any
	Body []byte

	// StatusCode is the upstream HTTP status
	StatusCode int
}

// Error implements error.
func (e *OutboundFailure) Error() string {
	if e.StatusCode == 0 {
		return "destination request failed: " + e.Message
	}

	return fmt.Sprintf("destination responded %d: %s", e.StatusCode, e.Message)
}

// Unwrap returns the transport error.
func (e *OutboundFailure) Unwrap() error {
	return e.Err
}

// Status is the code to answer the device with: the upstream status when one was reported,
// otherwise 500.
func (e *OutboundFailure) Status() int {
	if e.StatusCode == 0 {
		return http.StatusInternalServerError
	}

	return e.StatusCode
}
