package assetapi

import (
	"errors"
	"fmt"
)

// ErrPayloadTooLarge is returned for an upstream 413; the caller should
// shrink the attachment set rather than retry.
var ErrPayloadTooLarge = errors.New("submission payload too large")

// ErrSubmitTimeout is returned when the submission deadline elapses.
// Nothing retries automatically; the submission may or may not have
// landed upstream.
var ErrSubmitTimeout = errors.New("submission timed out")

// UnprocessableError carries the backend's 422 validation message.
type UnprocessableError struct {
	Message string
}

func (e *UnprocessableError) Error() string {
	if e.Message == "" {
		return "upstream rejected the submission"
	}
	return e.Message
}

// StatusError is the fallback for any other non-2xx upstream response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.Code, e.Body)
}
