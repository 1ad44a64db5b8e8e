package analysis

import (
	"errors"
	"fmt"
)

// User-facing messages for the two failures callers can see.
const (
	FetchFailedMessage   = "Failed to fetch or process data."
	AnalyzeFailedMessage = "Failed to analyze."
)

var (
	ErrInvalidPeriod  = errors.New("invalid period")
	ErrInvalidRequest = errors.New("invalid request")
)

// UpstreamFetchError means the price provider was unreachable or answered with a non-success status.
type UpstreamFetchError struct {
	Ticker string
	Err    error
}

func (e *UpstreamFetchError) Error() string {
	return fmt.Sprintf("upstream fetch %s: %v", e.Ticker, e.Err)
}

func (e *UpstreamFetchError) Unwrap() error { return e.Err }

// ModelCallError means the model collaborator failed or returned an unusable response.
type ModelCallError struct {
	Ticker string
	Err    error
}

func (e *ModelCallError) Error() string {
	return fmt.Sprintf("model call %s: %v", e.Ticker, e.Err)
}

func (e *ModelCallError) Unwrap() error { return e.Err }
