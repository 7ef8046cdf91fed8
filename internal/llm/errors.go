package llm

import (
	"encoding/json"
	"fmt"
	"time"
)

// Provider failure modes. The retry decorator switches on these types, so
// every provider adapter must map its SDK errors onto them.

// ErrRateLimit reports provider throttling (HTTP 429). RetryAfter carries
// the provider's own hint when one was sent, zero otherwise.
type ErrRateLimit struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	return fmt.Sprintf("provider rate limit (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrInvalidResponse reports a payload that failed schema validation or
// did not parse as JSON. Content keeps the raw payload for diagnostics.
type ErrInvalidResponse struct {
	Content json.RawMessage
	Err     error
}

func (e *ErrInvalidResponse) Error() string {
	return fmt.Sprintf("authoring response failed validation: %v", e.Err)
}

func (e *ErrInvalidResponse) Unwrap() error { return e.Err }

// ErrProviderUnavailable reports that the provider could not be reached
// or answered with a server-side failure.
type ErrProviderUnavailable struct {
	Err error
}

func (e *ErrProviderUnavailable) Error() string {
	if e.Err == nil {
		return "LLM provider unavailable"
	}
	return fmt.Sprintf("LLM provider unavailable: %v", e.Err)
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }

// ErrMaxTokensExceeded reports a response truncated at the token budget.
// Content keeps the partial payload.
type ErrMaxTokensExceeded struct {
	Content json.RawMessage
}

func (e *ErrMaxTokensExceeded) Error() string {
	return "LLM response truncated at the token budget"
}
