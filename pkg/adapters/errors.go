package adapters

import (
	"errors"
	"fmt"
)

var (
	ErrMissingAPIKey     = errors.New("missing api key")
	ErrEmptyPrompt       = errors.New("prompt is empty")
	ErrMalformedResponse = errors.New("malformed provider response")
)

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.Code, e.Body)
}
