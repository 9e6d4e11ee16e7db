package orchestrator

import "errors"

// MaxPromptLength is the longest accepted prompt, counted in characters.
const MaxPromptLength = 1000

var (
	ErrEmptyPrompt   = errors.New("prompt is required")
	ErrPromptTooLong = errors.New("prompt exceeds 1000 characters")
)

// IsValidation reports whether err was caused by a bad request rather than by
// the service itself.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyPrompt) || errors.Is(err, ErrPromptTooLong)
}
