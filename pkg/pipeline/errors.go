package pipeline

import (
	"errors"
	"fmt"
)

var ErrBusy = errors.New("pipeline: generation already in progress")

// Error kinds, match them with errors.Is.
var (
	ErrPrecondition = errors.New("precondition failed")
	ErrExtraction   = errors.New("text extraction failed")
	ErrCompletion   = errors.New("completion failed")
)

const (
	msgMissingKey     = "Please enter your xAI API key"
	msgMissingContent = "Please upload a screenshot or enter some text"
	msgKeyUnavailable = "Couldn't read the xAI API key"
	msgOCRFailed      = "Failed to extract text from image"
	msgNotEnoughText  = "Could not extract enough text from the image. Try a clearer screenshot or add text below."
	msgGenerateFailed = "Failed to generate song"
	msgTimeout        = "Request timed out, please try again"
	msgCanceled       = "Request cancelled"
	msgUnreachable    = "Couldn't reach the xAI API"
)

// Error is a failed run. Message is meant for end users.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

// Detail includes the underlying cause, for logs.
func (e *Error) Detail() string {
	if e.Err == nil {
		return fmt.Sprintf("%v: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%v: %s: %v", e.Kind, e.Message, e.Err)
}
