// ABOUTME: Capability is the text-completion contract the analysis pipeline depends on
// ABOUTME: CapabilityError classifies failures as size limit, rate limit or generic
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Request is one prompt submitted to a completion capability
type Request struct {
	SystemPrompt      string
	UserPrompt        string
	CapabilityID      string
	MaxResponseTokens int
	// JSON asks the capability for a JSON object response
	JSON bool
}

// Capability submits prompts and returns the completion text
type Capability interface {
	Submit(ctx context.Context, req Request) (string, error)
}

// ErrorKind classifies a capability failure
type ErrorKind string

const (
	KindSizeLimit ErrorKind = "size_limit"
	KindRateLimit ErrorKind = "rate_limit"
	KindGeneric   ErrorKind = "generic"
)

// CapabilityError is returned for every failed submission
type CapabilityError struct {
	Kind         ErrorKind
	CapabilityID string
	StatusCode   int
	Err          error
}

func (e *CapabilityError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("capability %s: %s (status %d): %v", e.CapabilityID, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("capability %s: %s: %v", e.CapabilityID, e.Kind, e.Err)
}

func (e *CapabilityError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a CapabilityError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var ce *CapabilityError
	return errors.As(err, &ce) && ce.Kind == kind
}
