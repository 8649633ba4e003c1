// ABOUTME: Error types shared by the orchestrator and chat cache
// ABOUTME: OverflowError carries a structured refusal; ErrNoData marks an empty scope
package core

import (
	"errors"
	"fmt"
)

// ErrNoData is returned internally when a scope has no transcripts.
// Public operations turn it into an explicit NoData result.
var ErrNoData = errors.New("no transcripts for the requested scope")

// OverflowError reports a corpus that cannot fit even at the Minimal level
type OverflowError struct {
	Refusal Refusal
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("context overflow: estimated %d tokens, %d available for %s",
		e.Refusal.Estimated, e.Refusal.Available, e.Refusal.CapabilityID)
}
