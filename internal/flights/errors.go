package flights

import (
	"errors"
	"fmt"
)

// ErrElementNotFound means a required page element never appeared
var ErrElementNotFound = errors.New("element not found")

// ErrTimeout means a bounded element wait expired
var ErrTimeout = errors.New("timed out waiting for element")

// ErrAmbiguousMatch means a strategy that expects a unique element matched
// more than one node
var ErrAmbiguousMatch = errors.New("ambiguous element match")

// AirportSelectionError reports that the type-then-confirm-from-dropdown
// interaction failed for one airport field after all fallback strategies.
type AirportSelectionError struct {
	Airport string
	Err     error
}

func (e *AirportSelectionError) Error() string {
	return fmt.Sprintf("could not select airport %q: %v", e.Airport, e.Err)
}

func (e *AirportSelectionError) Unwrap() error { return e.Err }
