package moderation

import "fmt"

// TransportError reports that a moderation call could not produce a
// usable verdict. Callers fall back to the unfiltered text.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("moderation %s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("moderation %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
