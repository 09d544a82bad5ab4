package domain

import "fmt"

// MalformedIdentifierError reports an identifier whose core cannot be
// normalized: no alphabetic family prefix, or no digits at all.
type MalformedIdentifierError struct {
	Input  string
	Reason string
}

func (e MalformedIdentifierError) Error() string {
	return fmt.Sprintf("malformed identifier %q: %s", e.Input, e.Reason)
}

// NotFoundError reports a failed lineage resolution: blank input, an unknown
// core, an unknown suffix with no raw fallback match, or input that did not
// parse. When the input was malformed, Err carries the underlying
// MalformedIdentifierError so callers can still distinguish the two cases.
type NotFoundError struct {
	Input string
	Err   error
}

func (e NotFoundError) Error() string {
	if e.Input == "" {
		return "identifier not found: empty input"
	}
	return fmt.Sprintf("identifier %q not found", e.Input)
}

func (e NotFoundError) Unwrap() error { return e.Err }

// InvalidBroodIndexError reports a caller-supplied brood index outside the
// valid range (indices start at 1).
type InvalidBroodIndexError struct {
	Index int
}

func (e InvalidBroodIndexError) Error() string {
	return fmt.Sprintf("invalid brood index %d: must be >= 1", e.Index)
}
