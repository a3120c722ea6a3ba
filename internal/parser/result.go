// Package parser turns loosely formatted AI replies into typed entities.
// Every function here returns a usable value: either what was parsed or a
// documented fallback, and the Result records which of the two it was.
package parser

import "errors"

var (
	// ErrNoJSON means no JSON candidate could be located in the text.
	ErrNoJSON = errors.New("no JSON found in response")
	// ErrMalformed means a JSON candidate was located but did not decode.
	ErrMalformed = errors.New("malformed JSON in response")
	// ErrInvalidShape means the JSON decoded but failed structural validation.
	ErrInvalidShape = errors.New("response has invalid shape")
)

// Outcome records which path produced a Result's value.
type Outcome int

const (
	// Parsed means the value came from the response.
	Parsed Outcome = iota
	// Fallback means the response was unusable and a default was substituted.
	Fallback
)

func (o Outcome) String() string {
	if o == Fallback {
		return "fallback"
	}
	return "parsed"
}

// Result is a parsed value or a fallback together with the reason for it.
type Result[T any] struct {
	Value   T
	Outcome Outcome
	// Reason is nil for Parsed results.
	Reason error
}

// IsFallback reports whether Value is a substituted default.
func (r Result[T]) IsFallback() bool {
	return r.Outcome == Fallback
}

func parsed[T any](v T) Result[T] {
	return Result[T]{Value: v, Outcome: Parsed}
}

func fallback[T any](v T, reason error) Result[T] {
	return Result[T]{Value: v, Outcome: Fallback, Reason: reason}
}
