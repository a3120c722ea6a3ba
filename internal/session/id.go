package session

import (
	"errors"
	"fmt"
	"regexp"
)

const (
	// MaxIDLength is the maximum length of a session ID.
	MaxIDLength = 64
	// DefaultID is used when a client sends no session ID.
	DefaultID = "default"
)

// ErrInvalidID indicates a session ID failed validation.
var ErrInvalidID = errors.New("invalid session ID")

// idPattern must start and end with alphanumeric, hyphens allowed in between.
var idPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// ValidateID checks a session ID against the format rules.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty session ID", ErrInvalidID)
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("%w: exceeds %d characters", ErrInvalidID, MaxIDLength)
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%w: %q must be lowercase alphanumeric with hyphens", ErrInvalidID, id)
	}
	return nil
}

// Namespace returns the preference key prefix for a session.
func Namespace(id string) string {
	return "session/" + id + "/"
}
