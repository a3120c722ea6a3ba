package api

import (
	"context"
	"errors"

	"github.com/hyperengineering/pavilion/internal/controller"
	"github.com/hyperengineering/pavilion/internal/session"
)

// controllerContextKey is the context key for the session's controller.
type controllerContextKey struct{}

// sessionIDContextKey is the context key for the session ID (for logging).
type sessionIDContextKey struct{}

// ErrNoControllerInContext indicates no controller was found in the context.
var ErrNoControllerInContext = errors.New("no session controller in context")

// WithController returns a new context with the controller attached.
func WithController(ctx context.Context, c *controller.Controller) context.Context {
	return context.WithValue(ctx, controllerContextKey{}, c)
}

// ControllerFromContext extracts the controller from the context.
func ControllerFromContext(ctx context.Context) (*controller.Controller, error) {
	c, ok := ctx.Value(controllerContextKey{}).(*controller.Controller)
	if !ok || c == nil {
		return nil, ErrNoControllerInContext
	}
	return c, nil
}

// MustControllerFromContext extracts the controller or panics.
// Use only behind SessionMiddleware.
func MustControllerFromContext(ctx context.Context) *controller.Controller {
	c, err := ControllerFromContext(ctx)
	if err != nil {
		panic("controller not in context: middleware misconfiguration")
	}
	return c
}

// WithSessionID returns a new context with the session ID attached.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDContextKey{}, id)
}

// SessionIDFromContext extracts the session ID from the context.
// Returns the default ID if not present or empty.
func SessionIDFromContext(ctx context.Context) string {
	id, ok := ctx.Value(sessionIDContextKey{}).(string)
	if !ok || id == "" {
		return session.DefaultID
	}
	return id
}
