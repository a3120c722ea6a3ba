package gateway

import (
	"context"

	"github.com/hyperengineering/pavilion/internal/types"
)

// Generator is one remote text-generation backend.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	// Name identifies the backend for logs and health output.
	Name() string
}

// Request is a single generation call.
type Request struct {
	// System is the persona instruction, if any.
	System string
	// History is replayed before Prompt, oldest first.
	History []types.ConversationTurn
	Prompt  string
	// Schema, when set, asks for a JSON reply matching it.
	Schema *Schema
	// WebSearch enables search grounding so the reply can cite live sources.
	WebSearch bool
}

// Response is the raw reply of a generation call.
type Response struct {
	Text      string
	Citations []types.Citation
}

// SchemaType is a JSON schema field type.
type SchemaType string

const (
	TypeObject  SchemaType = "object"
	TypeArray   SchemaType = "array"
	TypeString  SchemaType = "string"
	TypeInteger SchemaType = "integer"
)

// Schema is a backend-neutral description of a constrained JSON reply.
type Schema struct {
	Type       SchemaType
	Properties map[string]*Schema
	// Order lists property names in the order they should be generated.
	Order    []string
	Items    *Schema
	Required []string
}

// JSONSchema renders s as a standard JSON Schema document.
func (s *Schema) JSONSchema() map[string]any {
	out := map[string]any{"type": string(s.Type)}
	if s.Items != nil {
		out["items"] = s.Items.JSONSchema()
	}
	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for name, p := range s.Properties {
			props[name] = p.JSONSchema()
		}
		out["properties"] = props
		out["additionalProperties"] = false
	}
	if len(s.Required) > 0 {
		out["required"] = s.Required
	}
	return out
}
