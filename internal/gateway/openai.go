package gateway

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hyperengineering/pavilion/internal/types"
)

var _ Generator = (*OpenAIGenerator)(nil)

// CompletionsService is the slice of the OpenAI chat completions API the
// generator uses. Tests substitute it to avoid calling the real service.
type CompletionsService interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAIGenerator calls an OpenAI-compatible chat completions endpoint.
// It has no web search tool, so search replies carry no citations.
type OpenAIGenerator struct {
	completions CompletionsService
	model       string
}

// NewOpenAIGenerator creates an OpenAI chat completions client.
func NewOpenAIGenerator(apiKey, model, baseURL string) *OpenAIGenerator {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return &OpenAIGenerator{
		completions: client.Chat.Completions,
		model:       model,
	}
}

// Name returns "openai".
func (o *OpenAIGenerator) Name() string { return ProviderOpenAI }

// Generate runs one chat completion.
func (o *OpenAIGenerator) Generate(ctx context.Context, req Request) (*Response, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.History)+2)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	for _, turn := range req.History {
		if turn.Role == types.RoleModel {
			messages = append(messages, openai.AssistantMessage(turn.Text))
		} else {
			messages = append(messages, openai.UserMessage(turn.Text))
		}
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Messages: openai.F(messages),
		Model:    openai.F(openai.ChatModel(o.model)),
	}
	if req.Schema != nil {
		params.ResponseFormat = openai.F[openai.ChatCompletionNewParamsResponseFormatUnion](
			openai.ResponseFormatJSONSchemaParam{
				Type: openai.F(openai.ResponseFormatJSONSchemaTypeJSONSchema),
				JSONSchema: openai.F(openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   openai.F("reply"),
					Schema: openai.F[interface{}](req.Schema.JSONSchema()),
					Strict: openai.F(true),
				}),
			},
		)
	}

	resp, err := o.completions.New(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no choices returned")
	}
	return &Response{Text: resp.Choices[0].Message.Content, Citations: []types.Citation{}}, nil
}
