package gateway

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hyperengineering/pavilion/internal/types"
)

// mockGenerator records requests and returns canned responses.
type mockGenerator struct {
	resp     *Response
	err      error
	requests []Request
}

func (m *mockGenerator) Generate(ctx context.Context, req Request) (*Response, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	return m.resp, nil
}

func (m *mockGenerator) Name() string { return "mock" }

func newTestClient(gen Generator) *Client {
	return &Client{gen: gen, model: DefaultModel}
}

func TestNew_MissingCredentialFailsFast(t *testing.T) {
	for _, provider := range []string{"", ProviderGemini, ProviderOpenAI} {
		_, err := New(context.Background(), Config{Provider: provider, APIKey: "  "})
		if !errors.Is(err, ErrMissingCredential) {
			t.Fatalf("provider %q: error = %v, want ErrMissingCredential", provider, err)
		}
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("provider %q: error should be *ConfigError, got %T", provider, err)
		}
	}
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New(context.Background(), Config{Provider: "llama", APIKey: "k"})
	if !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("error = %v, want ErrUnknownProvider", err)
	}
}

func TestNew_OpenAIDefaultsModel(t *testing.T) {
	c, err := New(context.Background(), Config{Provider: ProviderOpenAI, APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Model() != DefaultModel {
		t.Errorf("Model() = %q, want %q", c.Model(), DefaultModel)
	}
	if c.Provider() != ProviderOpenAI {
		t.Errorf("Provider() = %q", c.Provider())
	}
}

func TestSearchTrendingBooks_EnablesWebSearch(t *testing.T) {
	gen := &mockGenerator{resp: &Response{
		Text:      "summary",
		Citations: []types.Citation{{URL: "https://www.5000yan.com/", Title: "5000言"}},
	}}
	c := newTestClient(gen)

	res, err := c.SearchTrendingBooks(context.Background(), "  王阳明心学 ")
	if err != nil {
		t.Fatalf("SearchTrendingBooks: %v", err)
	}
	if res.Text != "summary" || len(res.Citations) != 1 {
		t.Errorf("result = %+v", res)
	}
	req := gen.requests[0]
	if !req.WebSearch {
		t.Error("search must enable web search")
	}
	if req.Schema != nil {
		t.Error("search must not request a schema")
	}
	if !strings.Contains(req.Prompt, `"王阳明心学"`) {
		t.Errorf("prompt should embed trimmed query, got %q", req.Prompt)
	}
}

func TestSearchTrendingBooks_NilCitationsBecomeEmpty(t *testing.T) {
	c := newTestClient(&mockGenerator{resp: &Response{Text: "x"}})
	res, err := c.SearchTrendingBooks(context.Background(), "q")
	if err != nil {
		t.Fatal(err)
	}
	if res.Citations == nil {
		t.Error("citations should be empty, not nil")
	}
}

func TestSearchTrendingBooks_RejectsBlankQuery(t *testing.T) {
	gen := &mockGenerator{}
	c := newTestClient(gen)
	_, err := c.SearchTrendingBooks(context.Background(), " \t")
	if !errors.Is(err, ErrEmptyInput) {
		t.Errorf("error = %v, want ErrEmptyInput", err)
	}
	if len(gen.requests) != 0 {
		t.Error("no request should be sent for a blank query")
	}
}

func TestCall_WrapsUpstreamError(t *testing.T) {
	original := errors.New("503 overloaded")
	c := newTestClient(&mockGenerator{err: original})

	_, err := c.DailyQuiz(context.Background())
	if !errors.Is(err, ErrUpstream) {
		t.Errorf("error should match ErrUpstream, got %v", err)
	}
	if !errors.Is(err, original) {
		t.Errorf("error should wrap original")
	}
}

func TestStructuredCalls_RequestSchemas(t *testing.T) {
	gen := &mockGenerator{resp: &Response{Text: `{}`}}
	c := newTestClient(gen)

	if _, err := c.DailyWisdom(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := c.DailyQuiz(context.Background()); err != nil {
		t.Fatal(err)
	}

	if gen.requests[0].Schema != wisdomSchema {
		t.Error("wisdom call should use the wisdom schema")
	}
	if gen.requests[1].Schema != quizSchema {
		t.Error("quiz call should use the quiz schema")
	}
	for _, r := range gen.requests {
		if r.WebSearch {
			t.Error("structured calls must not enable web search")
		}
	}
}

func TestBookGuide_EmptyReplyUsesPlaceholder(t *testing.T) {
	c := newTestClient(&mockGenerator{resp: &Response{Text: "  "}})
	got, err := c.BookGuide(context.Background(), "传习录")
	if err != nil {
		t.Fatal(err)
	}
	if got != NoGuideText {
		t.Errorf("BookGuide = %q, want %q", got, NoGuideText)
	}
}

func TestChatWithScholar_SendsPersonaAndHistory(t *testing.T) {
	gen := &mockGenerator{resp: &Response{Text: "善。"}}
	c := newTestClient(gen)
	history := []types.ConversationTurn{
		{Role: types.RoleModel, Text: "阁下安好。"},
		{Role: types.RoleUser, Text: "何为道？"},
		{Role: types.RoleModel, Text: "道可道，非常道。"},
	}

	reply, err := c.ChatWithScholar(context.Background(), history, "请再解释")
	if err != nil {
		t.Fatal(err)
	}
	if reply != "善。" {
		t.Errorf("reply = %q", reply)
	}
	req := gen.requests[0]
	if req.System != ScholarPersona {
		t.Error("chat must carry the scholar persona")
	}
	if len(req.History) != 3 || req.Prompt != "请再解释" {
		t.Errorf("request = %+v", req)
	}
}

func TestDisabled_FailsEveryCall(t *testing.T) {
	cfgErr := &ConfigError{Provider: ProviderGemini, Setting: "API key"}
	d := Disabled{Err: cfgErr}
	ctx := context.Background()

	if _, err := d.SearchTrendingBooks(ctx, "q"); !errors.Is(err, ErrMissingCredential) {
		t.Errorf("search error = %v", err)
	}
	if _, err := d.BookGuide(ctx, "t"); !errors.Is(err, ErrMissingCredential) {
		t.Errorf("guide error = %v", err)
	}
	if _, err := d.DailyWisdom(ctx); !errors.Is(err, ErrMissingCredential) {
		t.Errorf("wisdom error = %v", err)
	}
	if _, err := d.DailyQuiz(ctx); !errors.Is(err, ErrMissingCredential) {
		t.Errorf("quiz error = %v", err)
	}
	if _, err := d.ChatWithScholar(ctx, nil, "m"); !errors.Is(err, ErrMissingCredential) {
		t.Errorf("chat error = %v", err)
	}
}

func TestSchema_JSONSchema(t *testing.T) {
	doc := quizSchema.JSONSchema()
	if doc["type"] != "object" {
		t.Errorf("type = %v", doc["type"])
	}
	props := doc["properties"].(map[string]any)
	options := props["options"].(map[string]any)
	if options["type"] != "array" {
		t.Errorf("options.type = %v", options["type"])
	}
	if items := options["items"].(map[string]any); items["type"] != "string" {
		t.Errorf("options.items.type = %v", items["type"])
	}
	if doc["additionalProperties"] != false {
		t.Error("object schemas should forbid additional properties")
	}
}
